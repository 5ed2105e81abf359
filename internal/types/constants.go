package types

const ContextUserKey = "user"

// Roles. No hierarchy is implied anywhere in code: each operation
// enumerates its own allowed-role set explicitly.
const (
	RoleAdmin     = "admin"
	RoleSuperuser = "superuser"
	RoleUser      = "user"
)

// Incident statuses. Status is settable, not advanced: any authorized
// status update may set any of the three values.
const (
	StatusOpen       = "open"
	StatusInProgress = "in-progress"
	StatusClosed     = "closed"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleSuperuser, RoleUser:
		return true
	}
	return false
}

func ValidStatus(status string) bool {
	switch status {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}
