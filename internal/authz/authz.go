package authz

import (
	"github.com/incidentdesk/incidentdesk/internal/apperrors"
	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/types"
)

// Authorize is a pure role-membership check invoked at the start of every
// domain operation. Deny short-circuits before any storage call runs so a
// rejected caller learns nothing about whether the resource exists.
func Authorize(principal auth.Principal, allowedRoles ...string) error {
	for _, role := range allowedRoles {
		if principal.Role == role {
			return nil
		}
	}
	return apperrors.Wrap(apperrors.ErrForbidden, "You do not have permission to perform this action")
}

// CanAccessRecord layers the ownership rule on top of the role check for
// reads: a user-role principal may only touch records they own.
func CanAccessRecord(principal auth.Principal, ownerID uint) bool {
	if principal.Role == types.RoleAdmin || principal.Role == types.RoleSuperuser {
		return true
	}
	return principal.UserID == ownerID
}
