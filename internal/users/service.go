package users

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/incidentdesk/incidentdesk/internal/apperrors"
	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/authz"
	"github.com/incidentdesk/incidentdesk/internal/identity"
	"github.com/incidentdesk/incidentdesk/internal/models"
	"github.com/incidentdesk/incidentdesk/internal/types"
)

// Service owns user CRUD with the same self-or-privileged read scoping the
// incident queries apply.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type CreateInput struct {
	Username   string
	Password   string
	Role       string
	Department string
}

type UpdateInput struct {
	Username    string
	Department  *string
	Role        string
	IsActive    *bool
	NewPassword string
}

// Create registers a new account. Only admin and superuser may do this.
func (s *Service) Create(ctx context.Context, principal auth.Principal, input CreateInput) (*models.User, error) {
	if err := authz.Authorize(principal, types.RoleAdmin, types.RoleSuperuser); err != nil {
		return nil, err
	}

	input.Username = strings.ToLower(strings.TrimSpace(input.Username))

	if input.Username == "" || input.Password == "" {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "Username and password are required")
	}

	if !types.ValidRole(input.Role) {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "Invalid role %q", input.Role)
	}

	passwordHash, err := identity.HashPassword(input.Password)

	if err != nil {
		log.Printf("Failed to hash password: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to create user")
	}

	user := models.User{
		Username:     input.Username,
		PasswordHash: passwordHash,
		Role:         input.Role,
		Department:   input.Department,
		IsActive:     true,
	}

	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Wrap(apperrors.ErrConflict, "Username already exists")
		}
		log.Printf("Failed to create user: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to create user")
	}

	return &user, nil
}

// List returns all users for privileged roles; a user-role principal only
// sees their own record.
func (s *Service) List(ctx context.Context, principal auth.Principal) ([]models.User, error) {
	query := s.db.Order("created_at DESC")

	if principal.Role == types.RoleUser {
		query = query.Where("id = ?", principal.UserID)
	}

	var users []models.User

	if err := query.Find(&users).Error; err != nil {
		log.Printf("Failed to list users: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to retrieve users")
	}

	return users, nil
}

// Get applies the self-or-privileged rule after the row is resolved so a
// missing user is 404 for everyone who may ask.
func (s *Service) Get(ctx context.Context, principal auth.Principal, userID uint) (*models.User, error) {
	user, err := s.fetch(userID)

	if err != nil {
		return nil, err
	}

	if !authz.CanAccessRecord(principal, user.ID) {
		return nil, apperrors.Wrap(apperrors.ErrForbidden, "You do not have permission to view this user")
	}

	return user, nil
}

// Update mutates profile fields and the activation flag. Admin only.
func (s *Service) Update(ctx context.Context, principal auth.Principal, userID uint, input UpdateInput) (*models.User, error) {
	if err := authz.Authorize(principal, types.RoleAdmin); err != nil {
		return nil, err
	}

	user, err := s.fetch(userID)

	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if input.Username != "" {
		updates["username"] = strings.ToLower(strings.TrimSpace(input.Username))
	}

	if input.Department != nil {
		updates["department"] = *input.Department
	}

	if input.Role != "" {
		if !types.ValidRole(input.Role) {
			return nil, apperrors.Wrap(apperrors.ErrValidation, "Invalid role %q", input.Role)
		}
		updates["role"] = input.Role
	}

	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}

	if input.NewPassword != "" {
		passwordHash, err := identity.HashPassword(input.NewPassword)
		if err != nil {
			log.Printf("Failed to hash password: %v", err)
			return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to update user")
		}
		updates["password_hash"] = passwordHash
	}

	if len(updates) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrValidation, "No valid fields to update")
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Wrap(apperrors.ErrConflict, "Username already exists")
		}
		log.Printf("Failed to update user %d: %v", userID, err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to update user")
	}

	return user, nil
}

// Delete removes an account. Admin only, and never the acting principal's
// own account.
func (s *Service) Delete(ctx context.Context, principal auth.Principal, userID uint) error {
	if err := authz.Authorize(principal, types.RoleAdmin); err != nil {
		return err
	}

	if userID == principal.UserID {
		return apperrors.Wrap(apperrors.ErrForbidden, "You cannot delete your own account")
	}

	user, err := s.fetch(userID)

	if err != nil {
		return err
	}

	if err := s.db.Delete(user).Error; err != nil {
		log.Printf("Failed to delete user %d: %v", userID, err)
		return apperrors.Wrap(apperrors.ErrUpstream, "Failed to delete user")
	}

	return nil
}

func (s *Service) fetch(userID uint) (*models.User, error) {
	var user models.User

	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "User not found")
		}
		log.Printf("Failed to fetch user %d: %v", userID, err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to retrieve user")
	}

	return &user, nil
}
