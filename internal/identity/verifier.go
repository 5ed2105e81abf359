package identity

import (
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/incidentdesk/incidentdesk/internal/apperrors"
	"github.com/incidentdesk/incidentdesk/internal/models"
)

// Verifier checks credentials and answers with the matching user record.
// The rest of the core never touches password material.
type Verifier interface {
	Verify(username, password string) (*models.User, error)
}

// DBVerifier verifies against the users table with bcrypt.
type DBVerifier struct {
	db *gorm.DB
}

func NewDBVerifier(db *gorm.DB) *DBVerifier {
	return &DBVerifier{db: db}
}

func (v *DBVerifier) Verify(username, password string) (*models.User, error) {
	var user models.User

	err := v.db.Where("username = ?", username).First(&user).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrAuthentication, "Invalid username or password")
		}
		log.Printf("Database error when fetching user: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrUpstream, "Failed to verify credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrAuthentication, "Invalid username or password")
	}

	if !user.IsActive {
		return nil, apperrors.Wrap(apperrors.ErrForbidden, "Account is disabled")
	}

	return &user, nil
}

// HashPassword is the single place password material is produced.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
