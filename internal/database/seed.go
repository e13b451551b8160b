package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okhan/userauth/internal/domain"

	"gorm.io/gorm"
)

// Seed promotes the configured bootstrap email to admin if that account
// exists. Registration always creates plain users; this is the only path to
// the admin role.
func Seed(db *gorm.DB, bootstrapAdminEmail string) error {
	email := strings.TrimSpace(strings.ToLower(bootstrapAdminEmail))
	if email == "" {
		return nil
	}
	var u domain.User
	if err := db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("seed bootstrap admin: %w", err)
	}
	if u.Role == domain.RoleAdmin {
		return nil
	}
	return db.Model(&u).Update("role", domain.RoleAdmin).Error
}

// VerifyLocalEmail is an operator shortcut used by the authctl CLI to mark a
// local credential verified without going through the email round-trip.
func VerifyLocalEmail(db *gorm.DB, email string) error {
	normalized := strings.TrimSpace(strings.ToLower(email))
	if normalized == "" {
		return fmt.Errorf("email is required")
	}
	var u domain.User
	if err := db.Where("email = ?", normalized).First(&u).Error; err != nil {
		return err
	}
	now := time.Now().UTC()
	tx := db.Model(&domain.LocalCredential{}).Where("user_id = ?", u.ID).
		Updates(map[string]any{"email_verified": true, "email_verified_at": &now})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
