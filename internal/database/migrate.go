package database

import (
	"github.com/okhan/userauth/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.LocalCredential{},
		&domain.PendingToken{},
		&domain.ExternalIdentity{},
	)
}
