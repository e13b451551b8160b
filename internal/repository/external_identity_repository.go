package repository

import (
	"errors"

	"github.com/okhan/userauth/internal/domain"

	"gorm.io/gorm"
)

var ErrExternalIdentityNotFound = errors.New("external identity not found")

type ExternalIdentityRepository interface {
	FindByProvider(provider, providerUserID string) (*domain.ExternalIdentity, error)
	Create(identity *domain.ExternalIdentity) error
}

type GormExternalIdentityRepository struct {
	db *gorm.DB
}

func NewExternalIdentityRepository(db *gorm.DB) ExternalIdentityRepository {
	return &GormExternalIdentityRepository{db: db}
}

func (r *GormExternalIdentityRepository) FindByProvider(provider, providerUserID string) (*domain.ExternalIdentity, error) {
	var identity domain.ExternalIdentity
	err := r.db.Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExternalIdentityNotFound
		}
		return nil, err
	}
	return &identity, nil
}

func (r *GormExternalIdentityRepository) Create(identity *domain.ExternalIdentity) error {
	return r.db.Create(identity).Error
}
