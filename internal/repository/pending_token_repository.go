package repository

import (
	"errors"
	"time"

	"github.com/okhan/userauth/internal/domain"

	"gorm.io/gorm"
)

var ErrPendingTokenNotFound = errors.New("pending token not found")

type PendingTokenRepository interface {
	Create(token *domain.PendingToken) error
	FindActiveByHashPurpose(hash, purpose string, now time.Time) (*domain.PendingToken, error)
	// Consume marks the token used. The conditional update makes consumption
	// atomic: under concurrent attempts exactly one caller sees a row
	// affected, every other caller gets ErrPendingTokenNotFound.
	Consume(tokenID, userID uint, now time.Time) error
	InvalidateActiveByUserPurpose(userID uint, purpose string, now time.Time) error
}

type GormPendingTokenRepository struct {
	db *gorm.DB
}

func NewPendingTokenRepository(db *gorm.DB) PendingTokenRepository {
	return &GormPendingTokenRepository{db: db}
}

func (r *GormPendingTokenRepository) Create(token *domain.PendingToken) error {
	return r.db.Create(token).Error
}

func (r *GormPendingTokenRepository) FindActiveByHashPurpose(hash, purpose string, now time.Time) (*domain.PendingToken, error) {
	var token domain.PendingToken
	err := r.db.Where("token_hash = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?", hash, purpose, now).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPendingTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *GormPendingTokenRepository) Consume(tokenID, userID uint, now time.Time) error {
	res := r.db.Model(&domain.PendingToken{}).
		Where("id = ? AND user_id = ? AND used_at IS NULL AND expires_at > ?", tokenID, userID, now).
		Updates(map[string]any{"used_at": now, "updated_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPendingTokenNotFound
	}
	return nil
}

func (r *GormPendingTokenRepository) InvalidateActiveByUserPurpose(userID uint, purpose string, now time.Time) error {
	return r.db.Model(&domain.PendingToken{}).
		Where("user_id = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?", userID, purpose, now).
		Updates(map[string]any{"used_at": now, "updated_at": now}).Error
}
