package domain

import "time"

// ExternalIdentity links a user to an identity provider account.
// At most one row per (user, provider).
type ExternalIdentity struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index;not null;uniqueIndex:idx_external_identities_user_provider,priority:1" json:"user_id"`
	Provider       string    `gorm:"size:64;not null;uniqueIndex:idx_external_identities_user_provider,priority:2;uniqueIndex:idx_external_identities_provider_subject,priority:1" json:"provider"`
	ProviderUserID string    `gorm:"size:255;not null;uniqueIndex:idx_external_identities_provider_subject,priority:2" json:"provider_user_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
