package domain

import "time"

const (
	TokenPurposeEmailVerify   = "email_verify"
	TokenPurposePasswordReset = "password_reset"
)

// PendingToken is a single-use proof correlated to a user: either an email
// verification token or a password reset token. Only the sha256 of the raw
// token is stored. A token with used_at set, or past its expiry, is treated
// exactly like a token that never existed.
type PendingToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Purpose   string     `gorm:"size:32;not null;index:idx_pending_tokens_purpose" json:"purpose"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
