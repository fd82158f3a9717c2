package accounts

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the referenced account does not exist.
	ErrNotFound = errors.New("accounts: not found")
	// ErrDuplicate indicates the email is already connected for this user.
	ErrDuplicate = errors.New("accounts: email already connected")
	// ErrValidation indicates missing required fields.
	ErrValidation = errors.New("accounts: validation failed")
)

// LegacyPrimaryID identifies the synthetic account backed by the legacy
// single-token fields on the user record.
const LegacyPrimaryID = "primary"

// PlaceholderEmail stands in for the legacy primary's address until the
// first provider call resolves it.
const PlaceholderEmail = "loading..."

// Account is one OAuth-linked mailbox/calendar identity belonging to a user.
// ExpiresAt is unix milliseconds, matching the provider token payloads.
type Account struct {
	ID           string `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	UserID       string `gorm:"column:user_id;size:190;not null;index" json:"-"`
	Email        string `gorm:"column:email;size:320;not null" json:"email"`
	AccessToken  string `gorm:"column:access_token;type:text;not null" json:"accessToken"`
	RefreshToken string `gorm:"column:refresh_token;type:text" json:"refreshToken,omitempty"`
	ExpiresAt    int64  `gorm:"column:expires_at_ms" json:"expiresAt,omitempty"`
	IsPrimary    bool   `gorm:"column:is_primary;not null;default:false" json:"isPrimary"`
	AddedAt      string `gorm:"column:added_at;size:64;not null" json:"addedAt"`
	Label        string `gorm:"column:label;size:320" json:"label,omitempty"`
}

// TableName provides the explicit table binding for GORM.
func (Account) TableName() string {
	return "email_accounts"
}

// Usable reports whether the account's token can still be presented to the
// provider: true when no expiry is recorded or the expiry is in the future.
func (a Account) Usable(now time.Time) bool {
	if a.ExpiresAt == 0 {
		return true
	}
	return now.UnixMilli() < a.ExpiresAt
}

// UserRecord holds per-user fields including the legacy single-token
// primary account left over from before multi-account support.
type UserRecord struct {
	UserID               string `gorm:"column:user_id;primaryKey;size:190;not null"`
	Email                string `gorm:"column:email;size:320"`
	GoogleAccessToken    string `gorm:"column:google_access_token;type:text"`
	GoogleRefreshToken   string `gorm:"column:google_refresh_token;type:text"`
	GoogleTokenExpiresAt int64  `gorm:"column:google_token_expires_at_ms"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (UserRecord) TableName() string {
	return "users"
}
