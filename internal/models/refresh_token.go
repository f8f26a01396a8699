package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is one link of a refresh chain. Only the SHA-256 digest of the
// opaque token is stored. IsUsed only ever moves from false to true.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	Username  string    `gorm:"size:50;not null;index" json:"username"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	IsUsed    bool      `gorm:"not null" json:"is_used"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token can no longer be rotated at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
