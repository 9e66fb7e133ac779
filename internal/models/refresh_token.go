package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken for the refresh_tokens table. CustomerIDs records every
// account the holder verified during login so account switching never
// requires a second verification.
type RefreshToken struct {
	ID          uuid.UUID
	CustomerID  int64 // active account
	CustomerIDs []int64
	Token       string
	IPAddress   string
	ExpiresAt   time.Time
	Revoked     bool
	CreatedAt   time.Time
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}
