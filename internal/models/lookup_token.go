package models

import (
	"time"

	"github.com/google/uuid"
)

// LookupToken for the lookup_tokens table. Issued by lookup-by-phone so
// later calls in the same flow can be correlated without re-submitting
// the phone number; consumed by send-code/verify-code.
type LookupToken struct {
	Token       uuid.UUID
	Phone       string
	CustomerIDs []int64
	Emails      []string
	ExpiresAt   time.Time
	Consumed    bool
	CreatedAt   time.Time
}

func (t *LookupToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
