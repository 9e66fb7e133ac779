package models

import (
	"time"

	"github.com/google/uuid"
)

type VerificationChannel string

const (
	ChannelEmail VerificationChannel = "email"
	ChannelSMS   VerificationChannel = "sms"
)

// VerificationCode for the verification_codes table. One live row per
// contact value; a new send-code request replaces any prior row.
type VerificationCode struct {
	ID               uuid.UUID
	Contact          string // email address or E.164 phone
	Channel          VerificationChannel
	VerificationCode string
	MagicToken       *string // email channel only; single-use link token
	CustomerIDs      []int64 // CRM snapshot taken when the code was issued
	ExpiresAt        time.Time
	Attempts         int
	Verified         bool
	VerifiedAt       *time.Time
	VerifiedBy       *string
	CreatedAt        time.Time
}
