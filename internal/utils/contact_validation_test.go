package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(512) 555-1234", "+15125551234"},
		{"512-555-1234", "+15125551234"},
		{"512.555.1234", "+15125551234"},
		{"5125551234", "+15125551234"},
		{"15125551234", "+15125551234"},
		{"+15125551234", "+15125551234"},
		{"+44 20 7946 0958", "+442079460958"},
		{"  5125551234  ", "+15125551234"},
		{"+999 555 1234", "+9995551234"},
		{"", ""},
		{"call me maybe", ""},
		{"123", ""},          // too short for E.164
		{"+0125551234", ""},  // leading zero not allowed
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), "NormalizePhone(%q)", tt.in)
	}
}

func TestIsE164(t *testing.T) {
	assert.True(t, IsE164("+15125551234"))
	assert.True(t, IsE164("+442079460958"))
	assert.False(t, IsE164("15125551234"))
	assert.False(t, IsE164("+1512555123456789"))
	assert.False(t, IsE164("+1-512-555-1234"))
}

func TestValidatePhoneNumber_LocalOnly(t *testing.T) {
	ok, err := ValidatePhoneNumber(context.Background(), "+15125551234", false, nil)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = ValidatePhoneNumber(context.Background(), "5125551234", false, nil)
	assert.NoError(t, err)
	assert.False(t, ok, "non-E.164 input is rejected before any lookup")
}

func TestValidateEmail_SyntaxOnly(t *testing.T) {
	ok, err := ValidateEmail(context.Background(), "", "jane@example.com", false)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = ValidateEmail(context.Background(), "", "not-an-email", false)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestTestEmailRegex(t *testing.T) {
	assert.True(t, TestEmailRegex.MatchString("1"+TestEmailSuffix))
	assert.True(t, TestEmailRegex.MatchString("0042"+TestEmailSuffix))
	assert.False(t, TestEmailRegex.MatchString(TestEmailSuffix), "a digit prefix is required")
	assert.False(t, TestEmailRegex.MatchString("x1"+TestEmailSuffix))
}
