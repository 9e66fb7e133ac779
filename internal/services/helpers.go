package services

import (
	"crypto/rand"
	"math/big"
)

// TestVerificationCode is stored instead of a random code for fake test
// contacts when accept_fake_phones_and_emails is on.
const TestVerificationCode = "000000"

// Helper function for generating numeric codes
func generateVerificationCode(length int) (string, error) {
	const digits = "0123456789"
	code := make([]byte, length)
	for i := range length {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		code[i] = digits[num.Int64()]
	}
	return string(code), nil
}

func generateSecureToken(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[secureRandomInt(len(charset))]
	}
	return string(b)
}

func secureRandomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(err)
	}
	return int(n.Int64())
}
