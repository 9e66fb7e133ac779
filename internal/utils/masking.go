package utils

import "strings"

// MaskEmail redacts an address for display during email selection:
// "plumber@example.com" -> "p*****r@e*********m". The full value is
// never shown to an unverified caller.
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return strings.Repeat("*", len(email))
	}
	return maskPart(email[:at]) + "@" + maskPart(email[at+1:])
}

// MaskPhone keeps the last four digits: "+15125551234" -> "(***) ***-1234".
func MaskPhone(phone string) string {
	if len(phone) < 4 {
		return strings.Repeat("*", len(phone))
	}
	return "(***) ***-" + phone[len(phone)-4:]
}

func maskPart(s string) string {
	switch len(s) {
	case 0:
		return s
	case 1:
		return "*"
	case 2:
		return s[:1] + "*"
	default:
		return s[:1] + strings.Repeat("*", len(s)-2) + s[len(s)-1:]
	}
}
