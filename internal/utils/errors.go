package utils

import "errors"

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidPhone     = errors.New("invalid_phone")
	ErrCustomerNotFound = errors.New("customer_not_found")
	ErrNoCustomerData   = errors.New("no_customer_data")

	// For codes and magic links
	ErrCodeInvalidOrExpired = errors.New("code_invalid_or_expired")

	// For lookup-token correlation
	ErrLookupTokenInvalid = errors.New("lookup_token_invalid")

	// For rate limiting
	ErrRateLimitExceeded = errors.New("rate_limit_exceeded")

	// For external service failures (Twilio, SendGrid, the CRM)
	ErrExternalServiceFailure = errors.New("external_service_failure")
)
