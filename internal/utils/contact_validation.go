package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	twilio "github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	lookupsv2 "github.com/twilio/twilio-go/rest/lookups/v2"
)

// -----------------------------------------------------------------------
// 1) PHONE NUMBER VALIDATION
// -----------------------------------------------------------------------

var e164Regex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`) // ITU-T E.164

var nonDigitRegex = regexp.MustCompile(`\D`)

// IsE164 reports basic E.164 compliance.
func IsE164(number string) bool { return e164Regex.MatchString(number) }

// NormalizePhone reduces user input like "(512) 555-1234" to E.164,
// assuming US numbers when no country code is present. Returns "" when
// the input cannot be normalized.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	hadPlus := strings.HasPrefix(raw, "+")
	digits := nonDigitRegex.ReplaceAllString(raw, "")
	if digits == "" {
		return ""
	}

	var candidate string
	switch {
	case hadPlus:
		candidate = "+" + digits
	case len(digits) == 10:
		candidate = "+1" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		candidate = "+" + digits
	default:
		candidate = "+" + digits
	}

	if !IsE164(candidate) {
		return ""
	}
	return candidate
}

// ValidatePhoneNumber validates `number`.
//
// When validateWithTwilio is true and a non-nil Twilio RestClient is
// provided, the function performs a Twilio Lookups V2 fetch. Otherwise
// it validates locally against the E.164 shape only.
func ValidatePhoneNumber(
	ctx context.Context,
	number string,
	validateWithTwilio bool,
	tw *twilio.RestClient,
) (bool, error) {
	if !IsE164(number) {
		return false, nil
	}

	if validateWithTwilio && tw != nil {
		_, err := tw.LookupsV2.FetchPhoneNumber(number, &lookupsv2.FetchPhoneNumberParams{})
		if err == nil {
			return true, nil
		}

		if restErr, ok := err.(*twilioclient.TwilioRestError); ok {
			if restErr.Status == 404 { // unable to find that phone number
				return false, nil
			}
			return false, fmt.Errorf("twilio lookup failed: %d %s",
				restErr.Status, restErr.Error())
		}
		// Context cancel, network failure, etc.
		return false, err
	}

	return true, nil
}

// -----------------------------------------------------------------------
// 2) EMAIL VALIDATION
// -----------------------------------------------------------------------

// isValidEmailSyntax does RFC-5322-ish syntax only (no DNS).
func isValidEmailSyntax(e string) bool {
	_, err := mail.ParseAddress(e)
	return err == nil
}

// ValidateEmail returns true when the string parses as an email and,
// when validateWithSendGrid is set, SendGrid's deliverability check
// returns a "valid" or "risky" verdict. Any SendGrid/network error is
// returned so the caller can decide.
func ValidateEmail(ctx context.Context, apiKey string, email string, validateWithSendGrid bool) (bool, error) {
	if !isValidEmailSyntax(email) {
		return false, nil
	}

	if validateWithSendGrid {
		req := sendgrid.GetRequest(apiKey, "/v3/validations/email", "https://api.sendgrid.com")
		req.Method = "POST"
		req.Body = []byte(fmt.Sprintf(`{"email":"%s"}`, email))

		resp, err := sendgrid.API(req)
		if err != nil {
			return false, err
		}

		switch resp.StatusCode {
		case 200:
			var sg struct {
				Result struct {
					Verdict string `json:"verdict"`
				} `json:"result"`
			}
			if jsonErr := json.Unmarshal([]byte(resp.Body), &sg); jsonErr != nil {
				return false, fmt.Errorf("sendgrid JSON decode: %w", jsonErr)
			}
			verdict := strings.ToLower(sg.Result.Verdict)
			return verdict == "valid" || verdict == "risky", nil

		case 400: // SendGrid treats syntactically bad addresses as 400
			return false, nil
		default:
			return false, fmt.Errorf("sendgrid validation failed: status %d – %s", resp.StatusCode, resp.Body)
		}
	}

	return true, nil
}
