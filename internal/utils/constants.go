package utils

import "regexp"

const (
	OrganizationName = "Economy Plumbing"

	CORSLowSecurityAllowedOriginLocalhost = "http://localhost:*"

	TestPhoneNumberBase   = "+999"
	TestEmailSuffix       = "testing@economyplumbing.example"
	TestEmailRegexPattern = `^[0-9]+` + TestEmailSuffix + `$`
)

// Pre-compile the test email regex.
var TestEmailRegex = regexp.MustCompile(TestEmailRegexPattern)
