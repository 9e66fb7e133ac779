package config

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/pem"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/launchdarkly/go-sdk-common/v3/ldcontext"
	ld "github.com/launchdarkly/go-server-sdk/v7"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/utils"
)

// Config holds all application configuration, including secrets, flags, etc.
type Config struct {
	OrganizationName          string
	AppName                   string
	AppPort                   string
	AppUrl                    string
	DBUrl                     string
	CRMBaseURL                string
	CRMAPIKey                 string
	WebTokenExpiry            time.Duration
	WebRefreshTokenExpiry     time.Duration
	TwilioAccountSID          string
	TwilioAuthToken           string
	SendGridAPIKey            string
	VerificationCodeLength    int
	VerificationCodeExpiry    time.Duration
	LookupTokenExpiry         time.Duration
	MaxCodeAttempts           int
	RSAPrivateKey             *rsa.PrivateKey
	RSAPublicKey              *rsa.PublicKey
	SMSLimitPerIPPerHour      int
	SMSLimitPerNumberPerHour  int
	GlobalSMSLimitPerHour     int
	EmailLimitPerIPPerHour    int
	EmailLimitPerEmailPerHour int
	GlobalEmailLimitPerHour   int
	RateLimitWindow           time.Duration

	// Static flags fetched once from LaunchDarkly
	LDFlag_SendgridFromEmail         string
	LDFlag_TwilioFromPhone           string
	LDFlag_ShortTokenTTL             bool
	LDFlag_AcceptFakePhonesEmails    bool
	LDFlag_SendgridSandboxMode       bool
	LDFlag_ValidatePhoneWithTwilio   bool
	LDFlag_ValidateEmailWithSendGrid bool
	LDFlag_CORSHighSecurity          bool
}

// Constants for time-based configuration defaults.
const (
	OrganizationName                 = utils.OrganizationName
	VerificationCodeLength           = 6
	DefaultVerificationCodeExpiry    = 5 * time.Minute
	TestShortVerificationCodeExpiry  = 3 * time.Second
	DefaultLookupTokenExpiry         = 15 * time.Minute
	DefaultMaxCodeAttempts           = 5
	DefaultTokenExpiry               = 10 * time.Minute
	DefaultRefreshTokenExpiry        = 7 * 24 * time.Hour
	TestShortTokenExpiry             = 2 * time.Second
	TestShortRefreshTokenExpiry      = 8 * time.Second
	LDConnectionTimeout              = 5 * time.Second
	DefaultSMSLimitPerIPPerHour      = 20
	DefaultSMSLimitPerNumberPerHour  = 5
	DefaultGlobalSMSLimitPerHour     = 1000
	DefaultEmailLimitPerIPPerHour    = 50
	DefaultEmailLimitPerEmailPerHour = 5
	DefaultGlobalEmailLimitPerHour   = 2000
	DefaultRateLimitWindow           = 1 * time.Hour
	TestShortGlobalSMSLimit          = 50
	TestShortGlobalEmailLimit        = 50
)

// Global compile-time overrides, defaults for demonstration.
var (
	AppName             string
	LDServerContextKey  string
	LDServerContextKind string
)

func requireEnv(name string) string {
	v := os.Getenv(name)
	if v == "" {
		utils.Logger.Fatalf("%s env var is missing", name)
	}
	return v
}

// LoadConfig reads env vars, sets up LaunchDarkly, and returns a *Config.
func LoadConfig() *Config {
	//----------------------------------------------------------------------
	// Check for required ldflags.
	//----------------------------------------------------------------------
	if AppName == "" {
		utils.Logger.Fatal("AppName was not overridden with ldflags at build time (or is empty)")
	}
	if LDServerContextKey == "" {
		utils.Logger.Fatal("LDServerContextKey was not overridden with ldflags at build time (or is empty)")
	}
	if LDServerContextKind == "" {
		utils.Logger.Fatal("LDServerContextKind was not overridden with ldflags at build time (or is empty)")
	}

	utils.Logger.Info("Loading config for app: ", AppName)

	//----------------------------------------------------------------------
	// Load environment variables.
	//----------------------------------------------------------------------
	appUrl := requireEnv("APP_URL_FROM_ANYWHERE")
	appPort := requireEnv("APP_PORT")
	dbUrl := requireEnv("DB_URL")
	crmBaseURL := requireEnv("CRM_BASE_URL")
	crmAPIKey := requireEnv("CRM_API_KEY")
	twilioAccountSID := requireEnv("TWILIO_ACCOUNT_SID")
	twilioAuthToken := requireEnv("TWILIO_AUTH_TOKEN")
	sendGridAPIKey := requireEnv("SENDGRID_API_KEY")
	ldSDKKey := requireEnv("LD_SDK_KEY")

	utils.Logger.Debugf("App can be accessed at: %s", appUrl)

	//----------------------------------------------------------------------
	// Parse the RSA signing keypair.
	//----------------------------------------------------------------------
	privateKeyBase64 := requireEnv("RSA_PRIVATE_KEY_BASE64")
	privateKeyPEM, err := base64.StdEncoding.DecodeString(privateKeyBase64)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to decode base64 private key")
	}
	block, _ := pem.Decode(privateKeyPEM)
	if block == nil {
		utils.Logger.Fatal("Failed to decode PEM block for private key")
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA private key")
	}

	publicKeyBase64 := requireEnv("RSA_PUBLIC_KEY_BASE64")
	publicKeyPEM, err := base64.StdEncoding.DecodeString(publicKeyBase64)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to decode base64 public key")
	}
	block, _ = pem.Decode(publicKeyPEM)
	if block == nil {
		utils.Logger.Fatal("Failed to decode PEM block for public key")
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
	}

	//----------------------------------------------------------------------
	// Default token and code expiries.
	//----------------------------------------------------------------------
	webTokenExpiry := DefaultTokenExpiry
	webRefreshTokenExpiry := DefaultRefreshTokenExpiry
	verificationCodeExpiry := DefaultVerificationCodeExpiry
	globalSMSLimit := DefaultGlobalSMSLimitPerHour
	globalEmailLimit := DefaultGlobalEmailLimitPerHour

	//----------------------------------------------------------------------
	// Initialize the LaunchDarkly client with the LD_SDK_KEY.
	//----------------------------------------------------------------------
	ldClient, err := ld.MakeClient(ldSDKKey, LDConnectionTimeout)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to create LaunchDarkly client")
	}
	if !ldClient.Initialized() {
		ldClient.Close()
		utils.Logger.Fatal("LaunchDarkly client failed to initialize")
	}
	defer ldClient.Close()

	//----------------------------------------------------------------------
	// Fetch the specified static flags from LaunchDarkly.
	//----------------------------------------------------------------------
	context := ldcontext.NewWithKind(ldcontext.Kind(LDServerContextKind), LDServerContextKey)

	sendgridFromEmailFlag, err := ldClient.StringVariation("sendgrid_from_email", context, "")
	if err != nil {
		ldClient.Close()
		utils.Logger.WithError(err).Fatal("Error retrieving sendgrid_from_email flag")
	}
	if sendgridFromEmailFlag == "" {
		utils.Logger.Fatal("sendgrid_from_email flag is empty")
	}

	twilioFromPhoneFlag, err := ldClient.StringVariation("twilio_from_phone", context, "")
	if err != nil {
		ldClient.Close()
		utils.Logger.WithError(err).Fatal("Error retrieving twilio_from_phone flag")
	}
	if twilioFromPhoneFlag == "" {
		utils.Logger.Fatal("twilio_from_phone flag is empty")
	}
	utils.Logger.Debugf("twilio_from_phone flag: %s", twilioFromPhoneFlag)

	shortTokenTTLFlag, err := ldClient.BoolVariation("short_token_ttl", context, false)
	if err != nil {
		ldClient.Close()
		utils.Logger.WithError(err).Fatal("Error retrieving short_token_ttl flag")
	}
	utils.Logger.Debugf("short_token_ttl flag: %t", shortTokenTTLFlag)

	acceptFakePhonesEmailsFlag, err := ldClient.BoolVariation("accept_fake_phones_and_emails", context, false)
	if err != nil {
		ldClient.Close()
		utils.Logger.WithError(err).Fatal("Error retrieving accept_fake_phones_and_emails flag")
	}
	utils.Logger.Debugf("accept_fake_phones_and_emails flag: %t", acceptFakePhonesEmailsFlag)

	sendgridSandboxModeFlag, err := ldClient.BoolVariation("sendgrid_sandbox_mode", context, false)
	if err != nil {
		ldClient.Close()
		utils.Logger.WithError(err).Fatal("Error retrieving sendgrid_sandbox_mode flag")
	}
	utils.Logger.Debugf("sendgrid_sandbox_mode flag: %t", sendgridSandboxModeFlag)

	validatePhoneWithTwilioFlag, err := ldClient.BoolVariation("validate_phone_with_twilio", context, false)
	if err != nil {
		ldClient.Close()
		utils.Logger.WithError(err).Fatal("Error retrieving validate_phone_with_twilio flag")
	}
	utils.Logger.Debugf("validate_phone_with_twilio flag: %t", validatePhoneWithTwilioFlag)

	validateEmailWithSendGridFlag, err := ldClient.BoolVariation("validate_email_with_sendgrid", context, false)
	if err != nil {
		ldClient.Close()
		utils.Logger.WithError(err).Fatal("Error retrieving validate_email_with_sendgrid flag")
	}
	utils.Logger.Debugf("validate_email_with_sendgrid flag: %t", validateEmailWithSendGridFlag)

	corsHighSecurity, err := ldClient.BoolVariation("cors_high_security", context, false)
	if err != nil {
		ldClient.Close()
		utils.Logger.WithError(err).Fatal("Error retrieving cors_high_security flag")
	}
	utils.Logger.Debugf("cors_high_security flag: %t", corsHighSecurity)

	//----------------------------------------------------------------------
	// If shortTokenTTLFlag is true, override expiries and global limits.
	//----------------------------------------------------------------------
	if shortTokenTTLFlag {
		webTokenExpiry = TestShortTokenExpiry
		webRefreshTokenExpiry = TestShortRefreshTokenExpiry
		verificationCodeExpiry = TestShortVerificationCodeExpiry
		globalSMSLimit = TestShortGlobalSMSLimit
		globalEmailLimit = TestShortGlobalEmailLimit
	}

	//----------------------------------------------------------------------
	// Build and return the configuration object.
	//----------------------------------------------------------------------
	return &Config{
		OrganizationName:          OrganizationName,
		AppName:                   AppName,
		AppPort:                   appPort,
		AppUrl:                    appUrl,
		DBUrl:                     dbUrl,
		CRMBaseURL:                crmBaseURL,
		CRMAPIKey:                 crmAPIKey,
		WebTokenExpiry:            webTokenExpiry,
		WebRefreshTokenExpiry:     webRefreshTokenExpiry,
		TwilioAccountSID:          twilioAccountSID,
		TwilioAuthToken:           twilioAuthToken,
		SendGridAPIKey:            sendGridAPIKey,
		VerificationCodeLength:    VerificationCodeLength,
		VerificationCodeExpiry:    verificationCodeExpiry,
		LookupTokenExpiry:         DefaultLookupTokenExpiry,
		MaxCodeAttempts:           DefaultMaxCodeAttempts,
		RSAPrivateKey:             privateKey,
		RSAPublicKey:              publicKey,
		SMSLimitPerIPPerHour:      DefaultSMSLimitPerIPPerHour,
		SMSLimitPerNumberPerHour:  DefaultSMSLimitPerNumberPerHour,
		GlobalSMSLimitPerHour:     globalSMSLimit,
		EmailLimitPerIPPerHour:    DefaultEmailLimitPerIPPerHour,
		EmailLimitPerEmailPerHour: DefaultEmailLimitPerEmailPerHour,
		GlobalEmailLimitPerHour:   globalEmailLimit,
		RateLimitWindow:           DefaultRateLimitWindow,

		LDFlag_SendgridFromEmail:         sendgridFromEmailFlag,
		LDFlag_TwilioFromPhone:           twilioFromPhoneFlag,
		LDFlag_ShortTokenTTL:             shortTokenTTLFlag,
		LDFlag_AcceptFakePhonesEmails:    acceptFakePhonesEmailsFlag,
		LDFlag_SendgridSandboxMode:       sendgridSandboxModeFlag,
		LDFlag_ValidatePhoneWithTwilio:   validatePhoneWithTwilioFlag,
		LDFlag_ValidateEmailWithSendGrid: validateEmailWithSendGridFlag,
		LDFlag_CORSHighSecurity:          corsHighSecurity,
	}
}
