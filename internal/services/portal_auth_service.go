package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/config"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/crm"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/dtos"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/models"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/repositories"
	"github.com/snwagner777/EconomyPlumbing-sub002/internal/utils"
)

// CustomerDirectory is the slice of the CRM client the auth flow needs.
type CustomerDirectory interface {
	SearchCustomersByPhone(ctx context.Context, phone string) ([]crm.Customer, error)
	SearchCustomersByEmail(ctx context.Context, email string) ([]crm.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*crm.Customer, error)
}

// ---------------------------------------------------------------------
// PortalAuthService interface
// ---------------------------------------------------------------------

type PortalAuthService interface {
	LookupByPhone(ctx context.Context, phone, clientIP string) (*dtos.LookupByPhoneResponse, error)
	SendCode(ctx context.Context, req dtos.SendCodeRequest, clientIP string) (*dtos.SendCodeResponse, error)

	// VerifyCode returns the response plus the freshly issued access and
	// refresh tokens on success.
	VerifyCode(ctx context.Context, req dtos.VerifyCodeRequest, clientIP string) (*dtos.VerifyCodeResponse, string, string, error)
}

// ---------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------

type portalAuthService struct {
	verificationRepo repositories.VerificationRepository
	lookupRepo       repositories.LookupTokenRepository
	rateLimiter      RateLimiterService
	sessions         SessionService
	directory        CustomerDirectory

	cfg            *config.Config
	sendgridClient *sendgrid.Client
	twilioClient   *twilio.RestClient
}

func NewPortalAuthService(
	verificationRepo repositories.VerificationRepository,
	lookupRepo repositories.LookupTokenRepository,
	rateLimiter RateLimiterService,
	sessions SessionService,
	directory CustomerDirectory,
	cfg *config.Config,
) PortalAuthService {

	sgClient := sendgrid.NewSendClient(cfg.SendGridAPIKey)
	twClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})

	return &portalAuthService{
		verificationRepo: verificationRepo,
		lookupRepo:       lookupRepo,
		rateLimiter:      rateLimiter,
		sessions:         sessions,
		directory:        directory,
		cfg:              cfg,
		sendgridClient:   sgClient,
		twilioClient:     twClient,
	}
}

// ---------------------------------------------------------------------
// LookupByPhone
// ---------------------------------------------------------------------

func (s *portalAuthService) LookupByPhone(ctx context.Context, phone, clientIP string) (*dtos.LookupByPhoneResponse, error) {
	normalized := utils.NormalizePhone(phone)
	if normalized == "" {
		return nil, utils.ErrInvalidPhone
	}

	if !s.isFakePhone(normalized) {
		ok, err := utils.ValidatePhoneNumber(ctx, normalized, s.cfg.LDFlag_ValidatePhoneWithTwilio, s.twilioClient)
		if err != nil {
			return nil, fmt.Errorf("%w: phone validation: %v", utils.ErrExternalServiceFailure, err)
		}
		if !ok {
			return nil, utils.ErrInvalidPhone
		}
	}

	if err := s.rateLimiter.CheckSMSRateLimits(ctx, clientIP, normalized); err != nil {
		return nil, err
	}

	customers, err := s.directory.SearchCustomersByPhone(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: crm search by phone: %v", utils.ErrExternalServiceFailure, err)
	}

	if len(customers) == 0 {
		return &dtos.LookupByPhoneResponse{
			Kind:    dtos.KindNotFound,
			Found:   false,
			Message: "No account was found for that phone number.",
		}, nil
	}

	var ids []int64
	emailSeen := make(map[string]bool)
	var emails []string
	for _, c := range customers {
		ids = append(ids, c.ID)
		for _, e := range c.AllEmails() {
			if !emailSeen[e] {
				emailSeen[e] = true
				emails = append(emails, e)
			}
		}
	}

	tok := &models.LookupToken{
		Token:       uuid.New(),
		Phone:       normalized,
		CustomerIDs: ids,
		Emails:      emails,
		ExpiresAt:   time.Now().Add(s.cfg.LookupTokenExpiry),
	}
	if err := s.lookupRepo.Create(ctx, tok); err != nil {
		return nil, err
	}

	if len(customers) >= 2 {
		return &dtos.LookupByPhoneResponse{
			Kind:             dtos.KindAccountSelectionRequired,
			Found:            true,
			Customers:        customerSummaries(customers),
			LookupToken:      tok.Token.String(),
			VerificationType: "sms",
			Phone:            normalized,
		}, nil
	}

	cust := customers[0]
	if custEmails := cust.AllEmails(); len(custEmails) >= 2 {
		return &dtos.LookupByPhoneResponse{
			Kind:        dtos.KindEmailSelectionRequired,
			Found:       true,
			Emails:      emailOptions(custEmails),
			LookupToken: tok.Token.String(),
		}, nil
	}

	resp := &dtos.LookupByPhoneResponse{
		Kind:             dtos.KindCodeRequired,
		Found:            true,
		VerificationType: "sms",
		Phone:            normalized,
		LookupToken:      tok.Token.String(),
	}
	if cust.Email != "" {
		resp.MaskedEmail = utils.MaskEmail(cust.Email)
	}
	return resp, nil
}

// ---------------------------------------------------------------------
// SendCode
// ---------------------------------------------------------------------

func (s *portalAuthService) SendCode(ctx context.Context, req dtos.SendCodeRequest, clientIP string) (*dtos.SendCodeResponse, error) {
	contact := strings.TrimSpace(req.ContactValue)

	var snapshot *models.LookupToken
	if req.LookupToken != "" {
		tokID, err := uuid.Parse(req.LookupToken)
		if err != nil {
			return nil, utils.ErrLookupTokenInvalid
		}
		rec, err := s.lookupRepo.Get(ctx, tokID)
		if err != nil || rec.Consumed || rec.IsExpired() {
			return nil, utils.ErrLookupTokenInvalid
		}
		snapshot = rec
	}

	channel := models.VerificationChannel(req.VerificationType)
	switch channel {
	case models.ChannelSMS:
		normalized := utils.NormalizePhone(contact)
		if normalized == "" {
			return nil, utils.ErrInvalidPhone
		}
		contact = normalized

		if !s.isFakePhone(contact) {
			ok, err := utils.ValidatePhoneNumber(ctx, contact, s.cfg.LDFlag_ValidatePhoneWithTwilio, s.twilioClient)
			if err != nil {
				return nil, fmt.Errorf("%w: phone validation: %v", utils.ErrExternalServiceFailure, err)
			}
			if !ok {
				return nil, utils.ErrInvalidPhone
			}
		}
		if err := s.rateLimiter.CheckSMSRateLimits(ctx, clientIP, contact); err != nil {
			return nil, err
		}

	case models.ChannelEmail:
		// "Email me instead" on a phone lookup: the contact is still the
		// phone number and must be resolved to an address on file.
		if !strings.Contains(contact, "@") {
			resolved, resp, err := s.resolveEmailForPhone(ctx, contact, snapshot, req.LookupToken)
			if err != nil {
				return nil, err
			}
			if resp != nil {
				return resp, nil
			}
			contact = resolved
		}
		contact = strings.ToLower(contact)

		if !s.isFakeEmail(contact) {
			ok, err := utils.ValidateEmail(ctx, s.cfg.SendGridAPIKey, contact, s.cfg.LDFlag_ValidateEmailWithSendGrid)
			if err != nil {
				return nil, fmt.Errorf("%w: email validation: %v", utils.ErrExternalServiceFailure, err)
			}
			if !ok {
				return nil, utils.ErrInvalidEmail
			}
		}
		if err := s.rateLimiter.CheckEmailRateLimits(ctx, clientIP, contact); err != nil {
			return nil, err
		}

	default:
		return nil, utils.ErrInvalidEmail
	}

	// A lookup token pins the customer snapshot, so it is only honored
	// for a contact inside its own candidate set. Anything else would
	// let a caller replay someone else's token and receive a code bound
	// to that person's accounts at a contact the caller controls.
	if snapshot != nil && !snapshotCoversContact(snapshot, channel, contact) {
		return nil, utils.ErrLookupTokenInvalid
	}

	// Resolve the customer snapshot stored alongside the code.
	var customerIDs []int64
	if snapshot != nil {
		customerIDs = snapshot.CustomerIDs
	} else {
		var (
			customers []crm.Customer
			err       error
		)
		if channel == models.ChannelSMS {
			customers, err = s.directory.SearchCustomersByPhone(ctx, contact)
		} else {
			customers, err = s.directory.SearchCustomersByEmail(ctx, contact)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: crm search: %v", utils.ErrExternalServiceFailure, err)
		}
		for _, c := range customers {
			customerIDs = append(customerIDs, c.ID)
		}
	}
	if len(customerIDs) == 0 {
		return nil, utils.ErrCustomerNotFound
	}

	if snapshot != nil {
		if err := s.lookupRepo.MarkConsumed(ctx, snapshot.Token); err != nil {
			utils.Logger.WithError(err).Warn("Failed to consume lookup token")
		}
	}

	// One live row per contact.
	existing, getErr := s.verificationRepo.GetCode(ctx, contact)
	if getErr != nil && getErr != pgx.ErrNoRows {
		return nil, getErr
	}
	if existing != nil {
		_ = s.verificationRepo.DeleteCode(ctx, existing.ID)
	}

	rec := &models.VerificationCode{
		ID:          uuid.New(),
		Contact:     contact,
		Channel:     channel,
		CustomerIDs: customerIDs,
		ExpiresAt:   time.Now().Add(s.cfg.VerificationCodeExpiry),
	}

	if s.isFakePhone(contact) || s.isFakeEmail(contact) {
		rec.VerificationCode = TestVerificationCode
		if err := s.verificationRepo.CreateCode(ctx, rec); err != nil {
			return nil, err
		}
		return s.codeSentResponse(channel, contact), nil
	}

	code, genErr := generateVerificationCode(s.cfg.VerificationCodeLength)
	if genErr != nil {
		return nil, genErr
	}
	rec.VerificationCode = code
	if channel == models.ChannelEmail {
		mt := uuid.NewString()
		rec.MagicToken = &mt
	}

	if err := s.verificationRepo.CreateCode(ctx, rec); err != nil {
		return nil, err
	}

	if channel == models.ChannelSMS {
		if err := s.sendSMSCode(contact, code); err != nil {
			return nil, err
		}
	} else {
		if err := s.sendEmailCode(contact, code, *rec.MagicToken); err != nil {
			return nil, err
		}
	}

	return s.codeSentResponse(channel, contact), nil
}

// resolveEmailForPhone maps a phone-shaped contact to the address on
// file. Returns an email_selection_required response when more than one
// address qualifies.
func (s *portalAuthService) resolveEmailForPhone(
	ctx context.Context,
	contact string,
	snapshot *models.LookupToken,
	lookupToken string,
) (string, *dtos.SendCodeResponse, error) {

	phone := utils.NormalizePhone(contact)
	if phone == "" {
		return "", nil, utils.ErrInvalidEmail
	}

	var emails []string
	if snapshot != nil && snapshot.Phone == phone {
		emails = snapshot.Emails
	} else {
		customers, err := s.directory.SearchCustomersByPhone(ctx, phone)
		if err != nil {
			return "", nil, fmt.Errorf("%w: crm search by phone: %v", utils.ErrExternalServiceFailure, err)
		}
		seen := make(map[string]bool)
		for _, c := range customers {
			for _, e := range c.AllEmails() {
				if !seen[e] {
					seen[e] = true
					emails = append(emails, e)
				}
			}
		}
	}

	if len(emails) == 0 {
		return "", nil, utils.ErrCustomerNotFound
	}
	if len(emails) > 1 {
		// Token stays live; the follow-up call carries the chosen value.
		return "", &dtos.SendCodeResponse{
			Kind:        dtos.KindEmailSelectionRequired,
			Emails:      emailOptions(emails),
			LookupToken: lookupToken,
		}, nil
	}
	return emails[0], nil, nil
}

func (s *portalAuthService) codeSentResponse(channel models.VerificationChannel, contact string) *dtos.SendCodeResponse {
	resp := &dtos.SendCodeResponse{
		Kind:    dtos.KindCodeSent,
		Message: "Verification code sent.",
	}
	if channel == models.ChannelEmail {
		resp.MaskedEmail = utils.MaskEmail(contact)
	}
	return resp
}

func (s *portalAuthService) sendSMSCode(phone, code string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(s.cfg.LDFlag_TwilioFromPhone)
	params.SetBody(fmt.Sprintf("Your %s verification code is %s", s.cfg.OrganizationName, code))

	_, sendErr := s.twilioClient.Api.CreateMessage(params)
	if sendErr != nil {
		utils.Logger.WithError(sendErr).Errorf("Failed to send verification SMS to %s via Twilio", phone)
		return fmt.Errorf("%w: failed to send sms via twilio: %v", utils.ErrExternalServiceFailure, sendErr)
	}
	return nil
}

func (s *portalAuthService) sendEmailCode(email, code, magicToken string) error {
	magicLink := fmt.Sprintf("%s?token=%s", s.cfg.AppUrl, magicToken)

	from := mail.NewEmail(s.cfg.OrganizationName, s.cfg.LDFlag_SendgridFromEmail)
	to := mail.NewEmail("", email)
	subject := s.cfg.OrganizationName + " - Portal Sign-In Code"
	plainTextContent := fmt.Sprintf("Your verification code is %s. Or sign in directly: %s", code, magicLink)
	htmlContent := fmt.Sprintf(verificationEmailHTML, code, magicLink, magicLink, time.Now().Year())
	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)

	if s.cfg.LDFlag_SendgridSandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		message.MailSettings = ms
	}

	_, sendErr := s.sendgridClient.Send(message)
	if sendErr != nil {
		utils.Logger.WithError(sendErr).Errorf("Failed to send verification email to %s via SendGrid", email)
		return fmt.Errorf("%w: failed to send email via sendgrid: %v", utils.ErrExternalServiceFailure, sendErr)
	}
	return nil
}

// ---------------------------------------------------------------------
// VerifyCode
// ---------------------------------------------------------------------

func (s *portalAuthService) VerifyCode(ctx context.Context, req dtos.VerifyCodeRequest, clientIP string) (*dtos.VerifyCodeResponse, string, string, error) {
	var (
		rec *models.VerificationCode
		err error
	)
	if req.Token != "" {
		rec, err = s.verificationRepo.GetCodeByMagicToken(ctx, req.Token)
	} else {
		rec, err = s.verificationRepo.GetCode(ctx, normalizeContact(req.ContactValue))
	}
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", "", utils.ErrCodeInvalidOrExpired
		}
		return nil, "", "", err
	}

	if rec.Verified || time.Now().After(rec.ExpiresAt) || rec.Attempts >= s.cfg.MaxCodeAttempts {
		return nil, "", "", utils.ErrCodeInvalidOrExpired
	}

	// A magic-token match is itself proof of possession.
	if req.Token == "" && rec.VerificationCode != req.Code {
		_ = s.verificationRepo.IncrementAttempts(ctx, rec.ID)
		return nil, "", "", utils.ErrCodeInvalidOrExpired
	}

	if err := s.verificationRepo.MarkVerified(ctx, rec.ID, clientIP); err != nil {
		return nil, "", "", err
	}

	ids := rec.CustomerIDs
	if len(ids) == 0 {
		// Snapshot missing: fall back to a live CRM re-query.
		var customers []crm.Customer
		var crmErr error
		if rec.Channel == models.ChannelSMS {
			customers, crmErr = s.directory.SearchCustomersByPhone(ctx, rec.Contact)
		} else {
			customers, crmErr = s.directory.SearchCustomersByEmail(ctx, rec.Contact)
		}
		if crmErr != nil {
			return nil, "", "", fmt.Errorf("%w: crm search: %v", utils.ErrExternalServiceFailure, crmErr)
		}
		for _, c := range customers {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return nil, "", "", utils.ErrNoCustomerData
	}

	summaries := make([]dtos.CustomerSummary, 0, len(ids))
	for _, id := range ids {
		c, getErr := s.directory.GetCustomer(ctx, id)
		if getErr != nil || c == nil {
			utils.Logger.WithError(getErr).Warnf("Failed to load customer %d after verification", id)
			summaries = append(summaries, dtos.CustomerSummary{ID: id})
			continue
		}
		summaries = append(summaries, customerSummary(*c))
	}

	access, refresh, err := s.sessions.IssueSession(ctx, ids[0], ids, clientIP)
	if err != nil {
		return nil, "", "", err
	}

	resp := &dtos.VerifyCodeResponse{
		Kind:      dtos.KindVerified,
		Customers: summaries,
	}
	if len(ids) == 1 {
		resp.CustomerID = ids[0]
	}
	return resp, access, refresh, nil
}

// ---------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------

func (s *portalAuthService) isFakePhone(contact string) bool {
	return s.cfg.LDFlag_AcceptFakePhonesEmails && strings.HasPrefix(contact, utils.TestPhoneNumberBase)
}

func (s *portalAuthService) isFakeEmail(contact string) bool {
	return s.cfg.LDFlag_AcceptFakePhonesEmails && utils.TestEmailRegex.MatchString(contact)
}

// snapshotCoversContact reports whether the (normalized) contact is a
// member of the lookup token's candidate set: the phone it was issued
// for, or one of the addresses on file for that phone.
func snapshotCoversContact(tok *models.LookupToken, channel models.VerificationChannel, contact string) bool {
	if channel == models.ChannelSMS {
		return tok.Phone == contact
	}
	for _, e := range tok.Emails {
		if strings.EqualFold(e, contact) {
			return true
		}
	}
	return false
}

func normalizeContact(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "@") {
		return strings.ToLower(raw)
	}
	if normalized := utils.NormalizePhone(raw); normalized != "" {
		return normalized
	}
	return raw
}

func customerSummary(c crm.Customer) dtos.CustomerSummary {
	out := dtos.CustomerSummary{
		ID:          c.ID,
		Name:        c.Name,
		Type:        c.Type,
		Address:     c.DisplayAddress(),
		Email:       c.Email,
		PhoneNumber: c.PhoneNumber,
	}
	if c.Email != "" {
		out.MaskedEmail = utils.MaskEmail(c.Email)
	}
	return out
}

func customerSummaries(customers []crm.Customer) []dtos.CustomerSummary {
	out := make([]dtos.CustomerSummary, 0, len(customers))
	for _, c := range customers {
		out = append(out, customerSummary(c))
	}
	return out
}

func emailOptions(emails []string) []dtos.EmailOption {
	out := make([]dtos.EmailOption, 0, len(emails))
	for _, e := range emails {
		out = append(out, dtos.EmailOption{
			Masked: utils.MaskEmail(e),
			Value:  e,
		})
	}
	return out
}
