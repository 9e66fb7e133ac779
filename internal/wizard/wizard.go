// Package wizard implements the portal's multi-step login flow as a
// closed sum-type state machine over the auth API.
package wizard

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/dtos"
)

const (
	msgNoAccountFound     = "No account was found for that contact."
	msgNoCustomerData     = "No customer data returned."
	msgSelectionRequired  = "Please make a selection first."
	msgAccountNotVerified = "That account was not verified in this session."
	msgGenericSendFailure = "Failed to send verification code."
)

// Wizard drives the login flow. It is meant for single-threaded use: a
// busy flag suppresses overlapping calls on a best-effort basis, the
// way a UI disables its buttons while a request is in flight.
type Wizard struct {
	api *APIClient

	step             Step
	busy             bool
	lastError        string
	code             string
	phone            string
	maskedEmail      string
	lookupToken      string
	accounts         []dtos.CustomerSummary
	knownIDs         []int64
	pendingAccountID string

	onAuthenticated func(customerID string, allIDs []int64)
	onError         func(message string)
}

func NewWizard(
	api *APIClient,
	onAuthenticated func(customerID string, allIDs []int64),
	onError func(message string),
) *Wizard {
	return &Wizard{
		api:             api,
		step:            StepLookup{},
		onAuthenticated: onAuthenticated,
		onError:         onError,
	}
}

func (w *Wizard) Step() Step                        { return w.step }
func (w *Wizard) LastError() string                 { return w.lastError }
func (w *Wizard) Accounts() []dtos.CustomerSummary  { return w.accounts }
func (w *Wizard) LookupToken() string               { return w.lookupToken }
func (w *Wizard) MaskedEmail() string               { return w.maskedEmail }
func (w *Wizard) Code() string                      { return w.code }

// ---------------------------------------------------------------------
// Lookup
// ---------------------------------------------------------------------

// LookupContact starts the flow from an email address.
func (w *Wizard) LookupContact(ctx context.Context, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		w.fail("Please enter your email address.")
		return
	}
	if !w.begin() {
		return
	}
	defer w.end()

	resp, err := w.api.SendCode(ctx, dtos.SendCodeRequest{
		ContactValue:     email,
		VerificationType: "email",
	})
	if err != nil {
		w.fail(err.Error())
		return
	}
	w.handleSendCodeResponse(resp, email, "email")
}

// LookupPhone starts the flow from a phone number.
func (w *Wizard) LookupPhone(ctx context.Context, phone string) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		w.fail("Please enter your phone number.")
		return
	}
	if !w.begin() {
		return
	}
	defer w.end()

	resp, err := w.api.LookupByPhone(ctx, phone)
	if err != nil {
		w.fail(err.Error())
		return
	}

	// Branch on the explicit kind; fall back to field presence for
	// servers that predate the discriminator.
	switch {
	case resp.Kind == dtos.KindNotFound || !resp.Found:
		msg := resp.Message
		if msg == "" {
			msg = msgNoAccountFound
		}
		w.fail(msg)

	case resp.Kind == dtos.KindAccountSelectionRequired || len(resp.Customers) > 0:
		// Accounts are deferred until after 2FA; the code still has to
		// be sent and verified before any account choice is shown.
		w.accounts = resp.Customers
		w.knownIDs = customerIDs(resp.Customers)
		w.rememberLookup(resp.Phone, phone, resp.MaskedEmail, resp.LookupToken)
		w.step = StepPhoneEmailFound{Phone: w.phone, MaskedEmail: w.maskedEmail}

	case resp.Kind == dtos.KindEmailSelectionRequired || len(resp.Emails) > 0:
		w.lookupToken = resp.LookupToken
		w.step = StepSelectEmail{Options: resp.Emails}

	default:
		w.rememberLookup(resp.Phone, phone, resp.MaskedEmail, resp.LookupToken)
		w.step = StepPhoneEmailFound{Phone: w.phone, MaskedEmail: w.maskedEmail}
	}
}

// ---------------------------------------------------------------------
// Sending codes
// ---------------------------------------------------------------------

// SendPhoneCode requests the SMS code for the phone confirmed by a
// prior lookup.
func (w *Wizard) SendPhoneCode(ctx context.Context) {
	current, ok := w.step.(StepPhoneEmailFound)
	if !ok {
		return
	}
	if !w.begin() {
		return
	}
	defer w.end()

	resp, err := w.api.SendCode(ctx, dtos.SendCodeRequest{
		ContactValue:     current.Phone,
		VerificationType: "sms",
		LookupToken:      w.lookupToken,
	})
	if err != nil {
		w.fail(err.Error())
		return
	}
	w.handleSendCodeResponse(resp, current.Phone, "sms")
}

// SelectEmail sends the code to the chosen address. The masked form is
// display-only; only the real value is ever transmitted.
func (w *Wizard) SelectEmail(ctx context.Context, value string) {
	if _, ok := w.step.(StepSelectEmail); !ok {
		return
	}
	if value == "" {
		w.fail(msgSelectionRequired)
		return
	}
	if !w.begin() {
		return
	}
	defer w.end()

	resp, err := w.api.SendCode(ctx, dtos.SendCodeRequest{
		ContactValue:     value,
		VerificationType: "email",
		LookupToken:      w.lookupToken,
	})
	if err != nil {
		w.fail(err.Error())
		return
	}
	w.handleSendCodeResponse(resp, value, "email")
}

func (w *Wizard) handleSendCodeResponse(resp *dtos.SendCodeResponse, contact, verificationType string) {
	switch {
	case resp.Kind == dtos.KindEmailSelectionRequired || len(resp.Emails) > 0:
		if resp.LookupToken != "" {
			w.lookupToken = resp.LookupToken
		}
		w.step = StepSelectEmail{Options: resp.Emails}

	case resp.Kind == dtos.KindAccountSelectionRequired || len(resp.Customers) > 0:
		// Accounts are deferred until after 2FA.
		w.accounts = resp.Customers
		w.knownIDs = customerIDs(resp.Customers)
		w.rememberLookup(resp.Phone, contact, resp.MaskedEmail, resp.LookupToken)
		w.step = StepPhoneEmailFound{Phone: w.phone, MaskedEmail: w.maskedEmail}

	case resp.Kind == dtos.KindCodeSent || resp.Message != "":
		if resp.MaskedEmail != "" {
			w.maskedEmail = resp.MaskedEmail
		}
		w.step = StepVerifyCode{
			Contact:          contact,
			VerificationType: verificationType,
			MaskedEmail:      w.maskedEmail,
		}

	default:
		w.fail(msgGenericSendFailure)
	}
}

// ---------------------------------------------------------------------
// Verification
// ---------------------------------------------------------------------

// SubmitCode verifies the entered code. Digits-only and the six-digit
// cap are UX affordances; the server remains the source of truth.
func (w *Wizard) SubmitCode(ctx context.Context, code string) {
	current, ok := w.step.(StepVerifyCode)
	if !ok {
		return
	}

	code = digitsOnly(code)
	if len(code) > 6 {
		code = code[:6]
	}
	w.code = code
	if code == "" {
		w.fail("Please enter the verification code.")
		return
	}
	if !w.begin() {
		return
	}
	defer w.end()

	resp, err := w.api.VerifyCode(ctx, dtos.VerifyCodeRequest{
		ContactValue: current.Contact,
		Code:         code,
	})
	if err != nil {
		w.fail(err.Error())
		return
	}
	w.handleVerifyResponse(resp)
}

// ConsumeMagicLink verifies the `token` query parameter when present
// and returns the URL with the token stripped, so a reload can never
// resubmit a consumed token. The rewritten URL is returned on success
// and failure alike.
func (w *Wizard) ConsumeMagicLink(ctx context.Context, u *url.URL) *url.URL {
	token := u.Query().Get("token")
	if token == "" {
		return u
	}

	stripped := *u
	q := stripped.Query()
	q.Del("token")
	stripped.RawQuery = q.Encode()

	if !w.begin() {
		return &stripped
	}
	defer w.end()

	resp, err := w.api.VerifyCode(ctx, dtos.VerifyCodeRequest{Token: token})
	if err != nil {
		w.fail(err.Error())
		return &stripped
	}
	w.handleVerifyResponse(resp)
	return &stripped
}

// handleVerifyResponse branches in order; the first match wins.
func (w *Wizard) handleVerifyResponse(resp *dtos.VerifyCodeResponse) {
	ids := customerIDs(resp.Customers)
	w.knownIDs = unionIDs(w.knownIDs, ids)
	if resp.CustomerID != 0 {
		w.knownIDs = unionIDs(w.knownIDs, []int64{resp.CustomerID})
	}

	switch {
	case w.pendingAccountID != "":
		// An account switch was already in progress; complete with the
		// chosen ID and every ID seen so far.
		w.complete(w.pendingAccountID, w.knownIDs)

	case len(resp.Customers) > 1:
		w.accounts = resp.Customers
		w.step = StepSelectAccount{Accounts: resp.Customers}

	case len(resp.Customers) == 1:
		w.accounts = resp.Customers
		w.complete(strconv.FormatInt(resp.Customers[0].ID, 10), w.knownIDs)

	case resp.CustomerID != 0:
		// Legacy scalar shape from older deployments.
		w.complete(strconv.FormatInt(resp.CustomerID, 10), w.knownIDs)

	default:
		w.fail(msgNoCustomerData)
	}
}

// ---------------------------------------------------------------------
// Account selection
// ---------------------------------------------------------------------

// BeginAccountSwitch re-opens the account selector after login.
func (w *Wizard) BeginAccountSwitch() {
	if _, ok := w.step.(StepAuthenticated); !ok {
		return
	}
	w.step = StepSelectAccount{Accounts: w.accounts}
}

// SelectAccount completes immediately with the chosen account. The user
// already passed 2FA; this is a selection among verified identities, so
// no network call of any kind is made.
func (w *Wizard) SelectAccount(id int64) {
	if _, ok := w.step.(StepSelectAccount); !ok {
		return
	}
	found := false
	for _, known := range w.knownIDs {
		if known == id {
			found = true
			break
		}
	}
	if !found {
		w.fail(msgAccountNotVerified)
		return
	}

	idStr := strconv.FormatInt(id, 10)
	w.pendingAccountID = idStr
	w.complete(idStr, w.knownIDs)
}

// ---------------------------------------------------------------------
// Reset
// ---------------------------------------------------------------------

// Reset is the only cancellation: a full return to the first step with
// every transient field cleared.
func (w *Wizard) Reset(toPhone bool) {
	w.code = ""
	w.phone = ""
	w.maskedEmail = ""
	w.lookupToken = ""
	w.lastError = ""
	w.accounts = nil
	w.knownIDs = nil
	w.pendingAccountID = ""

	if toPhone {
		w.step = StepPhoneLookup{}
	} else {
		w.step = StepLookup{}
	}
}

// ---------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------

func (w *Wizard) begin() bool {
	if w.busy {
		return false
	}
	w.busy = true
	w.lastError = ""
	return true
}

func (w *Wizard) end() { w.busy = false }

func (w *Wizard) fail(msg string) {
	w.lastError = msg
	if w.onError != nil {
		w.onError(msg)
	}
}

func (w *Wizard) complete(customerID string, allIDs []int64) {
	w.step = StepAuthenticated{CustomerID: customerID}
	if w.onAuthenticated != nil {
		w.onAuthenticated(customerID, allIDs)
	}
}

func (w *Wizard) rememberLookup(normalizedPhone, enteredPhone, maskedEmail, lookupToken string) {
	if normalizedPhone != "" {
		w.phone = normalizedPhone
	} else {
		w.phone = enteredPhone
	}
	if maskedEmail != "" {
		w.maskedEmail = maskedEmail
	}
	if lookupToken != "" {
		w.lookupToken = lookupToken
	}
}

func customerIDs(customers []dtos.CustomerSummary) []int64 {
	out := make([]int64, 0, len(customers))
	for _, c := range customers {
		out = append(out, c.ID)
	}
	return out
}

func unionIDs(a, b []int64) []int64 {
	seen := make(map[int64]bool, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
