package wizard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/dtos"
)

type wizardHarness struct {
	wizard   *Wizard
	server   *httptest.Server
	requests *int64

	authedID  string
	authedIDs []int64
	errorMsg  string
}

// newHarness spins up a stub API with per-endpoint handlers and a wizard
// pointed at it. Handlers left nil return 404.
func newHarness(t *testing.T, handlers map[string]http.HandlerFunc) *wizardHarness {
	t.Helper()

	h := &wizardHarness{requests: new(int64)}
	mux := http.NewServeMux()
	for path, fn := range handlers {
		fn := fn
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(h.requests, 1)
			fn(w, r)
		})
	}
	h.server = httptest.NewServer(mux)
	t.Cleanup(h.server.Close)

	h.wizard = NewWizard(
		NewAPIClient(h.server.URL),
		func(customerID string, allIDs []int64) {
			h.authedID = customerID
			h.authedIDs = allIDs
		},
		func(msg string) { h.errorMsg = msg },
	)
	return h
}

func respondJSON(t *testing.T, w http.ResponseWriter, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(body))
}

// ---------------------------------------------------------------------
// Lookup transitions
// ---------------------------------------------------------------------

func TestLookupPhone_NotFound(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/lookup-by-phone": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, dtos.LookupByPhoneResponse{
				Kind:    dtos.KindNotFound,
				Found:   false,
				Message: "No account was found for that contact.",
			})
		},
	})

	h.wizard.Reset(true)
	h.wizard.LookupPhone(context.Background(), "5125550000")

	assert.IsType(t, StepPhoneLookup{}, h.wizard.Step())
	assert.Equal(t, "No account was found for that contact.", h.wizard.LastError())
	assert.Equal(t, "No account was found for that contact.", h.errorMsg)
}

func TestLookupPhone_SingleMatchGoesToEmailFound(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/lookup-by-phone": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, dtos.LookupByPhoneResponse{
				Kind:        dtos.KindCodeRequired,
				Found:       true,
				Phone:       "+15125551234",
				MaskedEmail: "j***e@example.com",
				LookupToken: "1f8f6f1a-0000-4000-8000-000000000001",
			})
		},
	})

	h.wizard.Reset(true)
	h.wizard.LookupPhone(context.Background(), "5125551234")

	step, ok := h.wizard.Step().(StepPhoneEmailFound)
	require.True(t, ok)
	assert.Equal(t, "+15125551234", step.Phone)
	assert.Equal(t, "j***e@example.com", step.MaskedEmail)
	assert.Equal(t, "1f8f6f1a-0000-4000-8000-000000000001", h.wizard.LookupToken())
}

// Multiple linked accounts never short-circuit the code step: the wizard
// stores them and still asks for the SMS code first.
func TestLookupPhone_MultipleAccountsDeferredUntilVerified(t *testing.T) {
	customers := []dtos.CustomerSummary{
		{ID: 7, Name: "Main St Duplex"},
		{ID: 9, Name: "Oak Ave Rental"},
	}
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/lookup-by-phone": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, dtos.LookupByPhoneResponse{
				Kind:        dtos.KindAccountSelectionRequired,
				Found:       true,
				Phone:       "+15125551234",
				LookupToken: "abc",
				Customers:   customers,
			})
		},
	})

	h.wizard.Reset(true)
	h.wizard.LookupPhone(context.Background(), "5125551234")

	step, ok := h.wizard.Step().(StepPhoneEmailFound)
	require.True(t, ok, "account choice must wait for verification, got %T", h.wizard.Step())
	assert.Equal(t, "+15125551234", step.Phone)
	assert.Len(t, h.wizard.Accounts(), 2)
	assert.Equal(t, "abc", h.wizard.LookupToken())
}

func TestLookupPhone_EmailSelection(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/lookup-by-phone": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, dtos.LookupByPhoneResponse{
				Kind:        dtos.KindEmailSelectionRequired,
				Found:       true,
				LookupToken: "1f8f6f1a-0000-4000-8000-000000000002",
				Emails: []dtos.EmailOption{
					{Masked: "j***e@example.com", Value: "jane@example.com"},
					{Masked: "b***g@example.com", Value: "billing@example.com"},
				},
			})
		},
	})

	h.wizard.Reset(true)
	h.wizard.LookupPhone(context.Background(), "5125551234")

	step, ok := h.wizard.Step().(StepSelectEmail)
	require.True(t, ok)
	assert.Len(t, step.Options, 2)
}

// Older deployments reply without a kind; field presence still routes
// the wizard correctly.
func TestLookupPhone_NoKindFallsBackToFieldSniffing(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/lookup-by-phone": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, map[string]any{
				"found": true,
				"phone": "+15125551234",
				"customers": []map[string]any{
					{"id": 7, "name": "Main St Duplex"},
					{"id": 9, "name": "Oak Ave Rental"},
				},
			})
		},
	})

	h.wizard.Reset(true)
	h.wizard.LookupPhone(context.Background(), "5125551234")

	_, ok := h.wizard.Step().(StepPhoneEmailFound)
	require.True(t, ok)
	assert.Len(t, h.wizard.Accounts(), 2)
}

// ---------------------------------------------------------------------
// Sending codes
// ---------------------------------------------------------------------

func TestSelectEmail_SendsRealValueNeverMasked(t *testing.T) {
	var sent dtos.SendCodeRequest
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/send-code": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
			respondJSON(t, w, dtos.SendCodeResponse{
				Kind:        dtos.KindCodeSent,
				Message:     "Verification code sent",
				MaskedEmail: "j***e@example.com",
			})
		},
	})

	h.wizard.lookupToken = "1f8f6f1a-0000-4000-8000-000000000003"
	h.wizard.step = StepSelectEmail{Options: []dtos.EmailOption{
		{Masked: "j***e@example.com", Value: "jane@example.com"},
	}}

	h.wizard.SelectEmail(context.Background(), "jane@example.com")

	assert.Equal(t, "jane@example.com", sent.ContactValue)
	assert.Equal(t, "email", sent.VerificationType)
	assert.Equal(t, "1f8f6f1a-0000-4000-8000-000000000003", sent.LookupToken)

	step, ok := h.wizard.Step().(StepVerifyCode)
	require.True(t, ok)
	assert.Equal(t, "jane@example.com", step.Contact)
	assert.Equal(t, "email", step.VerificationType)
}

func TestSelectEmail_EmptyChoiceIsLocalError(t *testing.T) {
	h := newHarness(t, nil)
	h.wizard.step = StepSelectEmail{}

	h.wizard.SelectEmail(context.Background(), "")

	assert.Equal(t, int64(0), atomic.LoadInt64(h.requests))
	assert.Equal(t, "Please make a selection first.", h.wizard.LastError())
	assert.IsType(t, StepSelectEmail{}, h.wizard.Step())
}

func TestSendPhoneCode_CarriesLookupToken(t *testing.T) {
	var sent dtos.SendCodeRequest
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/send-code": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
			respondJSON(t, w, dtos.SendCodeResponse{
				Kind:    dtos.KindCodeSent,
				Message: "Verification code sent",
			})
		},
	})

	h.wizard.lookupToken = "1f8f6f1a-0000-4000-8000-000000000004"
	h.wizard.step = StepPhoneEmailFound{Phone: "+15125551234"}

	h.wizard.SendPhoneCode(context.Background())

	assert.Equal(t, "+15125551234", sent.ContactValue)
	assert.Equal(t, "sms", sent.VerificationType)
	assert.Equal(t, "1f8f6f1a-0000-4000-8000-000000000004", sent.LookupToken)
	assert.IsType(t, StepVerifyCode{}, h.wizard.Step())
}

// An email lookup that matches several addresses bounces back to the
// selection step instead of sending anything.
func TestLookupContact_EmailSelectionRequired(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/send-code": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, dtos.SendCodeResponse{
				Kind:        dtos.KindEmailSelectionRequired,
				LookupToken: "1f8f6f1a-0000-4000-8000-000000000005",
				Emails: []dtos.EmailOption{
					{Masked: "j***e@example.com", Value: "jane@example.com"},
					{Masked: "b***g@example.com", Value: "billing@example.com"},
				},
			})
		},
	})

	h.wizard.LookupContact(context.Background(), "jane@example.com")

	step, ok := h.wizard.Step().(StepSelectEmail)
	require.True(t, ok)
	assert.Len(t, step.Options, 2)
	assert.Equal(t, "1f8f6f1a-0000-4000-8000-000000000005", h.wizard.LookupToken())
}

// ---------------------------------------------------------------------
// Verification
// ---------------------------------------------------------------------

func TestSubmitCode_SingleCustomerAuthenticates(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/verify-code": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, dtos.VerifyCodeResponse{
				Kind:      dtos.KindVerified,
				Customers: []dtos.CustomerSummary{{ID: 42, Name: "Jane Doe"}},
			})
		},
	})

	h.wizard.step = StepVerifyCode{Contact: "+15125551234", VerificationType: "sms"}
	h.wizard.SubmitCode(context.Background(), "123456")

	step, ok := h.wizard.Step().(StepAuthenticated)
	require.True(t, ok)
	assert.Equal(t, "42", step.CustomerID)
	assert.Equal(t, "42", h.authedID)
	assert.Equal(t, []int64{42}, h.authedIDs)
}

func TestSubmitCode_MultipleCustomersGoToAccountSelect(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/verify-code": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, dtos.VerifyCodeResponse{
				Kind: dtos.KindVerified,
				Customers: []dtos.CustomerSummary{
					{ID: 7, Name: "Main St Duplex"},
					{ID: 9, Name: "Oak Ave Rental"},
				},
			})
		},
	})

	h.wizard.step = StepVerifyCode{Contact: "+15125551234", VerificationType: "sms"}
	h.wizard.SubmitCode(context.Background(), "123456")

	step, ok := h.wizard.Step().(StepSelectAccount)
	require.True(t, ok)
	assert.Len(t, step.Accounts, 2)
	assert.Empty(t, h.authedID)
}

// The legacy scalar shape still completes the flow.
func TestSubmitCode_LegacyScalarCustomerID(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/verify-code": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, map[string]any{"customerId": 42})
		},
	})

	h.wizard.step = StepVerifyCode{Contact: "+15125551234", VerificationType: "sms"}
	h.wizard.SubmitCode(context.Background(), "123456")

	assert.Equal(t, "42", h.authedID)
	assert.Equal(t, []int64{42}, h.authedIDs)
}

func TestSubmitCode_StripsNonDigitsAndCapsAtSix(t *testing.T) {
	var sent dtos.VerifyCodeRequest
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/verify-code": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
			respondJSON(t, w, dtos.VerifyCodeResponse{
				Kind:      dtos.KindVerified,
				Customers: []dtos.CustomerSummary{{ID: 42}},
			})
		},
	})

	h.wizard.step = StepVerifyCode{Contact: "+15125551234"}
	h.wizard.SubmitCode(context.Background(), "12-34 567890")

	assert.Equal(t, "123456", sent.Code)
	assert.Equal(t, "123456", h.wizard.Code())
}

func TestSubmitCode_InvalidCodeSurfacesServerError(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/verify-code": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid or expired code"})
		},
	})

	h.wizard.step = StepVerifyCode{Contact: "+15125551234"}
	h.wizard.SubmitCode(context.Background(), "000000")

	assert.Equal(t, "Invalid or expired code", h.wizard.LastError())
	assert.IsType(t, StepVerifyCode{}, h.wizard.Step(), "a failed attempt keeps the code screen open")
}

func TestSubmitCode_NoCustomerDataFails(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/verify-code": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, dtos.VerifyCodeResponse{Kind: dtos.KindVerified})
		},
	})

	h.wizard.step = StepVerifyCode{Contact: "+15125551234"}
	h.wizard.SubmitCode(context.Background(), "123456")

	assert.Equal(t, "No customer data returned.", h.wizard.LastError())
}

// ---------------------------------------------------------------------
// Magic links
// ---------------------------------------------------------------------

func TestConsumeMagicLink_StripsTokenOnSuccess(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/verify-code": func(w http.ResponseWriter, r *http.Request) {
			var req dtos.VerifyCodeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "1f8f6f1a-0000-4000-8000-00000000000a", req.Token)
			respondJSON(t, w, dtos.VerifyCodeResponse{
				Kind:      dtos.KindVerified,
				Customers: []dtos.CustomerSummary{{ID: 42}},
			})
		},
	})

	u, err := url.Parse("https://portal.example.com/login?token=1f8f6f1a-0000-4000-8000-00000000000a&utm_source=email")
	require.NoError(t, err)

	got := h.wizard.ConsumeMagicLink(context.Background(), u)

	assert.Empty(t, got.Query().Get("token"))
	assert.Equal(t, "email", got.Query().Get("utm_source"))
	assert.Equal(t, "42", h.authedID)
}

func TestConsumeMagicLink_StripsTokenOnFailureToo(t *testing.T) {
	h := newHarness(t, map[string]http.HandlerFunc{
		"/api/portal/auth/verify-code": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid or expired code"})
		},
	})

	u, err := url.Parse("https://portal.example.com/login?token=expired-token")
	require.NoError(t, err)

	got := h.wizard.ConsumeMagicLink(context.Background(), u)

	assert.Empty(t, got.Query().Get("token"), "a reload must not resubmit a consumed token")
	assert.Equal(t, "Invalid or expired code", h.wizard.LastError())
}

func TestConsumeMagicLink_NoTokenIsNoop(t *testing.T) {
	h := newHarness(t, nil)

	u, err := url.Parse("https://portal.example.com/login")
	require.NoError(t, err)

	got := h.wizard.ConsumeMagicLink(context.Background(), u)

	assert.Same(t, u, got)
	assert.Equal(t, int64(0), atomic.LoadInt64(h.requests))
}

// ---------------------------------------------------------------------
// Account selection
// ---------------------------------------------------------------------

// Picking among already-verified accounts must not touch the network.
func TestSelectAccount_NoNetworkCall(t *testing.T) {
	h := newHarness(t, nil)

	h.wizard.knownIDs = []int64{7, 9}
	h.wizard.accounts = []dtos.CustomerSummary{{ID: 7}, {ID: 9}}
	h.wizard.step = StepSelectAccount{Accounts: h.wizard.accounts}

	h.wizard.SelectAccount(9)

	assert.Equal(t, int64(0), atomic.LoadInt64(h.requests))
	step, ok := h.wizard.Step().(StepAuthenticated)
	require.True(t, ok)
	assert.Equal(t, "9", step.CustomerID)
	assert.Equal(t, "9", h.authedID)
	assert.ElementsMatch(t, []int64{7, 9}, h.authedIDs)
}

func TestSelectAccount_RejectsUnknownID(t *testing.T) {
	h := newHarness(t, nil)

	h.wizard.knownIDs = []int64{7, 9}
	h.wizard.step = StepSelectAccount{}

	h.wizard.SelectAccount(99)

	assert.Equal(t, "That account was not verified in this session.", h.wizard.LastError())
	assert.IsType(t, StepSelectAccount{}, h.wizard.Step())
	assert.Empty(t, h.authedID)
}

func TestBeginAccountSwitch_OnlyFromAuthenticated(t *testing.T) {
	h := newHarness(t, nil)

	h.wizard.accounts = []dtos.CustomerSummary{{ID: 7}, {ID: 9}}
	h.wizard.step = StepAuthenticated{CustomerID: "7"}

	h.wizard.BeginAccountSwitch()

	step, ok := h.wizard.Step().(StepSelectAccount)
	require.True(t, ok)
	assert.Len(t, step.Accounts, 2)

	// From anywhere else it is a no-op.
	h.wizard.step = StepVerifyCode{}
	h.wizard.BeginAccountSwitch()
	assert.IsType(t, StepVerifyCode{}, h.wizard.Step())
}

// ---------------------------------------------------------------------
// Reset
// ---------------------------------------------------------------------

func TestReset_ClearsAllTransientState(t *testing.T) {
	h := newHarness(t, nil)

	h.wizard.code = "123456"
	h.wizard.phone = "+15125551234"
	h.wizard.maskedEmail = "j***e@example.com"
	h.wizard.lookupToken = "abc"
	h.wizard.lastError = "boom"
	h.wizard.accounts = []dtos.CustomerSummary{{ID: 7}}
	h.wizard.knownIDs = []int64{7}
	h.wizard.pendingAccountID = "7"
	h.wizard.step = StepVerifyCode{}

	h.wizard.Reset(false)

	assert.IsType(t, StepLookup{}, h.wizard.Step())
	assert.Empty(t, h.wizard.Code())
	assert.Empty(t, h.wizard.LookupToken())
	assert.Empty(t, h.wizard.MaskedEmail())
	assert.Empty(t, h.wizard.LastError())
	assert.Empty(t, h.wizard.Accounts())

	h.wizard.Reset(true)
	assert.IsType(t, StepPhoneLookup{}, h.wizard.Step())
}
