package dtos

// Discriminator values carried in the `kind` field of every auth response
// so clients branch on an explicit contract instead of sniffing fields.
const (
	KindNotFound                 = "not_found"
	KindCodeRequired             = "code_required"
	KindEmailSelectionRequired   = "email_selection_required"
	KindAccountSelectionRequired = "account_selection_required"
	KindCodeSent                 = "code_sent"
	KindVerified                 = "verified"
)

// ----------------------
// Lookup by phone
// ----------------------

type LookupByPhoneRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type LookupByPhoneResponse struct {
	Kind             string            `json:"kind"`
	Found            bool              `json:"found"`
	Message          string            `json:"message,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	VerificationType string            `json:"verificationType,omitempty"`
	MaskedEmail      string            `json:"maskedEmail,omitempty"`
	LookupToken      string            `json:"lookupToken,omitempty"`
	Emails           []EmailOption     `json:"emails,omitempty"`
	Customers        []CustomerSummary `json:"customers,omitempty"`
}

// ----------------------
// Send code
// ----------------------

type SendCodeRequest struct {
	ContactValue     string `json:"contactValue" validate:"required"`
	VerificationType string `json:"verificationType" validate:"required,oneof=sms email"`
	LookupToken      string `json:"lookupToken,omitempty" validate:"omitempty,uuid4"`
}

type SendCodeResponse struct {
	Kind             string            `json:"kind"`
	Message          string            `json:"message,omitempty"`
	Phone            string            `json:"phone,omitempty"`
	VerificationType string            `json:"verificationType,omitempty"`
	MaskedEmail      string            `json:"maskedEmail,omitempty"`
	LookupToken      string            `json:"lookupToken,omitempty"`
	Emails           []EmailOption     `json:"emails,omitempty"`
	Customers        []CustomerSummary `json:"customers,omitempty"`
}

// ----------------------
// Verify code
// ----------------------

// VerifyCodeRequest carries either contactValue+code or a magic-link token.
type VerifyCodeRequest struct {
	ContactValue string `json:"contactValue,omitempty" validate:"required_without=Token"`
	Code         string `json:"code,omitempty" validate:"required_without=Token,omitempty,len=6,numeric"`
	Token        string `json:"token,omitempty"`
}

type VerifyCodeResponse struct {
	Kind       string            `json:"kind"`
	Customers  []CustomerSummary `json:"customers"`
	CustomerID int64             `json:"customerId,omitempty"`
}

// ----------------------
// Shared shapes
// ----------------------

// EmailOption pairs the display form with the real address the client
// must send back when the user picks it.
type EmailOption struct {
	Masked string `json:"masked"`
	Value  string `json:"value"`
}

// CustomerSummary is the read-only CRM projection exposed to the wizard.
type CustomerSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Address     string `json:"address,omitempty"`
	Email       string `json:"email,omitempty"`
	MaskedEmail string `json:"maskedEmail,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}
