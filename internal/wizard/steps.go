package wizard

import "github.com/snwagner777/EconomyPlumbing-sub002/internal/dtos"

// Step is the wizard's current position. Exactly one variant is active
// at a time, and each variant carries only the data its screen needs.
// Only a server response (or an explicit reset) moves the wizard to the
// next step; the client never guesses.
type Step interface {
	step()
}

// StepLookup collects an email address.
type StepLookup struct{}

// StepPhoneLookup collects a phone number.
type StepPhoneLookup struct{}

// StepPhoneEmailFound means the phone matched an account; the user can
// request an SMS code (or fall back to email when one is on file).
type StepPhoneEmailFound struct {
	Phone       string
	MaskedEmail string
}

// StepSelectEmail forces an explicit choice when the contact maps to
// more than one address on file.
type StepSelectEmail struct {
	Options []dtos.EmailOption
}

// StepVerifyCode awaits the 6-digit code sent to Contact.
type StepVerifyCode struct {
	Contact          string
	VerificationType string
	MaskedEmail      string
}

// StepSelectAccount lets an already-verified user pick among linked
// customer accounts. No code is ever sent from this step.
type StepSelectAccount struct {
	Accounts []dtos.CustomerSummary
}

// StepAuthenticated is terminal.
type StepAuthenticated struct {
	CustomerID string
}

func (StepLookup) step()          {}
func (StepPhoneLookup) step()     {}
func (StepPhoneEmailFound) step() {}
func (StepSelectEmail) step()     {}
func (StepVerifyCode) step()      {}
func (StepSelectAccount) step()   {}
func (StepAuthenticated) step()   {}
