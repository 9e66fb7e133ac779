// portalctl is a terminal driver for the portal login wizard, mainly
// used against staging environments with the fake-contact flags on.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/snwagner777/EconomyPlumbing-sub002/internal/wizard"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "portal API base URL")
	flag.Parse()

	api := wizard.NewAPIClient(*baseURL)
	reader := bufio.NewReader(os.Stdin)
	ctx := context.Background()

	done := false
	w := wizard.NewWizard(
		api,
		func(customerID string, allIDs []int64) {
			fmt.Printf("Signed in as customer %s (verified accounts: %v)\n", customerID, allIDs)
			done = true
		},
		func(msg string) {
			fmt.Println("Error:", msg)
		},
	)

	for !done {
		switch step := w.Step().(type) {
		case wizard.StepLookup:
			v, err := promptLine(reader, "Email address (or type 'phone' to use a phone number)")
			if err != nil {
				return
			}
			if strings.EqualFold(v, "phone") {
				w.Reset(true)
				continue
			}
			w.LookupContact(ctx, v)

		case wizard.StepPhoneLookup:
			v, err := promptLine(reader, "Phone number (or type 'email' to use an email address)")
			if err != nil {
				return
			}
			if strings.EqualFold(v, "email") {
				w.Reset(false)
				continue
			}
			w.LookupPhone(ctx, v)

		case wizard.StepPhoneEmailFound:
			fmt.Printf("Account found for %s", step.Phone)
			if step.MaskedEmail != "" {
				fmt.Printf(" (email on file: %s)", step.MaskedEmail)
			}
			fmt.Println()
			if _, err := promptLine(reader, "Press Enter to text a verification code"); err != nil {
				return
			}
			w.SendPhoneCode(ctx)

		case wizard.StepSelectEmail:
			fmt.Println("More than one email is on file:")
			for i, opt := range step.Options {
				fmt.Printf("  %d) %s\n", i+1, opt.Masked)
			}
			v, err := promptLine(reader, "Choose an address")
			if err != nil {
				return
			}
			idx, convErr := strconv.Atoi(v)
			if convErr != nil || idx < 1 || idx > len(step.Options) {
				fmt.Println("Please enter one of the listed numbers.")
				continue
			}
			w.SelectEmail(ctx, step.Options[idx-1].Value)

		case wizard.StepVerifyCode:
			code, err := promptCode()
			if err != nil {
				return
			}
			w.SubmitCode(ctx, code)

		case wizard.StepSelectAccount:
			fmt.Println("Choose an account:")
			for i, acct := range step.Accounts {
				line := acct.Name
				if acct.Address != "" {
					line += " - " + acct.Address
				}
				fmt.Printf("  %d) %s\n", i+1, line)
			}
			v, err := promptLine(reader, "Account number")
			if err != nil {
				return
			}
			idx, convErr := strconv.Atoi(v)
			if convErr != nil || idx < 1 || idx > len(step.Accounts) {
				fmt.Println("Please enter one of the listed numbers.")
				continue
			}
			w.SelectAccount(step.Accounts[idx-1].ID)

		case wizard.StepAuthenticated:
			done = true
		}
	}
}

func promptLine(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Print(prompt + "\n> ")
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptCode reads the verification code without echo, the same way a
// password prompt would.
func promptCode() (string, error) {
	fmt.Print("Verification code: ")
	code, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(code), nil
}
