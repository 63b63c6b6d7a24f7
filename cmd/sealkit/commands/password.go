package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const minPasswordLength = 12

var (
	ErrWeakPassword     = errors.New("password must be at least 12 characters and mix upper, lower, digit and symbol")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// readPassword prompts on stderr. Terminal input is not echoed; piped input
// is read one line at a time.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: ", prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}
	line, err := input.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readNewPassword prompts twice and applies the strength policy.
func readNewPassword(cmd *cobra.Command, prompt string) (string, error) {
	pw, err := readPassword(cmd, prompt)
	if err != nil {
		return "", err
	}
	if !isSecurePassword(pw) {
		return "", ErrWeakPassword
	}
	again, err := readPassword(cmd, "Repeat "+strings.ToLower(prompt))
	if err != nil {
		return "", err
	}
	if again != pw {
		return "", ErrPasswordMismatch
	}
	return pw, nil
}

// isSecurePassword enforces a basic strength policy.
func isSecurePassword(pw string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(pw) < minPasswordLength {
		return false
	}
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}
