package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrNotInteractive is returned when input is needed but stdin is not a terminal.
var ErrNotInteractive = errors.New("input required but stdin is not a terminal")

// CredentialsPrompt describes the sign-in or sign-up form. Fields already
// holding a value are not asked for again.
type CredentialsPrompt struct {
	Email       string
	Password    string
	Username    string
	AskUsername bool
}

// Missing reports whether the form has to be shown.
func (p *CredentialsPrompt) Missing() bool {
	return strings.TrimSpace(p.Email) == "" || p.Password == ""
}

// PromptCredentials fills the empty fields of p with an interactive form.
func PromptCredentials(p *CredentialsPrompt) error {
	var fields []huh.Field
	if p.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("you@example.com").
			Validate(required("email")).
			Value(&p.Email))
	}
	if p.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Validate(required("password")).
			Value(&p.Password))
	}
	if p.AskUsername && p.Username == "" {
		fields = append(fields, huh.NewInput().
			Title("Username").
			Description("Leave blank to use the part of your email before the @").
			Value(&p.Username))
	}
	if len(fields) == 0 {
		return nil
	}
	if !IsInteractive() {
		return ErrNotInteractive
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	p.Email = strings.TrimSpace(p.Email)
	p.Username = strings.TrimSpace(p.Username)
	return nil
}

// Confirm asks a yes/no question.
func Confirm(message string, defaultValue bool) (bool, error) {
	if !IsInteractive() {
		return false, ErrNotInteractive
	}
	confirmed := defaultValue
	form := huh.NewForm(huh.NewGroup(huh.NewConfirm().
		Title(message).
		Value(&confirmed)))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}

// PromptCode asks for the one-time code shown after a provider sign-in.
func PromptCode() (string, error) {
	if !IsInteractive() {
		return "", ErrNotInteractive
	}
	var code string
	form := huh.NewForm(huh.NewGroup(huh.NewInput().
		Title("Sign-in code").
		Description("Paste the code shown after signing in").
		Validate(required("code")).
		Value(&code)))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return strings.TrimSpace(code), nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// IsInteractive returns true if stdin is a terminal (not piped).
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
