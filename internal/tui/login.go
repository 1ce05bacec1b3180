package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/iaimans/sesame-cli/internal/worksession"
)

// LoginForm asks for credentials on the terminal before the main program
// starts. It implements worksession.Prompter.
type LoginForm struct {
	email string
	// run is swapped in tests.
	run func(ctx context.Context, f *huh.Form) error
}

// NewLoginForm prefills the email field with lastEmail.
func NewLoginForm(lastEmail string) *LoginForm {
	return &LoginForm{
		email: lastEmail,
		run: func(ctx context.Context, f *huh.Form) error {
			return f.RunWithContext(ctx)
		},
	}
}

// Email is the address last entered, for remembering it after a
// successful login.
func (l *LoginForm) Email() string { return l.email }

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func (l *LoginForm) form(password *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Sesame login").
				Description("Sign in with your Sesame account."),
			huh.NewInput().
				Title("Email").
				Value(&l.email).
				Validate(required("email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password).
				Validate(required("password")),
		),
	)
}

func (l *LoginForm) Credentials(ctx context.Context) (worksession.Credentials, error) {
	var password string
	if err := l.run(ctx, l.form(&password)); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return worksession.Credentials{}, errors.New("login cancelled")
		}
		return worksession.Credentials{}, err
	}
	l.email = strings.TrimSpace(l.email)
	return worksession.Credentials{Email: l.email, Password: password}, nil
}
