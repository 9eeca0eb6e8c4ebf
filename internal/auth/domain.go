// Package auth signs owners in and out through a pluggable identity provider.
package auth

import (
	"context"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// User is the identity returned by a provider. ID becomes the record owner.
type User struct {
	ID    string
	Email string
}

// Provider verifies credentials and creates accounts.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (User, error)
	SignUp(ctx context.Context, email, password string) (User, error)
}

var mailbox = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z]{2,}(\.[a-zA-Z]{2,})*$`)

// ValidEmail reports whether email has a local part and a dotted domain.
func ValidEmail(email string) bool {
	return mailbox.MatchString(email)
}

func registerMailbox(v *validator.Validate) {
	_ = v.RegisterValidation("mailbox", func(fl validator.FieldLevel) bool {
		return ValidEmail(fl.Field().String())
	})
}
