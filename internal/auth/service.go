package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bizdesk/bizdesk/internal/shared"
)

type credentials struct {
	Email    string `validate:"required,max=200"`
	Password string `validate:"required,max=72"`
}

type registration struct {
	Email    string `validate:"required,mailbox,max=200"`
	Password string `validate:"required,min=6,max=72"`
}

var credentialLabels = map[string]string{"Email": "email", "Password": "senha"}

// Service wraps authentication business rules.
type Service struct {
	provider Provider
	owners   *OwnerSet
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs a Service. owners may be nil.
func NewService(provider Provider, owners *OwnerSet, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	v := shared.NewValidator()
	registerMailbox(v)
	return &Service{provider: provider, owners: owners, validate: v, logger: logger}
}

// Authenticate validates email/password credentials. Any provider rejection
// is reported as shared.ErrInvalidCredentials; outages stay shared.ErrBackend.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	in := credentials{Email: strings.TrimSpace(email), Password: password}
	if err := shared.CheckStruct(s.validate, in, credentialLabels); err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	user, err := s.provider.SignIn(ctx, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, shared.ErrBackend) {
			return User{}, err
		}
		return User{}, shared.ErrInvalidCredentials
	}
	if user.ID == "" {
		return User{}, shared.ErrInvalidCredentials
	}
	if err := s.owners.Add(ctx, user.ID); err != nil {
		s.logger.Warn("track owner failed", slog.String("owner", user.ID), slog.Any("error", err))
	}
	return user, nil
}

// Register creates an account. The provider may require e-mail confirmation
// before the first sign in.
func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	in := registration{Email: strings.TrimSpace(email), Password: password}
	if err := shared.CheckStruct(s.validate, in, credentialLabels); err != nil {
		return User{}, err
	}
	return s.provider.SignUp(ctx, in.Email, in.Password)
}
