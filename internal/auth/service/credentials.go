package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/domain"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/store"
	"github.com/aussiebroadwan/ssohandoff/pkg/cryptox"
	"github.com/aussiebroadwan/ssohandoff/pkg/idx"
	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
	"github.com/aussiebroadwan/ssohandoff/pkg/slogx"
)

// CredentialStore owns user accounts and their passwords.
type CredentialStore interface {
	// CreateUser validates and stores a new account. Broken rules come back
	// as a *ValidationError.
	CreateUser(ctx context.Context, username, email, password string) (domain.User, error)

	FindByUsername(ctx context.Context, username string) (domain.User, error)
	FindByID(ctx context.Context, id string) (domain.User, error)

	// VerifyPassword returns the user when password matches, otherwise
	// ErrInvalidCredentials whether or not the user exists.
	VerifyPassword(ctx context.Context, username, password string) (domain.User, error)
}

// CredentialService is the CredentialStore backed by the SQL store and
// argon2id hashes.
type CredentialService struct {
	Store store.Store
	Clock jwtx.Clock
}

var _ CredentialStore = (*CredentialService)(nil)

func (s *CredentialService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func (s *CredentialService) CreateUser(ctx context.Context, username, email, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if issues := domain.ValidateRegistration(username, email, password); len(issues) > 0 {
		return domain.User{}, &ValidationError{Issues: issues}
	}

	var issues []domain.ValidationIssue
	if _, err := s.Store.Users().GetUserByUsername(ctx, username); err == nil {
		issues = append(issues, domain.IssueDuplicateUser)
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup username: %w", err)
	}
	if _, err := s.Store.Users().GetUserByEmail(ctx, email); err == nil {
		issues = append(issues, domain.IssueDuplicateEmail)
	} else if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup email: %w", err)
	}
	if len(issues) > 0 {
		return domain.User{}, &ValidationError{Issues: issues}
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The lookups above can race another registration.
	switch err := s.Store.Users().CreateUser(ctx, u); {
	case errors.Is(err, store.ErrDuplicateUsername):
		return domain.User{}, &ValidationError{Issues: []domain.ValidationIssue{domain.IssueDuplicateUser}}
	case errors.Is(err, store.ErrDuplicateEmail):
		return domain.User{}, &ValidationError{Issues: []domain.ValidationIssue{domain.IssueDuplicateEmail}}
	case err != nil:
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	slogx.FromContext(ctx).Info("user registered", slog.String("user_id", u.ID))
	return u, nil
}

func (s *CredentialService) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.Store.Users().GetUserByUsername(ctx, username)
}

func (s *CredentialService) FindByID(ctx context.Context, id string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, id)
}

func (s *CredentialService) VerifyPassword(ctx context.Context, username, password string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		cryptox.DummyVerify(password)
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("verify password: %w", err)
	}
	return u, nil
}
