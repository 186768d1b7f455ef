package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/domain"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/metrics"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/store"
	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
	"github.com/aussiebroadwan/ssohandoff/pkg/slogx"
)

// RedeemResult is what a relying client gets for a valid SSO token.
type RedeemResult struct {
	AccessToken jwtx.Token
	User        jwtx.Principal
}

// SSOService hands out single-use SSO tokens to authenticated users and
// exchanges them for fresh access tokens.
type SSOService struct {
	Tokens   store.SSOTokens
	Users    CredentialStore
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	TTL      time.Duration
	Clock    jwtx.Clock
	Metrics  metrics.Recorder
}

func (s *SSOService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

func (s *SSOService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return domain.DefaultSSOTokenTTL
}

func (s *SSOService) recorder() metrics.Recorder {
	if s.Metrics != nil {
		return s.Metrics
	}
	return metrics.Nop{}
}

// IssueFor verifies accessToken and mints an SSO token for its subject. The
// subject is trusted as signed and not looked up.
func (s *SSOService) IssueFor(ctx context.Context, accessToken string) (domain.SSOToken, error) {
	claims, err := s.Verifier.Verify(accessToken)
	if errors.Is(err, jwtx.ErrNoSubject) {
		return domain.SSOToken{}, ErrMissingSubject
	}
	if err != nil {
		return domain.SSOToken{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return s.IssueForClaims(ctx, claims)
}

// IssueForClaims is IssueFor for claims that were already verified.
func (s *SSOService) IssueForClaims(ctx context.Context, claims jwtx.Claims) (domain.SSOToken, error) {
	userID := claims.SubjectID()
	if userID == "" {
		return domain.SSOToken{}, ErrMissingSubject
	}
	ctx = slogx.WithAttrs(ctx, slog.String("user_id", userID))

	if err := ctx.Err(); err != nil {
		return domain.SSOToken{}, err
	}

	// One retry on collision. A second clash means the generator is broken.
	var (
		tok domain.SSOToken
		err error
	)
	for attempt := 0; attempt < 2; attempt++ {
		tok, err = domain.NewSSOToken(userID, s.ttl(), s.now())
		if err != nil {
			return domain.SSOToken{}, fmt.Errorf("generate sso token: %w", err)
		}

		err = s.Tokens.CreateSSOToken(ctx, tok)
		if !errors.Is(err, store.ErrAlreadyExists) {
			break
		}
		slogx.FromContext(ctx).Warn("sso token collision", slog.Int("attempt", attempt+1))
	}
	if err != nil {
		return domain.SSOToken{}, fmt.Errorf("store sso token: %w", err)
	}

	s.recorder().RecordSSOIssued()
	slogx.FromContext(ctx).Info("sso token issued",
		slogx.Fingerprint("sso_token", tok.Token),
		slog.Time("expires_at", tok.ExpiresAt),
	)
	return tok, nil
}

// Redeem consumes token and issues an access token for the user it names.
// Every refusal is a *RejectedError. A token is spent even when its user
// turns out to be gone.
func (s *SSOService) Redeem(ctx context.Context, token string) (RedeemResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return RedeemResult{}, s.reject(ctx, token, domain.RejectNotFound)
	}

	if err := ctx.Err(); err != nil {
		return RedeemResult{}, err
	}

	consumed, err := s.Tokens.ConsumeSSOToken(ctx, token, s.now())
	switch {
	case errors.Is(err, store.ErrNotFound):
		return RedeemResult{}, s.reject(ctx, token, domain.RejectNotFound)
	case errors.Is(err, store.ErrAlreadyUsed):
		return RedeemResult{}, s.reject(ctx, token, domain.RejectAlreadyUsed)
	case errors.Is(err, store.ErrExpired):
		return RedeemResult{}, s.reject(ctx, token, domain.RejectExpired)
	case err != nil:
		return RedeemResult{}, fmt.Errorf("consume sso token: %w", err)
	}

	// The token is spent. Finish the exchange even if the caller gave up.
	ctx = context.WithoutCancel(ctx)

	user, err := s.Users.FindByID(ctx, consumed.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return RedeemResult{}, s.reject(ctx, token, domain.RejectInvalidUser)
	}
	if err != nil {
		return RedeemResult{}, fmt.Errorf("load sso user: %w", err)
	}

	access, err := s.Signer.Issue(user.Principal())
	if err != nil {
		return RedeemResult{}, fmt.Errorf("issue access token: %w", err)
	}

	s.recorder().RecordSSORedeemed()
	slogx.FromContext(ctx).Info("sso token redeemed",
		slog.String("user_id", user.ID),
		slogx.Fingerprint("sso_token", token),
	)
	return RedeemResult{AccessToken: access, User: user.Principal()}, nil
}

func (s *SSOService) reject(ctx context.Context, token string, reason domain.RejectReason) error {
	s.recorder().RecordSSORejected(string(reason))

	l := slogx.FromContext(ctx)
	attrs := []any{slog.String("reason", string(reason))}
	if token != "" {
		attrs = append(attrs, slogx.Fingerprint("sso_token", token))
	}
	if reason == domain.RejectInvalidUser {
		l.Warn("sso redemption rejected", attrs...)
	} else {
		l.Info("sso redemption rejected", attrs...)
	}
	return rejected(reason)
}
