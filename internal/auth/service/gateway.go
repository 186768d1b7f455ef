package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/domain"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/metrics"
	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
	"github.com/aussiebroadwan/ssohandoff/pkg/slogx"
)

// LoginResult is a fresh access token and the user it was issued to.
type LoginResult struct {
	AccessToken jwtx.Token
	User        domain.User
}

// Gateway is the authentication gateway's business surface. The HTTP layer
// is a thin adapter over it.
type Gateway struct {
	Credentials CredentialStore
	SSO         *SSOService
	Signer      jwtx.Signer
	Metrics     metrics.Recorder
}

func (g *Gateway) recorder() metrics.Recorder {
	if g.Metrics != nil {
		return g.Metrics
	}
	return metrics.Nop{}
}

// Register creates an account. Rule violations come back as a
// *ValidationError.
func (g *Gateway) Register(ctx context.Context, username, email, password string) (domain.User, error) {
	u, err := g.Credentials.CreateUser(ctx, username, email, password)
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		g.recorder().RecordRegistration(metrics.OutcomeRejected)
		return domain.User{}, err
	case err != nil:
		g.recorder().RecordRegistration(metrics.OutcomeError)
		return domain.User{}, err
	}

	g.recorder().RecordRegistration(metrics.OutcomeOK)
	return u, nil
}

// Login checks the password and issues an access token. Unknown users and
// wrong passwords both yield ErrInvalidCredentials.
func (g *Gateway) Login(ctx context.Context, username, password string) (LoginResult, error) {
	u, err := g.Credentials.VerifyPassword(ctx, username, password)
	if errors.Is(err, ErrInvalidCredentials) {
		g.recorder().RecordLogin(metrics.OutcomeRejected)
		slogx.FromContext(ctx).Info("login failed")
		return LoginResult{}, err
	}
	if err != nil {
		g.recorder().RecordLogin(metrics.OutcomeError)
		return LoginResult{}, err
	}

	tok, err := g.Signer.Issue(u.Principal())
	if err != nil {
		g.recorder().RecordLogin(metrics.OutcomeError)
		return LoginResult{}, fmt.Errorf("issue access token: %w", err)
	}

	g.recorder().RecordLogin(metrics.OutcomeOK)
	slogx.FromContext(ctx).Info("login succeeded", slog.String("user_id", u.ID))
	return LoginResult{AccessToken: tok, User: u}, nil
}

// IssueSSOToken mints an SSO token for the bearer of accessToken.
func (g *Gateway) IssueSSOToken(ctx context.Context, accessToken string) (domain.SSOToken, error) {
	return g.SSO.IssueFor(ctx, accessToken)
}

// RedeemSSOToken exchanges an SSO token for an access token. Anyone holding
// the token may call it.
func (g *Gateway) RedeemSSOToken(ctx context.Context, token string) (RedeemResult, error) {
	return g.SSO.Redeem(ctx, token)
}
