package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// ErrSessionExpired is returned locally once a session's access token has
// passed its expiry. There is no refresh; log in again or redeem a new SSO
// token.
var ErrSessionExpired = errors.New("authsdk: access token expired")

// Session holds an access token for one user.
type Session struct {
	client *SDKClient

	mu          sync.RWMutex
	accessToken string
	expiresAt   time.Time
	user        *UserDetails
}

func newSession(client *SDKClient, tok TokenResponse, user *UserDetails) *Session {
	return &Session{
		client:      client,
		accessToken: tok.AccessToken,
		expiresAt:   time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		user:        user,
	}
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// ExpiresAt is the local estimate of when the access token stops working.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// User returns the details reported by an SSO redemption, or nil for
// sessions created by Login.
func (s *Session) User() *UserDetails {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !time.Now().Before(s.expiresAt) {
		return "", ErrSessionExpired
	}
	return s.accessToken, nil
}

// IssueSSOToken asks the gateway for a single-use SSO token for this
// session's user. Hand it to a peer client, which redeems it with
// SDKClient.RedeemSSOToken.
func (s *Session) IssueSSOToken(ctx context.Context) (*SSOTokenResponse, error) {
	tok, err := s.token()
	if err != nil {
		return nil, err
	}

	var out SSOTokenResponse
	if err := s.client.doJSON(ctx, http.MethodPost, "/sso/issue", tok, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get calls a resource server endpoint with the session's bearer token and
// decodes the JSON body into target.
func (s *Session) Get(ctx context.Context, rawURL string, target any) error {
	tok, err := s.token()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := s.client.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return decodeJSON(resp, target, http.StatusOK)
}
