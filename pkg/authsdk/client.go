package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient talks to the authentication gateway. It covers the anonymous
// endpoints and hands out Sessions for the authenticated ones.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new gateway client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates a new account. Validation failures come back as an
// *APIError for which IsValidationError is true.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.doJSON(ctx, http.MethodPost, "/register", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges a username and password for an authenticated Session.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*Session, error) {
	var out TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/login", "", LoginRequest{
		Username: username,
		Password: password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return newSession(c, out, nil), nil
}

// RedeemSSOToken trades a single-use SSO token for a Session of the user it
// was issued for. A token can be redeemed once; every later attempt fails
// with ErrInvalidSSOToken.
func (c *SDKClient) RedeemSSOToken(ctx context.Context, ssoToken string) (*Session, error) {
	var out RedeemResponse
	err := c.doJSON(ctx, http.MethodPost, "/sso/redeem", "", RedeemRequest{SSOToken: ssoToken}, &out)
	if err != nil {
		return nil, err
	}

	details := out.UserDetails
	return newSession(c, out.TokenResponse, &details), nil
}

// NewSessionFromToken wraps an access token obtained elsewhere.
func (c *SDKClient) NewSessionFromToken(accessToken string, expiresIn int) *Session {
	return newSession(c, TokenResponse{
		AccessToken: accessToken,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   expiresIn,
	}, nil)
}
