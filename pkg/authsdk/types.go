package authsdk

import "time"

// TokenTypeBearer is the only token type the gateway issues.
const TokenTypeBearer = "Bearer"

// ErrorResponse is the body of every error that is not a registration
// validation failure.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ============================================================================
// Registration
// ============================================================================

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is returned when an account was created.
type RegisterResponse struct {
	Result string `json:"result"`
	UserID string `json:"userId"`
}

// ValidationError is a single rule a registration request broke.
type ValidationError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ValidationErrorResponse is the 400 body of POST /register.
type ValidationErrorResponse struct {
	Errors []ValidationError `json:"errors"`
}

// ============================================================================
// Tokens
// ============================================================================

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries a freshly minted access token.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`

	// ExpiresIn is the lifetime of the access token in seconds.
	ExpiresIn int `json:"expiresIn"`
}

// SSOTokenResponse is returned by POST /sso/issue.
type SSOTokenResponse struct {
	SSOToken  string    `json:"ssoToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RedeemRequest is the body of POST /sso/redeem.
type RedeemRequest struct {
	SSOToken string `json:"ssoToken"`
}

// UserDetails describes the user a redeemed SSO token belonged to.
type UserDetails struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// RedeemResponse is returned by POST /sso/redeem.
type RedeemResponse struct {
	TokenResponse

	UserDetails UserDetails `json:"userDetails"`
}

// ============================================================================
// Health
// ============================================================================

// HealthResponse is the body of /livez and /readyz (readyz adds Checks).
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks lists readiness of the gateway's dependencies.
type HealthChecks struct {
	Database string `json:"database"`
	SSOStore string `json:"ssoStore"`
	Signer   string `json:"signer"`
}
