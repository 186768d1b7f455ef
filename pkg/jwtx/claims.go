package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL is the lifetime of access tokens when the service
// does not override it.
const DefaultAccessTokenTTL = 30 * time.Minute

// Principal is the authenticated identity an access token speaks for.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Claims are the access-token claims shared by the gateway and every
// resource server. "sub" and "uid" both carry the user id.
type Claims struct {
	jwt.RegisteredClaims

	// UserID duplicates the subject so clients that only look at custom
	// claims still find the user.
	UserID string `json:"uid,omitempty"`

	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// NewAccessClaims builds claims for p valid from now for at least ttl. "exp"
// has whole-second precision, so a fractional expiry is rounded up.
func NewAccessClaims(p Principal, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(ceilSecond(now.Add(ttl))),
			ID:        NewJTI(),
		},
		UserID:   p.ID,
		Username: p.Username,
		Email:    p.Email,
	}
}

func ceilSecond(t time.Time) time.Time {
	if down := t.Truncate(time.Second); !down.Equal(t) {
		return down.Add(time.Second)
	}
	return t
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// SubjectID returns the user id the token was issued for, preferring "sub"
// and falling back to "uid". Empty means the token names nobody.
func (c *Claims) SubjectID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

// Principal returns the identity carried by the claims.
func (c *Claims) Principal() Principal {
	return Principal{ID: c.SubjectID(), Username: c.Username, Email: c.Email}
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry checks exp and nbf against now. A token is already expired
// at the instant now equals exp.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}

// ValidateSubject requires the token to name a user.
func (c *Claims) ValidateSubject() error {
	if c.SubjectID() == "" {
		return ErrNoSubject
	}
	return nil
}
