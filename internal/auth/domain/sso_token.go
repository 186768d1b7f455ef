package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSSOTokenTTL is how long an SSO token stays redeemable.
const DefaultSSOTokenTTL = 10 * time.Minute

// SSOToken is a single-use handoff credential. Once IsUsed is set it never
// goes back.
type SSOToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	IsUsed    bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Redeemable reports whether t may still be consumed at now. Expiry is
// exclusive: a token is dead at the instant now reaches ExpiresAt.
func (t SSOToken) Redeemable(now time.Time) bool {
	return !t.IsUsed && now.Before(t.ExpiresAt)
}

// Expired reports whether now is at or past the expiry.
func (t SSOToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// NewSSOTokenValue returns a fresh random token value (UUIDv4, 122 random
// bits).
func NewSSOTokenValue() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// NewSSOToken builds an unused token for userID expiring ttl after now.
func NewSSOToken(userID string, ttl time.Duration, now time.Time) (SSOToken, error) {
	value, err := NewSSOTokenValue()
	if err != nil {
		return SSOToken{}, err
	}
	return SSOToken{
		Token:     value,
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// RejectReason says why an SSO token could not be redeemed. Reasons are for
// logs and metrics only; callers outside the gateway see one generic error.
type RejectReason string

const (
	RejectNotFound    RejectReason = "not_found"
	RejectAlreadyUsed RejectReason = "already_used"
	RejectExpired     RejectReason = "expired"
	RejectInvalidUser RejectReason = "invalid_user"
)
