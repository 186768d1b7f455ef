package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// Token is a signed access token. IssuedAt and ExpiresAt come from the
// signer's clock.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Lifetime is how long the token is valid from issue, in whole seconds.
func (t Token) Lifetime() time.Duration {
	return max(0, t.ExpiresAt.Sub(t.IssuedAt).Truncate(time.Second))
}

// Signer mints access tokens.
type Signer interface {
	Alg() string
	Issue(Principal) (Token, error)
	Sign(Claims) (string, error)
}

// HS256Signer signs tokens with the active secret of a KeyRing.
type HS256Signer struct {
	ring   *KeyRing
	issuer string
	ttl    time.Duration
	now    Clock
}

// NewSignerHS256 returns a signer issuing tokens for issuer that live for
// ttl. A nil clock means SystemClock.
func NewSignerHS256(ring *KeyRing, issuer string, ttl time.Duration, clock Clock) (*HS256Signer, error) {
	if ring == nil {
		return nil, ErrNoKey
	}
	if ttl <= 0 {
		return nil, errors.New("jwtx: token ttl must be positive")
	}
	if clock == nil {
		clock = SystemClock
	}
	return &HS256Signer{ring: ring, issuer: issuer, ttl: ttl, now: clock}, nil
}

func (s *HS256Signer) Alg() string        { return jwt.SigningMethodHS256.Alg() }
func (s *HS256Signer) TTL() time.Duration { return s.ttl }

// Issue builds claims for p and signs them.
func (s *HS256Signer) Issue(p Principal) (Token, error) {
	if p.ID == "" {
		return Token{}, ErrInvalidClaim
	}

	now := s.now()
	claims := NewAccessClaims(p, s.issuer, s.ttl, now)
	raw, err := s.Sign(claims)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: raw, IssuedAt: now, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Sign signs arbitrary claims with the active key and stamps its kid.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	kid, secret, err := s.ring.Active()
	if err != nil {
		return "", err
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = kid
	return t.SignedString(secret)
}
