package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewAccessClaims(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	p := jwtx.Principal{ID: "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", Username: "alice", Email: "alice@example.com"}

	c := jwtx.NewAccessClaims(p, "ssohandoff-auth", 30*time.Minute, now)

	require.Equal(t, p.ID, c.Subject)
	require.Equal(t, p.ID, c.UserID)
	require.Equal(t, "alice", c.Username)
	require.Equal(t, "alice@example.com", c.Email)
	require.Equal(t, "ssohandoff-auth", c.Issuer)
	require.Equal(t, now.Add(30*time.Minute), c.ExpiresAt.Time)
	require.NotEmpty(t, c.ID)
	require.Equal(t, p, c.Principal())

	t.Run("fractional expiry rounds up", func(t *testing.T) {
		c := jwtx.NewAccessClaims(p, "ssohandoff-auth", 30*time.Minute, now.Add(250*time.Millisecond))
		require.True(t, c.ExpiresAt.Time.Equal(now.Add(30*time.Minute+time.Second)))
		require.True(t, c.IssuedAt.Time.Equal(now))
	})
}

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "auth-service"}}

	require.NoError(t, c.ValidateIssuer("auth-service"))
	require.NoError(t, c.ValidateIssuer(""))
	require.ErrorIs(t, c.ValidateIssuer("resource-service"), jwtx.ErrIssuer)
}

func TestValidateExpiry(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()

	t.Run("valid token", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
		require.NoError(t, c.ValidateExpiry(now))
	})

	t.Run("exactly at expiry", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now),
		}}
		require.ErrorIs(t, c.ValidateExpiry(now), jwtx.ErrExpired)
	})

	t.Run("expired token", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		}}
		require.ErrorIs(t, c.ValidateExpiry(now), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			NotBefore: jwt.NewNumericDate(now.Add(time.Minute)),
		}}
		require.ErrorIs(t, c.ValidateExpiry(now), jwtx.ErrNotYetValid)
	})

	t.Run("missing exp", func(t *testing.T) {
		c := &jwtx.Claims{}
		require.ErrorIs(t, c.ValidateExpiry(now), jwtx.ErrInvalidClaim)
	})
}

func TestSubjectID(t *testing.T) {
	c := &jwtx.Claims{UserID: "u-1"}
	require.Equal(t, "u-1", c.SubjectID())

	c.Subject = "u-2"
	require.Equal(t, "u-2", c.SubjectID())

	require.ErrorIs(t, (&jwtx.Claims{}).ValidateSubject(), jwtx.ErrInvalidClaim)
	require.ErrorIs(t, (&jwtx.Claims{}).ValidateSubject(), jwtx.ErrNoSubject)
}
