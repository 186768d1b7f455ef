package domain

import (
	"strings"
	"time"

	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
)

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2 encoded
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the identity carried in access tokens for u.
func (u User) Principal() jwtx.Principal {
	return jwtx.Principal{ID: u.ID, Username: u.Username, Email: u.Email}
}

// NormalizeUsername is the form usernames are unique and looked up by.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail is the form emails are unique by.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
