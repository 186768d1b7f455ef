package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrDuplicateUsername and ErrDuplicateEmail narrow ErrAlreadyExists for
	// user inserts.
	ErrDuplicateUsername = fmt.Errorf("%w: username", ErrAlreadyExists)
	ErrDuplicateEmail    = fmt.Errorf("%w: email", ErrAlreadyExists)

	ErrAlreadyUsed = errors.New("store: sso token already used")
	ErrExpired     = errors.New("store: sso token expired")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and so nobody can start a transaction inside a transaction.
type Store interface {
	Users() Users
	SSOTokens() SSOTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error, the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername matches case-insensitively.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID). A
	// clash returns ErrDuplicateUsername or ErrDuplicateEmail.
	CreateUser(ctx context.Context, u domain.User) error
}

// SSOTokens holds single-use handoff tokens. Implementations must make
// ConsumeSSOToken a single indivisible conditional update so that, of any
// number of concurrent callers, at most one wins.
type SSOTokens interface {
	// CreateSSOToken stores t. A clash on the token value returns
	// ErrAlreadyExists.
	CreateSSOToken(ctx context.Context, t domain.SSOToken) error

	// ConsumeSSOToken marks the token used if it is unused and not expired at
	// now, returning the consumed record. Otherwise it returns ErrNotFound,
	// ErrAlreadyUsed or ErrExpired and changes nothing.
	ConsumeSSOToken(ctx context.Context, token string, now time.Time) (domain.SSOToken, error)

	// GetSSOToken reads a token without touching it.
	GetSSOToken(ctx context.Context, token string) (domain.SSOToken, error)

	// DeleteExpiredSSOTokens removes tokens that expired, or were used, more
	// than retain before now. Returns how many rows went.
	DeleteExpiredSSOTokens(ctx context.Context, now time.Time, retain time.Duration) (int64, error)
}

// SSOTokenStore is an SSOTokens repo that lives outside the SQL store
// (redis).
type SSOTokenStore interface {
	SSOTokens

	Ping(ctx context.Context) error
	Close() error
}

// ClassifySSOToken explains why t could not be consumed at now. It is used by
// drivers after a conditional update matched nothing.
func ClassifySSOToken(t domain.SSOToken, now time.Time) error {
	switch {
	case t.IsUsed:
		return ErrAlreadyUsed
	case t.Expired(now):
		return ErrExpired
	default:
		// Lost a race with a consumer that has since committed
		return ErrAlreadyUsed
	}
}
