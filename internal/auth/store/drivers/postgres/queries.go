package postgres

import (
	"context"
	"database/sql"
	"time"
)

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

type userRow struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const userColumns = `id, username, email, password_hash, created_at, updated_at`

func scanUser(row *sql.Row) (userRow, error) {
	var u userRow
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *queries) GetUserByID(ctx context.Context, id string) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username_normalized = $1`

func (q *queries) GetUserByUsername(ctx context.Context, normalized string) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, normalized))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email_normalized = $1`

func (q *queries) GetUserByEmail(ctx context.Context, normalized string) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, normalized))
}

type createUserParams struct {
	ID                 string
	Username           string
	UsernameNormalized string
	Email              string
	EmailNormalized    string
	PasswordHash       string
	CreatedAt          time.Time
}

const createUser = `
INSERT INTO users (id, username, username_normalized, email, email_normalized, password_hash, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

func (q *queries) CreateUser(ctx context.Context, arg createUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID,
		arg.Username,
		arg.UsernameNormalized,
		arg.Email,
		arg.EmailNormalized,
		arg.PasswordHash,
		arg.CreatedAt,
	)
	return err
}

type ssoTokenRow struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	IsUsed    bool
	UsedAt    sql.NullTime
	CreatedAt time.Time
}

const ssoTokenColumns = `token, user_id, expires_at, is_used, used_at, created_at`

func scanSSOToken(row *sql.Row) (ssoTokenRow, error) {
	var t ssoTokenRow
	err := row.Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.IsUsed, &t.UsedAt, &t.CreatedAt)
	return t, err
}

const createSSOToken = `
INSERT INTO sso_tokens (token, user_id, expires_at, is_used, used_at, created_at)
VALUES ($1, $2, $3, FALSE, NULL, $4)`

func (q *queries) CreateSSOToken(ctx context.Context, token, userID string, expiresAt, createdAt time.Time) error {
	_, err := q.db.ExecContext(ctx, createSSOToken, token, userID, expiresAt, createdAt)
	return err
}

const getSSOToken = `SELECT ` + ssoTokenColumns + ` FROM sso_tokens WHERE token = $1`

func (q *queries) GetSSOToken(ctx context.Context, token string) (ssoTokenRow, error) {
	return scanSSOToken(q.db.QueryRowContext(ctx, getSSOToken, token))
}

// Concurrent updates of the same row serialise on its lock and the loser
// re-checks the WHERE clause against the committed row.
const consumeSSOToken = `
UPDATE sso_tokens
SET is_used = TRUE, used_at = $1
WHERE token = $2 AND is_used = FALSE AND expires_at > $1
RETURNING ` + ssoTokenColumns

func (q *queries) ConsumeSSOToken(ctx context.Context, token string, now time.Time) (ssoTokenRow, error) {
	return scanSSOToken(q.db.QueryRowContext(ctx, consumeSSOToken, now, token))
}

const deleteExpiredSSOTokens = `
DELETE FROM sso_tokens
WHERE expires_at <= $1 OR (is_used AND used_at <= $1)`

func (q *queries) DeleteExpiredSSOTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredSSOTokens, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
