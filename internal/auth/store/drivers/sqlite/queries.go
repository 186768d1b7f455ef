package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
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
	CreatedAt    int64
	UpdatedAt    int64
}

const userColumns = `id, username, email, password_hash, created_at, updated_at`

func scanUser(row *sql.Row) (userRow, error) {
	var u userRow
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *queries) GetUserByID(ctx context.Context, id string) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username_normalized = ?`

func (q *queries) GetUserByUsername(ctx context.Context, normalized string) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, normalized))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email_normalized = ?`

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
	CreatedAt          int64
}

const createUser = `
INSERT INTO users (id, username, username_normalized, email, email_normalized, password_hash, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (q *queries) CreateUser(ctx context.Context, arg createUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID,
		arg.Username,
		arg.UsernameNormalized,
		arg.Email,
		arg.EmailNormalized,
		arg.PasswordHash,
		arg.CreatedAt,
		arg.CreatedAt,
	)
	return err
}

type ssoTokenRow struct {
	Token     string
	UserID    string
	ExpiresAt int64
	IsUsed    bool
	UsedAt    sql.NullInt64
	CreatedAt int64
}

const ssoTokenColumns = `token, user_id, expires_at, is_used, used_at, created_at`

func scanSSOToken(row *sql.Row) (ssoTokenRow, error) {
	var t ssoTokenRow
	err := row.Scan(&t.Token, &t.UserID, &t.ExpiresAt, &t.IsUsed, &t.UsedAt, &t.CreatedAt)
	return t, err
}

const createSSOToken = `
INSERT INTO sso_tokens (token, user_id, expires_at, is_used, used_at, created_at)
VALUES (?, ?, ?, 0, NULL, ?)`

func (q *queries) CreateSSOToken(ctx context.Context, token, userID string, expiresAt, createdAt int64) error {
	_, err := q.db.ExecContext(ctx, createSSOToken, token, userID, expiresAt, createdAt)
	return err
}

const getSSOToken = `SELECT ` + ssoTokenColumns + ` FROM sso_tokens WHERE token = ?`

func (q *queries) GetSSOToken(ctx context.Context, token string) (ssoTokenRow, error) {
	return scanSSOToken(q.db.QueryRowContext(ctx, getSSOToken, token))
}

// consumeSSOToken is the whole single-use guarantee: the row flips only if it
// is still unused and unexpired, and only one statement can win that race.
const consumeSSOToken = `
UPDATE sso_tokens
SET is_used = 1, used_at = ?1
WHERE token = ?2 AND is_used = 0 AND expires_at > ?1
RETURNING ` + ssoTokenColumns

func (q *queries) ConsumeSSOToken(ctx context.Context, token string, now int64) (ssoTokenRow, error) {
	return scanSSOToken(q.db.QueryRowContext(ctx, consumeSSOToken, now, token))
}

const deleteExpiredSSOTokens = `
DELETE FROM sso_tokens
WHERE expires_at <= ?1 OR (is_used = 1 AND used_at <= ?1)`

func (q *queries) DeleteExpiredSSOTokens(ctx context.Context, cutoff int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredSSOTokens, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
