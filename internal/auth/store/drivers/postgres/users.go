package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/domain"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/store"
)

type usersRepo struct {
	q *queries
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	row, err := r.q.GetUserByUsername(ctx, domain.NormalizeUsername(username))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row, err := r.q.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	err := r.q.CreateUser(ctx, createUserParams{
		ID:                 u.ID,
		Username:           u.Username,
		UsernameNormalized: domain.NormalizeUsername(u.Username),
		Email:              u.Email,
		EmailNormalized:    domain.NormalizeEmail(u.Email),
		PasswordHash:       u.PasswordHash,
		CreatedAt:          created.UTC(),
	})

	switch {
	case isUniqueViolation(err, "users_username_normalized_idx"):
		return store.ErrDuplicateUsername
	case isUniqueViolation(err, "users_email_normalized_idx"):
		return store.ErrDuplicateEmail
	case isUniqueViolation(err, "users_pkey"):
		return store.ErrAlreadyExists
	}
	return err
}

func mapUser(row userRow) domain.User {
	return domain.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
}
