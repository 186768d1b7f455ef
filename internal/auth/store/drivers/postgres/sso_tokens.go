package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/domain"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/store"
)

type ssoTokensRepo struct {
	q *queries
}

func (r *ssoTokensRepo) CreateSSOToken(ctx context.Context, t domain.SSOToken) error {
	err := r.q.CreateSSOToken(ctx, t.Token, t.UserID, t.ExpiresAt.UTC(), t.CreatedAt.UTC())
	if isUniqueViolation(err, "sso_tokens_pkey") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *ssoTokensRepo) ConsumeSSOToken(ctx context.Context, token string, now time.Time) (domain.SSOToken, error) {
	row, err := r.q.ConsumeSSOToken(ctx, token, now.UTC())
	if err == nil {
		return mapSSOToken(row), nil
	}
	if !errors.Is(mapNotFound(err), store.ErrNotFound) {
		return domain.SSOToken{}, err
	}

	existing, err := r.GetSSOToken(ctx, token)
	if err != nil {
		return domain.SSOToken{}, err
	}
	return domain.SSOToken{}, store.ClassifySSOToken(existing, now)
}

func (r *ssoTokensRepo) GetSSOToken(ctx context.Context, token string) (domain.SSOToken, error) {
	row, err := r.q.GetSSOToken(ctx, token)
	if err != nil {
		return domain.SSOToken{}, mapNotFound(err)
	}
	return mapSSOToken(row), nil
}

func (r *ssoTokensRepo) DeleteExpiredSSOTokens(ctx context.Context, now time.Time, retain time.Duration) (int64, error) {
	return r.q.DeleteExpiredSSOTokens(ctx, now.Add(-retain).UTC())
}

func mapSSOToken(row ssoTokenRow) domain.SSOToken {
	t := domain.SSOToken{
		Token:     row.Token,
		UserID:    row.UserID,
		ExpiresAt: row.ExpiresAt.UTC(),
		IsUsed:    row.IsUsed,
		CreatedAt: row.CreatedAt.UTC(),
	}
	if row.UsedAt.Valid {
		used := row.UsedAt.Time.UTC()
		t.UsedAt = &used
	}
	return t
}
