package sqlite

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
	err := r.q.CreateSSOToken(ctx, t.Token, t.UserID, toMillis(t.ExpiresAt), toMillis(t.CreatedAt))
	if isUniqueViolation(err, "sso_tokens.token") {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *ssoTokensRepo) ConsumeSSOToken(ctx context.Context, token string, now time.Time) (domain.SSOToken, error) {
	row, err := r.q.ConsumeSSOToken(ctx, token, toMillis(now))
	if err == nil {
		return mapSSOToken(row), nil
	}
	if !errors.Is(mapNotFound(err), store.ErrNotFound) {
		return domain.SSOToken{}, err
	}

	// Nothing matched. The update already decided the outcome, this read
	// only explains it.
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
	return r.q.DeleteExpiredSSOTokens(ctx, toMillis(now.Add(-retain)))
}

func mapSSOToken(row ssoTokenRow) domain.SSOToken {
	t := domain.SSOToken{
		Token:     row.Token,
		UserID:    row.UserID,
		ExpiresAt: fromMillis(row.ExpiresAt),
		IsUsed:    row.IsUsed,
		CreatedAt: fromMillis(row.CreatedAt),
	}
	if row.UsedAt.Valid {
		used := fromMillis(row.UsedAt.Int64)
		t.UsedAt = &used
	}
	return t
}
