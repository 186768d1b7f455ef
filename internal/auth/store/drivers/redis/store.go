// Package redis keeps SSO tokens in Redis so several gateway replicas can
// share them. Users stay in the SQL store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/domain"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/store"
	"github.com/go-redis/redis/v8"
)

const (
	DefaultKeyPrefix = "sso:"
	DefaultRetention = 24 * time.Hour
)

type Config struct {
	// URL is a redis:// or rediss:// connection URL.
	URL string

	// KeyPrefix is prepended to every token key.
	KeyPrefix string

	// Retention is how long a record outlives its expiry before Redis drops
	// it.
	Retention time.Duration
}

type Store struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

var _ store.SSOTokenStore = (*Store)(nil)

// NewStore connects to Redis and checks it answers.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	s := &Store{
		client:    client,
		prefix:    cfg.KeyPrefix,
		retention: cfg.Retention,
	}
	if s.prefix == "" {
		s.prefix = DefaultKeyPrefix
	}
	if s.retention <= 0 {
		s.retention = DefaultRetention
	}
	return s, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) key(token string) string { return s.prefix + token }

// createScript refuses to overwrite an existing token.
//
// KEYS[1] token key
// ARGV[1] user id, ARGV[2] expires_at ms, ARGV[3] created_at ms, ARGV[4] drop-at ms
var createScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], 'user_id', ARGV[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'expires_at', ARGV[2], 'used', '0', 'created_at', ARGV[3])
redis.call('PEXPIREAT', KEYS[1], ARGV[4])
return 1
`)

// consumeScript checks and flips the used flag in one step.
//
// KEYS[1] token key
// ARGV[1] now ms
var consumeScript = redis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'user_id', 'expires_at', 'used', 'created_at')
if not h[1] then
  return {'not_found'}
end
if h[3] == '1' then
  return {'already_used'}
end
if tonumber(h[2]) <= tonumber(ARGV[1]) then
  return {'expired'}
end
redis.call('HSET', KEYS[1], 'used', '1', 'used_at', ARGV[1])
return {'ok', h[1], h[2], h[4]}
`)

func (s *Store) CreateSSOToken(ctx context.Context, t domain.SSOToken) error {
	dropAt := t.ExpiresAt.Add(s.retention)
	created, err := createScript.Run(ctx, s.client,
		[]string{s.key(t.Token)},
		t.UserID,
		t.ExpiresAt.UnixMilli(),
		t.CreatedAt.UnixMilli(),
		dropAt.UnixMilli(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis: create sso token: %w", err)
	}
	if created == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (s *Store) ConsumeSSOToken(ctx context.Context, token string, now time.Time) (domain.SSOToken, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.key(token)}, now.UnixMilli()).StringSlice()
	if err != nil {
		return domain.SSOToken{}, fmt.Errorf("redis: consume sso token: %w", err)
	}
	if len(res) == 0 {
		return domain.SSOToken{}, errors.New("redis: consume sso token: empty reply")
	}

	switch res[0] {
	case "ok":
	case "not_found":
		return domain.SSOToken{}, store.ErrNotFound
	case "already_used":
		return domain.SSOToken{}, store.ErrAlreadyUsed
	case "expired":
		return domain.SSOToken{}, store.ErrExpired
	default:
		return domain.SSOToken{}, fmt.Errorf("redis: consume sso token: unexpected reply %q", res[0])
	}
	if len(res) != 4 {
		return domain.SSOToken{}, fmt.Errorf("redis: consume sso token: short reply")
	}

	expiresAt, err := parseMillis(res[2])
	if err != nil {
		return domain.SSOToken{}, err
	}
	createdAt, err := parseMillis(res[3])
	if err != nil {
		return domain.SSOToken{}, err
	}
	usedAt := time.UnixMilli(now.UnixMilli()).UTC()

	return domain.SSOToken{
		Token:     token,
		UserID:    res[1],
		ExpiresAt: expiresAt,
		IsUsed:    true,
		UsedAt:    &usedAt,
		CreatedAt: createdAt,
	}, nil
}

func (s *Store) GetSSOToken(ctx context.Context, token string) (domain.SSOToken, error) {
	fields, err := s.client.HGetAll(ctx, s.key(token)).Result()
	if err != nil {
		return domain.SSOToken{}, fmt.Errorf("redis: get sso token: %w", err)
	}
	if len(fields) == 0 {
		return domain.SSOToken{}, store.ErrNotFound
	}
	return decodeToken(token, fields)
}

// DeleteExpiredSSOTokens removes records that expired or were used more than
// retain before now. Redis drops every record on its own once the configured
// retention passes; this only matters when retain is shorter than that.
func (s *Store) DeleteExpiredSSOTokens(ctx context.Context, now time.Time, retain time.Duration) (int64, error) {
	cutoff := now.Add(-retain)

	var (
		removed int64
		cursor  uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 256).Result()
		if err != nil {
			return removed, fmt.Errorf("redis: scan sso tokens: %w", err)
		}

		for _, key := range keys {
			fields, err := s.client.HGetAll(ctx, key).Result()
			if err != nil {
				return removed, fmt.Errorf("redis: sweep sso tokens: %w", err)
			}
			if len(fields) == 0 {
				continue
			}
			t, err := decodeToken(key[len(s.prefix):], fields)
			if err != nil {
				continue
			}

			// Neither condition can become false again, so reading then
			// deleting without a script is safe.
			stale := !t.ExpiresAt.After(cutoff) || (t.UsedAt != nil && !t.UsedAt.After(cutoff))
			if !stale {
				continue
			}
			n, err := s.client.Del(ctx, key).Result()
			if err != nil {
				return removed, fmt.Errorf("redis: sweep sso tokens: %w", err)
			}
			removed += n
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func decodeToken(token string, fields map[string]string) (domain.SSOToken, error) {
	expiresAt, err := parseMillis(fields["expires_at"])
	if err != nil {
		return domain.SSOToken{}, err
	}
	createdAt, err := parseMillis(fields["created_at"])
	if err != nil {
		return domain.SSOToken{}, err
	}

	t := domain.SSOToken{
		Token:     token,
		UserID:    fields["user_id"],
		ExpiresAt: expiresAt,
		IsUsed:    fields["used"] == "1",
		CreatedAt: createdAt,
	}
	if raw, ok := fields["used_at"]; ok {
		usedAt, err := parseMillis(raw)
		if err != nil {
			return domain.SSOToken{}, err
		}
		t.UsedAt = &usedAt
	}
	return t, nil
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("redis: bad timestamp %q: %w", raw, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}
