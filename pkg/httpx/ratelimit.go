package httpx

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/ssohandoff/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket: RequestsPerWindow refill over Window,
// holding at most Burst.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Limit is the refill rate per second.
func (c RateLimitConfig) Limit() rate.Limit {
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// Profiles. Credential and SSO redemption routes use StrictLimit by client IP,
// SSO issuance ModerateLimit. Resource servers limit per user with
// LenientLimit. Health and metrics get PublicLimit.
//
// Each is overridable with RATELIMIT_<NAME>_{REQUESTS,WINDOW_SEC,BURST}.
var (
	StrictLimit   = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}
	LenientLimit  = RateLimitConfig{RequestsPerWindow: 100, Window: time.Minute, Burst: 100}
	PublicLimit   = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

func init() {
	// e2e suites raise these so they do not trip over their own traffic
	StrictLimit = ParseRateLimitFromEnv("STRICT", StrictLimit)
	ModerateLimit = ParseRateLimitFromEnv("MODERATE", ModerateLimit)
	LenientLimit = ParseRateLimitFromEnv("LENIENT", LenientLimit)
	PublicLimit = ParseRateLimitFromEnv("PUBLIC", PublicLimit)

	if raw := os.Getenv("RATELIMIT_TRUSTED_PROXIES"); raw != "" {
		prefixes, err := ParseTrustedProxies(raw)
		if err != nil {
			slog.Warn("ignoring RATELIMIT_TRUSTED_PROXIES, forwarding headers will not be trusted", "error", err)
			return
		}
		TrustedProxies = prefixes
	}
}

// ParseRateLimitFromEnv overlays RATELIMIT_<prefix>_REQUESTS, _WINDOW_SEC and
// _BURST on def. Values that are not positive integers are ignored.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	fields := []struct {
		suffix string
		set    func(int)
	}{
		{"REQUESTS", func(n int) { cfg.RequestsPerWindow = n }},
		{"WINDOW_SEC", func(n int) { cfg.Window = time.Duration(n) * time.Second }},
		{"BURST", func(n int) { cfg.Burst = n }},
	}
	for _, f := range fields {
		raw := os.Getenv("RATELIMIT_" + prefix + "_" + f.suffix)
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			f.set(n)
		}
	}
	return cfg
}

// KeyExtractor names the bucket a request draws from. An empty key means the
// request is not limited.
type KeyExtractor func(*http.Request) string

// TrustedProxies are the peers whose X-Forwarded-For and X-Real-IP headers
// are believed. Empty means forwarding headers are ignored and the connection
// address is the client. Set from RATELIMIT_TRUSTED_PROXIES, a comma
// separated list of CIDRs or addresses.
var TrustedProxies []netip.Prefix

// ParseTrustedProxies parses a comma separated list of CIDRs or single
// addresses.
func ParseTrustedProxies(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if strings.Contains(field, "/") {
			p, err := netip.ParsePrefix(field)
			if err != nil {
				return nil, fmt.Errorf("httpx: trusted proxy %q: %w", field, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(field)
		if err != nil {
			return nil, fmt.Errorf("httpx: trusted proxy %q: %w", field, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// IPKeyExtractor is ClientIPExtractor over TrustedProxies.
func IPKeyExtractor(r *http.Request) string {
	return ClientIPExtractor(TrustedProxies)(r)
}

// ClientIPExtractor returns the client address. Forwarding headers count only
// when the connection comes from a trusted proxy: X-Forwarded-For is walked
// from the right past trusted hops, then X-Real-IP is tried. Anything else
// gets the connection's remote host.
func ClientIPExtractor(trusted []netip.Prefix) KeyExtractor {
	isTrusted := func(addr netip.Addr) bool {
		addr = addr.Unmap()
		for _, p := range trusted {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		peer, err := netip.ParseAddr(host)
		if err != nil || !isTrusted(peer) {
			return host
		}

		if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
			hops := strings.Split(strings.Join(xff, ","), ",")
			for i := len(hops) - 1; i >= 0; i-- {
				hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
				if err != nil {
					break
				}
				if !isTrusted(hop) {
					return hop.Unmap().String()
				}
			}
		}
		if xri, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
			return xri.Unmap().String()
		}
		return host
	}
}

// UserIDKeyExtractor returns the user ID placed by AuthnMiddleware, or "".
func UserIDKeyExtractor(r *http.Request) string {
	id, _ := UserIDFromContext(r.Context())
	return id
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// buckets holds one limiter per key. A bucket idle for a full window has
// refilled completely, so dropping it changes nothing for its key.
type buckets struct {
	cfg RateLimitConfig

	mu        sync.Mutex
	byKey     map[string]*bucket
	lastSweep time.Time
}

func newBuckets(cfg RateLimitConfig) *buckets {
	return &buckets{cfg: cfg, byKey: make(map[string]*bucket), lastSweep: time.Now()}
}

// allow takes a token for key. When none is left it reports how long until
// the next one.
func (b *buckets) allow(key string, now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) >= b.idleAfter() {
		b.sweep(now)
	}

	bk, ok := b.byKey[key]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(b.cfg.Limit(), b.cfg.Burst)}
		b.byKey[key] = bk
	}
	bk.lastSeen = now

	if bk.limiter.AllowN(now, 1) {
		return true, 0
	}
	missing := 1 - bk.limiter.TokensAt(now)
	wait := time.Duration(missing / float64(bk.limiter.Limit()) * float64(time.Second))
	return false, wait
}

func (b *buckets) idleAfter() time.Duration {
	return max(b.cfg.Window, time.Minute)
}

func (b *buckets) sweep(now time.Time) {
	cutoff := now.Add(-b.idleAfter())
	for key, bk := range b.byKey {
		if bk.lastSeen.Before(cutoff) {
			delete(b.byKey, key)
		}
	}
	b.lastSweep = now
}

// RejectHook observes every request a limiter turns away.
type RejectHook func(r *http.Request, key string)

// RateLimitMiddleware limits requests per key from keyFn. A refused request
// gets 429 with Retry-After (whole seconds, at least 1) and the configured
// limit in X-RateLimit-Limit and X-RateLimit-Window.
func RateLimitMiddleware(cfg RateLimitConfig, keyFn KeyExtractor, hooks ...RejectHook) Middleware {
	set := newBuckets(cfg)
	limitHeader := strconv.Itoa(cfg.RequestsPerWindow)
	windowHeader := cfg.Window.String()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: no key for request, not limiting",
					"path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := set.allow(key, time.Now())
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(math.Ceil(wait.Seconds())), 1)
			h := w.Header()
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			h.Set("X-RateLimit-Limit", limitHeader)
			h.Set("X-RateLimit-Window", windowHeader)

			for _, hook := range hooks {
				hook(r, key)
			}
			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"key", key,
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)

			WriteError(w, http.StatusTooManyRequests,
				"rate_limit_exceeded", "Too many requests. Please try again later.")
		})
	}
}

// RateLimitByIP limits by client address.
func RateLimitByIP(cfg RateLimitConfig, hooks ...RejectHook) Middleware {
	return RateLimitMiddleware(cfg, IPKeyExtractor, hooks...)
}

// RateLimitByUser limits by authenticated user and client address together,
// so a user's budget is per address. Without a user it degrades to by-IP.
func RateLimitByUser(cfg RateLimitConfig, hooks ...RejectHook) Middleware {
	return RateLimitMiddleware(cfg, CompositeKeyExtractor(":",
		UserIDKeyExtractor,
		IPKeyExtractor,
	), hooks...)
}
