package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/domain"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/metrics"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/service"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/ssohandoff/pkg/authsdk"
	"github.com/aussiebroadwan/ssohandoff/pkg/cryptox"
	"github.com/aussiebroadwan/ssohandoff/pkg/httpx"
	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testIssuer = "ssohandoff-http-test"

func TestMain(m *testing.M) {
	cryptox.SetPepper("http-test-pepper")
	os.Exit(m.Run())
}

type harness struct {
	router *Router
	signer *jwtx.HS256Signer
	clock  jwtx.Clock
	store  *sqlite.Store
	reg    *prometheus.Registry

	// each request gets its own client address so tests do not trip the
	// per-IP limits unless they mean to
	ip atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	ring, err := jwtx.NewKeyRing([]byte(strings.Repeat("s", 32)))
	require.NoError(t, err)
	// Token time runs an hour behind the wall clock, off a whole second, so
	// anything derived from time.Now instead of the signer's clock shows up.
	issuedAt := time.Now().UTC().Add(-time.Hour).Truncate(time.Second).Add(400 * time.Millisecond)
	clock := func() time.Time { return issuedAt }

	signer, err := jwtx.NewSignerHS256(ring, testIssuer, jwtx.DefaultAccessTokenTTL, clock)
	require.NoError(t, err)
	verifier := jwtx.NewVerifierHS256(ring, testIssuer, clock)

	reg := prometheus.NewRegistry()
	rec := metrics.NewCollector(reg)

	creds := &service.CredentialService{Store: s}
	gw := &service.Gateway{
		Credentials: creds,
		SSO: &service.SSOService{
			Tokens:   s.SSOTokens(),
			Users:    creds,
			Signer:   signer,
			Verifier: verifier,
			TTL:      domain.DefaultSSOTokenTTL,
			Metrics:  rec,
		},
		Signer:  signer,
		Metrics: rec,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(gw, ring, s, "test", logger)
	r.Metrics = rec
	r.Gatherer = reg
	r.ApplyRoutes()

	return &harness{router: r, signer: signer, clock: clock, store: s, reg: reg}
}

func (h *harness) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return h.doFrom(t, fmt.Sprintf("198.51.100.%d", h.ip.Add(1)), method, path, bearer, body)
}

func (h *harness) doFrom(t *testing.T, ip, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = ip + ":40000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (h *harness) login(t *testing.T) authsdk.TokenResponse {
	t.Helper()

	rec := h.do(t, http.MethodPost, "/register", "", authsdk.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "Secret123!",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/login", "", authsdk.LoginRequest{Username: "alice", Password: "Secret123!"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authsdk.TokenResponse](t, rec)
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/register", "", authsdk.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "Secret123!",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[authsdk.RegisterResponse](t, rec)
	require.Equal(t, "user registered successfully", resp.Result)
	require.NotEmpty(t, resp.UserID)

	t.Run("duplicate", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/register", "", authsdk.RegisterRequest{
			Username: "ALICE", Email: "Alice@Example.com", Password: "Secret123!",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		body := decode[authsdk.ValidationErrorResponse](t, rec)
		codes := make([]string, 0, len(body.Errors))
		for _, e := range body.Errors {
			codes = append(codes, e.Code)
		}
		require.ElementsMatch(t, []string{"DuplicateUserName", "DuplicateEmail"}, codes)
	})

	t.Run("every broken rule is listed", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/register", "", authsdk.RegisterRequest{
			Username: "bob", Email: "not-an-email", Password: "short",
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		body := decode[authsdk.ValidationErrorResponse](t, rec)
		require.GreaterOrEqual(t, len(body.Errors), 3)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/register", "", "{not json")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, authsdk.ErrorCodeInvalidRequest, decode[authsdk.ErrorResponse](t, rec).Error)
	})
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	tok := h.login(t)

	require.NotEmpty(t, tok.AccessToken)
	require.Equal(t, authsdk.TokenTypeBearer, tok.TokenType)
	require.Equal(t, int(jwtx.DefaultAccessTokenTTL.Seconds()), tok.ExpiresIn)

	tests := []struct {
		name string
		body any
		code int
	}{
		{"wrong password", authsdk.LoginRequest{Username: "alice", Password: "Wrong123!"}, http.StatusUnauthorized},
		{"unknown user", authsdk.LoginRequest{Username: "mallory", Password: "Secret123!"}, http.StatusUnauthorized},
		{"missing password", authsdk.LoginRequest{Username: "alice"}, http.StatusBadRequest},
		{"blank username", authsdk.LoginRequest{Username: "  ", Password: "Secret123!"}, http.StatusBadRequest},
		{"malformed body", "[]", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/login", "", tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	t.Run("failures look the same", func(t *testing.T) {
		a := h.do(t, http.MethodPost, "/login", "", authsdk.LoginRequest{Username: "alice", Password: "Wrong123!"})
		b := h.do(t, http.MethodPost, "/login", "", authsdk.LoginRequest{Username: "mallory", Password: "Wrong123!"})
		require.Equal(t, a.Body.String(), b.Body.String())
	})
}

func TestSSOHandoff(t *testing.T) {
	h := newHarness(t)
	tok := h.login(t)

	rec := h.do(t, http.MethodPost, "/sso/issue", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	issued := decode[authsdk.SSOTokenResponse](t, rec)
	require.NotEmpty(t, issued.SSOToken)
	require.WithinDuration(t, time.Now().Add(domain.DefaultSSOTokenTTL), issued.ExpiresAt, 5*time.Second)

	rec = h.do(t, http.MethodPost, "/sso/redeem", "", authsdk.RedeemRequest{SSOToken: issued.SSOToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	redeemed := decode[authsdk.RedeemResponse](t, rec)
	require.NotEmpty(t, redeemed.AccessToken)
	require.Equal(t, authsdk.TokenTypeBearer, redeemed.TokenType)
	require.Equal(t, "alice", redeemed.UserDetails.Username)
	require.Equal(t, "alice@example.com", redeemed.UserDetails.Email)
	require.NotEmpty(t, redeemed.UserDetails.ID)

	t.Run("second redeem is rejected", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/sso/redeem", "", authsdk.RedeemRequest{SSOToken: issued.SSOToken})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, authsdk.ErrorCodeInvalidSSOToken, decode[authsdk.ErrorResponse](t, rec).Error)
	})

	t.Run("redeemed access token can issue again", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/sso/issue", redeemed.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func TestSSOIssueRejects(t *testing.T) {
	h := newHarness(t)

	t.Run("no bearer", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/sso/issue", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("garbage bearer", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/sso/issue", "not.a.jwt", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token without subject", func(t *testing.T) {
		claims := jwtx.NewAccessClaims(jwtx.Principal{}, testIssuer, time.Minute, h.clock())
		raw, err := h.signer.Sign(claims)
		require.NoError(t, err)

		rec := h.do(t, http.MethodPost, "/sso/issue", raw, nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, authsdk.ErrorCodeNotFound, decode[authsdk.ErrorResponse](t, rec).Error)
	})
}

func TestSSORedeemRejectsUniformly(t *testing.T) {
	h := newHarness(t)

	bodies := []any{
		authsdk.RedeemRequest{SSOToken: "b1946ac9-2f5c-4d6e-9c3a-6b1f0e2d7a88"},
		authsdk.RedeemRequest{SSOToken: "nonsense"},
		authsdk.RedeemRequest{},
	}
	var first string
	for _, b := range bodies {
		rec := h.do(t, http.MethodPost, "/sso/redeem", "", b)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		if first == "" {
			first = rec.Body.String()
		}
		require.Equal(t, first, rec.Body.String())
	}

	rec := h.do(t, http.MethodPost, "/sso/redeem", "", "{")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, authsdk.ErrorCodeInvalidRequest, decode[authsdk.ErrorResponse](t, rec).Error)
}

func TestRedeemRateLimited(t *testing.T) {
	h := newHarness(t)

	var last *httptest.ResponseRecorder
	for range httpx.StrictLimit.Burst + 1 {
		last = h.doFrom(t, "203.0.113.9", http.MethodPost, "/sso/redeem", "", authsdk.RedeemRequest{SSOToken: "x"})
	}
	require.Equal(t, http.StatusTooManyRequests, last.Code)

	rec := h.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `ssohandoff_rate_limited_total{route="sso_redeem"} 1`)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[authsdk.HealthResponse](t, rec).Status)

	rec = h.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ready := decode[authsdk.HealthResponse](t, rec)
	require.Equal(t, "ok", ready.Status)
	require.NotNil(t, ready.Checks)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.SSOStore)
	require.Equal(t, "ok", ready.Checks.Signer)

	t.Run("degraded when the store is gone", func(t *testing.T) {
		require.NoError(t, h.store.Close())

		rec := h.do(t, http.MethodGet, "/readyz", "", nil)
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		ready := decode[authsdk.HealthResponse](t, rec)
		require.Equal(t, "degraded", ready.Status)
		require.True(t, strings.HasPrefix(ready.Checks.Database, "error: "))
		require.Equal(t, ready.Checks.Database, ready.Checks.SSOStore)
	})
}
