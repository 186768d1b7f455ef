// Package resource is a demo resource server. It trusts any access token the
// gateway signed and never calls the gateway itself.
package resource

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/ssohandoff/pkg/httpx"
	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
	"github.com/aussiebroadwan/ssohandoff/pkg/slogx"
)

// DemoResponse is the body of both demo endpoints.
type DemoResponse struct {
	Message string          `json:"message"`
	User    *jwtx.Principal `json:"user,omitempty"`
}

const (
	publicMessage    = "This is public data accessible without authentication."
	protectedMessage = "This is protected data accessible only with a valid JWT token."
)

type Router struct {
	Mux *http.ServeMux

	verifier    jwtx.Verifier
	logger      *slog.Logger
	middlewares []httpx.Middleware
	startTime   time.Time
	version     string
}

func NewRouter(v jwtx.Verifier, version string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		verifier:  v,
		logger:    logger,
		startTime: time.Now(),
		version:   version,
	}
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(logger),
		httpx.Recoverer,
	}
	r.routes()
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) routes() {
	r.Mux.Handle("GET /api/demo/public-data",
		httpx.Chain(http.HandlerFunc(publicData),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	// Authn runs first so the limiter can key on the user
	r.Mux.Handle("GET /api/demo/protected-data",
		httpx.Chain(http.HandlerFunc(protectedData),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	r.Mux.HandleFunc("GET /livez", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"uptime":  time.Since(r.startTime).Round(time.Second).String(),
			"version": r.version,
		})
	})
}

func publicData(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, DemoResponse{Message: publicMessage})
}

func protectedData(w http.ResponseWriter, req *http.Request) {
	claims, ok := httpx.ClaimsFromContext(req.Context())
	if !ok {
		httpx.WriteBearerError(w, "missing bearer token")
		return
	}

	p := claims.Principal()
	httpx.WriteJSON(w, http.StatusOK, DemoResponse{Message: protectedMessage, User: &p})
}
