//go:generate swag init -g router.go -d . -o ../../../api/auth --outputTypes go --parseDependency

package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/metrics"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/service"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/store"
	"github.com/aussiebroadwan/ssohandoff/pkg/authsdk"
	"github.com/aussiebroadwan/ssohandoff/pkg/httpx"
	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
	"github.com/aussiebroadwan/ssohandoff/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/aussiebroadwan/ssohandoff/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Pinger is anything readiness can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	gateway *service.Gateway
	keys    *jwtx.KeyRing
	store   store.Store

	// SSOStore is probed by readiness when SSO tokens live outside the
	// main store. Optional.
	SSOStore Pinger

	// Metrics and Gatherer are optional. Without a Gatherer /metrics is not
	// served.
	Metrics  metrics.Recorder
	Gatherer prometheus.Gatherer
}

func NewRouter(
	gw *service.Gateway,
	keys *jwtx.KeyRing,
	st store.Store,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		gateway:      gw,
		keys:         keys,
		store:        st,
		Metrics:      metrics.Nop{},
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recoverer,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerSSO()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			SSO Handoff Authentication Gateway API
//	@version		0.1.0
//	@description	Registration, login and single-use SSO token handoff between relying clients.
//	@description
//	@description				Access tokens are HS256 JWTs. Resource servers verify them locally with the shared secret.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/ssohandoff
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// limited returns the reject hook that counts rate limited requests for route.
func (r *Router) limited(route string) httpx.RejectHook {
	return func(*http.Request, string) {
		r.Metrics.RecordRateLimited(route)
	}
}

func (r *Router) registerAccounts() {
	// POST /register - strict rate limit by IP (account creation)
	r.Mux.Handle("POST /register",
		httpx.Chain(&RegisterHandler{Gateway: r.gateway},
			httpx.RateLimitByIP(httpx.StrictLimit, r.limited("register")),
		),
	)

	// POST /login - strict rate limit by IP (brute force)
	r.Mux.Handle("POST /login",
		httpx.Chain(&LoginHandler{Gateway: r.gateway},
			httpx.RateLimitByIP(httpx.StrictLimit, r.limited("login")),
		),
	)
}

func (r *Router) registerSSO() {
	// POST /sso/issue - bearer checked by the handler so a subject-less
	// token can be told apart from a bad one
	r.Mux.Handle("POST /sso/issue",
		httpx.Chain(&SSOIssueHandler{Gateway: r.gateway},
			httpx.RateLimitByIP(httpx.ModerateLimit, r.limited("sso_issue")),
		),
	)

	// POST /sso/redeem - anonymous, strict rate limit by IP (token guessing)
	r.Mux.Handle("POST /sso/redeem",
		httpx.Chain(&SSORedeemHandler{Gateway: r.gateway},
			httpx.RateLimitByIP(httpx.StrictLimit, r.limited("sso_redeem")),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.SSOStore, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	if r.Gatherer != nil {
		r.Mux.Handle("GET /metrics", metrics.Handler(r.Gatherer))
	}
}

// writeServerError logs err and answers with a 500 that carries no detail.
func writeServerError(w http.ResponseWriter, req *http.Request, msg string, err error) {
	slogx.FromContext(req.Context()).Error(msg, "error", err)
	authsdk.ErrServerError.WriteError(w)
}
