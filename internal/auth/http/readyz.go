package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/store"
	"github.com/aussiebroadwan/ssohandoff/pkg/authsdk"
	"github.com/aussiebroadwan/ssohandoff/pkg/httpx"
	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
)

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe endpoint returning service health status and checks for critical dependencies
//	@Description	Includes uptime, version, and status of the database, the SSO token store and the signing key
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	ssoStore Pinger,
	keys *jwtx.KeyRing,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{
			Database: "ok",
			SSOStore: "ok",
			Signer:   "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		degrade := func(field *string, msg string) {
			*field = "error: " + msg
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		// Check database connectivity
		if err := st.Ping(r.Context()); err != nil {
			degrade(&checks.Database, err.Error())
		}

		// Tokens in the main store share its health
		if ssoStore == nil {
			checks.SSOStore = checks.Database
		} else if err := ssoStore.Ping(r.Context()); err != nil {
			degrade(&checks.SSOStore, err.Error())
		}

		if keys == nil || !keys.IsReady() {
			degrade(&checks.Signer, "no signing key loaded")
		}

		response := authsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
			Checks:  checks,
		}
		httpx.WriteJSON(w, statusCode, response)
	}
}
