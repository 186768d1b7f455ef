// Package metrics exposes the gateway's Prometheus counters.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes shared by the login and registration counters.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Recorder is what the services report to. Collector is the Prometheus
// implementation, Nop discards everything.
type Recorder interface {
	RecordRegistration(outcome string)
	RecordLogin(outcome string)
	RecordSSOIssued()
	RecordSSORedeemed()
	RecordSSORejected(reason string)
	RecordSSOSwept(n int64)
	RecordRateLimited(route string)
}

type Collector struct {
	registrations *prometheus.CounterVec
	logins        *prometheus.CounterVec
	ssoIssued     prometheus.Counter
	ssoRedeemed   prometheus.Counter
	ssoRejected   *prometheus.CounterVec
	ssoSwept      prometheus.Counter
	rateLimited   *prometheus.CounterVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ssohandoff_registrations_total",
			Help: "Registration attempts by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ssohandoff_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		ssoIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ssohandoff_sso_tokens_issued_total",
			Help: "SSO tokens handed out.",
		}),
		ssoRedeemed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ssohandoff_sso_tokens_redeemed_total",
			Help: "SSO tokens successfully exchanged for an access token.",
		}),
		ssoRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ssohandoff_sso_tokens_rejected_total",
			Help: "SSO redemptions refused, by internal reason.",
		}, []string{"reason"}),
		ssoSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ssohandoff_sso_tokens_swept_total",
			Help: "Stale SSO token records removed by housekeeping.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ssohandoff_rate_limited_total",
			Help: "Requests refused by the rate limiter, by route.",
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.ssoIssued,
		c.ssoRedeemed,
		c.ssoRejected,
		c.ssoSwept,
		c.rateLimited,
	)
	return c
}

func (c *Collector) RecordRegistration(outcome string) {
	c.registrations.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSSOIssued()   { c.ssoIssued.Inc() }
func (c *Collector) RecordSSORedeemed() { c.ssoRedeemed.Inc() }

func (c *Collector) RecordSSORejected(reason string) {
	c.ssoRejected.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordSSOSwept(n int64) {
	if n > 0 {
		c.ssoSwept.Add(float64(n))
	}
}

func (c *Collector) RecordRateLimited(route string) {
	c.rateLimited.WithLabelValues(route).Inc()
}

// Nop is a Recorder that records nothing.
type Nop struct{}

func (Nop) RecordRegistration(string) {}
func (Nop) RecordLogin(string)        {}
func (Nop) RecordSSOIssued()          {}
func (Nop) RecordSSORedeemed()        {}
func (Nop) RecordSSORejected(string)  {}
func (Nop) RecordSSOSwept(int64)      {}
func (Nop) RecordRateLimited(string)  {}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
