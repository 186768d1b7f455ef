package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/metrics"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/store"
)

// DefaultSSORetention is how long spent or expired SSO tokens are kept
// around for inspection before housekeeping removes them.
const DefaultSSORetention = 24 * time.Hour

// HousekeepingService periodically removes stale SSO token records. The
// redemption path never depends on it.
type HousekeepingService struct {
	Tokens    store.SSOTokens
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration
	Metrics   metrics.Recorder

	now    func() time.Time
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the worker. Non-positive interval and
// retention fall back to one hour and DefaultSSORetention.
func NewHousekeepingService(tokens store.SSOTokens, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if retention <= 0 {
		retention = DefaultSSORetention
	}

	return &HousekeepingService{
		Tokens:    tokens,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		Metrics:   metrics.Nop{},
		now:       func() time.Time { return time.Now().UTC() },
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the worker. It does not block.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval, "retention", s.Retention)
}

// Stop shuts the worker down and waits for an in-flight sweep to finish.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), s.Interval)
	defer cancel()

	n, err := s.Tokens.DeleteExpiredSSOTokens(ctx, s.now(), s.Retention)
	if err != nil {
		s.Logger.Error("failed to delete stale sso tokens", "error", err)
		return
	}

	if s.Metrics != nil {
		s.Metrics.RecordSSOSwept(n)
	}
	s.Logger.Info("housekeeping cleanup completed", "sso_tokens_deleted", n)
}
