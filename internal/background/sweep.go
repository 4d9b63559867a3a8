package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/geekheaven/identity/internal/services"
)

// SweepManager periodically removes stale reset and verification tokens
// whose store-level TTL eviction lagged their embedded expiry.
type SweepManager struct {
	store    *services.EphemeralTokenStore
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweepManager creates a new sweep manager
func NewSweepManager(
	store *services.EphemeralTokenStore,
	logger *slog.Logger,
	interval time.Duration,
) *SweepManager {
	return &SweepManager{
		store:    store,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (sm *SweepManager) Start(ctx context.Context) {
	ticker := time.NewTicker(sm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	sm.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			sm.runSweep(ctx)
		case <-sm.stopCh:
			sm.logger.Info("sweep manager stopped")
			return
		case <-ctx.Done():
			sm.logger.Info("sweep manager context cancelled")
			return
		}
	}
}

func (sm *SweepManager) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	total := 0
	for _, prefix := range []string{services.ResetTokenPrefix, services.VerificationTokenPrefix} {
		swept, err := sm.store.SweepExpired(sweepCtx, prefix)
		if err != nil {
			sm.logger.Error("failed to sweep expired tokens",
				slog.String("prefix", prefix), slog.Any("error", err))
			continue
		}
		total += swept
	}

	if total > 0 {
		sm.logger.Info("expired token sweep completed", slog.Int("tokens_removed", total))
	}
}

// Stop signals the sweep manager to stop
func (sm *SweepManager) Stop() {
	close(sm.stopCh)
}
