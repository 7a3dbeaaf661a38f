package background

import (
	"context"
	"log/slog"
	"time"
)

// TokenWindowSweeper clears expired reset and verification token windows.
type TokenWindowSweeper interface {
	ClearExpiredTokenWindows(ctx context.Context) (int64, error)
}

// CleanupManager periodically sweeps expired token windows off user rows.
// Expired tokens are already unusable because every lookup checks the
// expiry; the sweep just keeps stale hashes from lingering in the database.
type CleanupManager struct {
	sweeper  TokenWindowSweeper
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

func NewCleanupManager(sweeper TokenWindowSweeper, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		sweeper:  sweeper,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or the context ends.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runSweep(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsCleared, err := cm.sweeper.ClearExpiredTokenWindows(sweepCtx)
	if err != nil {
		cm.logger.Error("failed to clear expired token windows", slog.Any("error", err))
		return
	}

	if rowsCleared > 0 {
		cm.logger.Info("expired token window sweep completed", slog.Int64("rows_cleared", rowsCleared))
	}
}

// Stop signals the sweep loop to exit.
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
