package utils

import (
	"context"
	"time"

	"github.com/vnkhanh/e-cert-backend/logger"
)

// CleanupFunc removes stale rows and reports how many were deleted.
type CleanupFunc func(ctx context.Context) (int64, error)

// RunCleanup runs fn once and logs the outcome.
func RunCleanup(ctx context.Context, log *logger.Logger, name string, fn CleanupFunc) {
	n, err := fn(ctx)
	if err != nil {
		log.Error("Cleanup job failed", "job", name, "error", err)
		return
	}
	if n > 0 {
		log.Info("Cleanup job removed rows", "job", name, "count", n)
	}
}

// StartCleanupJob runs fn immediately and then every interval until ctx is done.
func StartCleanupJob(ctx context.Context, log *logger.Logger, name string, interval time.Duration, fn CleanupFunc) {
	RunCleanup(ctx, log, name, fn)

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				RunCleanup(ctx, log, name, fn)
			}
		}
	}()

	log.Info("Cleanup job started", "job", name, "interval", interval)
}
