package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Every runs fn on each tick until ctx is cancelled. Errors are logged and the
// loop keeps going; a tick is skipped rather than overlapped.
func Every(ctx context.Context, name string, interval time.Duration, logger *zap.Logger, fn func(context.Context, time.Time) error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		logger.Warn("periodic job disabled", zap.String("job", name))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := fn(ctx, now.UTC()); err != nil {
				logger.Warn("periodic job failed", zap.String("job", name), zap.Error(err))
			}
		}
	}
}
