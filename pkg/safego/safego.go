package safego

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
)

// Execute runs fn in a new goroutine, recovering and logging any panic with a stack trace.
func Execute(ctx context.Context, logger domain.Logger, goroutineName string, fn func()) {
	go func() {
		defer recoverAndLog(ctx, logger, goroutineName)
		fn()
	}()
}

// Every runs fn on each tick of interval until ctx is done.
// A panic in one tick is logged and does not stop the loop.
func Every(ctx context.Context, logger domain.Logger, goroutineName string, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Debug(context.Background(), "Periodic goroutine stopped", "goroutine_name", goroutineName)
				return
			case <-ticker.C:
				func() {
					defer recoverAndLog(ctx, logger, goroutineName)
					fn(ctx)
				}()
			}
		}
	}()
}

func recoverAndLog(ctx context.Context, logger domain.Logger, goroutineName string) {
	if r := recover(); r != nil {
		// The caller's context may already be done; logging must still work.
		logCtx := ctx
		if ctx.Err() != nil {
			logCtx = context.Background()
		}
		logger.Error(logCtx, fmt.Sprintf("Panic recovered in goroutine: %s", goroutineName),
			"panic_info", fmt.Sprintf("%v", r),
			"stacktrace", string(debug.Stack()),
		)
	}
}
