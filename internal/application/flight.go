package application

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// doShared collapses concurrent calls for key into one run of fn. fn runs on a
// context detached from any single caller's cancellation, so one caller going
// away never fails the others; each caller still stops waiting when its own
// ctx is done. Upstream clients bound fn with their own timeout.
func doShared[T any](ctx context.Context, group *singleflight.Group, key string, fn func(ctx context.Context) (T, error)) (T, bool, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (interface{}, error) {
		return fn(flightCtx)
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Shared, res.Err
		}
		return res.Val.(T), res.Shared, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}
