package util

import (
	"context"
	"time"
)

// PullToRefresh runs fn and keeps the refresh indicator up for at least minDelay.
// fn's error is returned unchanged; ctx cancellation cuts the padding short.
func PullToRefresh(ctx context.Context, minDelay time.Duration, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)

	remaining := minDelay - time.Since(start)
	if remaining <= 0 {
		return err
	}
	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
	return err
}
