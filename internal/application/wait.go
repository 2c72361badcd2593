package application

import (
	"context"
	"time"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

// sleep blocks for d or until ctx is done, returning the context's cause.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}

// bounded derives a context that expires after d with model.ErrTimedOut as
// its cause. A zero d leaves ctx unbounded.
func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeoutCause(ctx, d, model.ErrTimedOut)
}
