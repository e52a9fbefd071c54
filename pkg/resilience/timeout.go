package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Correlation-Engine/pkg/errors"
)

// WithTimeout bounds a single attempt of fn. fn receives a context that
// expires after timeout; if it has not returned by then, WithTimeout gives
// up on it and returns an error matching both apperrors.ErrTimeout and
// context.DeadlineExceeded. Cancellation of ctx is reported as is.
// A non-positive timeout calls fn directly.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- fn(attemptCtx) }()

	select {
	case err := <-result:
		return err
	case <-attemptCtx.Done():
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: cancelled: %w", name, err)
	}
	return fmt.Errorf("%s: %w after %v: %w", name, apperrors.ErrTimeout, timeout, context.DeadlineExceeded)
}
