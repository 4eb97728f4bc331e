package bounded

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-editorial/internal/domain"
)

type outcome[T any] struct {
	value T
	err   error
}

// Run executes op with a deadline of timeout. When the deadline passes first
// the operation's context is cancelled and a domain timeout error is returned,
// which callers can tell apart from op's own failures. A non positive timeout
// runs op unbounded.
//
// op keeps running in the background after a timeout until it observes the
// cancelled context; its late result is discarded.
func Run[T any](ctx context.Context, timeout time.Duration, operation string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		value, err := op(ctx)
		done <- outcome[T]{value: value, err: err}
	}()

	select {
	case result := <-done:
		if result.err != nil && errors.Is(result.err, context.DeadlineExceeded) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, domain.TimeoutError(operation, result.err)
		}
		return result.value, result.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, domain.TimeoutError(operation, ctx.Err())
		}
		return zero, ctx.Err()
	}
}
