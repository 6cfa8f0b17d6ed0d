package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// TaskFunc processes one item. A returned error is a failed attempt. The
// executor may call it again for the same item, so it should be idempotent.
// When a timeout is configured ctx is cancelled at the deadline; a function
// that ignores ctx keeps running in the background after its attempt has
// already been routed as failed.
type TaskFunc func(ctx context.Context, item string) error

// FinalFailureFunc is called once for an item that failed its last attempt.
type FinalFailureFunc func(ctx context.Context, item string) error

// Outcome is the result of one invocation. A nil Err means success.
type Outcome struct {
	Err      error
	Duration time.Duration
}

func (o Outcome) Succeeded() bool { return o.Err == nil }

// runWithDeadline invokes fn on item, bounded by timeout when it is positive.
func runWithDeadline(ctx context.Context, fn TaskFunc, item string, timeout time.Duration) Outcome {
	start := time.Now()
	if timeout <= 0 {
		err := callSafely(ctx, fn, item)
		return Outcome{Err: err, Duration: time.Since(start)}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- callSafely(ctx, fn, item)
	}()

	select {
	case err := <-done:
		// a function that returns ctx.Err() after the deadline is a timeout too
		if err != nil && ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("%w after %v: %v", ErrTimeout, timeout, err)
		}
		return Outcome{Err: err, Duration: time.Since(start)}
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return Outcome{Err: fmt.Errorf("%w after %v", ErrTimeout, timeout), Duration: time.Since(start)}
		}
		return Outcome{Err: ctx.Err(), Duration: time.Since(start)}
	}
}

// callSafely turns a panic in fn into an error.
func callSafely(ctx context.Context, fn TaskFunc, item string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrTaskPanicked, r, debug.Stack())
		}
	}()
	return fn(ctx, item)
}
