package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned by NewExecutor for an unusable Config.
	ErrInvalidConfig = errors.New("invalid executor config")

	// ErrStoreUnavailable wraps every queue store failure. It is fatal at
	// construction and ends Run during steady state.
	ErrStoreUnavailable = errors.New("queue store unavailable")

	// ErrTimeout is the failure cause when a task outlives Config.TaskTimeout.
	ErrTimeout = errors.New("task timed out")

	// ErrTaskPanicked is the failure cause when a task panics.
	ErrTaskPanicked = errors.New("task panicked")
)

// TaskError is a failed invocation of the task function on one item.
type TaskError struct {
	Item    string
	Attempt int
	Err     error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("item %q failed on attempt %d: %v", e.Item, e.Attempt, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a task timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func storeErr(op, queue string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", ErrStoreUnavailable, op, queue, err)
}
