package queue

import "context"

// Store is the list store the executor drains. Every method must be atomic
// on its own; the executor never needs a transaction across calls.
type Store interface {
	PopFront(ctx context.Context, queue string, count int) ([]string, error)
	PushBack(ctx context.Context, queue string, items ...string) (int64, error)
	// Remove deletes all occurrences of each value.
	Remove(ctx context.Context, queue string, values ...string) error
	Range(ctx context.Context, queue string, start, stop int64) ([]string, error)
	Len(ctx context.Context, queue string) (int64, error)
	Delete(ctx context.Context, queue string) error
	Ping(ctx context.Context) error
}
