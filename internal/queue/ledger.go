package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Lease is one dequeued instance of an item as recorded in the doing queue.
// Entry is the exact ledger value, unique per dequeue, so releasing it
// never touches another in-flight copy of the same item.
type Lease struct {
	ID      string `json:"lease"`
	Item    string `json:"item"`
	Queue   string `json:"queue"`
	Attempt int    `json:"attempt"`
	Started int64  `json:"started_at"`

	Entry string `json:"-"`
}

func newLease(item string, s AttemptState) (Lease, error) {
	l := Lease{
		ID:      uuid.NewString(),
		Item:    item,
		Queue:   s.Queue,
		Attempt: s.Attempt,
		Started: time.Now().Unix(),
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return Lease{}, err
	}
	l.Entry = string(raw)
	return l, nil
}

// itemFromEntry recovers the item from a ledger value. Values that are not
// lease envelopes (for example pushed by an older executor) are the item.
func itemFromEntry(entry string) string {
	var l Lease
	if err := json.Unmarshal([]byte(entry), &l); err != nil || l.ID == "" {
		return entry
	}
	return l.Item
}

// Ledger tracks items that are being executed so a crashed worker does not
// lose them.
type Ledger struct {
	store Store
	queue string
	base  string
}

func NewLedger(store Store, queue, base string) *Ledger {
	return &Ledger{store: store, queue: queue, base: base}
}

func (l *Ledger) Queue() string { return l.queue }

// Record pushes a lease for item. It must run before the task is invoked.
func (l *Ledger) Record(ctx context.Context, item string, s AttemptState) (Lease, error) {
	lease, err := newLease(item, s)
	if err != nil {
		return Lease{}, err
	}
	if _, err := l.store.PushBack(ctx, l.queue, lease.Entry); err != nil {
		return Lease{}, storeErr("record", l.queue, err)
	}
	return lease, nil
}

// Release removes the lease once the outcome is known.
func (l *Ledger) Release(ctx context.Context, lease Lease) error {
	if err := l.store.Remove(ctx, l.queue, lease.Entry); err != nil {
		return storeErr("release", l.queue, err)
	}
	return nil
}

// Sweep moves every leased item back to the base queue and clears the
// swept entries. It returns the number of items moved.
//
// Only the entries read here are removed; a lease recorded concurrently by
// another executor sharing the doing queue stays in place.
func (l *Ledger) Sweep(ctx context.Context) (int, error) {
	entries, err := l.store.Range(ctx, l.queue, 0, -1)
	if err != nil {
		return 0, storeErr("sweep read", l.queue, err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	items := make([]string, len(entries))
	for i, e := range entries {
		items[i] = itemFromEntry(e)
	}
	if _, err := l.store.PushBack(ctx, l.base, items...); err != nil {
		return 0, storeErr("sweep push", l.base, err)
	}
	if err := l.store.Remove(ctx, l.queue, entries...); err != nil {
		return 0, storeErr("sweep clear", l.queue, err)
	}
	return len(entries), nil
}

func (l *Ledger) Len(ctx context.Context) (int64, error) {
	n, err := l.store.Len(ctx, l.queue)
	if err != nil {
		return 0, storeErr("len", l.queue, err)
	}
	return n, nil
}
