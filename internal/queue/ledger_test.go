package queue

import (
	"context"
	"reflect"
	"testing"

	"redis-queue-executor/internal/store"
)

func TestLedgerRecordRelease(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	l := NewLedger(s, "doing", "base")
	state := AttemptState{Attempt: 2, Queue: "base:attempt:2"}

	lease, err := l.Record(ctx, "a", state)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if lease.Item != "a" || lease.Attempt != 2 || lease.Queue != "base:attempt:2" || lease.ID == "" {
		t.Fatalf("unexpected lease %+v", lease)
	}
	if n, _ := l.Len(ctx); n != 1 {
		t.Fatalf("expected one lease, got %d", n)
	}

	if err := l.Release(ctx, lease); err != nil {
		t.Fatalf("release: %v", err)
	}
	if n, _ := l.Len(ctx); n != 0 {
		t.Fatalf("expected empty ledger, got %d", n)
	}
}

func TestLedgerReleaseKeepsDuplicateItem(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	l := NewLedger(s, "doing", "base")
	state := AttemptState{Attempt: 1, Queue: "base"}

	first, _ := l.Record(ctx, "same", state)
	second, _ := l.Record(ctx, "same", state)
	if first.Entry == second.Entry {
		t.Fatal("two dequeues of the same item must get distinct entries")
	}

	if err := l.Release(ctx, first); err != nil {
		t.Fatal(err)
	}
	entries, _ := s.Range(ctx, "doing", 0, -1)
	if !reflect.DeepEqual(entries, []string{second.Entry}) {
		t.Fatalf("expected only the second lease left, got %v", entries)
	}
}

func TestLedgerSweep(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	l := NewLedger(s, "doing", "base")

	n, err := l.Sweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("sweeping an empty ledger: n=%d err=%v", n, err)
	}
	if got, _ := s.Len(ctx, "base"); got != 0 {
		t.Fatalf("empty sweep must not touch the base queue, got %d", got)
	}

	state := AttemptState{Attempt: 3, Queue: "base:attempt:3"}
	for _, item := range []string{"a", "b", "a"} {
		if _, err := l.Record(ctx, item, state); err != nil {
			t.Fatal(err)
		}
	}
	// raw value left by something that does not write envelopes
	_, _ = s.PushBack(ctx, "doing", "legacy")
	_, _ = s.PushBack(ctx, "base", "waiting")

	n, err = l.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 swept, got %d", n)
	}

	base, _ := s.Range(ctx, "base", 0, -1)
	want := []string{"waiting", "a", "b", "a", "legacy"}
	if !reflect.DeepEqual(base, want) {
		t.Fatalf("expected base %v, got %v", want, base)
	}
	if left, _ := l.Len(ctx); left != 0 {
		t.Fatalf("expected empty ledger after sweep, got %d", left)
	}
}
