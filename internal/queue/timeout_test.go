package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunWithDeadlineSuccess(t *testing.T) {
	o := runWithDeadline(context.Background(), func(ctx context.Context, item string) error {
		return nil
	}, "a", time.Second)
	if !o.Succeeded() {
		t.Fatalf("expected success, got %v", o.Err)
	}
}

func TestRunWithDeadlineUserError(t *testing.T) {
	boom := errors.New("boom")
	o := runWithDeadline(context.Background(), func(ctx context.Context, item string) error {
		return boom
	}, "a", time.Second)
	if !errors.Is(o.Err, boom) {
		t.Fatalf("expected boom, got %v", o.Err)
	}
	if IsTimeout(o.Err) {
		t.Fatal("user error must not be reported as timeout")
	}
}

func TestRunWithDeadlineTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	o := runWithDeadline(context.Background(), func(ctx context.Context, item string) error {
		// ignores ctx on purpose
		<-release
		return nil
	}, "slow", 50*time.Millisecond)
	took := time.Since(start)

	if !IsTimeout(o.Err) {
		t.Fatalf("expected timeout, got %v", o.Err)
	}
	if took > 500*time.Millisecond {
		t.Fatalf("deadline did not bound the call: %v", took)
	}
}

func TestRunWithDeadlineCooperativeCancel(t *testing.T) {
	o := runWithDeadline(context.Background(), func(ctx context.Context, item string) error {
		<-ctx.Done()
		return ctx.Err()
	}, "a", 20*time.Millisecond)
	if !IsTimeout(o.Err) {
		t.Fatalf("expected timeout, got %v", o.Err)
	}
}

func TestRunWithDeadlinePanic(t *testing.T) {
	for _, timeout := range []time.Duration{0, time.Second} {
		o := runWithDeadline(context.Background(), func(ctx context.Context, item string) error {
			panic("kaboom")
		}, "a", timeout)
		if !errors.Is(o.Err, ErrTaskPanicked) {
			t.Fatalf("timeout=%v: expected panic error, got %v", timeout, o.Err)
		}
	}
}

func TestRunWithDeadlineDisarmed(t *testing.T) {
	var seen context.Context
	o := runWithDeadline(context.Background(), func(ctx context.Context, item string) error {
		seen = ctx
		return nil
	}, "a", time.Hour)
	if !o.Succeeded() {
		t.Fatal(o.Err)
	}
	select {
	case <-seen.Done():
	default:
		t.Fatal("deadline context must be cancelled once the call returns")
	}
}
