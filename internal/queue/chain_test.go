package queue

import (
	"reflect"
	"testing"
)

func TestChainQueueFor(t *testing.T) {
	c := NewChain("jobs", 3)

	cases := map[int]string{
		1: "jobs",
		2: "jobs:attempt:2",
		3: "jobs:attempt:3",
	}
	for attempt, want := range cases {
		if got := c.QueueFor(attempt); got != want {
			t.Errorf("QueueFor(%d) = %q, want %q", attempt, got, want)
		}
	}
}

func TestChainAdvanceNeverSkips(t *testing.T) {
	c := NewChain("jobs", 3)
	s := c.Start()

	var seen []string
	for {
		seen = append(seen, s.Queue)
		next, ok := c.Advance(s)
		if !ok {
			break
		}
		if next.Attempt != s.Attempt+1 {
			t.Fatalf("advance skipped from %d to %d", s.Attempt, next.Attempt)
		}
		s = next
	}

	if !reflect.DeepEqual(seen, c.Queues()) {
		t.Fatalf("expected %v, got %v", c.Queues(), seen)
	}
	if !c.Last(s) || s.Attempt != 3 {
		t.Fatalf("expected to stop on the last attempt, got %+v", s)
	}
	if r := c.Reset(); r != (AttemptState{Attempt: 1, Queue: "jobs"}) {
		t.Fatalf("unexpected reset state %+v", r)
	}
}

func TestChainSingleAttempt(t *testing.T) {
	c := NewChain("jobs", 1)
	s := c.Start()
	if _, ok := c.Advance(s); ok {
		t.Fatal("single attempt chain must not advance")
	}
	if got := c.Queues(); !reflect.DeepEqual(got, []string{"jobs"}) {
		t.Fatalf("unexpected queues %v", got)
	}
}
