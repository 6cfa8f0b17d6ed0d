package queue

import "strconv"

// AttemptState is the executor's position in the attempt chain. It is owned
// by the polling goroutine and only changes between batches.
type AttemptState struct {
	Attempt int
	Queue   string
}

// Chain maps attempt numbers to queue names: attempt 1 is the base queue,
// attempt n is "{base}:attempt:{n}".
type Chain struct {
	base        string
	maxAttempts int
}

func NewChain(base string, maxAttempts int) Chain {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return Chain{base: base, maxAttempts: maxAttempts}
}

func (c Chain) Base() string { return c.base }

func (c Chain) MaxAttempts() int { return c.maxAttempts }

func (c Chain) QueueFor(attempt int) string {
	if attempt <= 1 {
		return c.base
	}
	return c.base + ":attempt:" + strconv.Itoa(attempt)
}

func (c Chain) Start() AttemptState {
	return AttemptState{Attempt: 1, Queue: c.base}
}

// Advance moves to the next attempt queue. It reports false when s is
// already at the last attempt, in which case the cycle must be reset.
func (c Chain) Advance(s AttemptState) (AttemptState, bool) {
	if s.Attempt >= c.maxAttempts {
		return s, false
	}
	next := s.Attempt + 1
	return AttemptState{Attempt: next, Queue: c.QueueFor(next)}, true
}

func (c Chain) Reset() AttemptState {
	return c.Start()
}

// Last reports whether s is the final attempt of the cycle.
func (c Chain) Last(s AttemptState) bool {
	return s.Attempt >= c.maxAttempts
}

// Queues lists every attempt queue in order, base queue first.
func (c Chain) Queues() []string {
	queues := make([]string, 0, c.maxAttempts)
	for i := 1; i <= c.maxAttempts; i++ {
		queues = append(queues, c.QueueFor(i))
	}
	return queues
}
