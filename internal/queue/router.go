package queue

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// DecisionKind says where an item went after an attempt.
type DecisionKind string

const (
	DecisionSuccess DecisionKind = "success"
	DecisionRetry   DecisionKind = "retry"
	DecisionFailed  DecisionKind = "failed"
)

// Decision is the routing result for one item.
type Decision struct {
	Kind   DecisionKind
	Queues []string
}

// Router pushes finished items to their next queue.
type Router struct {
	store          Store
	chain          Chain
	successQueues  []string
	errorQueues    []string
	onFinalFailure FinalFailureFunc
	metrics        *Metrics
	logger         *slog.Logger
}

// Decide picks the destination without touching the store.
func (r *Router) Decide(outcome Outcome, attempt int) Decision {
	switch {
	case outcome.Succeeded():
		return Decision{Kind: DecisionSuccess, Queues: r.successQueues}
	case attempt < r.chain.MaxAttempts():
		return Decision{Kind: DecisionRetry, Queues: []string{r.chain.QueueFor(attempt + 1)}}
	default:
		return Decision{Kind: DecisionFailed, Queues: r.errorQueues}
	}
}

// Route pushes item to the queues chosen by Decide. On a final failure the
// hook runs first; its errors are logged and never returned.
func (r *Router) Route(ctx context.Context, item string, outcome Outcome, attempt int) (Decision, error) {
	d := r.Decide(outcome, attempt)
	if d.Kind == DecisionFailed {
		r.finalFailure(ctx, item)
	}
	for _, q := range d.Queues {
		if _, err := r.store.PushBack(ctx, q, item); err != nil {
			return d, storeErr("route", q, err)
		}
	}
	return d, nil
}

func (r *Router) finalFailure(ctx context.Context, item string) {
	if r.onFinalFailure == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.hookError()
			r.logger.Error("final failure hook panicked",
				"item", item,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
		}
	}()
	if err := r.onFinalFailure(ctx, item); err != nil {
		r.metrics.hookError()
		r.logger.Error("final failure hook failed", "item", item, "error", err)
	}
}
