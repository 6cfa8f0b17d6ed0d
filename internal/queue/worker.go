package queue

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// Config is fixed when the executor is built.
type Config struct {
	// Queue is the base queue producers push to; retries go to
	// "{Queue}:attempt:{n}".
	Queue string
	// DoingQueue holds leases of items being executed.
	DoingQueue    string
	SuccessQueues []string
	ErrorQueues   []string

	MaxAttempts int           // default 1
	SleepTime   time.Duration // idle wait after a full cycle found nothing
	BatchSize   int           // items popped and run concurrently, default 1
	TaskTimeout time.Duration // 0 disables the deadline

	// OnFinalFailure, if set, is called before an item is pushed to the
	// error queues.
	OnFinalFailure FinalFailureFunc

	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 1
	}
	if c.BatchSize == 0 {
		c.BatchSize = 1
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c Config) validate() error {
	switch {
	case strings.TrimSpace(c.Queue) == "":
		return fmt.Errorf("%w: queue name is required", ErrInvalidConfig)
	case strings.TrimSpace(c.DoingQueue) == "":
		return fmt.Errorf("%w: doing queue name is required", ErrInvalidConfig)
	case len(c.SuccessQueues) == 0:
		return fmt.Errorf("%w: at least one success queue is required", ErrInvalidConfig)
	case len(c.ErrorQueues) == 0:
		return fmt.Errorf("%w: at least one error queue is required", ErrInvalidConfig)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidConfig, c.MaxAttempts)
	case c.BatchSize < 1:
		return fmt.Errorf("%w: batch size must be at least 1, got %d", ErrInvalidConfig, c.BatchSize)
	case c.SleepTime < 0 || c.TaskTimeout < 0:
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}

	attemptQueues := NewChain(c.Queue, c.MaxAttempts).Queues()
	if slices.Contains(attemptQueues, c.DoingQueue) {
		return fmt.Errorf("%w: doing queue %q is also an attempt queue", ErrInvalidConfig, c.DoingQueue)
	}
	for _, sink := range append(slices.Clone(c.SuccessQueues), c.ErrorQueues...) {
		if strings.TrimSpace(sink) == "" {
			return fmt.Errorf("%w: empty sink queue name", ErrInvalidConfig)
		}
		if sink == c.DoingQueue || slices.Contains(attemptQueues, sink) {
			return fmt.Errorf("%w: sink %q collides with a working queue", ErrInvalidConfig, sink)
		}
	}
	return nil
}

// Executor drains the attempt chain of one base queue.
type Executor struct {
	store   Store
	fn      TaskFunc
	cfg     Config
	chain   Chain
	ledger  *Ledger
	router  *Router
	metrics *Metrics
	logger  *slog.Logger
}

// NewExecutor validates cfg and checks that the store is reachable. The
// executor is not started; call Run.
func NewExecutor(ctx context.Context, store Store, fn TaskFunc, cfg Config) (*Executor, error) {
	if store == nil || fn == nil {
		return nil, fmt.Errorf("%w: store and task function are required", ErrInvalidConfig)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		return nil, storeErr("ping", "", err)
	}

	chain := NewChain(cfg.Queue, cfg.MaxAttempts)
	metrics := NewMetrics(cfg.Registerer, cfg.Queue)
	logger := cfg.Logger.With("queue", cfg.Queue)

	return &Executor{
		store:  store,
		fn:     fn,
		cfg:    cfg,
		chain:  chain,
		ledger: NewLedger(store, cfg.DoingQueue, cfg.Queue),
		router: &Router{
			store:          store,
			chain:          chain,
			successQueues:  cfg.SuccessQueues,
			errorQueues:    cfg.ErrorQueues,
			onFinalFailure: cfg.OnFinalFailure,
			metrics:        metrics,
			logger:         logger,
		},
		metrics: metrics,
		logger:  logger,
	}, nil
}

func (e *Executor) Chain() Chain { return e.chain }

func (e *Executor) Ledger() *Ledger { return e.ledger }

// Run polls until ctx is cancelled or the store fails. A batch that is
// already running when ctx is cancelled is finished and routed first.
func (e *Executor) Run(ctx context.Context) error {
	e.logger.Info("executor started",
		"doing_queue", e.cfg.DoingQueue,
		"max_attempts", e.cfg.MaxAttempts,
		"batch_size", e.cfg.BatchSize,
		"task_timeout", e.cfg.TaskTimeout,
	)

	state := e.chain.Start()
	for {
		if ctx.Err() != nil {
			e.logger.Info("executor stopped", "attempt", state.Attempt)
			return nil
		}
		next, err := e.Step(ctx, state)
		if err != nil {
			e.logger.Error("executor stopped on store error", "error", err)
			return err
		}
		state = next
	}
}

// Step performs one poll of s.Queue and returns the state for the next poll:
// the same queue after a non-empty batch, the next attempt queue when the
// queue was empty, or the base queue after a sweep and the idle sleep once
// the last attempt queue was empty.
func (e *Executor) Step(ctx context.Context, s AttemptState) (AttemptState, error) {
	items, err := e.store.PopFront(ctx, s.Queue, e.cfg.BatchSize)
	if err != nil {
		if ctx.Err() != nil {
			return s, nil
		}
		return s, storeErr("pop", s.Queue, err)
	}

	if len(items) > 0 {
		return s, e.runBatch(ctx, s, items)
	}

	if next, ok := e.chain.Advance(s); ok {
		e.metrics.switched("advance")
		e.logger.Info("queue is empty, changing queue", "from", s.Queue, "to", next.Queue)
		return next, nil
	}

	swept, err := e.ledger.Sweep(ctx)
	if err != nil {
		return s, err
	}
	if swept > 0 {
		e.metrics.sweptItems(swept)
		e.logger.Warn("recovered items from doing queue", "doing_queue", e.cfg.DoingQueue, "count", swept)
	}

	next := e.chain.Reset()
	e.metrics.switched("reset")
	e.logger.Info("queue is empty, restarting", "from", s.Queue)
	e.logger.Info("sleeping", "duration", e.cfg.SleepTime)
	sleep(ctx, e.cfg.SleepTime)
	return next, nil
}

// runBatch executes items concurrently and returns once every item has been
// routed. The batch ignores cancellation of ctx: a popped item is always routed.
func (e *Executor) runBatch(ctx context.Context, s AttemptState, items []string) error {
	bctx := context.WithoutCancel(ctx)
	start := time.Now()

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.BatchSize)
	for _, item := range items {
		item := item
		g.Go(func() error {
			return e.process(bctx, s, item)
		})
	}
	err := g.Wait()

	e.metrics.batch(len(items), time.Since(start))
	return err
}

func (e *Executor) process(ctx context.Context, s AttemptState, item string) error {
	lease, err := e.ledger.Record(ctx, item, s)
	if err != nil {
		return err
	}

	outcome := runWithDeadline(ctx, e.fn, item, e.cfg.TaskTimeout)
	if !outcome.Succeeded() {
		outcome.Err = &TaskError{Item: item, Attempt: s.Attempt, Err: outcome.Err}
	}

	if err := e.ledger.Release(ctx, lease); err != nil {
		return err
	}

	decision, err := e.router.Route(ctx, item, outcome, s.Attempt)
	if err != nil {
		return err
	}
	e.metrics.routed(decision.Kind)

	if outcome.Succeeded() {
		e.logger.Info("task executed",
			"item", item,
			"attempt", s.Attempt,
			"duration", outcome.Duration,
		)
		return nil
	}

	if IsTimeout(outcome.Err) {
		e.metrics.timeout()
	}
	e.logger.Error("task failed",
		"item", item,
		"attempt", s.Attempt,
		"routed", decision.Kind,
		"to", decision.Queues,
		"error", outcome.Err,
	)
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
