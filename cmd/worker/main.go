package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"redis-queue-executor/internal/config"
	"redis-queue-executor/internal/queue"
	"redis-queue-executor/internal/store"
	"redis-queue-executor/internal/tasks"
	"redis-queue-executor/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

type workerFlags struct {
	handler      string
	storeKind    string
	webhookURL   string
	failureURL   string
	echoDelay    time.Duration
	echoFailWith string
}

func main() {
	cfg := config.Load()
	var f workerFlags

	cmd := &cobra.Command{
		Use:          "worker",
		Short:        "Drain a Redis list queue with retries and crash recovery",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address")
	fl.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database")
	fl.StringVar(&cfg.Queue, "queue", cfg.Queue, "base queue")
	fl.StringVar(&cfg.DoingQueue, "doing-queue", cfg.DoingQueue, "in-flight (doing) queue")
	fl.StringSliceVar(&cfg.SuccessQueues, "success-queue", cfg.SuccessQueues, "success queue(s)")
	fl.StringSliceVar(&cfg.ErrorQueues, "error-queue", cfg.ErrorQueues, "error queue(s)")
	fl.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "attempts before an item goes to the error queues")
	fl.DurationVar(&cfg.SleepTime, "sleep", cfg.SleepTime, "idle sleep after a full empty cycle")
	fl.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "items popped and run concurrently")
	fl.DurationVar(&cfg.TaskTimeout, "task-timeout", cfg.TaskTimeout, "per task deadline (0 disables)")
	fl.StringVar(&cfg.MetricsPort, "metrics-port", cfg.MetricsPort, "port for /healthz and /metrics (empty disables)")

	fl.StringVar(&f.handler, "handler", "echo", "task handler: echo or webhook")
	fl.StringVar(&f.storeKind, "store", "redis", "queue store: redis or memory")
	fl.StringVar(&f.webhookURL, "webhook-url", os.Getenv("WEBHOOK_URL"), "URL items are POSTed to by the webhook handler")
	fl.StringVar(&f.failureURL, "final-failure-url", os.Getenv("FINAL_FAILURE_URL"), "URL notified when an item exhausts its attempts")
	fl.DurationVar(&f.echoDelay, "echo-delay", 0, "simulated work per item for the echo handler")
	fl.StringVar(&f.echoFailWith, "echo-fail-prefix", "", "echo fails items with this prefix")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, f workerFlags) error {
	logger := telemetry.SetupLogger()
	logger.Info("starting worker", "queue", cfg.Queue, "handler", f.handler, "store", f.storeKind)

	qs, closeStore, err := openStore(ctx, cfg, f.storeKind)
	if err != nil {
		logger.Error("failed to open queue store", "error", err)
		return err
	}
	defer closeStore()

	registry := tasks.NewRegistry()
	registry.Register("echo", tasks.Echo(logger, f.echoDelay, f.echoFailWith))
	if f.webhookURL != "" {
		registry.Register("webhook", tasks.NewWebhook(f.webhookURL).Deliver)
	}
	fn, err := registry.Get(f.handler)
	if err != nil {
		logger.Error("no such handler", "handler", f.handler, "available", registry.Names())
		return err
	}

	var onFinalFailure queue.FinalFailureFunc
	if f.failureURL != "" {
		onFinalFailure = tasks.NewWebhook(f.failureURL).Deliver
	}

	exec, err := queue.NewExecutor(ctx, qs, fn, queue.Config{
		Queue:          cfg.Queue,
		DoingQueue:     cfg.DoingQueue,
		SuccessQueues:  cfg.SuccessQueues,
		ErrorQueues:    cfg.ErrorQueues,
		MaxAttempts:    cfg.MaxAttempts,
		SleepTime:      cfg.SleepTime,
		BatchSize:      cfg.BatchSize,
		TaskTimeout:    cfg.TaskTimeout,
		OnFinalFailure: onFinalFailure,
		Logger:         logger,
		Registerer:     prometheus.DefaultRegisterer,
	})
	if err != nil {
		logger.Error("failed to create executor", "error", err)
		return err
	}

	if cfg.MetricsPort != "" {
		go serveMetrics(ctx, logger, ":"+cfg.MetricsPort, qs)
	}

	if err := exec.Run(ctx); err != nil {
		return err
	}
	logger.Info("worker stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, kind string) (queue.Store, func(), error) {
	switch kind {
	case "memory":
		m := store.NewMemory()
		return m, func() { _ = m.Close() }, nil
	case "redis", "":
		rdb, err := store.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store.New(rdb), func() { _ = rdb.Close() }, nil
	}
	return nil, nil, errors.New("unknown store " + kind)
}

func serveMetrics(ctx context.Context, logger *slog.Logger, addr string, qs queue.Store) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := qs.Ping(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server error", "error", err)
	}
}
