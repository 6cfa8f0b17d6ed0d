package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"redis-queue-executor/internal/api"
	"redis-queue-executor/internal/config"
	"redis-queue-executor/internal/queue"
	"redis-queue-executor/internal/store"
	"redis-queue-executor/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:          "api",
		Short:        "Admin API for enqueueing and inspecting executor queues",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address")
	fl.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database")
	fl.StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	fl.StringVar(&cfg.Queue, "queue", cfg.Queue, "base queue shown in /overview")
	fl.StringVar(&cfg.DoingQueue, "doing-queue", cfg.DoingQueue, "doing queue shown in /overview")
	fl.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "attempt queues shown in /overview")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	logger := telemetry.SetupLogger()

	rdb, err := store.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Error("redis connect failed", "error", err)
		return err
	}
	defer rdb.Close()

	gin.SetMode(gin.ReleaseMode)
	r := api.NewRouter(api.Options{
		Store:         store.New(rdb),
		APIKey:        cfg.APIKey,
		Chain:         queue.NewChain(cfg.Queue, cfg.MaxAttempts),
		DoingQueue:    cfg.DoingQueue,
		SuccessQueues: cfg.SuccessQueues,
		ErrorQueues:   cfg.ErrorQueues,
		Logger:        logger,
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server error", "error", err)
		return err
	}
	return nil
}
