package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Echo logs every item after an optional delay. Items starting with
// failPrefix fail, which is handy for exercising the retry chain.
func Echo(logger *slog.Logger, delay time.Duration, failPrefix string) func(context.Context, string) error {
	return func(ctx context.Context, item string) error {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if failPrefix != "" && strings.HasPrefix(item, failPrefix) {
			return fmt.Errorf("echo: item %q marked as failing", item)
		}
		logger.Info("echo", "item", item)
		return nil
	}
}
