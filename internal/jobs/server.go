package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Kellia855/mindbridge/internal/middleware"

	"github.com/hibiken/asynq"
)

// RedisOpt converts REDIS_URL into asynq connection options. Bare
// host:port values are accepted.
func RedisOpt(url string) (asynq.RedisConnOpt, error) {
	if url == "" {
		return nil, fmt.Errorf("REDIS_URL is required for background jobs")
	}
	opt, err := asynq.ParseRedisURI(url)
	if err == nil {
		return opt, nil
	}
	return asynq.RedisClientOpt{Addr: url}, nil
}

// NewServer configures the asynq worker.
func NewServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      Queues,
		Logger:      slogAdapter{l: middleware.Logger},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			middleware.Logger.WarnContext(ctx, "task attempt failed",
				slog.String("task", t.Type()),
				slog.Int("retried", retried),
				slog.Int("max_retry", maxRetry),
				slog.String("error", err.Error()),
			)
		}),
	})
}

type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a slogAdapter) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a slogAdapter) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a slogAdapter) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a slogAdapter) Fatal(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
