// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/observability"

	"github.com/redis/go-redis/v9"
)

var (
	mu     sync.RWMutex
	client *redis.Client
)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// ParseOptions accepts either a redis:// URL or a bare host:port.
func ParseOptions(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// InitRedis connects the shared client. The application keeps running
// without a cache when Redis is unreachable.
func InitRedis(addr string) *redis.Client {
	if strings.TrimSpace(addr) == "" {
		middleware.Logger.Warn("REDIS_URL not set; continuing without cache")
		SetClient(nil)
		return nil
	}

	opts, err := ParseOptions(addr)
	if err != nil {
		middleware.Logger.Warn("invalid REDIS_URL; continuing without cache", slog.String("error", err.Error()))
		SetClient(nil)
		return nil
	}

	c := redis.NewClient(opts)
	c.AddHook(metricsHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unreachable; continuing without cache", slog.String("error", err.Error()))
		_ = c.Close()
		SetClient(nil)
		return nil
	}

	middleware.Logger.Info("Redis connected successfully")
	SetClient(c)
	return c
}

// SetClient replaces the shared client. Passing nil disables caching.
func SetClient(c *redis.Client) {
	mu.Lock()
	client = c
	mu.Unlock()
}

// GetClient returns the current Redis client instance.
func GetClient() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	return client
}
