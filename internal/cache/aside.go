package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Kellia855/mindbridge/internal/middleware"
	"github.com/Kellia855/mindbridge/internal/observability"

	"github.com/redis/go-redis/v9"
)

// GetJSON reads key into dest. It reports false when the key is missing
// or caching is disabled.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	c := GetClient()
	if c == nil {
		return false, nil
	}
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key with ttl.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	c := GetClient()
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw, ttl).Err()
}

// Aside reads key into dest, falling back to load on a miss and storing
// the loaded value. Cache failures degrade to a plain load; only load
// errors are returned.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	name := keyFamily(key)

	found, err := GetJSON(ctx, key, dest)
	switch {
	case err != nil:
		observability.CacheLookups.WithLabelValues(name, "error").Inc()
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	case found:
		observability.CacheLookups.WithLabelValues(name, "hit").Inc()
		return nil
	default:
		observability.CacheLookups.WithLabelValues(name, "miss").Inc()
	}

	if err := load(); err != nil {
		return err
	}

	if err := SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate deletes key, ignoring cache failures.
func Invalidate(ctx context.Context, keys ...string) {
	c := GetClient()
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidate failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// InvalidatePattern deletes every key matching pattern.
func InvalidatePattern(ctx context.Context, pattern string) {
	c := GetClient()
	if c == nil {
		return
	}
	iter := c.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			Invalidate(ctx, batch...)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache scan failed", slog.String("pattern", pattern), slog.String("error", err.Error()))
	}
	Invalidate(ctx, batch...)
}
