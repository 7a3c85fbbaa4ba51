// Package ratelimit throttles chat traffic per group and per user.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/mmynk/lebot/internal/metrics"
)

const keyPrefix = "lebot:limiter"

// NewStore returns a Redis backed limiter store when redisURL is set, so
// several bot replicas share one budget, and an in-process store otherwise.
// The returned close function releases the Redis client.
func NewStore(ctx context.Context, redisURL string) (limiter.Store, func() error, error) {
	if redisURL == "" {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          keyPrefix,
			CleanUpInterval: time.Minute,
		}), func() error { return nil }, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   keyPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to create redis limiter store: %w", err)
	}

	slog.Info("Rate limiter using redis", "addr", opts.Addr)
	return store, client.Close, nil
}

// Limiter allows a fixed number of events per key per minute.
// A nil Limiter or one with a non-positive limit allows everything.
type Limiter struct {
	scope string
	inst  *limiter.Limiter
}

// New creates a limiter for scope ("group", "user") allowing perMinute
// events per key.
func New(scope string, store limiter.Store, perMinute int64) *Limiter {
	if perMinute <= 0 {
		return &Limiter{scope: scope}
	}
	return &Limiter{
		scope: scope,
		inst:  limiter.New(store, limiter.Rate{Period: time.Minute, Limit: perMinute}),
	}
}

// Allow consumes one event for key and reports whether it is within budget.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.inst == nil {
		return true, nil
	}

	lctx, err := l.inst.Get(ctx, l.scope+":"+key)
	if err != nil {
		return true, fmt.Errorf("failed to get rate limit context: %w", err)
	}

	if lctx.Reached {
		metrics.Throttled.WithLabelValues(l.scope).Inc()
		slog.Warn("Rate limit exceeded",
			"scope", l.scope,
			"key", key,
			"limit", lctx.Limit,
			"remaining", lctx.Remaining,
		)
		return false, nil
	}
	return true, nil
}
