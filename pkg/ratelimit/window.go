package ratelimit

import (
	"context"
	"sync"
	"time"

	"covidanalyzer/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "covid-analyzer:ratelimit"

// FixedWindow admits limit requests per client in a window that opens with
// the client's first request and lasts window. Counters live in a
// limiter.Store; a store error admits the request.
type FixedWindow struct {
	rate limiter.Rate

	mu    sync.Mutex
	store limiter.Store
	open  func() (limiter.Store, error)
}

// NewFixedWindow returns a fixed window limiter counting in process memory.
// Expired counters are dropped by the store itself every window.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		rate: limiter.Rate{Period: window, Limit: int64(limit)},
		store: memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          defaultKeyPrefix,
			CleanUpInterval: window,
		}),
	}
}

// NewRedis returns a fixed window limiter whose counters live in Redis, so
// every process sharing the server shares the limit. The store is set up on
// first use and again after a failed attempt, so an unreachable Redis at
// startup only admits requests until it recovers.
func NewRedis(client redis.UniversalClient, prefix string, limit int, window time.Duration) *FixedWindow {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &FixedWindow{
		rate: limiter.Rate{Period: window, Limit: int64(limit)},
		open: func() (limiter.Store, error) {
			return sredis.NewStoreWithOptions(client, limiter.StoreOptions{
				Prefix:   prefix,
				MaxRetry: 3,
			})
		},
	}
}

func (f *FixedWindow) backend() (limiter.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.store == nil {
		s, err := f.open()
		if err != nil {
			return nil, err
		}
		f.store = s
	}

	return f.store, nil
}

// Allow implements Limiter.
func (f *FixedWindow) Allow(ctx context.Context, key string) Decision {
	store, err := f.backend()
	if err == nil {
		var lctx limiter.Context
		if lctx, err = store.Get(ctx, key, f.rate); err == nil {
			if !lctx.Reached {
				return Decision{Allowed: true}
			}

			return Decision{RetryAfter: retryAfter(lctx.Reset, time.Now())}
		}
	}

	logger.Warn(ctx, "rate limiter store unavailable, admitting request", zap.Error(err), zap.String("client", key))

	return Decision{Allowed: true}
}

// retryAfter turns a window reset, reported in whole Unix seconds, into a
// wait that never ends before the window does.
func retryAfter(reset int64, now time.Time) time.Duration {
	return max(time.Unix(reset+1, 0).Sub(now), time.Second)
}
