// Package ratelimit decides whether a client may issue another request.
//
// Every limiter admits at most Limit requests per client within Window and
// answers immediately; a denied caller gets the time left until it may retry.
// Fixed windows count in a ulule/limiter store, in process memory or in
// Redis, whose increment-and-read is atomic per key. The sliding and token
// limiters keep per-client state behind a mutex for the same guarantee.
package ratelimit

import (
	"context"
	"time"

	"covidanalyzer/pkg/clock"
	"covidanalyzer/pkg/metrics"
	"covidanalyzer/pkg/serrors"

	"github.com/redis/go-redis/v9"
)

//go:generate mockgen -package mockratelimit -source=ratelimit.go -destination=mock/mockratelimit.go

// Limiter admits or denies a request of a client.
type Limiter interface {
	Allow(ctx context.Context, key string) Decision
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	// RetryAfter is how long a denied client should wait. Zero when allowed.
	RetryAfter time.Duration
}

// Policy selects the limiter implementation.
type Policy string

const (
	PolicyFixed   Policy = "fixed"
	PolicySliding Policy = "sliding"
	PolicyToken   Policy = "token"
	PolicyRedis   Policy = "redis"
)

// Options configures a limiter built by New.
type Options struct {
	Policy Policy
	Limit  int
	Window time.Duration
	// KeyPrefix namespaces the Redis keys.
	KeyPrefix string
}

// Deps groups the collaborators of a limiter.
type Deps struct {
	Clock   clock.Clock
	Redis   redis.UniversalClient
	Metrics *metrics.Collectors
}

// New builds the limiter selected by options.Policy. Decisions are recorded on
// deps.Metrics when it is set.
func New(deps Deps, options Options) (Limiter, error) {
	if options.Limit <= 0 {
		return nil, serrors.With(serrors.ErrValidation, "rate limit must be positive, got %d", options.Limit)
	}
	if options.Window <= 0 {
		return nil, serrors.With(serrors.ErrValidation, "rate limit window must be positive, got %s", options.Window)
	}
	if deps.Clock == nil {
		deps.Clock = clock.System(time.Local)
	}

	var l Limiter
	switch options.Policy {
	case PolicyFixed, "":
		l = NewFixedWindow(options.Limit, options.Window)
	case PolicySliding:
		l = NewSlidingWindow(deps.Clock, options.Limit, options.Window)
	case PolicyToken:
		l = NewTokenBucket(deps.Clock, options.Limit, options.Window)
	case PolicyRedis:
		if deps.Redis == nil {
			return nil, serrors.With(serrors.ErrValidation, "redis policy requires a redis client")
		}
		l = NewRedis(deps.Redis, options.KeyPrefix, options.Limit, options.Window)
	default:
		return nil, serrors.With(serrors.ErrValidation, "unknown rate limit policy %q", options.Policy)
	}

	if deps.Metrics != nil {
		l = &instrumented{next: l, metrics: deps.Metrics}
	}

	return l, nil
}

type instrumented struct {
	next    Limiter
	metrics *metrics.Collectors
}

func (i *instrumented) Allow(ctx context.Context, key string) Decision {
	d := i.next.Allow(ctx, key)
	i.metrics.RateLimit(d.Allowed)

	return d
}

func (i *instrumented) sweep() {
	if s, ok := i.next.(sweeper); ok {
		s.sweep()
	}
}

// sweeper is implemented by limiters holding per-client state in memory.
type sweeper interface {
	sweep()
}

// StartJanitor evicts idle clients from l every interval of c until ctx is
// done. It does nothing for limiters that keep no local state.
func StartJanitor(ctx context.Context, c clock.Clock, l Limiter, every time.Duration) {
	s, ok := l.(sweeper)
	if !ok || every <= 0 {
		return
	}
	if i, ok := l.(*instrumented); ok {
		if _, ok := i.next.(sweeper); !ok {
			return
		}
	}

	t := c.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.Chan():
				s.sweep()
			}
		}
	}()
}

// Size reports how many clients l currently tracks, or -1 when it keeps no
// local state.
func Size(l Limiter) int {
	if i, ok := l.(*instrumented); ok {
		l = i.next
	}
	if s, ok := l.(interface{ size() int }); ok {
		return s.size()
	}

	return -1
}
