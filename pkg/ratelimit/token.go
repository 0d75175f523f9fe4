package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"covidanalyzer/pkg/clock"

	"golang.org/x/time/rate"
)

// TokenBucket gives every client a bucket of limit tokens refilled at
// limit per window.
type TokenBucket struct {
	mu      sync.Mutex
	clock   clock.Clock
	every   rate.Limit
	burst   int
	idle    time.Duration
	clients map[string]*bucket
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewTokenBucket returns a token bucket limiter backed by x/time/rate.
func NewTokenBucket(c clock.Clock, limit int, window time.Duration) *TokenBucket {
	return &TokenBucket{
		clock:   c,
		every:   rate.Every(window / time.Duration(limit)),
		burst:   limit,
		idle:    window,
		clients: make(map[string]*bucket),
	}
}

// Allow implements Limiter.
func (t *TokenBucket) Allow(_ context.Context, key string) Decision {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.clients[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(t.every, t.burst)}
		t.clients[key] = b
	}
	b.lastSeen = now

	if b.lim.AllowN(now, 1) {
		return Decision{Allowed: true}
	}

	missing := 1 - b.lim.TokensAt(now)
	wait := time.Duration(math.Ceil(missing / float64(t.every) * float64(time.Second)))

	return Decision{RetryAfter: wait}
}

// sweep drops buckets idle for a whole window; they would be full again.
func (t *TokenBucket) sweep() {
	cutoff := t.clock.Now().Add(-t.idle)

	t.mu.Lock()
	defer t.mu.Unlock()

	for k, b := range t.clients {
		if !b.lastSeen.After(cutoff) {
			delete(t.clients, k)
		}
	}
}

func (t *TokenBucket) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.clients)
}
