package ratelimit

import (
	"context"
	"sync"
	"time"

	"covidanalyzer/pkg/clock"
)

// SlidingWindow admits limit requests per client within any span of window,
// keeping the timestamps of the admitted requests.
type SlidingWindow struct {
	mu      sync.Mutex
	clock   clock.Clock
	limit   int
	window  time.Duration
	clients map[string][]time.Time
}

// NewSlidingWindow returns an in-memory sliding log limiter.
func NewSlidingWindow(c clock.Clock, limit int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		clock:   c,
		limit:   limit,
		window:  window,
		clients: make(map[string][]time.Time),
	}
}

// Allow implements Limiter.
func (s *SlidingWindow) Allow(_ context.Context, key string) Decision {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.prune(s.clients[key], now)
	if len(log) >= s.limit {
		s.clients[key] = log
		return Decision{RetryAfter: log[0].Add(s.window).Sub(now)}
	}
	s.clients[key] = append(log, now)

	return Decision{Allowed: true}
}

// prune drops timestamps that fell out of the window ending at now.
func (s *SlidingWindow) prune(log []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(log) && !now.Before(log[i].Add(s.window)) {
		i++
	}

	return log[i:]
}

func (s *SlidingWindow) sweep() {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, log := range s.clients {
		if log = s.prune(log, now); len(log) == 0 {
			delete(s.clients, k)
		} else {
			s.clients[k] = log
		}
	}
}

func (s *SlidingWindow) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.clients)
}
