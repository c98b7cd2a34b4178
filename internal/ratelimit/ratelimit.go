// Package ratelimit enforces a sliding window quota of requests per caller and endpoint.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether one more request may pass for key. Implementations admit at most
// times requests for the same key within any window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Window() time.Duration
}

// MemoryLimiter keeps the request log of every key in process memory. It suits a single service
// instance; use RedisLimiter when several instances share the quota.
type MemoryLimiter struct {
	times  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	hits      map[string][]time.Time
	lastPrune time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter(times int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		times:  times,
		window: window,
		now:    time.Now,
		hits:   map[string][]time.Time{},
	}
}

func (l *MemoryLimiter) Window() time.Duration {
	return l.window
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) >= l.window {
		l.prune(cutoff)
		l.lastPrune = now
	}

	hits := l.hits[key]
	kept := hits[:0]
	for _, hit := range hits {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}
	if len(kept) >= l.times {
		l.hits[key] = kept
		return false, nil
	}
	l.hits[key] = append(kept, now)
	return true, nil
}

// prune forgets keys whose whole log has expired. It runs at most once per window, so its cost is
// spread over all requests of that window. Must be called with mu held.
func (l *MemoryLimiter) prune(cutoff time.Time) {
	for key, hits := range l.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}
