package app

import (
	"sync"
	"time"
)

// rateLimiter is a sliding-window counter keyed by caller (client IP).
type rateLimiter struct {
	window time.Duration
	max    int
	clock  func() time.Time

	mu      sync.Mutex
	entries map[string][]time.Time
}

func newRateLimiter(window time.Duration, max int) *rateLimiter {
	return &rateLimiter{
		window:  window,
		max:     max,
		clock:   time.Now,
		entries: make(map[string][]time.Time),
	}
}

// allow reports whether the caller is within its limit, recording the attempt
// if so. Stale entries are pruned on each call.
func (l *rateLimiter) allow(key string) bool {
	if l.max <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	cutoff := now.Add(-l.window)

	recent := l.entries[key][:0]
	for _, t := range l.entries[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.max {
		l.entries[key] = recent
		return false
	}
	l.entries[key] = append(recent, now)
	return true
}
