package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter is a token bucket per key for paths the fiber limiter cannot
// see, such as frames on an open websocket. It allows max events per window
// with a burst of max.
type KeyedLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	entries   map[string]*limiterEntry
	lastPrune time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedLimiter returns a limiter allowing max events per window and key.
// A non-positive max disables limiting.
func NewKeyedLimiter(max int, window time.Duration) *KeyedLimiter {
	if window <= 0 {
		window = time.Minute
	}
	l := &KeyedLimiter{
		burst:   max,
		idle:    2 * window,
		entries: make(map[string]*limiterEntry),
	}
	if max > 0 {
		l.limit = rate.Every(window / time.Duration(max))
	}
	return l
}

// Allow consumes one token for key and reports whether the event may proceed.
func (l *KeyedLimiter) Allow(key string) bool {
	if l == nil || l.burst <= 0 {
		return true
	}

	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) > l.idle {
		for k, entry := range l.entries {
			if now.Sub(entry.lastSeen) > l.idle {
				delete(l.entries, k)
			}
		}
		l.lastPrune = now
	}

	entry, ok := l.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}
