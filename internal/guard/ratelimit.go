package guard

import (
	"sync"
	"time"
)

// rateBucket is a single fingerprint's wall-clock-second counter.
type rateBucket struct {
	window int64
	count  int
}

// RateLimiter enforces a literal per-wall-clock-second request cap
// per key. Unlike a token bucket, it does not smooth bursts across
// seconds: a window rollover resets the counter outright, matching
// tool_executor.py's _rate_limit_check exactly (see SPEC_FULL.md's
// note on why golang.org/x/time/rate doesn't fit this invariant).
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket
	now     func() time.Time
}

// NewRateLimiter builds a rate limiter. now defaults to time.Now and
// is overridable for deterministic tests.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*rateBucket), now: time.Now}
}

// Allow increments key's counter for the current wall-clock second and
// reports whether the request is within limitPerSec. A limitPerSec of
// 0 or less means unlimited.
func (r *RateLimiter) Allow(key string, limitPerSec int) bool {
	if limitPerSec <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	window := r.now().Unix()
	b, ok := r.buckets[key]
	if !ok || b.window != window {
		b = &rateBucket{window: window, count: 0}
		r.buckets[key] = b
	}
	b.count++
	return b.count <= limitPerSec
}
