package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiterConfig sizes an in-process token bucket per key.
type LocalLimiterConfig struct {
	// Requests refill over Window; Burst is the bucket size.
	Requests int
	Window   time.Duration
	Burst    int

	// IdleTTL drops buckets for keys that have not been seen for this long.
	IdleTTL time.Duration
}

type bucket struct {
	tokens *rate.Limiter
	seen   time.Time
}

// LocalLimiter keeps one token bucket per key in memory. Budgets are not
// shared between processes; use RedisRateLimiter for that.
type LocalLimiter struct {
	every rate.Limit
	burst int
	ttl   time.Duration
	clock func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	nextSweep time.Time
}

// NewLocalLimiter builds a limiter, replacing non-positive settings with
// one request per second, a burst of one and a five minute idle TTL.
func NewLocalLimiter(cfg LocalLimiterConfig) *LocalLimiter {
	requests := max(cfg.Requests, 1)
	window := cfg.Window
	if window <= 0 {
		window = time.Second
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &LocalLimiter{
		every:   rate.Every(window / time.Duration(requests)),
		burst:   max(cfg.Burst, 1),
		ttl:     ttl,
		clock:   time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow spends one token for key. It never fails.
func (l *LocalLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	if key == "" {
		key = "unknown"
	}

	l.mu.Lock()
	now := l.clock()
	b := l.bucketLocked(key, now)
	l.sweepLocked(now)
	l.mu.Unlock()

	r := b.tokens.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second, nil
	}
	wait := r.DelayFrom(now)
	if wait <= 0 {
		return true, 0, nil
	}
	r.CancelAt(now)
	return false, wait, nil
}

// Len reports how many keys currently hold a bucket.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *LocalLimiter) bucketLocked(key string, now time.Time) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b
}

// sweepLocked runs at most once per ttl.
func (l *LocalLimiter) sweepLocked(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	l.nextSweep = now.Add(l.ttl)
	for key, b := range l.buckets {
		if now.Sub(b.seen) > l.ttl {
			delete(l.buckets, key)
		}
	}
}

func (l *LocalLimiter) setClock(clock func() time.Time) {
	l.mu.Lock()
	l.clock = clock
	l.mu.Unlock()
}
