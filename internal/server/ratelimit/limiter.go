// Token bucket limiter keyed by an arbitrary string.

// Package ratelimit throttles API requests per client with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// staleAfter is how long an idle bucket is kept before it is dropped.
const staleAfter = 10 * time.Minute

// Result is the outcome of a single Allow call.
type Result struct {
	Allowed    bool
	Limit      int           // requests per window
	Remaining  int           // tokens left after this request
	ResetAt    time.Time     // when the bucket is full again
	RetryAfter time.Duration // zero when allowed
}

// Limiter hands out one token bucket per key.
type Limiter struct {
	perWindow int
	window    time.Duration
	refill    rate.Limit
	burst     int

	mu      sync.Mutex
	buckets map[string]*bucket
	done    chan struct{}
	once    sync.Once
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewLimiter returns a Limiter refilling requests tokens per window, holding
// at most burst tokens. Call Close to stop its janitor goroutine.
func NewLimiter(requests int, window time.Duration, burst int) *Limiter {
	l := &Limiter{
		perWindow: requests,
		window:    window,
		refill:    rate.Limit(float64(requests) / window.Seconds()),
		burst:     burst,
		buckets:   map[string]*bucket{},
		done:      make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Allow consumes one token from key's bucket if one is available.
func (l *Limiter) Allow(key string) Result {
	now := time.Now()
	l.mu.Lock()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{lim: rate.NewLimiter(l.refill, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	res := Result{Limit: l.perWindow}
	r := b.lim.ReserveN(now, 1)
	res.Allowed = r.OK() && r.DelayFrom(now) == 0
	if !res.Allowed {
		if r.OK() {
			r.CancelAt(now)
		}
		res.RetryAfter = max(time.Duration(float64(time.Second)/float64(l.refill)), time.Second)
	}
	tokens := b.lim.TokensAt(now)
	res.Remaining = max(int(tokens), 0)
	missing := float64(l.burst) - tokens
	res.ResetAt = now.Add(time.Duration(missing / float64(l.refill) * float64(time.Second)))
	return res
}

// Close stops the janitor. It is safe to call more than once.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}

func (l *Limiter) janitor() {
	t := time.NewTicker(staleAfter)
	defer t.Stop()
	for {
		select {
		case now := <-t.C:
			l.sweep(now)
		case <-l.done:
			return
		}
	}
}

// sweep drops buckets that are idle and full.
func (l *Limiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > staleAfter && b.lim.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, k)
		}
	}
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
