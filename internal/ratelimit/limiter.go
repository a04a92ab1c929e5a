// Package ratelimit provides a per-client token-bucket rate limiter.
// Buckets refill continuously at a fixed rate; each request consumes one
// token. The limiter is a process-local collaborator applied before any
// store work happens.
package ratelimit

import (
	"sync"
	"time"
)

// sweepInterval is how often Allow scans for idle buckets to drop.
const sweepInterval = time.Minute

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Limiter tracks one token bucket per client key (typically an IP).
// Safe for concurrent use.
type Limiter struct {
	mu        sync.Mutex
	rps       float64
	burst     int
	now       func() time.Time
	bkts      map[string]*bucket
	lastSweep time.Time
}

// New creates a Limiter allowing rps sustained requests per second with
// the given burst capacity.
func New(rps float64, burst int) *Limiter {
	return &Limiter{
		rps:   rps,
		burst: burst,
		now:   time.Now,
		bkts:  make(map[string]*bucket),
	}
}

// Allow reports whether the client identified by key may proceed, and
// consumes a token when it may.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
		l.lastSweep = now
	}

	bkt, ok := l.bkts[key]
	if !ok {
		bkt = &bucket{tokens: float64(l.burst), lastRefill: now}
		l.bkts[key] = bkt
	}

	elapsed := now.Sub(bkt.lastRefill).Seconds()
	bkt.tokens = min(float64(l.burst), bkt.tokens+elapsed*l.rps)
	bkt.lastRefill = now

	if bkt.tokens >= 1 {
		bkt.tokens--
		return true
	}
	return false
}

// sweep drops buckets idle long enough to have refilled completely. A
// full bucket behaves identically to a fresh one, so eviction never
// changes what a returning client is allowed.
func (l *Limiter) sweep(now time.Time) {
	for key, bkt := range l.bkts {
		if now.Sub(bkt.lastRefill).Seconds()*l.rps >= float64(l.burst) {
			delete(l.bkts, key)
		}
	}
}
