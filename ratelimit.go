package sharekit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// PasswordLimiter throttles password attempts per (share, source address)
// pair so a single client cannot brute-force a share password while other
// clients keep full throughput.
type PasswordLimiter struct {
	mu       sync.Mutex
	limiters map[string]*passwordBucket

	every time.Duration
	burst int
	ttl   time.Duration

	lastSweep time.Time
}

type passwordBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewPasswordLimiter creates a limiter allowing a burst of 5 attempts and
// one attempt per 2 seconds sustained, per share and source address. Idle
// buckets are evicted after 15 minutes.
func NewPasswordLimiter() *PasswordLimiter {
	return &PasswordLimiter{
		limiters: make(map[string]*passwordBucket),
		every:    2 * time.Second,
		burst:    5,
		ttl:      15 * time.Minute,
	}
}

// Allow reports whether another password attempt is permitted for the share
// from the source address.
func (pl *PasswordLimiter) Allow(shareID, sourceAddr string) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	now := time.Now()
	pl.sweepLocked(now)

	key := shareID + "\x00" + sourceAddr
	bucket, ok := pl.limiters[key]
	if !ok {
		bucket = &passwordBucket{limiter: rate.NewLimiter(rate.Every(pl.every), pl.burst)}
		pl.limiters[key] = bucket
	}
	bucket.lastSeen = now

	return bucket.limiter.Allow()
}

// sweepLocked drops buckets idle past the TTL. Runs at most once per TTL so
// the hot path stays cheap.
func (pl *PasswordLimiter) sweepLocked(now time.Time) {
	if now.Sub(pl.lastSweep) < pl.ttl {
		return
	}
	pl.lastSweep = now
	for key, bucket := range pl.limiters {
		if now.Sub(bucket.lastSeen) > pl.ttl {
			delete(pl.limiters, key)
		}
	}
}
