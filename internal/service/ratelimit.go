package service

import (
	"sync"
	"time"

	"github.com/maypok86/otter/v2"
)

// idleBucketTTL is how long an untouched bucket is kept before it is evicted
// and the key starts full again.
const idleBucketTTL = 10 * time.Minute

// TokenBucket is an in-memory per-key rate limiter using the token bucket
// algorithm. The auth handlers key it by client IP to throttle register and
// login attempts. It is safe for concurrent use.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  *otter.Cache[string, *bucket]
	rate     float64 // tokens added per second
	capacity float64
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewTokenBucket creates a rate limiter that allows up to capacity tokens
// per key, refilling at rate tokens per second.
func NewTokenBucket(rate, capacity float64) *TokenBucket {
	return &TokenBucket{
		buckets: otter.Must(&otter.Options[string, *bucket]{
			MaximumSize:      100_000,
			ExpiryCalculator: otter.ExpiryWriting[string, *bucket](idleBucketTTL),
		}),
		rate:     rate,
		capacity: capacity,
	}
}

// Allow reports whether key may proceed. Each allowed call consumes one
// token.
func (tb *TokenBucket) Allow(key string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	b, ok := tb.buckets.GetIfPresent(key)
	if !ok {
		b = &bucket{tokens: tb.capacity, last: now}
	}

	elapsed := now.Sub(b.last).Seconds()
	b.tokens = min(b.tokens+elapsed*tb.rate, tb.capacity)
	b.last = now

	allowed := b.tokens >= 1
	if allowed {
		b.tokens--
	}
	tb.buckets.Set(key, b)
	return allowed
}
