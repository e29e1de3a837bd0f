package ratelimit

import (
	"math"
	"sync"
	"time"
)

const localBucketLimit = 10000

// localBuckets is the in-process limiter used when redis is not configured.
// Limits then apply per instance.
type localBuckets struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*localBucket
}

type localBucket struct {
	tokens float64
	ts     time.Time
}

func newLocalBuckets(now func() time.Time) *localBuckets {
	if now == nil {
		now = time.Now
	}
	return &localBuckets{now: now, buckets: make(map[string]*localBucket)}
}

func (l *localBuckets) Allow(key string, rate float64, burst int) (RateLimitResult, error) {
	if err := validateBucket(key, rate, burst); err != nil {
		return RateLimitResult{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= localBucketLimit {
			l.evict(now, bucketTTL(rate, burst))
		}
		b = &localBucket{tokens: float64(burst), ts: now}
		l.buckets[key] = b
	} else {
		elapsed := now.Sub(b.ts).Seconds()
		if elapsed > 0 {
			b.tokens = math.Min(float64(burst), b.tokens+elapsed*rate)
		}
		b.ts = now
	}

	allowed := b.tokens >= 1
	if allowed {
		b.tokens--
	}
	return newResult(allowed, b.tokens, rate, burst), nil
}

func (l *localBuckets) evict(now time.Time, idle time.Duration) {
	for key, b := range l.buckets {
		if now.Sub(b.ts) > idle {
			delete(l.buckets, key)
		}
	}
}
