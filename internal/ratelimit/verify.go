package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/bonos/internal/clock"
	"github.com/smallbiznis/bonos/internal/config"
	"go.uber.org/zap"
)

const keyVerify = "bonos:verify:%s"

// VerifyLimiter throttles QR verification per caller. It uses redis when
// configured and falls back to per-instance buckets otherwise.
type VerifyLimiter struct {
	bucket *TokenBucket
	local  *localBuckets
	rate   float64
	burst  int
	log    *zap.Logger
}

func NewVerifyLimiter(cfg config.Config, bucket *TokenBucket, clk clock.Clock, log *zap.Logger) *VerifyLimiter {
	if cfg.Verify.RatePerSecond <= 0 || cfg.Verify.Burst <= 0 {
		return nil
	}
	return &VerifyLimiter{
		bucket: bucket,
		local:  newLocalBuckets(clk.Now),
		rate:   cfg.Verify.RatePerSecond,
		burst:  cfg.Verify.Burst,
		log:    log.Named("ratelimit.verify"),
	}
}

func (l *VerifyLimiter) Enabled() bool {
	return l != nil
}

// Allow consumes one verification for caller. Redis failures degrade to the
// local buckets rather than blocking scans.
func (l *VerifyLimiter) Allow(ctx context.Context, caller string) (RateLimitResult, error) {
	if !l.Enabled() {
		return RateLimitResult{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyVerify, strings.TrimSpace(caller))
	if l.bucket != nil {
		res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
		if err == nil {
			return res, nil
		}
		l.log.Warn("redis rate limit unavailable, using local bucket", zap.Error(err))
	}
	return l.local.Allow(key, l.rate, l.burst)
}
