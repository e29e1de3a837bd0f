package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Tokens are kept in milli-units so the script can return integers.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, math.floor(tokens * 1000), now}
`

var ErrLimiterNotConfigured = errors.New("rate limiter not configured")

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (RateLimitResult, error) {
	if t == nil || t.client == nil {
		return RateLimitResult{}, ErrLimiterNotConfigured
	}
	if err := validateBucket(key, rate, burst); err != nil {
		return RateLimitResult{}, err
	}

	ttl := bucketTTL(rate, burst)
	res, err := t.script.Run(ctx, t.client, []string{key}, rate, burst, ttl.Milliseconds()).Slice()
	if err != nil {
		return RateLimitResult{}, err
	}
	if len(res) < 3 {
		return RateLimitResult{}, errors.New("invalid rate limit script response")
	}

	allowed := toInt64(res[0]) == 1
	remaining := float64(toInt64(res[1])) / 1000
	return newResult(allowed, remaining, rate, burst), nil
}

func newResult(allowed bool, remaining, rate float64, burst int) RateLimitResult {
	result := RateLimitResult{
		Allowed:   allowed,
		Limit:     burst,
		Remaining: int(math.Floor(remaining)),
	}
	if !allowed && rate > 0 {
		missing := 1 - remaining
		result.RetryAfter = time.Duration(math.Ceil(missing/rate*1000)) * time.Millisecond
	}
	return result
}

func validateBucket(key string, rate float64, burst int) error {
	switch {
	case key == "":
		return errors.New("rate limiter key is empty")
	case rate <= 0:
		return errors.New("rate limiter rate must be positive")
	case burst <= 0:
		return errors.New("rate limiter burst must be positive")
	}
	return nil
}

func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Ceil((float64(burst) / rate) * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		parsed, _ := strconv.ParseInt(val, 10, 64)
		return parsed
	default:
		return 0
	}
}
