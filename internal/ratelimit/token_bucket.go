package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// KEYS[1] bucket hash; ARGV rate (tokens/s), burst, ttl (ms).
// Returns {allowed, tokens as string, now ms}. Tokens go back as a string
// because redis truncates lua numbers to integers.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = (t[1] * 1000) + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])

if tokens == nil then
  tokens = burst
else
  local elapsed = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (elapsed / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens), now}
`

// Policy is a refill rate with a bucket size.
type Policy struct {
	Rate  float64
	Burst int
}

func (p Policy) validate() error {
	if p.Rate <= 0 {
		return errors.New("rate limiter rate must be positive")
	}
	if p.Burst <= 0 {
		return errors.New("rate limiter burst must be positive")
	}
	return nil
}

// ttl keeps an idle bucket around for twice its full refill time.
func (p Policy) ttl() time.Duration {
	if p.validate() != nil {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(p.Burst)/p.Rate*2))
	return time.Duration(seconds) * time.Second
}

// TokenBucket is a redis-backed token bucket shared by every replica.
type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
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

// Allow takes one token from the bucket at key.
func (t *TokenBucket) Allow(ctx context.Context, key string, policy Policy) (*RateLimitResult, error) {
	denied := &RateLimitResult{Limit: policy.Burst}
	if t == nil || t.client == nil {
		return denied, errors.New("rate limiter not configured")
	}
	if key == "" {
		return denied, errors.New("rate limiter key is empty")
	}
	if err := policy.validate(); err != nil {
		return denied, err
	}

	res, err := t.script.Run(ctx, t.client, []string{key},
		policy.Rate, policy.Burst, policy.ttl().Milliseconds(),
	).Slice()
	if err != nil {
		return denied, err
	}
	if len(res) < 3 {
		return denied, errors.New("invalid rate limit script response")
	}

	return buildResult(toInt(res[0]) == 1, toFloat(res[1]), toInt(res[2]), policy), nil
}

// buildResult derives the retry hint from the tokens left in the bucket.
func buildResult(allowed bool, tokens float64, nowMillis int64, policy Policy) *RateLimitResult {
	var retryAfter time.Duration
	if !allowed {
		if missing := 1 - tokens; missing > 0 {
			retryAfter = time.Duration(missing / policy.Rate * float64(time.Second))
		}
	}

	return &RateLimitResult{
		Allowed:    allowed,
		Limit:      policy.Burst,
		Remaining:  int(tokens),
		ResetTime:  time.UnixMilli(nowMillis).Add(retryAfter),
		RetryAfter: retryAfter,
	}
}

func toInt(v interface{}) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case float64:
		return int64(val)
	case string:
		parsed, _ := strconv.ParseInt(val, 10, 64)
		return parsed
	default:
		return 0
	}
}

func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
