package ratelimit

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const defaultBucketTTL = 120 * time.Second

// tokenBucketScript refills on every call using the redis server clock and
// answers allow/deny plus the remaining token count in one round trip.
const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local now = redis.call("TIME")
local now_us = now[1] * 1000000 + now[2]

local state = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])

if tokens == nil then
  tokens = burst
  ts = now_us
end

local elapsed = math.max(0, now_us - ts) / 1000000
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "ts", now_us)
redis.call("EXPIRE", key, ttl)

return {allowed, tostring(tokens)}
`

// TokenBucket is a redis-backed limiter shared between instances. rate is
// tokens per second, burst the bucket capacity.
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

func (b *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (bool, error) {
	if b == nil || b.client == nil {
		return false, errors.New("token bucket client not configured")
	}
	if key == "" {
		return false, errors.New("token bucket key is empty")
	}
	if rate <= 0 || burst <= 0 {
		return false, errors.New("token bucket rate and burst must be positive")
	}

	res, err := b.script.Run(ctx, b.client, []string{key},
		rate, burst, int(defaultBucketTTL.Seconds()),
	).Result()
	if err != nil {
		return false, err
	}

	values, ok := res.([]interface{})
	if !ok || len(values) < 1 {
		return false, errors.New("unexpected token bucket reply")
	}
	allowed, ok := values[0].(int64)
	if !ok {
		return false, errors.New("unexpected token bucket reply")
	}
	return allowed == 1, nil
}
