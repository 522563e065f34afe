package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// failureCountScript trims the sliding window and reports how many failures
// remain in it, plus when the oldest one leaves the window.
var failureCountScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)
local resetAt = now
if count > 0 then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    resetAt = tonumber(oldest[2]) + window
end
return {count, resetAt}
`)

var recordFailureScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)
return redis.call('ZCARD', key)
`)

// LoginThrottle blocks a caller after too many failed admin logins inside a
// sliding window. Successful logins are never counted.
type LoginThrottle struct {
	client *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewLoginThrottle(client *redis.Client, limit int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func failureKey(key string) string {
	return fmt.Sprintf("loginfail:%s", key)
}

// Blocked reports whether key has used up its failures. A redis error
// blocks the caller.
func (t *LoginThrottle) Blocked(ctx context.Context, key string) (bool, time.Time) {
	now := t.now().Unix()

	result, err := failureCountScript.Run(
		ctx,
		t.client,
		[]string{failureKey(key)},
		now,
		int64(t.window.Seconds()),
	).Int64Slice()
	if err != nil || len(result) != 2 {
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("login throttle check failed, denying request for safety")
		return true, t.now().Add(t.window)
	}

	return int(result[0]) >= t.limit, time.Unix(result[1], 0)
}

// RecordFailure adds one failed attempt and returns the failures now in the window.
func (t *LoginThrottle) RecordFailure(ctx context.Context, key string) int {
	n, err := recordFailureScript.Run(
		ctx,
		t.client,
		[]string{failureKey(key)},
		t.now().Unix(),
		int64(t.window.Seconds()),
	).Int()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to record login failure")
		return 0
	}
	return n
}
