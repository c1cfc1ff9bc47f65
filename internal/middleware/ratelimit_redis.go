package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the window counter and sets its expiry on
// first use, in one atomic step.
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {current, ttl}
`)

// RedisLimiter is a fixed-window counter shared by every API instance.
type RedisLimiter struct {
	client redis.Scripter
	limits map[string]int
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client redis.Scripter, generalRPM int, authRPM int) *RedisLimiter {
	if generalRPM <= 0 {
		generalRPM = 100
	}
	if authRPM <= 0 {
		authRPM = 10
	}

	return &RedisLimiter{
		client: client,
		limits: map[string]int{ScopeGeneral: generalRPM, ScopeAuth: authRPM},
		window: rateWindow,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, scope string, key string) (bool, time.Duration, error) {
	limit, ok := l.limits[scope]
	if !ok {
		limit = l.limits[ScopeGeneral]
	}

	windowMs := l.window.Milliseconds()
	windowIndex := l.now().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("rl:%s:%s:%d", scope, key, windowIndex)

	vals, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("run rate limit script: %w", err)
	}
	if len(vals) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit script result: %v", vals)
	}

	if vals[0] > int64(limit) {
		retry := time.Duration(vals[1]) * time.Millisecond
		if retry <= 0 {
			retry = l.window
		}
		return false, retry, nil
	}
	return true, 0, nil
}
