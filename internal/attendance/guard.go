package attendance

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"geoabsensi/internal/util"
)

const dedupPrefix = "attendance:dedup:"

// acquireScript stores the caller's clock (unix ms) under the key unless the
// value already there is newer than the cutoff. The window is measured on
// the application clock; the TTL only garbage-collects the key.
//
// KEYS[1] key, ARGV[1] now ms, ARGV[2] cutoff ms, ARGV[3] ttl ms
var acquireScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur and tonumber(cur) > tonumber(ARGV[2]) then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// releaseScript deletes the key only while it still holds our value.
var releaseScript = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisWindowGuard holds one short-lived key per (user, type, business day)
// so that two concurrent check-ins cannot both pass the duplicate window.
type RedisWindowGuard struct {
	rdb *goredis.Client
}

func NewRedisWindowGuard(rdb *goredis.Client) *RedisWindowGuard {
	return &RedisWindowGuard{rdb: rdb}
}

func dedupKey(userID int64, logType string, now time.Time) string {
	return fmt.Sprintf("%s%d:%s:%s", dedupPrefix, userID, logType, util.BusinessDate(now))
}

// guardTTL keeps the key no longer than the window and never past the end
// of the business day.
func guardTTL(now time.Time, window time.Duration) time.Duration {
	_, dayEnd := util.BusinessDay(now)
	ttl := window
	if left := dayEnd.Sub(now) + time.Nanosecond; left < ttl {
		ttl = left
	}
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	return ttl
}

func (g *RedisWindowGuard) Acquire(ctx context.Context, userID int64, logType string, now time.Time, window time.Duration) (bool, error) {
	n, err := acquireScript.Run(ctx, g.rdb,
		[]string{dedupKey(userID, logType, now)},
		now.UnixMilli(), now.Add(-window).UnixMilli(), guardTTL(now, window).Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (g *RedisWindowGuard) Release(ctx context.Context, userID int64, logType string, now time.Time) error {
	return releaseScript.Run(ctx, g.rdb,
		[]string{dedupKey(userID, logType, now)}, now.UnixMilli(),
	).Err()
}

// PingContext lets the health check probe the guard's redis connection.
func (g *RedisWindowGuard) PingContext(ctx context.Context) error {
	return g.rdb.Ping(ctx).Err()
}
