package storage

import (
	"context"
	"strconv"
	"time"

	"PPicture/global"
	"PPicture/logger"
	"PPicture/tools/errs"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 在线编辑者按用户计数：同一用户多个连接只算一人
// KEYS[1] = pp:collab:picture:<id>:viewers (hash uid -> 连接数)
// ARGV[1] = uid
// ARGV[2] = delta (+1 / -1)
// ARGV[3] = ttlSeconds
// 返回：该用户剩余连接数
const luaPresence = `
local key   = KEYS[1]
local uid   = ARGV[1]
local delta = tonumber(ARGV[2])
local ttl   = tonumber(ARGV[3])

local n = redis.call("HINCRBY", key, uid, delta)
if n <= 0 then
  redis.call("HDEL", key, uid)
  n = 0
end
if redis.call("HLEN", key) == 0 then
  redis.call("DEL", key)
elseif ttl > 0 then
  redis.call("EXPIRE", key, ttl)
end
return n
`

var presenceScript = redis.NewScript(luaPresence)

// RedisPresence 对外可见的在线编辑者集合
type RedisPresence struct {
	rdb redis.Scripter
	ttl time.Duration
}

func NewRedisPresence(rdb redis.Scripter, ttl time.Duration) *RedisPresence {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisPresence{rdb: rdb, ttl: ttl}
}

func (p *RedisPresence) Online(ctx context.Context, pictureID, userID int64) error {
	return p.apply(ctx, pictureID, userID, 1)
}

func (p *RedisPresence) Offline(ctx context.Context, pictureID, userID int64) error {
	return p.apply(ctx, pictureID, userID, -1)
}

func (p *RedisPresence) apply(ctx context.Context, pictureID, userID int64, delta int) error {
	key := global.PresenceKey(pictureID)
	err := presenceScript.Run(ctx, p.rdb, []string{key},
		strconv.FormatInt(userID, 10), delta, int64(p.ttl/time.Second)).Err()
	if err != nil {
		return errs.WrapMsg(err, "presence update", "key", key, "delta", delta)
	}
	return nil
}

// KeepAlive 定期续期仍有会话的图片，直到 ctx 结束
func KeepAlive(ctx context.Context, rdb redis.Cmdable, ttl time.Duration, pictures func() []int64) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids := pictures()
			if len(ids) == 0 {
				continue
			}
			pipe := rdb.Pipeline()
			for _, id := range ids {
				pipe.Expire(ctx, global.PresenceKey(id), ttl)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				logger.Warn("[Presence] keepalive failed", zap.Int("pictures", len(ids)), zap.Error(err))
			}
		}
	}
}
