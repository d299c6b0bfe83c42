package identity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"PPicture/global"
	"PPicture/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// profileCache 用户资料缓存的最小接口
type profileCache interface {
	get(ctx context.Context, key string) ([]byte, bool, error)
	set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type redisCache struct{ rdb redis.Cmdable }

func (c redisCache) get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c redisCache) set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, val, ttl).Err()
}

// CachedStore 旁路缓存；缓存故障时直接回源
type CachedStore struct {
	next  UserStore
	cache profileCache
	ttl   time.Duration
}

func NewCachedStore(next UserStore, rdb redis.Cmdable, ttl time.Duration) *CachedStore {
	return newCachedStore(next, redisCache{rdb: rdb}, ttl)
}

func newCachedStore(next UserStore, cache profileCache, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{next: next, cache: cache, ttl: ttl}
}

func (s *CachedStore) GetUser(ctx context.Context, userID int64) (*UserRecord, error) {
	key := global.UserCacheKey(userID)
	if b, ok, err := s.cache.get(ctx, key); err != nil {
		logger.Warn("[UserCache] get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		var rec UserRecord
		if err := json.Unmarshal(b, &rec); err == nil {
			return &rec, nil
		}
		logger.Warn("[UserCache] bad entry", zap.String("key", key))
	}

	rec, err := s.next.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(rec); err == nil {
		if err := s.cache.set(ctx, key, b, s.ttl); err != nil {
			logger.Warn("[UserCache] set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return rec, nil
}
