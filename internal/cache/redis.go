// internal/cache/redis.go
//
// Redis-backed Cache.  All errors are logged at Warn and reported to the
// caller as a miss; the serving path must keep working when Redis is
// down, only slower.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis wraps a go-redis client behind the Cache interface.
type Redis struct {
	rdb *redis.Client
}

// NewRedis dials addr and pings it once so bootstrap fails fast on a
// misconfigured address.  db selects the redis logical database.
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.S().Warnw("cache get failed", "key", key, "err", err)
		}
		return nil, false
	}
	return raw, true
}

func (r *Redis) Set(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		zap.S().Warnw("cache marshal failed", "key", key, "err", err)
		return
	}
	if err := r.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		zap.S().Warnw("cache set failed", "key", key, "err", err)
	}
}

func (r *Redis) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		zap.S().Warnw("cache delete failed", "keys", keys, "err", err)
	}
}

func (r *Redis) Close() error { return r.rdb.Close() }
