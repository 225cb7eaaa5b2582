package cache

import (
	"context"
	"errors"
	"time"

	apperrors "visa-tracker/internal/common/errors"
	"visa-tracker/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// Redis stores entries under prefix+key.
type Redis struct {
	client redis.Cmdable
	prefix string
}

func NewRedis(client redis.Cmdable, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false, apperrors.NewCacheFailureError("get", err)
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.prefix+key, string(value), ttl).Err(); err != nil {
		return apperrors.NewCacheFailureError("set", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = r.prefix + k
	}
	if err := r.client.Del(ctx, prefixed...).Err(); err != nil {
		return apperrors.NewCacheFailureError("delete", err)
	}
	return nil
}
