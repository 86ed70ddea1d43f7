package repositories

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisRepository struct {
	rdb *redis.Client
}

func NewRedisRepository(rdb *redis.Client) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

func blacklistKey(jti string) string {
	return "blacklist:" + jti
}

// Blacklist marks jti as revoked for ttl. A non-positive ttl means the token has already
// expired and nothing is stored.
func (r *RedisRepository) Blacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, blacklistKey(jti), "true", ttl).Err()
}

func (r *RedisRepository) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := r.rdb.Exists(ctx, blacklistKey(jti)).Result()
	return exists == 1, err
}
