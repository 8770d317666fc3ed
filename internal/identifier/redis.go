package identifier

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const redisKeyPrefix = "complaints:seq:"

// RedisSequencer allocates sequence numbers with INCR. A value consumed by a transaction that
// later rolls back is not reused, so identifiers may have gaps but never repeat.
type RedisSequencer struct {
	client redis.Cmdable
	prefix string
}

func NewRedisSequencer(client redis.Cmdable, prefix string) *RedisSequencer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisSequencer{client: client, prefix: prefix}
}

func (s *RedisSequencer) key(year int) string {
	return fmt.Sprintf("%s%s:%d", redisKeyPrefix, s.prefix, year)
}

func (s *RedisSequencer) Next(ctx context.Context, tx *gorm.DB, year int) (int64, error) {
	key := s.key(year)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis exists %s: %w", key, err)
	}
	if exists == 0 {
		last, err := LastIssued(ctx, tx, s.prefix, year)
		if err != nil {
			return 0, err
		}
		// Concurrent bootstraps compute the same floor; only the first SETNX wins.
		if err := s.client.SetNX(ctx, key, last, 0).Err(); err != nil {
			return 0, fmt.Errorf("redis setnx %s: %w", key, err)
		}
	}

	seq, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return seq, nil
}
