// Package store provides list-backed queue stores for the executor.
package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps every queue as a Redis list. Each call maps to a single
// Redis command (or one MULTI block) and is atomic on the server.
type RedisStore struct {
	rdb redis.Cmdable
}

func New(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// PopFront pops up to count items from the head of the list. Needs Redis 6.2+.
func (s *RedisStore) PopFront(ctx context.Context, queue string, count int) ([]string, error) {
	items, err := s.rdb.LPopCount(ctx, queue, count).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return items, err
}

func (s *RedisStore) PushBack(ctx context.Context, queue string, items ...string) (int64, error) {
	if len(items) == 0 {
		return s.rdb.LLen(ctx, queue).Result()
	}
	values := make([]interface{}, len(items))
	for i, item := range items {
		values[i] = item
	}
	return s.rdb.RPush(ctx, queue, values...).Result()
}

// Remove deletes all occurrences of each value from the list.
func (s *RedisStore) Remove(ctx context.Context, queue string, values ...string) error {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return s.rdb.LRem(ctx, queue, 0, values[0]).Err()
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, v := range values {
			pipe.LRem(ctx, queue, 0, v)
		}
		return nil
	})
	return err
}

func (s *RedisStore) Range(ctx context.Context, queue string, start, stop int64) ([]string, error) {
	return s.rdb.LRange(ctx, queue, start, stop).Result()
}

func (s *RedisStore) Len(ctx context.Context, queue string) (int64, error) {
	return s.rdb.LLen(ctx, queue).Result()
}

func (s *RedisStore) Delete(ctx context.Context, queue string) error {
	return s.rdb.Del(ctx, queue).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
