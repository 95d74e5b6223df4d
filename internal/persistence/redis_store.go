package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of go-redis. It carries no
// business logic of its own — every method is a thin, typed wrapper.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-configured *redis.Client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) IncrCounter(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s *RedisStore) HashSet(ctx context.Context, key, field, value string) error {
	return s.client.HSet(ctx, key, field, value).Err()
}

func (s *RedisStore) HashGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

func (s *RedisStore) HashDel(ctx context.Context, key, field string) error {
	return s.client.HDel(ctx, key, field).Err()
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) SetAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.client.SAdd(ctx, key, args...).Err()
}

func (s *RedisStore) SetRemove(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.client.SRem(ctx, key, args...).Err()
}

func (s *RedisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func (s *RedisStore) Pipeline(ctx context.Context, fn func(p Pipeliner) error) error {
	pipe := s.client.Pipeline()
	if err := fn(&redisPipeliner{pipe: pipe}); err != nil {
		pipe.Discard()
		return err
	}
	_, err := pipe.Exec(ctx)
	return err
}

type redisPipeliner struct {
	pipe redis.Pipeliner
}

func (p *redisPipeliner) HashSet(key, field, value string) {
	p.pipe.HSet(context.Background(), key, field, value)
}

func (p *redisPipeliner) Set(key, value string) {
	p.pipe.Set(context.Background(), key, value, 0)
}

func (p *redisPipeliner) Del(keys ...string) {
	p.pipe.Del(context.Background(), keys...)
}

func (p *redisPipeliner) SetAdd(key string, members ...string) {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	p.pipe.SAdd(context.Background(), key, args...)
}

func (p *redisPipeliner) SetRemove(key string, members ...string) {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	p.pipe.SRem(context.Background(), key, args...)
}
