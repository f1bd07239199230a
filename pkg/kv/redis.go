package kv

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of a go-redis client.
type RedisStore struct {
	client *redis.Client
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisStore connects a redis-backed store.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{client: client}
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.client.HSet(ctx, key, fields).Err()
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

func (s *RedisStore) HDel(ctx context.Context, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.client.HDel(ctx, key, fields...).Err()
}

func (s *RedisStore) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return s.client.SAdd(ctx, key, toAny(members)...).Err()
}

func (s *RedisStore) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return s.client.SRem(ctx, key, toAny(members)...).Err()
}

func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func (s *RedisStore) SCard(ctx context.Context, key string) (int64, error) {
	return s.client.SCard(ctx, key).Result()
}

func (s *RedisStore) SUnion(ctx context.Context, keys ...string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return s.client.SUnion(ctx, keys...).Result()
}

func (s *RedisStore) ZAdd(ctx context.Context, key string, members ...Z) error {
	if len(members) == 0 {
		return nil
	}
	return s.client.ZAdd(ctx, key, toRedisZ(members)...).Err()
}

func (s *RedisStore) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return s.client.ZRem(ctx, key, toAny(members)...).Err()
}

func (s *RedisStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.ZRange(ctx, key, start, stop).Result()
}

func (s *RedisStore) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.ZRevRange(ctx, key, start, stop).Result()
}

func (s *RedisStore) ZRangeByScore(ctx context.Context, key string, min, max float64, offset, count int64) ([]string, error) {
	return s.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:    formatScore(min),
		Max:    formatScore(max),
		Offset: offset,
		Count:  count,
	}).Result()
}

func (s *RedisStore) ZRevRangeByScore(ctx context.Context, key string, min, max float64, offset, count int64) ([]string, error) {
	return s.client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:    formatScore(min),
		Max:    formatScore(max),
		Offset: offset,
		Count:  count,
	}).Result()
}

func (s *RedisStore) ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error {
	return s.client.ZRemRangeByRank(ctx, key, start, stop).Err()
}

func (s *RedisStore) ZCard(ctx context.Context, key string) (int64, error) {
	return s.client.ZCard(ctx, key).Result()
}

func (s *RedisStore) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := s.client.ZScore(ctx, key, member).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

func (s *RedisStore) ZCount(ctx context.Context, key string, min, max float64) (int64, error) {
	return s.client.ZCount(ctx, key, formatScore(min), formatScore(max)).Result()
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s *RedisStore) Pipeline() Pipe {
	return &redisPipe{pipe: s.client.Pipeline()}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// redisPipe adapts a go-redis pipeliner to the Pipe interface.
type redisPipe struct {
	pipe redis.Pipeliner
	n    int
}

func (p *redisPipe) Set(key, value string) {
	p.pipe.Set(context.Background(), key, value, 0)
	p.n++
}

func (p *redisPipe) Del(keys ...string) {
	if len(keys) == 0 {
		return
	}
	p.pipe.Del(context.Background(), keys...)
	p.n++
}

func (p *redisPipe) HSet(key string, fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	p.pipe.HSet(context.Background(), key, fields)
	p.n++
}

func (p *redisPipe) HDel(key string, fields ...string) {
	if len(fields) == 0 {
		return
	}
	p.pipe.HDel(context.Background(), key, fields...)
	p.n++
}

func (p *redisPipe) SAdd(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	p.pipe.SAdd(context.Background(), key, toAny(members)...)
	p.n++
}

func (p *redisPipe) SRem(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	p.pipe.SRem(context.Background(), key, toAny(members)...)
	p.n++
}

func (p *redisPipe) ZAdd(key string, members ...Z) {
	if len(members) == 0 {
		return
	}
	p.pipe.ZAdd(context.Background(), key, toRedisZ(members)...)
	p.n++
}

func (p *redisPipe) ZRem(key string, members ...string) {
	if len(members) == 0 {
		return
	}
	p.pipe.ZRem(context.Background(), key, toAny(members)...)
	p.n++
}

func (p *redisPipe) Expire(key string, ttl time.Duration) {
	p.pipe.Expire(context.Background(), key, ttl)
	p.n++
}

func (p *redisPipe) Len() int {
	return p.n
}

func (p *redisPipe) Exec(ctx context.Context) error {
	if p.n == 0 {
		return nil
	}
	_, err := p.pipe.Exec(ctx)
	return err
}

func toAny(members []string) []interface{} {
	out := make([]interface{}, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}

func toRedisZ(members []Z) []redis.Z {
	out := make([]redis.Z, len(members))
	for i, m := range members {
		out[i] = redis.Z{Score: m.Score, Member: m.Member}
	}
	return out
}

func formatScore(v float64) string {
	if math.IsInf(v, 1) {
		return "+inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
