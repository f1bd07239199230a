package kv

import (
	"context"
	"time"
)

// Z pairs a sorted-set member with its score.
type Z struct {
	Score  float64
	Member string
}

// Store is the capability set the memory engine requires from a key-value
// backend. Two wire-compatible implementations exist (redis, in-process);
// one is selected at startup via configuration.
//
// Errors from the backend are propagated unchanged; retry policy belongs to
// the caller.
type Store interface {
	// Scalars
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)

	// Hashes
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) error

	// Sets
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
	SUnion(ctx context.Context, keys ...string) ([]string, error)

	// Sorted sets
	ZAdd(ctx context.Context, key string, members ...Z) error
	ZRem(ctx context.Context, key string, members ...string) error
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZRangeByScore(ctx context.Context, key string, min, max float64, offset, count int64) ([]string, error)
	ZRevRangeByScore(ctx context.Context, key string, min, max float64, offset, count int64) ([]string, error)
	ZRemRangeByRank(ctx context.Context, key string, start, stop int64) error
	ZCard(ctx context.Context, key string) (int64, error)
	ZScore(ctx context.Context, key, member string) (float64, bool, error)
	ZCount(ctx context.Context, key string, min, max float64) (int64, error)

	// Expiration
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// Pipeline returns a builder that queues mutations and executes them as
	// one round trip. The batch carries no cross-client atomicity guarantee:
	// concurrent writers touching the same keys may interleave.
	Pipeline() Pipe

	Close() error
}

// Pipe queues write commands for a single batched execution.
type Pipe interface {
	Set(key, value string)
	Del(keys ...string)
	HSet(key string, fields map[string]string)
	HDel(key string, fields ...string)
	SAdd(key string, members ...string)
	SRem(key string, members ...string)
	ZAdd(key string, members ...Z)
	ZRem(key string, members ...string)
	Expire(key string, ttl time.Duration)

	// Len reports the number of queued commands.
	Len() int

	Exec(ctx context.Context) error
}
