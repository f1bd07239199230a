package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalars(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v"))
	val, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", val)

	exists, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Del(ctx, "k"))
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashes(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.HSet(ctx, "h", map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, s.HSet(ctx, "h", map[string]string{"b": "3", "c": "4"}))

	fields, err := s.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "3", "c": "4"}, fields, "HSet merges fields")

	require.NoError(t, s.HDel(ctx, "h", "a", "c"))
	fields, err = s.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"b": "3"}, fields)

	fields, err = s.HGetAll(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestSets(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.SAdd(ctx, "s", "b", "a", "b"))
	members, err := s.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, members, "members deduplicated and sorted")

	card, err := s.SCard(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(2), card)

	require.NoError(t, s.SAdd(ctx, "s2", "b", "c"))
	union, err := s.SUnion(ctx, "s", "s2")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, union)

	require.NoError(t, s.SRem(ctx, "s", "a"))
	members, err = s.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func zfix(t *testing.T, s *MemStore) {
	t.Helper()
	require.NoError(t, s.ZAdd(context.Background(), "z",
		Z{Score: 3, Member: "c"},
		Z{Score: 1, Member: "a"},
		Z{Score: 2, Member: "b"},
		Z{Score: 2, Member: "bb"},
	))
}

func TestZRangeOrdering(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	zfix(t, s)

	members, err := s.ZRange(ctx, "z", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "bb", "c"}, members, "score ascending, member tie-break")

	members, err = s.ZRevRange(ctx, "z", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "bb"}, members)

	members, err = s.ZRange(ctx, "z", -2, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"bb", "c"}, members, "negative indices count from the end")

	members, err = s.ZRange(ctx, "z", 5, 9)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestZRangeByScore(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	zfix(t, s)

	members, err := s.ZRangeByScore(ctx, "z", 2, 3, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "bb", "c"}, members)

	members, err = s.ZRevRangeByScore(ctx, "z", 1, 2, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"bb", "b"}, members)

	members, err = s.ZRangeByScore(ctx, "z", 1, 3, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "bb"}, members, "offset and count apply after the score filter")

	count, err := s.ZCount(ctx, "z", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestZRemRangeByRank(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	zfix(t, s)

	require.NoError(t, s.ZRemRangeByRank(ctx, "z", 0, 1))
	members, err := s.ZRange(ctx, "z", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"bb", "c"}, members, "oldest ranks removed")

	card, err := s.ZCard(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, int64(2), card)
}

func TestZScore(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	zfix(t, s)

	score, ok, err := s.ZScore(ctx, "z", "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2.0, score)

	_, ok, err = s.ZScore(ctx, "z", "zzz")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpireLazily(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", "v"))
	require.NoError(t, s.Expire(ctx, "k", 5*time.Millisecond))

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(10 * time.Millisecond)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPipelineBatchesWrites(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	pipe := s.Pipeline()
	pipe.Set("k", "v")
	pipe.HSet("h", map[string]string{"a": "1"})
	pipe.SAdd("s", "m")
	pipe.ZAdd("z", Z{Score: 1, Member: "m"})
	assert.Equal(t, 4, pipe.Len())

	// Nothing applied before Exec.
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, pipe.Exec(ctx))

	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	card, err := s.ZCard(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, int64(1), card)
	assert.Zero(t, pipe.Len(), "queue drains after exec")
}
