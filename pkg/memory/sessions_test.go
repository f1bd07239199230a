package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdev/engram/pkg/workspace"
)

func TestCreateSessionCapturesWindow(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	early := mustCreate(t, repo, CreateInput{Content: "morning note"})
	cutoff := clock.now.Add(30 * time.Minute)
	clock.advance(time.Hour)
	late := mustCreate(t, repo, CreateInput{Content: "afternoon note"})
	clock.advance(time.Minute)

	session, err := repo.CreateSession(ctx, SessionInput{Name: "all day"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{early.ID, late.ID}, session.MemoryIDs)

	session, err = repo.CreateSession(ctx, SessionInput{Name: "afternoon", Since: cutoff})
	require.NoError(t, err)
	require.Len(t, session.MemoryIDs, 1)
	assert.Equal(t, late.ID, session.MemoryIDs[0])
}

func TestSessionRoundTripAndListing(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	mustCreate(t, repo, CreateInput{Content: "tracked"})
	clock.advance(time.Second)

	first, err := repo.CreateSession(ctx, SessionInput{Name: "first", Summary: "checkpoint"})
	require.NoError(t, err)
	clock.advance(time.Minute)
	second, err := repo.CreateSession(ctx, SessionInput{Name: "second"})
	require.NoError(t, err)

	got, err := repo.GetSession(ctx, first.SessionID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.SessionName)
	assert.Equal(t, "checkpoint", got.Summary)
	assert.Equal(t, first.MemoryIDs, got.MemoryIDs)

	missing, err := repo.GetSession(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	sessions, err := repo.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.SessionID, sessions[0].SessionID, "newest session first")
}

func TestSessionMemoriesFilterDeleted(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	keep := mustCreate(t, repo, CreateInput{Content: "keep"})
	clock.advance(time.Second)
	drop := mustCreate(t, repo, CreateInput{Content: "drop"})
	clock.advance(time.Second)

	session, err := repo.CreateSession(ctx, SessionInput{Name: "snapshot"})
	require.NoError(t, err)
	require.Len(t, session.MemoryIDs, 2)

	_, err = repo.Delete(ctx, drop.ID)
	require.NoError(t, err)

	entries, err := repo.SessionMemories(ctx, session.SessionID)
	require.NoError(t, err)
	require.Len(t, entries, 1, "deleted members are filtered, the snapshot id list is untouched")
	assert.Equal(t, keep.ID, entries[0].ID)

	_, err = repo.SessionMemories(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSessionValidation(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	_, err := repo.CreateSession(ctx, SessionInput{Name: " "})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = repo.CreateSession(ctx, SessionInput{
		Name:  "backwards",
		Since: clock.now.Add(time.Hour),
		Until: clock.now,
	})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestStats(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeHybrid)
	ctx := context.Background()

	oldest := mustCreate(t, repo, CreateInput{Content: "ws decision", ContextType: ContextDecision})
	clock.advance(time.Hour)
	mustCreate(t, repo, CreateInput{Content: "ws info"})
	clock.advance(time.Hour)
	newest := mustCreate(t, repo, CreateInput{Content: "global info", IsGlobal: true})
	clock.advance(time.Second)

	_, err := repo.CreateSession(ctx, SessionInput{Name: "s"})
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalMemories)
	assert.Equal(t, int64(2), stats.WorkspaceMemories)
	assert.Equal(t, int64(1), stats.GlobalMemories)
	assert.Equal(t, int64(1), stats.ByContextType[ContextDecision])
	assert.Equal(t, int64(2), stats.ByContextType[ContextInformation])
	assert.Equal(t, int64(1), stats.Sessions)
	require.NotNil(t, stats.OldestTimestamp)
	require.NotNil(t, stats.NewestTimestamp)
	assert.Equal(t, oldest.Timestamp.UnixMilli(), stats.OldestTimestamp.UnixMilli())
	assert.Equal(t, newest.Timestamp.UnixMilli(), stats.NewestTimestamp.UnixMilli())
}

func TestStatsExcludeExpired(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	mustCreate(t, repo, CreateInput{Content: "fleeting", ContextType: ContextTodo, TTLSeconds: 10})
	clock.advance(time.Second)
	kept := mustCreate(t, repo, CreateInput{Content: "durable"})
	clock.advance(time.Hour)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalMemories, "expired entries are not counted")
	assert.Equal(t, int64(1), stats.WorkspaceMemories)
	assert.Zero(t, stats.ByContextType[ContextTodo])
	assert.Equal(t, int64(1), stats.ByContextType[ContextInformation])
	require.NotNil(t, stats.OldestTimestamp)
	assert.Equal(t, kept.Timestamp.UnixMilli(), stats.OldestTimestamp.UnixMilli(),
		"timeline bounds come from live entries only")
}
