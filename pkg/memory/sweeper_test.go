package memory

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdev/engram/pkg/workspace"
)

func TestSweepExpiredReclaimsLazilyExpired(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	keep := mustCreate(t, repo, CreateInput{Content: "permanent", Tags: []string{"t"}})
	clock.advance(time.Second)
	mustCreate(t, repo, CreateInput{Content: "short", Tags: []string{"t"}, TTLSeconds: 30})
	clock.advance(time.Minute)

	reclaimed, err := repo.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reclaimed)

	recent, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, keep.ID, recent[0].ID)

	// Second pass finds nothing.
	reclaimed, err = repo.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, reclaimed)
}

func TestPruneAllVersions(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	entry := mustCreate(t, repo, CreateInput{Content: "v0"})
	for _, next := range []string{"v1", "v2", "v3"} {
		clock.advance(time.Minute)
		content := next
		_, err := repo.Update(ctx, entry.ID, UpdateInput{Content: &content})
		require.NoError(t, err)
	}

	pruned, err := repo.PruneAllVersions(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pruned)

	history, err := repo.History(ctx, entry.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "v2", history[0].Content)
}

func TestSweeperRunOnce(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	mustCreate(t, repo, CreateInput{Content: "doomed", TTLSeconds: 1})
	clock.advance(time.Minute)

	sweeper := NewSweeper(repo, SweeperConfig{Logger: zerolog.Nop()})
	sweeper.RunOnce(ctx)

	recent, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
