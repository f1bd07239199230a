package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdev/engram/pkg/workspace"
)

func TestWorkflowLifecycle(t *testing.T) {
	repo, _ := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	active, err := repo.ActiveWorkflow(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)

	wf, err := repo.StartWorkflow(ctx, "auth refactor")
	require.NoError(t, err)
	assert.Equal(t, WorkflowStatusActive, wf.Status)

	active, err = repo.ActiveWorkflow(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, wf.ID, active.ID)

	completed, err := repo.CompleteWorkflow(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, WorkflowStatusCompleted, completed.Status)

	active, err = repo.ActiveWorkflow(ctx)
	require.NoError(t, err)
	assert.Nil(t, active, "completion clears the active marker")
}

func TestCreateLinksToActiveWorkflow(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	wf, err := repo.StartWorkflow(ctx, "migration")
	require.NoError(t, err)

	entry := mustCreate(t, repo, CreateInput{Content: "step one"})
	clock.advance(time.Second)

	linked, err := repo.WorkflowMemories(ctx, wf.ID, 0)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, entry.ID, linked[0].ID)

	active, err := repo.ActiveWorkflow(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active.MemoryCount)
}

func TestWorkflowLinkIsIdempotentAcrossUpdates(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	wf, err := repo.StartWorkflow(ctx, "cleanup")
	require.NoError(t, err)

	entry := mustCreate(t, repo, CreateInput{Content: "first pass"})

	for _, next := range []string{"second pass", "third pass"} {
		clock.advance(time.Minute)
		content := next
		_, err := repo.Update(ctx, entry.ID, UpdateInput{Content: &content})
		require.NoError(t, err)
	}

	linked, err := repo.WorkflowMemories(ctx, wf.ID, 0)
	require.NoError(t, err)
	assert.Len(t, linked, 1)

	active, err := repo.ActiveWorkflow(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active.MemoryCount, "relinking the same memory must not inflate the count")
}

func TestGlobalMemoriesSkipWorkflowHook(t *testing.T) {
	repo, _ := newTestRepo(t, workspace.ModeHybrid)
	ctx := context.Background()

	wf, err := repo.StartWorkflow(ctx, "scoped work")
	require.NoError(t, err)

	mustCreate(t, repo, CreateInput{Content: "shared fact", IsGlobal: true})

	linked, err := repo.WorkflowMemories(ctx, wf.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, linked)
}

func TestBatchCreateCountsEachLinkedMemoryOnce(t *testing.T) {
	repo, _ := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	wf, err := repo.StartWorkflow(ctx, "batch work")
	require.NoError(t, err)

	_, err = repo.BatchCreate(ctx, []CreateInput{
		{Content: "one", ContextType: ContextInformation, Importance: 5},
		{Content: "two", ContextType: ContextInformation, Importance: 5},
	})
	require.NoError(t, err)

	linked, err := repo.WorkflowMemories(ctx, wf.ID, 0)
	require.NoError(t, err)
	assert.Len(t, linked, 2)

	active, err := repo.ActiveWorkflow(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active.MemoryCount)
}

func TestCompleteWorkflowMissing(t *testing.T) {
	repo, _ := newTestRepo(t, workspace.ModeIsolated)

	_, err := repo.CompleteWorkflow(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStartWorkflowReplacesActive(t *testing.T) {
	repo, _ := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	first, err := repo.StartWorkflow(ctx, "first")
	require.NoError(t, err)
	second, err := repo.StartWorkflow(ctx, "second")
	require.NoError(t, err)

	active, err := repo.ActiveWorkflow(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	// The replaced workflow record survives.
	old, err := repo.WorkflowMemories(ctx, first.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, old)
}
