package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramdev/engram/pkg/workspace"
)

func TestGraphActionDispatch(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	a := mustCreate(t, repo, CreateInput{Content: "a"})
	clock.advance(time.Second)
	b := mustCreate(t, repo, CreateInput{Content: "b"})

	out, err := repo.GraphAction(ctx, GraphActionInput{
		Action:           "create_relationship",
		FromMemoryID:     a.ID,
		ToMemoryID:       b.ID,
		RelationshipType: RelRelatedTo,
	})
	require.NoError(t, err)
	rel, ok := out.(*Relationship)
	require.True(t, ok)

	out, err = repo.GraphAction(ctx, GraphActionInput{Action: "related_memories", MemoryID: a.ID})
	require.NoError(t, err)
	related, ok := out.([]*RelatedMemory)
	require.True(t, ok)
	require.Len(t, related, 1)

	out, err = repo.GraphAction(ctx, GraphActionInput{Action: "delete_relationship", RelationshipID: rel.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"deleted": true}, out)

	_, err = repo.GraphAction(ctx, GraphActionInput{Action: "explode"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestWorkflowActionDispatch(t *testing.T) {
	repo, _ := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	out, err := repo.WorkflowAction(ctx, WorkflowActionInput{Action: "start", Name: "task"})
	require.NoError(t, err)
	wf, ok := out.(*Workflow)
	require.True(t, ok)

	out, err = repo.WorkflowAction(ctx, WorkflowActionInput{Action: "active"})
	require.NoError(t, err)
	active, ok := out.(*Workflow)
	require.True(t, ok)
	assert.Equal(t, wf.ID, active.ID)

	_, err = repo.WorkflowAction(ctx, WorkflowActionInput{Action: "pause"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestMaintenanceActionDispatch(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	mustCreate(t, repo, CreateInput{Content: "short lived", TTLSeconds: 1})
	clock.advance(time.Minute)

	out, err := repo.MaintenanceAction(ctx, MaintenanceActionInput{Action: "sweep_expired"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"reclaimed": 1}, out)

	out, err = repo.MaintenanceAction(ctx, MaintenanceActionInput{Action: "stats"})
	require.NoError(t, err)
	_, ok := out.(*SummaryStats)
	require.True(t, ok)

	_, err = repo.MaintenanceAction(ctx, MaintenanceActionInput{Action: "defrag"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestCategoryActionDispatch(t *testing.T) {
	repo, clock := newTestRepo(t, workspace.ModeIsolated)
	ctx := context.Background()

	entry := mustCreate(t, repo, CreateInput{Content: "tagged later"})
	clock.advance(time.Minute)

	out, err := repo.CategoryAction(ctx, CategoryActionInput{
		Action:   "assign",
		MemoryID: entry.ID,
		Category: "infra",
	})
	require.NoError(t, err)
	updated, ok := out.(*MemoryEntry)
	require.True(t, ok)
	assert.Equal(t, "infra", updated.Category)

	out, err = repo.CategoryAction(ctx, CategoryActionInput{Action: "list", Category: "infra"})
	require.NoError(t, err)
	listed, ok := out.([]*MemoryEntry)
	require.True(t, ok)
	require.Len(t, listed, 1)
	assert.Equal(t, entry.ID, listed[0].ID)

	_, err = repo.CategoryAction(ctx, CategoryActionInput{Action: "rename"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}
