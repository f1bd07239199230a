package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/engramdev/engram/pkg/kv"
	"github.com/engramdev/engram/pkg/workspace"
)

// Workflow state is explicit per-workspace: one optional active workflow at
// a time. The creation hook links new workspace memories to it.

const (
	WorkflowStatusActive    = "active"
	WorkflowStatusCompleted = "completed"
)

// StartWorkflow creates a workflow and marks it active for this workspace,
// replacing any previously active one (the old workflow record stays).
func (r *Repository) StartWorkflow(ctx context.Context, name string) (*Workflow, error) {
	if strings.TrimSpace(name) == "" {
		return nil, validationErr("name", "must not be empty")
	}

	wf := &Workflow{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    WorkflowStatusActive,
		CreatedAt: r.now(),
	}
	prefix := workspace.Prefix(r.workspaceID, false)

	pipe := r.store.Pipeline()
	pipe.HSet(workspace.WorkflowKey(prefix, wf.ID), encodeWorkflow(wf))
	pipe.Set(workspace.ActiveWorkflowKey(prefix), wf.ID)
	if err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to start workflow: %w", err)
	}

	r.logger.Info().Str("workflow_id", wf.ID).Str("name", name).Msg("Workflow started")
	return wf, nil
}

// ActiveWorkflow returns this workspace's active workflow, nil when none.
func (r *Repository) ActiveWorkflow(ctx context.Context) (*Workflow, error) {
	prefix := workspace.Prefix(r.workspaceID, false)
	id, ok, err := r.store.Get(ctx, workspace.ActiveWorkflowKey(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to read active workflow: %w", err)
	}
	if !ok || id == "" {
		return nil, nil
	}
	return r.getWorkflow(ctx, prefix, id)
}

func (r *Repository) getWorkflow(ctx context.Context, prefix, id string) (*Workflow, error) {
	fields, err := r.store.HGetAll(ctx, workspace.WorkflowKey(prefix, id))
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow %s: %w", id, err)
	}
	return decodeWorkflow(fields)
}

// CompleteWorkflow marks a workflow completed and clears the active marker
// when it points at this workflow.
func (r *Repository) CompleteWorkflow(ctx context.Context, workflowID string) (*Workflow, error) {
	prefix := workspace.Prefix(r.workspaceID, false)
	wf, err := r.getWorkflow(ctx, prefix, workflowID)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, ErrNotFound)
	}

	wf.Status = WorkflowStatusCompleted

	pipe := r.store.Pipeline()
	pipe.HSet(workspace.WorkflowKey(prefix, workflowID), map[string]string{"status": WorkflowStatusCompleted})

	activeID, ok, err := r.store.Get(ctx, workspace.ActiveWorkflowKey(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to read active workflow: %w", err)
	}
	if ok && activeID == workflowID {
		pipe.Del(workspace.ActiveWorkflowKey(prefix))
	}
	if err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to complete workflow %s: %w", workflowID, err)
	}

	r.logger.Info().Str("workflow_id", workflowID).Msg("Workflow completed")
	return wf, nil
}

// WorkflowMemories returns the live memories linked to a workflow, newest
// first.
func (r *Repository) WorkflowMemories(ctx context.Context, workflowID string, limit int) ([]*MemoryEntry, error) {
	limit = r.normalizeLimit(limit)
	prefix := workspace.Prefix(r.workspaceID, false)

	wf, err := r.getWorkflow(ctx, prefix, workflowID)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, ErrNotFound)
	}

	ids, err := r.store.SMembers(ctx, workspace.WorkflowMemoriesKey(prefix, workflowID))
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow memories: %w", err)
	}
	var entries []*MemoryEntry
	for _, id := range ids {
		entry, err := r.getInPrefix(ctx, prefix, id)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, entry)
		}
	}
	sortByRecency(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// queueWorkflowLink appends the active-workflow link commands for a new or
// updated workspace memory onto the caller's batch.
func (r *Repository) queueWorkflowLink(ctx context.Context, pipe kv.Pipe, memoryID string) {
	r.queueWorkflowLinks(ctx, pipe, []string{memoryID})
}

// queueWorkflowLinks links workspace memories to the active workflow in the
// caller's batch. Idempotent within a workflow: already linked ids add
// nothing and the count stays put. Hook failures are logged and swallowed;
// the memory write must not abort because workflow state is unreadable.
func (r *Repository) queueWorkflowLinks(ctx context.Context, pipe kv.Pipe, memoryIDs []string) {
	if len(memoryIDs) == 0 {
		return
	}
	prefix := workspace.Prefix(r.workspaceID, false)

	activeID, ok, err := r.store.Get(ctx, workspace.ActiveWorkflowKey(prefix))
	if err != nil {
		r.logger.Warn().Err(err).Msg("Workflow hook skipped: active workflow unreadable")
		return
	}
	if !ok || activeID == "" {
		return
	}

	wf, err := r.getWorkflow(ctx, prefix, activeID)
	if err != nil || wf == nil {
		r.logger.Warn().Err(err).Str("workflow_id", activeID).Msg("Workflow hook skipped: workflow record unreadable")
		return
	}

	members, err := r.store.SMembers(ctx, workspace.WorkflowMemoriesKey(prefix, activeID))
	if err != nil {
		r.logger.Warn().Err(err).Str("workflow_id", activeID).Msg("Workflow hook skipped: membership unreadable")
		return
	}
	linked := make(map[string]bool, len(members))
	for _, m := range members {
		linked[m] = true
	}

	added := int64(0)
	for _, id := range memoryIDs {
		if linked[id] {
			continue
		}
		linked[id] = true
		pipe.SAdd(workspace.WorkflowMemoriesKey(prefix, activeID), id)
		added++
	}
	if added == 0 {
		return
	}
	pipe.HSet(workspace.WorkflowKey(prefix, activeID), map[string]string{
		"memory_count": strconv.FormatInt(wf.MemoryCount+added, 10),
	})
}
