package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/engramdev/engram/internal/observability"
	"github.com/engramdev/engram/pkg/kv"
	"github.com/engramdev/engram/pkg/workspace"
)

// appendVersion snapshots the entry's current state into its append-only
// version ledger. Scored by snapshot time so history reads newest-first.
func (r *Repository) appendVersion(ctx context.Context, prefix string, entry *MemoryEntry, createdBy, reason string) error {
	v := &MemoryVersion{
		VersionID:    uuid.NewString(),
		MemoryID:     entry.ID,
		Content:      entry.Content,
		ContextType:  entry.ContextType,
		Importance:   entry.Importance,
		Tags:         entry.Tags,
		Summary:      entry.Summary,
		CreatedAt:    r.now(),
		CreatedBy:    createdBy,
		ChangeReason: reason,
	}
	member, err := encodeVersion(v)
	if err != nil {
		return err
	}
	key := workspace.VersionsKey(prefix, entry.ID)
	z := kv.Z{Score: float64(v.CreatedAt.UnixMilli()), Member: member}
	if err := r.store.ZAdd(ctx, key, z); err != nil {
		return fmt.Errorf("failed to append version for memory %s: %w", entry.ID, err)
	}
	observability.RecordVersionWrite()
	return nil
}

// History returns the version ledger of one memory, newest first. A memory
// with no recorded versions yields an empty slice, even if the memory itself
// does not exist.
func (r *Repository) History(ctx context.Context, memoryID string, limit int) ([]*MemoryVersion, error) {
	limit = r.normalizeLimit(limit)

	for _, prefix := range r.resolver.ReadPrefixes(r.workspaceID) {
		members, err := r.store.ZRevRange(ctx, workspace.VersionsKey(prefix, memoryID), 0, int64(limit)-1)
		if err != nil {
			return nil, fmt.Errorf("failed to read version history for %s: %w", memoryID, err)
		}
		if len(members) == 0 {
			continue
		}
		versions := make([]*MemoryVersion, 0, len(members))
		for _, m := range members {
			v, err := decodeVersion(m)
			if err != nil {
				r.logger.Warn().Err(err).Str("memory_id", memoryID).Msg("Skipping undecodable version record")
				continue
			}
			versions = append(versions, v)
		}
		return versions, nil
	}
	return []*MemoryVersion{}, nil
}

// Rollback restores a memory to the state captured by one of its versions.
// The pre-rollback state is snapshotted first, so a rollback is itself
// reversible through the ledger. Content restoration triggers re-embedding.
// With preserveRelationships false, every edge touching the memory is
// deleted after the restore.
func (r *Repository) Rollback(ctx context.Context, memoryID, versionID string, preserveRelationships bool) (*MemoryEntry, error) {
	start := time.Now()

	entry, prefix, err := r.locate(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("memory %s: %w", memoryID, ErrNotFound)
	}

	versions, err := r.History(ctx, memoryID, MaxReadLimit)
	if err != nil {
		return nil, err
	}
	var target *MemoryVersion
	for _, v := range versions {
		if v.VersionID == versionID {
			target = v
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("version %s of memory %s: %w", versionID, memoryID, ErrNotFound)
	}

	if err := r.appendVersion(ctx, prefix, entry, "system", "rollback"); err != nil {
		return nil, err
	}

	prev := *entry
	contentChanged := entry.Content != target.Content
	entry.Content = target.Content
	entry.ContextType = target.ContextType
	entry.Importance = target.Importance
	entry.Tags = target.Tags
	entry.Summary = target.Summary
	if contentChanged {
		entry.Embedding = nil
		r.embedBestEffort(ctx, entry)
	}

	pipe := r.store.Pipeline()
	if err := r.queueRecordRewrite(pipe, prefix, &prev, entry); err != nil {
		return nil, err
	}
	if err := pipe.Exec(ctx); err != nil {
		observability.RecordMemoryWrite("rollback", time.Since(start), false)
		return nil, fmt.Errorf("failed to roll back memory %s: %w", memoryID, err)
	}

	dropped := 0
	if !preserveRelationships {
		if dropped, err = r.dropRelationships(ctx, memoryID); err != nil {
			return nil, err
		}
	}

	observability.RecordMemoryWrite("rollback", time.Since(start), true)
	observability.RecordMutationAudit("memory_rolled_back", "system", "success", map[string]interface{}{
		"memory_id":  memoryID,
		"version_id": versionID,
	})
	r.logger.Info().
		Str("memory_id", memoryID).
		Str("version_id", versionID).
		Int("edges_dropped", dropped).
		Msg("Memory rolled back")
	return entry, nil
}

// PruneVersions trims each ledger to at most keep entries, dropping the
// oldest. keep <= 0 disables pruning. Returns the number of dropped
// snapshots.
func (r *Repository) PruneVersions(ctx context.Context, memoryID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var pruned int64
	for _, prefix := range r.resolver.ReadPrefixes(r.workspaceID) {
		key := workspace.VersionsKey(prefix, memoryID)
		total, err := r.store.ZCard(ctx, key)
		if err != nil {
			return pruned, fmt.Errorf("failed to count versions for %s: %w", memoryID, err)
		}
		if total <= int64(keep) {
			continue
		}
		drop := total - int64(keep)
		if err := r.store.ZRemRangeByRank(ctx, key, 0, drop-1); err != nil {
			return pruned, fmt.Errorf("failed to prune versions for %s: %w", memoryID, err)
		}
		pruned += drop
	}
	return pruned, nil
}
