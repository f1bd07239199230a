package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/engramdev/engram/internal/observability"
)

// MergeInput configures a consolidation of several memories into one.
type MergeInput struct {
	MemoryIDs []string `json:"memory_ids"`
	KeepID    string   `json:"keep_id,omitempty"` // content/summary source; defaults to the first id
	Summary   string   `json:"summary,omitempty"` // replaces the source's summary when set
}

// MergeResult reports what a merge produced.
type MergeResult struct {
	Merged     *MemoryEntry    `json:"merged"`
	MergedIDs  []string        `json:"merged_ids"`
	Supersedes []*Relationship `json:"supersedes"`
}

// MergeMemories consolidates two or more memories into one new memory. The
// merged memory derives content and summary from the keep_id source, takes
// the maximum importance across inputs, and absorbs the union of all tags
// plus the consolidated marker. Every input gets a supersedes edge from the
// merged memory and the consolidated tag; inputs are kept, not deleted. All
// inputs must exist and be live.
func (r *Repository) MergeMemories(ctx context.Context, in MergeInput) (*MergeResult, error) {
	start := time.Now()

	if len(in.MemoryIDs) < 2 {
		return nil, validationErr("memory_ids", "merge requires at least 2 memories, got %d", len(in.MemoryIDs))
	}
	seen := make(map[string]bool, len(in.MemoryIDs))
	for _, id := range in.MemoryIDs {
		if seen[id] {
			return nil, validationErr("memory_ids", "duplicate memory id %s", id)
		}
		seen[id] = true
	}

	keepID := in.KeepID
	if keepID == "" {
		keepID = in.MemoryIDs[0]
	}
	if !seen[keepID] {
		return nil, validationErr("keep_id", "keep_id %s is not among memory_ids", keepID)
	}

	entries := make(map[string]*MemoryEntry, len(in.MemoryIDs))
	for _, id := range in.MemoryIDs {
		entry, _, err := r.locate(ctx, id)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, fmt.Errorf("memory %s: %w", id, ErrNotFound)
		}
		entries[id] = entry
	}

	source := entries[keepID]
	importance := source.Importance
	tagSet := append([]string(nil), source.Tags...)
	for _, id := range in.MemoryIDs {
		e := entries[id]
		if e.Importance > importance {
			importance = e.Importance
		}
		tagSet = append(tagSet, e.Tags...)
	}
	tagSet = append(tagSet, ConsolidatedTag)

	summary := source.Summary
	if in.Summary != "" {
		summary = in.Summary
	}
	merged, err := r.Create(ctx, CreateInput{
		Content:     source.Content,
		ContextType: source.ContextType,
		Summary:     summary,
		Tags:        dedupeTags(tagSet),
		Importance:  importance,
		IsGlobal:    source.IsGlobal,
		Category:    source.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create merged memory: %w", err)
	}

	result := &MergeResult{Merged: merged}
	for _, id := range in.MemoryIDs {
		rel, err := r.CreateRelationship(ctx, merged.ID, id, RelSupersedes, map[string]string{"reason": "merge"})
		if err != nil {
			return nil, fmt.Errorf("failed to link merged memory %s: %w", id, err)
		}
		result.Supersedes = append(result.Supersedes, rel)

		original := entries[id]
		if !original.HasTag(ConsolidatedTag) {
			tags := dedupeTags(append(append([]string(nil), original.Tags...), ConsolidatedTag))
			if _, err := r.Update(ctx, id, UpdateInput{
				Tags:         &tags,
				ChangedBy:    "system",
				ChangeReason: "merged into " + merged.ID,
			}); err != nil {
				return nil, fmt.Errorf("failed to tag merged memory %s: %w", id, err)
			}
		}
		result.MergedIDs = append(result.MergedIDs, id)
	}

	observability.RecordMerge(len(in.MemoryIDs))
	observability.RecordMutationAudit("memories_merged", "system", "success", map[string]interface{}{
		"merged_id": merged.ID,
		"sources":   result.MergedIDs,
	})
	r.logger.Info().
		Str("merged_id", merged.ID).
		Int("sources", len(result.MergedIDs)).
		Dur("elapsed", time.Since(start)).
		Msg("Memories merged")
	return result, nil
}
