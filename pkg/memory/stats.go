package memory

import (
	"context"
	"fmt"

	"github.com/engramdev/engram/internal/observability"
	"github.com/engramdev/engram/pkg/workspace"
)

// Stats aggregates corpus counts for the configured scope. Counts only live
// entries: lazily expired records still sitting on the timeline are filtered
// the same way every other read path filters them. Scans up to the configured
// scan limit per namespace.
func (r *Repository) Stats(ctx context.Context) (*SummaryStats, error) {
	stats := &SummaryStats{
		ByContextType: make(map[ContextType]int64),
	}

	wsPrefix := workspace.Prefix(r.workspaceID, false)
	for _, prefix := range r.resolver.ReadPrefixes(r.workspaceID) {
		ids, err := r.store.ZRange(ctx, workspace.TimelineKey(prefix), 0, int64(r.scanLimit)-1)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timeline: %w", err)
		}

		var live int64
		for _, id := range ids {
			entry, err := r.getInPrefix(ctx, prefix, id)
			if err != nil {
				return nil, err
			}
			if entry == nil {
				continue
			}
			live++
			stats.ByContextType[entry.ContextType]++
			if stats.OldestTimestamp == nil || entry.Timestamp.Before(*stats.OldestTimestamp) {
				ts := entry.Timestamp
				stats.OldestTimestamp = &ts
			}
			if stats.NewestTimestamp == nil || entry.Timestamp.After(*stats.NewestTimestamp) {
				ts := entry.Timestamp
				stats.NewestTimestamp = &ts
			}
		}

		if prefix == wsPrefix {
			stats.WorkspaceMemories = live
		} else {
			stats.GlobalMemories = live
		}
		stats.TotalMemories += live
	}

	sessions, err := r.store.ZCard(ctx, workspace.SessionsKey(wsPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	stats.Sessions = sessions

	observability.SetCorpusSize(stats.TotalMemories)
	return stats, nil
}
