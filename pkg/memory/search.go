package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/engramdev/engram/internal/observability"
	"github.com/engramdev/engram/pkg/workspace"
)

// SearchQuery describes a semantic search over the in-scope corpus.
type SearchQuery struct {
	Text          string      `json:"text"`
	Limit         int         `json:"limit,omitempty"`
	ContextType   ContextType `json:"context_type,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	MinImportance int         `json:"min_importance,omitempty"`
	MinSimilarity float64     `json:"min_similarity,omitempty"`
}

// Search embeds the query text and ranks the in-scope corpus by cosine
// similarity. Entries without a stored vector and entries whose vector
// length differs from the query's are skipped, not errored. Candidates are
// drawn newest-first from each namespace timeline up to the scan limit.
func (r *Repository) Search(ctx context.Context, q SearchQuery) ([]*SearchResult, error) {
	start := time.Now()

	if strings.TrimSpace(q.Text) == "" {
		return nil, validationErr("text", "must not be empty")
	}
	if q.ContextType != "" && !ValidContextTypes[q.ContextType] {
		return nil, validationErr("context_type", "unknown context type %q", q.ContextType)
	}
	if r.embedder == nil {
		return nil, validationErr("text", "semantic search requires an embedding provider")
	}
	limit := r.normalizeLimit(q.Limit)

	queryVec, err := r.embedder.GenerateEmbedding(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var results []*SearchResult
	for _, prefix := range r.resolver.ReadPrefixes(r.workspaceID) {
		ids, err := r.store.ZRevRange(ctx, workspace.TimelineKey(prefix), 0, int64(r.scanLimit)-1)
		if err != nil {
			return nil, fmt.Errorf("failed to read timeline: %w", err)
		}
		for _, id := range ids {
			entry, err := r.getInPrefix(ctx, prefix, id)
			if err != nil {
				return nil, err
			}
			if entry == nil || !matchesQuery(entry, q) {
				continue
			}
			sim, ok := cosineSimilarity(queryVec, entry.Embedding)
			if !ok || sim < q.MinSimilarity {
				continue
			}
			results = append(results, &SearchResult{Memory: entry, Similarity: sim})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		if results[i].Memory.Importance != results[j].Memory.Importance {
			return results[i].Memory.Importance > results[j].Memory.Importance
		}
		return results[i].Memory.Timestamp.After(results[j].Memory.Timestamp)
	})
	if len(results) > limit {
		results = results[:limit]
	}

	observability.RecordSearch(time.Since(start), len(results))
	r.logger.Debug().
		Int("results", len(results)).
		Dur("elapsed", time.Since(start)).
		Msg("Semantic search completed")
	return results, nil
}

func matchesQuery(e *MemoryEntry, q SearchQuery) bool {
	if q.ContextType != "" && e.ContextType != q.ContextType {
		return false
	}
	if q.MinImportance > 0 && e.Importance < q.MinImportance {
		return false
	}
	for _, tag := range q.Tags {
		if !e.HasTag(tag) {
			return false
		}
	}
	return true
}

// cosineSimilarity returns dot(a,b)/(|a||b|). The second return is false
// when either vector is empty, zero-magnitude, or the lengths differ.
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
