package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/engramdev/engram/internal/observability"
	"github.com/engramdev/engram/pkg/workspace"
)

const (
	// DefaultTraversalDepth is the hop bound when a traversal passes none.
	DefaultTraversalDepth = 1
	// MaxTraversalDepth caps any traversal's hop bound.
	MaxTraversalDepth = 5
	// DefaultGraphNodes bounds graph expansion when the caller passes none.
	DefaultGraphNodes = 50
	// MaxGraphNodes is the hard ceiling on expanded graph size.
	MaxGraphNodes = 500
)

// CreateRelationship persists a directed, typed edge between two existing
// live memories. The edge lives in the source memory's namespace. Self-edges
// are rejected; duplicate edges between the same pair are allowed.
func (r *Repository) CreateRelationship(ctx context.Context, fromID, toID string, relType RelationshipType, metadata map[string]string) (*Relationship, error) {
	if !ValidRelationshipTypes[relType] {
		return nil, validationErr("relationship_type", "unknown relationship type %q", relType)
	}
	if fromID == toID {
		return nil, validationErr("to_memory_id", "self-referencing relationships are not allowed")
	}

	from, fromPrefix, err := r.locate(ctx, fromID)
	if err != nil {
		return nil, err
	}
	if from == nil {
		return nil, fmt.Errorf("source memory %s: %w", fromID, ErrNotFound)
	}
	to, _, err := r.locate(ctx, toID)
	if err != nil {
		return nil, err
	}
	if to == nil {
		return nil, fmt.Errorf("target memory %s: %w", toID, ErrNotFound)
	}

	rel := &Relationship{
		ID:           uuid.NewString(),
		FromMemoryID: fromID,
		ToMemoryID:   toID,
		Type:         relType,
		Metadata:     metadata,
		CreatedAt:    r.now(),
	}
	fields, err := encodeRelationship(rel)
	if err != nil {
		return nil, err
	}

	pipe := r.store.Pipeline()
	pipe.HSet(workspace.RelationshipKey(fromPrefix, rel.ID), fields)
	pipe.SAdd(workspace.RelationsOutKey(fromPrefix, fromID), rel.ID)
	pipe.SAdd(workspace.RelationsInKey(fromPrefix, toID), rel.ID)
	if err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to persist relationship: %w", err)
	}

	observability.RecordRelationshipOp("create")
	r.logger.Debug().
		Str("relationship_id", rel.ID).
		Str("from", fromID).
		Str("to", toID).
		Str("type", string(relType)).
		Msg("Relationship created")
	return rel, nil
}

// DeleteRelationship removes one edge by id. Returns false when no such
// edge exists in any in-scope namespace.
func (r *Repository) DeleteRelationship(ctx context.Context, relID string) (bool, error) {
	rel, prefix, err := r.findRelationship(ctx, relID)
	if err != nil {
		return false, err
	}
	if rel == nil {
		return false, nil
	}

	pipe := r.store.Pipeline()
	pipe.Del(workspace.RelationshipKey(prefix, relID))
	pipe.SRem(workspace.RelationsOutKey(prefix, rel.FromMemoryID), relID)
	pipe.SRem(workspace.RelationsInKey(prefix, rel.ToMemoryID), relID)
	if err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete relationship %s: %w", relID, err)
	}

	observability.RecordRelationshipOp("delete")
	return true, nil
}

func (r *Repository) findRelationship(ctx context.Context, relID string) (*Relationship, string, error) {
	for _, prefix := range r.resolver.ReadPrefixes(r.workspaceID) {
		fields, err := r.store.HGetAll(ctx, workspace.RelationshipKey(prefix, relID))
		if err != nil {
			return nil, "", fmt.Errorf("failed to read relationship %s: %w", relID, err)
		}
		rel, err := decodeRelationship(fields)
		if err != nil {
			return nil, "", err
		}
		if rel != nil {
			return rel, prefix, nil
		}
	}
	return nil, "", nil
}

func (r *Repository) loadRelationship(ctx context.Context, prefix, relID string) (*Relationship, error) {
	fields, err := r.store.HGetAll(ctx, workspace.RelationshipKey(prefix, relID))
	if err != nil {
		return nil, fmt.Errorf("failed to read relationship %s: %w", relID, err)
	}
	rel, err := decodeRelationship(fields)
	if err != nil {
		r.logger.Warn().Err(err).Str("relationship_id", relID).Msg("Skipping undecodable relationship record")
		return nil, nil
	}
	return rel, nil
}

// TraversalOptions bound a RelatedMemories walk.
type TraversalOptions struct {
	Types     []RelationshipType `json:"types,omitempty"`     // empty means all
	MaxDepth  int                `json:"max_depth,omitempty"` // default 1, capped at MaxTraversalDepth
	Direction Direction          `json:"direction,omitempty"` // default both
	Limit     int                `json:"limit,omitempty"`
}

func (r *Repository) normalizeTraversal(opts TraversalOptions) (TraversalOptions, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultTraversalDepth
	}
	if opts.MaxDepth > MaxTraversalDepth {
		opts.MaxDepth = MaxTraversalDepth
	}
	if opts.Direction == "" {
		opts.Direction = DirectionBoth
	}
	switch opts.Direction {
	case DirectionOutgoing, DirectionIncoming, DirectionBoth:
	default:
		return opts, validationErr("direction", "unknown direction %q", opts.Direction)
	}
	for _, t := range opts.Types {
		if !ValidRelationshipTypes[t] {
			return opts, validationErr("types", "unknown relationship type %q", t)
		}
	}
	opts.Limit = r.normalizeLimit(opts.Limit)
	return opts, nil
}

// RelatedMemories walks edges from one memory breadth-first up to MaxDepth
// hops and returns each reachable neighbor once, at its shortest depth.
// Edges whose far endpoint is deleted, expired, or out of scope are skipped
// silently.
func (r *Repository) RelatedMemories(ctx context.Context, id string, opts TraversalOptions) ([]*RelatedMemory, error) {
	opts, err := r.normalizeTraversal(opts)
	if err != nil {
		return nil, err
	}

	origin, _, err := r.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		return nil, fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}

	visited := map[string]bool{id: true}
	frontier := []string{id}
	var results []*RelatedMemory

	for depth := 1; depth <= opts.MaxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, nodeID := range frontier {
			edges, err := r.edgesFor(ctx, nodeID, opts.Direction)
			if err != nil {
				return nil, err
			}
			for _, edge := range edges {
				if len(opts.Types) > 0 && !containsType(opts.Types, edge.Type) {
					continue
				}
				neighborID := edge.ToMemoryID
				if neighborID == nodeID {
					neighborID = edge.FromMemoryID
				}
				if visited[neighborID] {
					continue
				}
				visited[neighborID] = true

				neighbor, _, err := r.locate(ctx, neighborID)
				if err != nil {
					return nil, err
				}
				if neighbor == nil {
					continue
				}
				results = append(results, &RelatedMemory{
					Memory:       neighbor,
					Relationship: edge,
					Depth:        depth,
				})
				next = append(next, neighborID)
				if len(results) >= opts.Limit {
					return results, nil
				}
			}
		}
		frontier = next
	}
	return results, nil
}

// GraphOptions bound a MemoryGraph expansion.
type GraphOptions struct {
	MaxDepth int `json:"max_depth,omitempty"`
	MaxNodes int `json:"max_nodes,omitempty"`
}

// Graph expands the neighborhood around one memory breadth-first, bounded by
// depth and node count. MaxDepthReached identifies which limit truncated the
// walk: it reports pure depth truncation and stays false whenever the node
// cap fired, since the cap limited the walk first.
func (r *Repository) Graph(ctx context.Context, id string, opts GraphOptions) (*MemoryGraph, error) {
	start := time.Now()

	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultTraversalDepth
	}
	if opts.MaxDepth > MaxTraversalDepth {
		opts.MaxDepth = MaxTraversalDepth
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultGraphNodes
	}
	if opts.MaxNodes > MaxGraphNodes {
		opts.MaxNodes = MaxGraphNodes
	}

	root, _, err := r.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}

	graph := &MemoryGraph{
		RootID: id,
		Nodes:  map[string]*GraphNode{id: {Memory: root, Depth: 0}},
	}
	seenEdges := make(map[string]bool)
	frontier := []string{id}
	capped := false

	for depth := 1; len(frontier) > 0; depth++ {
		var next []string
		for _, nodeID := range frontier {
			edges, err := r.edgesFor(ctx, nodeID, DirectionBoth)
			if err != nil {
				return nil, err
			}
			for _, edge := range edges {
				neighborID := edge.ToMemoryID
				if neighborID == nodeID {
					neighborID = edge.FromMemoryID
				}

				if _, known := graph.Nodes[neighborID]; known {
					if !seenEdges[edge.ID] {
						seenEdges[edge.ID] = true
						graph.Edges = append(graph.Edges, edge)
					}
					continue
				}

				neighbor, _, err := r.locate(ctx, neighborID)
				if err != nil {
					return nil, err
				}
				if neighbor == nil {
					continue
				}

				if depth > opts.MaxDepth {
					// A live neighbor exists past the bound: the depth
					// limit, not the corpus, ended this walk.
					graph.MaxDepthReached = true
					continue
				}
				if len(graph.Nodes) >= opts.MaxNodes {
					capped = true
					continue
				}

				graph.Nodes[neighborID] = &GraphNode{Memory: neighbor, Depth: depth}
				if !seenEdges[edge.ID] {
					seenEdges[edge.ID] = true
					graph.Edges = append(graph.Edges, edge)
				}
				next = append(next, neighborID)
			}
		}
		if depth > opts.MaxDepth {
			break
		}
		frontier = next
	}
	if capped {
		// The cap cut the walk before the depth bound could.
		graph.MaxDepthReached = false
	}

	r.logger.Debug().
		Str("root", id).
		Int("nodes", len(graph.Nodes)).
		Int("edges", len(graph.Edges)).
		Bool("max_depth_reached", graph.MaxDepthReached).
		Dur("elapsed", time.Since(start)).
		Msg("Memory graph expanded")
	return graph, nil
}

// dropRelationships deletes every edge touching one memory across the
// in-scope namespaces, both directions. Returns the number of edges removed.
func (r *Repository) dropRelationships(ctx context.Context, memID string) (int, error) {
	dropped := 0
	for _, prefix := range r.resolver.ReadPrefixes(r.workspaceID) {
		outIDs, err := r.store.SMembers(ctx, workspace.RelationsOutKey(prefix, memID))
		if err != nil {
			return dropped, fmt.Errorf("failed to read outgoing edges: %w", err)
		}
		inIDs, err := r.store.SMembers(ctx, workspace.RelationsInKey(prefix, memID))
		if err != nil {
			return dropped, fmt.Errorf("failed to read incoming edges: %w", err)
		}

		pipe := r.store.Pipeline()
		seen := make(map[string]bool, len(outIDs)+len(inIDs))
		for _, relID := range append(outIDs, inIDs...) {
			if seen[relID] {
				continue
			}
			seen[relID] = true
			pipe.Del(workspace.RelationshipKey(prefix, relID))
			rel, err := r.loadRelationship(ctx, prefix, relID)
			if err != nil {
				return dropped, err
			}
			if rel != nil {
				pipe.SRem(workspace.RelationsOutKey(prefix, rel.FromMemoryID), relID)
				pipe.SRem(workspace.RelationsInKey(prefix, rel.ToMemoryID), relID)
			}
		}
		pipe.Del(workspace.RelationsOutKey(prefix, memID), workspace.RelationsInKey(prefix, memID))
		if err := pipe.Exec(ctx); err != nil {
			return dropped, fmt.Errorf("failed to drop edges for memory %s: %w", memID, err)
		}
		for range seen {
			observability.RecordRelationshipOp("delete")
		}
		dropped += len(seen)
	}
	return dropped, nil
}

// edgesFor collects the edges touching one memory across the in-scope
// namespaces, following the requested direction.
func (r *Repository) edgesFor(ctx context.Context, memID string, dir Direction) ([]*Relationship, error) {
	var edges []*Relationship
	seen := make(map[string]bool)

	for _, prefix := range r.resolver.ReadPrefixes(r.workspaceID) {
		var relIDs []string
		if dir == DirectionOutgoing || dir == DirectionBoth {
			ids, err := r.store.SMembers(ctx, workspace.RelationsOutKey(prefix, memID))
			if err != nil {
				return nil, fmt.Errorf("failed to read outgoing edges: %w", err)
			}
			relIDs = append(relIDs, ids...)
		}
		if dir == DirectionIncoming || dir == DirectionBoth {
			ids, err := r.store.SMembers(ctx, workspace.RelationsInKey(prefix, memID))
			if err != nil {
				return nil, fmt.Errorf("failed to read incoming edges: %w", err)
			}
			relIDs = append(relIDs, ids...)
		}
		for _, relID := range relIDs {
			if seen[relID] {
				continue
			}
			seen[relID] = true
			rel, err := r.loadRelationship(ctx, prefix, relID)
			if err != nil {
				return nil, err
			}
			if rel != nil {
				edges = append(edges, rel)
			}
		}
	}
	return edges, nil
}

func containsType(types []RelationshipType, t RelationshipType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
