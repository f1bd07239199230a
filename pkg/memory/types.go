package memory

import "time"

// ContextType classifies what a memory entry captures.
type ContextType string

const (
	ContextDirective   ContextType = "directive"
	ContextInformation ContextType = "information"
	ContextHeading     ContextType = "heading"
	ContextDecision    ContextType = "decision"
	ContextCodePattern ContextType = "code_pattern"
	ContextRequirement ContextType = "requirement"
	ContextError       ContextType = "error"
	ContextTodo        ContextType = "todo"
	ContextInsight     ContextType = "insight"
	ContextPreference  ContextType = "preference"
)

// ValidContextTypes are the allowed context types.
var ValidContextTypes = map[ContextType]bool{
	ContextDirective:   true,
	ContextInformation: true,
	ContextHeading:     true,
	ContextDecision:    true,
	ContextCodePattern: true,
	ContextRequirement: true,
	ContextError:       true,
	ContextTodo:        true,
	ContextInsight:     true,
	ContextPreference:  true,
}

// RelationshipType labels a directed edge between two memories.
type RelationshipType string

const (
	RelRelatedTo   RelationshipType = "related_to"
	RelSupersedes  RelationshipType = "supersedes"
	RelContradicts RelationshipType = "contradicts"
	RelDependsOn   RelationshipType = "depends_on"
	RelRefines     RelationshipType = "refines"
	RelCausedBy    RelationshipType = "caused_by"
	RelPartOf      RelationshipType = "part_of"
)

// ValidRelationshipTypes are the allowed relationship types.
var ValidRelationshipTypes = map[RelationshipType]bool{
	RelRelatedTo:   true,
	RelSupersedes:  true,
	RelContradicts: true,
	RelDependsOn:   true,
	RelRefines:     true,
	RelCausedBy:    true,
	RelPartOf:      true,
}

// ConsolidatedTag marks memories produced by or absorbed into a merge.
const ConsolidatedTag = "consolidated"

// MemoryEntry is one stored memory.
type MemoryEntry struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	ContextType ContextType `json:"context_type"`
	Content     string      `json:"content"`
	Summary     string      `json:"summary,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Importance  int         `json:"importance"`
	Embedding   []float32   `json:"embedding,omitempty"`
	TTLSeconds  int64       `json:"ttl_seconds,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	WorkspaceID string      `json:"workspace_id"`
	IsGlobal    bool        `json:"is_global"`
	Category    string      `json:"category,omitempty"`
}

// Expired reports whether the entry is past its expiry. The boundary is
// exclusive: an entry exactly at expires_at is already expired.
func (e *MemoryEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && !now.Before(*e.ExpiresAt)
}

// HasTag reports whether the entry carries the tag.
func (e *MemoryEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Relationship is a directed, typed edge between two memories. Edges are
// tolerated to dangle once an endpoint is deleted; read paths filter them.
type Relationship struct {
	ID           string            `json:"id"`
	FromMemoryID string            `json:"from_memory_id"`
	ToMemoryID   string            `json:"to_memory_id"`
	Type         RelationshipType  `json:"relationship_type"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// MemoryVersion is an append-only snapshot of a memory's pre-update state.
type MemoryVersion struct {
	VersionID    string      `json:"version_id"`
	MemoryID     string      `json:"memory_id"`
	Content      string      `json:"content"`
	ContextType  ContextType `json:"context_type"`
	Importance   int         `json:"importance"`
	Tags         []string    `json:"tags,omitempty"`
	Summary      string      `json:"summary,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	CreatedBy    string      `json:"created_by"`
	ChangeReason string      `json:"change_reason,omitempty"`
}

// Session is a named snapshot of a time window's memories.
type Session struct {
	SessionID   string    `json:"session_id"`
	SessionName string    `json:"session_name"`
	MemoryIDs   []string  `json:"memory_ids"`
	Summary     string    `json:"summary,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Workflow is the explicit per-workspace active-workflow state record passed
// into the create/update hook.
type Workflow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	MemoryCount int64     `json:"memory_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// SearchResult pairs a memory with its cosine similarity against the query.
type SearchResult struct {
	Memory     *MemoryEntry `json:"memory"`
	Similarity float64      `json:"similarity"`
}

// Direction selects which edges a traversal follows.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// RelatedMemory is one traversal hit: the neighbor, the edge that reached
// it, and the hop count from the origin.
type RelatedMemory struct {
	Memory       *MemoryEntry  `json:"memory"`
	Relationship *Relationship `json:"relationship"`
	Depth        int           `json:"depth"`
}

// GraphNode is one node of an expanded memory graph.
type GraphNode struct {
	Memory *MemoryEntry `json:"memory"`
	Depth  int          `json:"depth"`
}

// MemoryGraph is the result of a bounded breadth-first expansion.
// MaxDepthReached is true only when the depth bound limited the walk; it
// stays false when the node cap fired first.
type MemoryGraph struct {
	RootID          string                `json:"root_id"`
	Nodes           map[string]*GraphNode `json:"nodes"`
	Edges           []*Relationship       `json:"edges"`
	MaxDepthReached bool                  `json:"max_depth_reached"`
}

// SummaryStats aggregates corpus counts for the configured scope.
type SummaryStats struct {
	TotalMemories     int64                 `json:"total_memories"`
	WorkspaceMemories int64                 `json:"workspace_memories"`
	GlobalMemories    int64                 `json:"global_memories"`
	ByContextType     map[ContextType]int64 `json:"by_context_type"`
	Sessions          int64                 `json:"sessions"`
	OldestTimestamp   *time.Time            `json:"oldest_timestamp,omitempty"`
	NewestTimestamp   *time.Time            `json:"newest_timestamp,omitempty"`
}
