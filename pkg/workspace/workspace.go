// Package workspace derives stable workspace identifiers from caller paths
// and owns the persisted key layout.
//
// Invariants:
// - Equal paths always hash to equal workspace ids.
// - Global entries live under a fixed namespace disjoint from every workspace.
// - Key shapes are on-disk compatible and never change.
package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// Mode controls whether reads blend global and workspace-scoped entries.
type Mode string

const (
	// ModeIsolated reads workspace-scoped entries only.
	ModeIsolated Mode = "isolated"
	// ModeGlobal reads global entries only.
	ModeGlobal Mode = "global"
	// ModeHybrid blends both namespaces.
	ModeHybrid Mode = "hybrid"
)

// GlobalNamespace is the fixed prefix for memories visible across all
// workspaces.
const GlobalNamespace = "global"

// workspaceIDLength is the hex length of a workspace id (64 bits of sha256).
const workspaceIDLength = 16

// Resolver maps caller paths to workspace namespaces.
type Resolver struct {
	mode Mode
}

// NewResolver creates a resolver for the given scope mode.
func NewResolver(mode Mode) (*Resolver, error) {
	switch mode {
	case ModeIsolated, ModeGlobal, ModeHybrid:
		return &Resolver{mode: mode}, nil
	case "":
		return &Resolver{mode: ModeIsolated}, nil
	default:
		return nil, fmt.Errorf("invalid workspace mode %q (must be: isolated, global, hybrid)", mode)
	}
}

// Mode returns the configured scope mode.
func (r *Resolver) Mode() Mode {
	return r.mode
}

// WorkspaceID hashes a caller-supplied path into a stable identifier.
// Equal paths yield equal ids; distinct paths collide only with negligible
// probability.
func WorkspaceID(path string) string {
	cleaned := filepath.Clean(strings.TrimSpace(path))
	sum := sha256.Sum256([]byte(cleaned))
	return hex.EncodeToString(sum[:])[:workspaceIDLength]
}

// Prefix returns the key namespace for a workspace, or the global namespace
// when isGlobal is set.
func Prefix(workspaceID string, isGlobal bool) string {
	if isGlobal {
		return GlobalNamespace
	}
	return "ws:" + workspaceID
}

// ReadPrefixes lists the namespaces a read should consult for the configured
// mode, workspace first.
func (r *Resolver) ReadPrefixes(workspaceID string) []string {
	switch r.mode {
	case ModeGlobal:
		return []string{GlobalNamespace}
	case ModeHybrid:
		return []string{Prefix(workspaceID, false), GlobalNamespace}
	default:
		return []string{Prefix(workspaceID, false)}
	}
}

// InScope reports whether an entry from the given namespace is readable
// under the configured mode.
func (r *Resolver) InScope(isGlobal bool) bool {
	switch r.mode {
	case ModeGlobal:
		return isGlobal
	case ModeIsolated:
		return !isGlobal
	default:
		return true
	}
}

// Key builders. The first three shapes define on-disk compatibility.

// MemoryKey is the hash record for one memory entry.
func MemoryKey(prefix, id string) string {
	return prefix + ":memory:" + id
}

// TimelineKey is the insertion-ordered sorted set of memory ids, scored by
// creation timestamp.
func TimelineKey(prefix string) string {
	return prefix + ":memories:timeline"
}

// VersionsKey is the append-only version ledger for one memory, scored by
// snapshot timestamp.
func VersionsKey(prefix, id string) string {
	return prefix + ":memory:" + id + ":versions"
}

// TypeIndexKey indexes memory ids by context type.
func TypeIndexKey(prefix, contextType string) string {
	return prefix + ":memories:type:" + contextType
}

// TagIndexKey indexes memory ids by tag.
func TagIndexKey(prefix, tag string) string {
	return prefix + ":memories:tag:" + tag
}

// CategoryIndexKey indexes memory ids by category.
func CategoryIndexKey(prefix, category string) string {
	return prefix + ":memories:category:" + category
}

// RelationshipKey is the hash record for one directed edge.
func RelationshipKey(prefix, id string) string {
	return prefix + ":relationship:" + id
}

// RelationsOutKey holds outgoing edge ids for a memory.
func RelationsOutKey(prefix, id string) string {
	return prefix + ":memory:" + id + ":relations:out"
}

// RelationsInKey holds incoming edge ids for a memory.
func RelationsInKey(prefix, id string) string {
	return prefix + ":memory:" + id + ":relations:in"
}

// ActiveWorkflowKey points at the workspace's active workflow id, if any.
func ActiveWorkflowKey(prefix string) string {
	return prefix + ":workflow:active"
}

// WorkflowKey is the hash record for a workflow.
func WorkflowKey(prefix, id string) string {
	return prefix + ":workflow:" + id
}

// WorkflowMemoriesKey holds the memory ids linked to a workflow.
func WorkflowMemoriesKey(prefix, id string) string {
	return prefix + ":workflow:" + id + ":memories"
}

// SessionKey is the hash record for a named session snapshot.
func SessionKey(prefix, id string) string {
	return prefix + ":session:" + id
}

// SessionsKey is the sorted set of session ids, scored by creation time.
func SessionsKey(prefix string) string {
	return prefix + ":sessions"
}
