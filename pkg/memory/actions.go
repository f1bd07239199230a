package memory

import (
	"context"
)

// Multi-operation entry points mirror the agent-facing surface: one request
// carries an action discriminator plus the union of that action's
// parameters. Unknown actions are validation failures, not routing errors.

// GraphActionInput is the parameter union for graph actions.
type GraphActionInput struct {
	Action string `json:"action"`

	FromMemoryID     string             `json:"from_memory_id,omitempty"`
	ToMemoryID       string             `json:"to_memory_id,omitempty"`
	RelationshipType RelationshipType   `json:"relationship_type,omitempty"`
	Metadata         map[string]string  `json:"metadata,omitempty"`
	RelationshipID   string             `json:"relationship_id,omitempty"`
	MemoryID         string             `json:"memory_id,omitempty"`
	Types            []RelationshipType `json:"types,omitempty"`
	MaxDepth         int                `json:"max_depth,omitempty"`
	Direction        Direction          `json:"direction,omitempty"`
	Limit            int                `json:"limit,omitempty"`
	MaxNodes         int                `json:"max_nodes,omitempty"`
}

// GraphAction dispatches one graph operation by its action name.
func (r *Repository) GraphAction(ctx context.Context, in GraphActionInput) (interface{}, error) {
	switch in.Action {
	case "create_relationship":
		return r.CreateRelationship(ctx, in.FromMemoryID, in.ToMemoryID, in.RelationshipType, in.Metadata)
	case "delete_relationship":
		deleted, err := r.DeleteRelationship(ctx, in.RelationshipID)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"deleted": deleted}, nil
	case "related_memories":
		return r.RelatedMemories(ctx, in.MemoryID, TraversalOptions{
			Types:     in.Types,
			MaxDepth:  in.MaxDepth,
			Direction: in.Direction,
			Limit:     in.Limit,
		})
	case "memory_graph":
		return r.Graph(ctx, in.MemoryID, GraphOptions{
			MaxDepth: in.MaxDepth,
			MaxNodes: in.MaxNodes,
		})
	default:
		return nil, validationErr("action", "unknown graph action %q", in.Action)
	}
}

// WorkflowActionInput is the parameter union for workflow actions.
type WorkflowActionInput struct {
	Action     string `json:"action"`
	Name       string `json:"name,omitempty"`
	WorkflowID string `json:"workflow_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// WorkflowAction dispatches one workflow operation by its action name.
func (r *Repository) WorkflowAction(ctx context.Context, in WorkflowActionInput) (interface{}, error) {
	switch in.Action {
	case "start":
		return r.StartWorkflow(ctx, in.Name)
	case "active":
		return r.ActiveWorkflow(ctx)
	case "complete":
		return r.CompleteWorkflow(ctx, in.WorkflowID)
	case "memories":
		return r.WorkflowMemories(ctx, in.WorkflowID, in.Limit)
	default:
		return nil, validationErr("action", "unknown workflow action %q", in.Action)
	}
}

// MaintenanceActionInput is the parameter union for maintenance actions.
type MaintenanceActionInput struct {
	Action       string `json:"action"`
	MemoryID     string `json:"memory_id,omitempty"`
	KeepVersions int    `json:"keep_versions,omitempty"`
}

// MaintenanceAction dispatches one maintenance operation by its action name.
func (r *Repository) MaintenanceAction(ctx context.Context, in MaintenanceActionInput) (interface{}, error) {
	switch in.Action {
	case "sweep_expired":
		reclaimed, err := r.SweepExpired(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"reclaimed": reclaimed}, nil
	case "prune_versions":
		var (
			pruned int64
			err    error
		)
		if in.MemoryID != "" {
			pruned, err = r.PruneVersions(ctx, in.MemoryID, in.KeepVersions)
		} else {
			pruned, err = r.PruneAllVersions(ctx, in.KeepVersions)
		}
		if err != nil {
			return nil, err
		}
		return map[string]int64{"pruned": pruned}, nil
	case "stats":
		return r.Stats(ctx)
	default:
		return nil, validationErr("action", "unknown maintenance action %q", in.Action)
	}
}

// CategoryActionInput is the parameter union for category actions.
type CategoryActionInput struct {
	Action   string `json:"action"`
	MemoryID string `json:"memory_id,omitempty"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// CategoryAction dispatches one category operation by its action name.
func (r *Repository) CategoryAction(ctx context.Context, in CategoryActionInput) (interface{}, error) {
	switch in.Action {
	case "list":
		return r.ByCategory(ctx, in.Category, in.Limit)
	case "assign":
		return r.Update(ctx, in.MemoryID, UpdateInput{
			Category:     &in.Category,
			ChangedBy:    "system",
			ChangeReason: "category assignment",
		})
	default:
		return nil, validationErr("action", "unknown category action %q", in.Action)
	}
}
