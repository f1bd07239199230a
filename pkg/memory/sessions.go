package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/engramdev/engram/pkg/kv"
	"github.com/engramdev/engram/pkg/workspace"
)

// SessionInput describes the time window a session snapshot captures.
// A zero Since means the beginning of time; a zero Until means now.
type SessionInput struct {
	Name    string    `json:"name"`
	Summary string    `json:"summary,omitempty"`
	Since   time.Time `json:"since,omitempty"`
	Until   time.Time `json:"until,omitempty"`
	Limit   int       `json:"limit,omitempty"`
}

// CreateSession snapshots the ids of the in-scope memories inside a time
// window under a stable session id. The snapshot holds ids only; members
// deleted afterwards are filtered when the session is read back.
func (r *Repository) CreateSession(ctx context.Context, in SessionInput) (*Session, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, validationErr("name", "must not be empty")
	}
	limit := r.normalizeLimit(in.Limit)

	until := in.Until
	if until.IsZero() {
		until = r.now()
	}
	if !in.Since.IsZero() && in.Since.After(until) {
		return nil, validationErr("since", "must not be after until")
	}

	min := float64(0)
	if !in.Since.IsZero() {
		min = float64(in.Since.UnixMilli())
	}
	max := float64(until.UnixMilli())

	var ids []string
	for _, prefix := range r.resolver.ReadPrefixes(r.workspaceID) {
		members, err := r.store.ZRevRangeByScore(ctx, workspace.TimelineKey(prefix), min, max, 0, int64(limit))
		if err != nil {
			return nil, fmt.Errorf("failed to read timeline window: %w", err)
		}
		for _, id := range members {
			entry, err := r.getInPrefix(ctx, prefix, id)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				ids = append(ids, id)
			}
		}
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	sessionID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}
	session := &Session{
		SessionID:   sessionID,
		SessionName: in.Name,
		MemoryIDs:   ids,
		Summary:     in.Summary,
		CreatedAt:   r.now(),
	}
	fields, err := encodeSession(session)
	if err != nil {
		return nil, err
	}

	prefix := workspace.Prefix(r.workspaceID, false)
	pipe := r.store.Pipeline()
	pipe.HSet(workspace.SessionKey(prefix, sessionID), fields)
	pipe.ZAdd(workspace.SessionsKey(prefix), kv.Z{
		Score:  float64(session.CreatedAt.UnixMilli()),
		Member: sessionID,
	})
	if err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	r.logger.Info().
		Str("session_id", sessionID).
		Str("name", in.Name).
		Int("memories", len(ids)).
		Msg("Session created")
	return session, nil
}

// GetSession returns a session by id, nil when absent.
func (r *Repository) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	prefix := workspace.Prefix(r.workspaceID, false)
	fields, err := r.store.HGetAll(ctx, workspace.SessionKey(prefix, sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}
	return decodeSession(fields)
}

// SessionMemories resolves a session's snapshot to its still-live entries.
func (r *Repository) SessionMemories(ctx context.Context, sessionID string) ([]*MemoryEntry, error) {
	session, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	var entries []*MemoryEntry
	for _, id := range session.MemoryIDs {
		entry, _, err := r.locate(ctx, id)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, entry)
		}
	}
	sortByRecency(entries)
	return entries, nil
}

// ListSessions returns this workspace's sessions, newest first.
func (r *Repository) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	limit = r.normalizeLimit(limit)
	prefix := workspace.Prefix(r.workspaceID, false)

	ids, err := r.store.ZRevRange(ctx, workspace.SessionsKey(prefix), 0, int64(limit)-1)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if s != nil {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}
