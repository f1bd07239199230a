package memory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Hash-record (de)serialization is isolated here so no other component
// touches raw encoded text. Embeddings, tags, and metadata maps travel as
// JSON strings inside hash fields, timestamps as unix milliseconds.

func encodeEntry(e *MemoryEntry) (map[string]string, error) {
	fields := map[string]string{
		"id":           e.ID,
		"timestamp":    strconv.FormatInt(e.Timestamp.UnixMilli(), 10),
		"context_type": string(e.ContextType),
		"content":      e.Content,
		"importance":   strconv.Itoa(e.Importance),
		"workspace_id": e.WorkspaceID,
		"is_global":    strconv.FormatBool(e.IsGlobal),
	}
	if e.Summary != "" {
		fields["summary"] = e.Summary
	}
	if e.Category != "" {
		fields["category"] = e.Category
	}
	if len(e.Tags) > 0 {
		tags, err := json.Marshal(e.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tags: %w", err)
		}
		fields["tags"] = string(tags)
	}
	if len(e.Embedding) > 0 {
		emb, err := json.Marshal(e.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal embedding: %w", err)
		}
		fields["embedding"] = string(emb)
	}
	if e.TTLSeconds > 0 {
		fields["ttl_seconds"] = strconv.FormatInt(e.TTLSeconds, 10)
	}
	if e.ExpiresAt != nil {
		fields["expires_at"] = strconv.FormatInt(e.ExpiresAt.UnixMilli(), 10)
	}
	return fields, nil
}

func decodeEntry(fields map[string]string) (*MemoryEntry, error) {
	if len(fields) == 0 || fields["id"] == "" {
		return nil, nil
	}

	ms, err := strconv.ParseInt(fields["timestamp"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	importance, err := strconv.Atoi(fields["importance"])
	if err != nil {
		return nil, fmt.Errorf("failed to parse importance: %w", err)
	}

	e := &MemoryEntry{
		ID:          fields["id"],
		Timestamp:   time.UnixMilli(ms),
		ContextType: ContextType(fields["context_type"]),
		Content:     fields["content"],
		Summary:     fields["summary"],
		Importance:  importance,
		WorkspaceID: fields["workspace_id"],
		IsGlobal:    fields["is_global"] == "true",
		Category:    fields["category"],
	}

	if raw := fields["tags"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if raw := fields["embedding"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.Embedding); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
	}
	if raw := fields["ttl_seconds"]; raw != "" {
		if e.TTLSeconds, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse ttl_seconds: %w", err)
		}
	}
	if raw := fields["expires_at"]; raw != "" {
		expMs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse expires_at: %w", err)
		}
		t := time.UnixMilli(expMs)
		e.ExpiresAt = &t
	}
	return e, nil
}

// Versions are stored whole as JSON members of the per-memory versions
// sorted set, scored by snapshot time. Append-only by construction.

func encodeVersion(v *MemoryVersion) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal version: %w", err)
	}
	return string(data), nil
}

func decodeVersion(member string) (*MemoryVersion, error) {
	var v MemoryVersion
	if err := json.Unmarshal([]byte(member), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal version: %w", err)
	}
	return &v, nil
}

func encodeRelationship(rel *Relationship) (map[string]string, error) {
	fields := map[string]string{
		"id":                rel.ID,
		"from_memory_id":    rel.FromMemoryID,
		"to_memory_id":      rel.ToMemoryID,
		"relationship_type": string(rel.Type),
		"created_at":        strconv.FormatInt(rel.CreatedAt.UnixMilli(), 10),
	}
	if len(rel.Metadata) > 0 {
		meta, err := json.Marshal(rel.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal relationship metadata: %w", err)
		}
		fields["metadata"] = string(meta)
	}
	return fields, nil
}

func decodeRelationship(fields map[string]string) (*Relationship, error) {
	if len(fields) == 0 || fields["id"] == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse relationship created_at: %w", err)
	}
	rel := &Relationship{
		ID:           fields["id"],
		FromMemoryID: fields["from_memory_id"],
		ToMemoryID:   fields["to_memory_id"],
		Type:         RelationshipType(fields["relationship_type"]),
		CreatedAt:    time.UnixMilli(ms),
	}
	if raw := fields["metadata"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rel.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal relationship metadata: %w", err)
		}
	}
	return rel, nil
}

func encodeSession(s *Session) (map[string]string, error) {
	ids, err := json.Marshal(s.MemoryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session memory ids: %w", err)
	}
	return map[string]string{
		"session_id":   s.SessionID,
		"session_name": s.SessionName,
		"memory_ids":   string(ids),
		"summary":      s.Summary,
		"created_at":   strconv.FormatInt(s.CreatedAt.UnixMilli(), 10),
	}, nil
}

func decodeSession(fields map[string]string) (*Session, error) {
	if len(fields) == 0 || fields["session_id"] == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session created_at: %w", err)
	}
	s := &Session{
		SessionID:   fields["session_id"],
		SessionName: fields["session_name"],
		Summary:     fields["summary"],
		CreatedAt:   time.UnixMilli(ms),
	}
	if raw := fields["memory_ids"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.MemoryIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session memory ids: %w", err)
		}
	}
	return s, nil
}

func encodeWorkflow(w *Workflow) map[string]string {
	return map[string]string{
		"id":           w.ID,
		"name":         w.Name,
		"status":       w.Status,
		"memory_count": strconv.FormatInt(w.MemoryCount, 10),
		"created_at":   strconv.FormatInt(w.CreatedAt.UnixMilli(), 10),
	}
}

func decodeWorkflow(fields map[string]string) (*Workflow, error) {
	if len(fields) == 0 || fields["id"] == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow created_at: %w", err)
	}
	count, err := strconv.ParseInt(fields["memory_count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workflow memory_count: %w", err)
	}
	return &Workflow{
		ID:          fields["id"],
		Name:        fields["name"],
		Status:      fields["status"],
		MemoryCount: count,
		CreatedAt:   time.UnixMilli(ms),
	}, nil
}
