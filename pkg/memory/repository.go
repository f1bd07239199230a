package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/engramdev/engram/internal/observability"
	"github.com/engramdev/engram/pkg/kv"
	"github.com/engramdev/engram/pkg/workspace"
)

const (
	// DefaultReadLimit bounds list-style reads when the caller passes none.
	DefaultReadLimit = 100
	// MaxReadLimit is the hard ceiling for any list-style read.
	MaxReadLimit = 1000
	// DefaultScanLimit caps the candidate set of corpus-scanning operations
	// (search, sweep) per namespace.
	DefaultScanLimit = 1000
)

// Repository owns CRUD over memory entries, their indices, and the
// insertion-ordered timeline. All store access goes through the injected
// kv.Store; concurrent writers to the same entry race last-write-wins, which
// is accepted for this domain.
type Repository struct {
	store        kv.Store
	resolver     *workspace.Resolver
	embedder     EmbeddingProvider
	logger       zerolog.Logger
	workspaceID  string
	scanLimit    int
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

// Config holds repository construction settings.
type Config struct {
	Store         kv.Store
	Resolver      *workspace.Resolver
	WorkspacePath string
	Embedder      EmbeddingProvider // optional, nil skips vectors
	Logger        zerolog.Logger
	ScanLimit     int // 0 uses DefaultScanLimit
	DefaultLimit  int // 0 uses DefaultReadLimit
	MaxLimit      int // 0 uses MaxReadLimit
}

// NewRepository creates a memory repository bound to one workspace path.
func NewRepository(cfg Config) (*Repository, error) {
	observability.EnsureRegistered()

	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("workspace resolver is required")
	}
	if cfg.WorkspacePath == "" {
		return nil, fmt.Errorf("workspace path is required")
	}
	scanLimit := cfg.ScanLimit
	if scanLimit <= 0 {
		scanLimit = DefaultScanLimit
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultReadLimit
	}
	maxLimit := cfg.MaxLimit
	if maxLimit <= 0 {
		maxLimit = MaxReadLimit
	}
	if defaultLimit > maxLimit {
		return nil, fmt.Errorf("default limit %d exceeds max limit %d", defaultLimit, maxLimit)
	}

	r := &Repository{
		store:        cfg.Store,
		resolver:     cfg.Resolver,
		embedder:     cfg.Embedder,
		logger:       cfg.Logger.With().Str("component", "memory").Logger(),
		workspaceID:  workspace.WorkspaceID(cfg.WorkspacePath),
		scanLimit:    scanLimit,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		now:          time.Now,
	}

	r.logger.Info().
		Str("workspace_id", r.workspaceID).
		Str("mode", string(cfg.Resolver.Mode())).
		Msg("Memory repository initialized")
	return r, nil
}

// WorkspaceID returns the id derived from the configured workspace path.
func (r *Repository) WorkspaceID() string {
	return r.workspaceID
}

// CreateInput holds the caller-supplied fields of a new memory.
type CreateInput struct {
	Content     string      `json:"content"`
	ContextType ContextType `json:"context_type"`
	Summary     string      `json:"summary,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Importance  int         `json:"importance"`
	TTLSeconds  int64       `json:"ttl_seconds,omitempty"`
	IsGlobal    bool        `json:"is_global,omitempty"`
	Category    string      `json:"category,omitempty"`
}

func validateCreate(in CreateInput) error {
	if strings.TrimSpace(in.Content) == "" {
		return validationErr("content", "must not be empty")
	}
	if !ValidContextTypes[in.ContextType] {
		return validationErr("context_type", "unknown context type %q", in.ContextType)
	}
	if in.Importance < 1 || in.Importance > 10 {
		return validationErr("importance", "must be between 1 and 10, got %d", in.Importance)
	}
	if in.TTLSeconds < 0 {
		return validationErr("ttl_seconds", "must not be negative")
	}
	return nil
}

// Create validates, persists, and indexes a new memory entry. Embedding
// generation is best-effort: on provider failure the entry persists without
// a vector. The workflow hook joins the same batched write and its failure
// never aborts creation.
func (r *Repository) Create(ctx context.Context, in CreateInput) (*MemoryEntry, error) {
	start := time.Now()

	if err := validateCreate(in); err != nil {
		return nil, err
	}

	entry := r.buildEntry(in)
	r.embedBestEffort(ctx, entry)

	pipe := r.store.Pipeline()
	if err := r.queueEntryWrite(pipe, entry); err != nil {
		return nil, err
	}
	if !entry.IsGlobal {
		r.queueWorkflowLink(ctx, pipe, entry.ID)
	}
	if err := pipe.Exec(ctx); err != nil {
		observability.RecordMemoryWrite("create", time.Since(start), false)
		return nil, fmt.Errorf("failed to persist memory: %w", err)
	}

	observability.RecordMemoryWrite("create", time.Since(start), true)
	observability.RecordMutationAudit("memory_created", "user", "success", map[string]interface{}{
		"memory_id": entry.ID,
		"global":    entry.IsGlobal,
	})
	r.logger.Debug().
		Str("memory_id", entry.ID).
		Str("context_type", string(entry.ContextType)).
		Bool("global", entry.IsGlobal).
		Msg("Memory created")
	return entry, nil
}

// BatchCreate validates every input before any write, then persists all
// entries in a single batched round trip. Embeddings for the whole batch are
// requested in one provider call.
func (r *Repository) BatchCreate(ctx context.Context, inputs []CreateInput) ([]*MemoryEntry, error) {
	start := time.Now()

	if len(inputs) == 0 {
		return nil, validationErr("memories", "must not be empty")
	}
	for i, in := range inputs {
		if err := validateCreate(in); err != nil {
			return nil, fmt.Errorf("memory %d: %w", i, err)
		}
	}

	entries := make([]*MemoryEntry, len(inputs))
	for i, in := range inputs {
		entries[i] = r.buildEntry(in)
	}

	if r.embedder != nil {
		texts := make([]string, len(entries))
		for i, e := range entries {
			texts[i] = e.Content
		}
		vectors, err := r.embedder.GenerateEmbeddings(ctx, texts)
		if err != nil {
			r.logger.Warn().Err(err).Int("count", len(texts)).Msg("Batch embedding failed, storing without vectors")
		} else {
			for i, vec := range vectors {
				if len(vec) == r.embedder.Dimension() {
					entries[i].Embedding = vec
				}
			}
		}
	}

	pipe := r.store.Pipeline()
	var workspaceIDs []string
	for _, e := range entries {
		if err := r.queueEntryWrite(pipe, e); err != nil {
			return nil, err
		}
		if !e.IsGlobal {
			workspaceIDs = append(workspaceIDs, e.ID)
		}
	}
	r.queueWorkflowLinks(ctx, pipe, workspaceIDs)
	if err := pipe.Exec(ctx); err != nil {
		observability.RecordMemoryWrite("batch_create", time.Since(start), false)
		return nil, fmt.Errorf("failed to persist memory batch: %w", err)
	}

	observability.RecordMemoryWrite("batch_create", time.Since(start), true)
	r.logger.Debug().Int("count", len(entries)).Msg("Memory batch created")
	return entries, nil
}

func (r *Repository) buildEntry(in CreateInput) *MemoryEntry {
	now := r.now()
	entry := &MemoryEntry{
		ID:          ulid.Make().String(),
		Timestamp:   now,
		ContextType: in.ContextType,
		Content:     in.Content,
		Summary:     in.Summary,
		Tags:        dedupeTags(in.Tags),
		Importance:  in.Importance,
		TTLSeconds:  in.TTLSeconds,
		WorkspaceID: r.workspaceID,
		IsGlobal:    in.IsGlobal,
		Category:    in.Category,
	}
	if in.TTLSeconds > 0 {
		exp := now.Add(time.Duration(in.TTLSeconds) * time.Second)
		entry.ExpiresAt = &exp
	}
	return entry
}

func (r *Repository) embedBestEffort(ctx context.Context, entry *MemoryEntry) {
	if r.embedder == nil {
		return
	}
	vec, err := r.embedder.GenerateEmbedding(ctx, entry.Content)
	if err != nil {
		r.logger.Warn().Err(err).Str("memory_id", entry.ID).Msg("Embedding failed, storing without vector")
		return
	}
	if len(vec) != r.embedder.Dimension() {
		r.logger.Warn().
			Int("got", len(vec)).
			Int("want", r.embedder.Dimension()).
			Msg("Embedding dimensionality mismatch, discarding vector")
		return
	}
	entry.Embedding = vec
}

// queueEntryWrite adds the record, timeline, and index writes for an entry
// to the pipeline.
func (r *Repository) queueEntryWrite(pipe kv.Pipe, e *MemoryEntry) error {
	fields, err := encodeEntry(e)
	if err != nil {
		return err
	}
	prefix := workspace.Prefix(e.WorkspaceID, e.IsGlobal)
	memKey := workspace.MemoryKey(prefix, e.ID)

	pipe.HSet(memKey, fields)
	pipe.ZAdd(workspace.TimelineKey(prefix), kv.Z{
		Score:  float64(e.Timestamp.UnixMilli()),
		Member: e.ID,
	})
	pipe.SAdd(workspace.TypeIndexKey(prefix, string(e.ContextType)), e.ID)
	for _, tag := range e.Tags {
		pipe.SAdd(workspace.TagIndexKey(prefix, tag), e.ID)
	}
	if e.Category != "" {
		pipe.SAdd(workspace.CategoryIndexKey(prefix, e.Category), e.ID)
	}
	if e.ExpiresAt != nil {
		pipe.Expire(memKey, e.ExpiresAt.Sub(r.now()))
	}
	return nil
}

// Get returns the entry or nil when absent or expired. Lookups check the
// workspace namespace first, then the global one.
func (r *Repository) Get(ctx context.Context, id string) (*MemoryEntry, error) {
	entry, _, err := r.locate(ctx, id)
	return entry, err
}

// locate finds a live entry and the namespace prefix it lives under.
func (r *Repository) locate(ctx context.Context, id string) (*MemoryEntry, string, error) {
	for _, prefix := range []string{workspace.Prefix(r.workspaceID, false), workspace.GlobalNamespace} {
		fields, err := r.store.HGetAll(ctx, workspace.MemoryKey(prefix, id))
		if err != nil {
			return nil, "", fmt.Errorf("failed to read memory %s: %w", id, err)
		}
		entry, err := decodeEntry(fields)
		if err != nil {
			return nil, "", err
		}
		if entry == nil {
			continue
		}
		if entry.Expired(r.now()) || !r.resolver.InScope(entry.IsGlobal) {
			return nil, "", nil
		}
		return entry, prefix, nil
	}
	return nil, "", nil
}

// getInPrefix loads a live entry from one namespace, nil when absent,
// expired, or undecodable (dangling references are filtered, not failed).
func (r *Repository) getInPrefix(ctx context.Context, prefix, id string) (*MemoryEntry, error) {
	fields, err := r.store.HGetAll(ctx, workspace.MemoryKey(prefix, id))
	if err != nil {
		return nil, fmt.Errorf("failed to read memory %s: %w", id, err)
	}
	entry, err := decodeEntry(fields)
	if err != nil {
		r.logger.Warn().Err(err).Str("memory_id", id).Msg("Skipping undecodable memory record")
		return nil, nil
	}
	if entry == nil || entry.Expired(r.now()) {
		return nil, nil
	}
	return entry, nil
}

// UpdateInput patches an existing memory. Nil fields are left untouched.
type UpdateInput struct {
	Content      *string      `json:"content,omitempty"`
	Summary      *string      `json:"summary,omitempty"`
	ContextType  *ContextType `json:"context_type,omitempty"`
	Importance   *int         `json:"importance,omitempty"`
	Tags         *[]string    `json:"tags,omitempty"`
	Category     *string      `json:"category,omitempty"`
	ChangeReason string       `json:"change_reason,omitempty"`
	ChangedBy    string       `json:"changed_by,omitempty"` // user|system, defaults to user
}

func validateUpdate(in UpdateInput) error {
	if in.Content != nil && strings.TrimSpace(*in.Content) == "" {
		return validationErr("content", "must not be empty")
	}
	if in.ContextType != nil && !ValidContextTypes[*in.ContextType] {
		return validationErr("context_type", "unknown context type %q", *in.ContextType)
	}
	if in.Importance != nil && (*in.Importance < 1 || *in.Importance > 10) {
		return validationErr("importance", "must be between 1 and 10, got %d", *in.Importance)
	}
	return nil
}

// Update snapshots the current state into the version ledger, then applies
// the patch. Content changes trigger re-embedding. The snapshot-then-mutate
// pair is sequenced, not transactional: a crash in between leaves an unused
// snapshot but loses nothing.
func (r *Repository) Update(ctx context.Context, id string, in UpdateInput) (*MemoryEntry, error) {
	start := time.Now()

	if err := validateUpdate(in); err != nil {
		return nil, err
	}

	entry, prefix, err := r.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("memory %s: %w", id, ErrNotFound)
	}

	changedBy := in.ChangedBy
	if changedBy == "" {
		changedBy = "user"
	}
	if err := r.appendVersion(ctx, prefix, entry, changedBy, in.ChangeReason); err != nil {
		return nil, err
	}

	prev := *entry
	contentChanged := false
	if in.Content != nil && *in.Content != entry.Content {
		entry.Content = *in.Content
		contentChanged = true
	}
	if in.Summary != nil {
		entry.Summary = *in.Summary
	}
	if in.ContextType != nil {
		entry.ContextType = *in.ContextType
	}
	if in.Importance != nil {
		entry.Importance = *in.Importance
	}
	if in.Tags != nil {
		entry.Tags = dedupeTags(*in.Tags)
	}
	if in.Category != nil {
		entry.Category = *in.Category
	}
	if contentChanged {
		entry.Embedding = nil
		r.embedBestEffort(ctx, entry)
	}

	pipe := r.store.Pipeline()
	if err := r.queueRecordRewrite(pipe, prefix, &prev, entry); err != nil {
		return nil, err
	}
	if !entry.IsGlobal {
		r.queueWorkflowLink(ctx, pipe, entry.ID)
	}
	if err := pipe.Exec(ctx); err != nil {
		observability.RecordMemoryWrite("update", time.Since(start), false)
		return nil, fmt.Errorf("failed to update memory %s: %w", id, err)
	}

	observability.RecordMemoryWrite("update", time.Since(start), true)
	r.logger.Debug().Str("memory_id", id).Bool("reembedded", contentChanged).Msg("Memory updated")
	return entry, nil
}

// queueRecordRewrite rewrites the hash record and reconciles the type, tag,
// and category index memberships against the previous state.
func (r *Repository) queueRecordRewrite(pipe kv.Pipe, prefix string, prev, next *MemoryEntry) error {
	fields, err := encodeEntry(next)
	if err != nil {
		return err
	}
	memKey := workspace.MemoryKey(prefix, next.ID)
	pipe.HSet(memKey, fields)

	// HSet merges fields; explicitly clear ones that became empty.
	var cleared []string
	if prev.Summary != "" && next.Summary == "" {
		cleared = append(cleared, "summary")
	}
	if len(prev.Tags) > 0 && len(next.Tags) == 0 {
		cleared = append(cleared, "tags")
	}
	if len(prev.Embedding) > 0 && len(next.Embedding) == 0 {
		cleared = append(cleared, "embedding")
	}
	if prev.Category != "" && next.Category == "" {
		cleared = append(cleared, "category")
	}
	if len(cleared) > 0 {
		pipe.HDel(memKey, cleared...)
	}

	if prev.ContextType != next.ContextType {
		pipe.SRem(workspace.TypeIndexKey(prefix, string(prev.ContextType)), next.ID)
		pipe.SAdd(workspace.TypeIndexKey(prefix, string(next.ContextType)), next.ID)
	}
	added, removed := diffTags(prev.Tags, next.Tags)
	for _, tag := range removed {
		pipe.SRem(workspace.TagIndexKey(prefix, tag), next.ID)
	}
	for _, tag := range added {
		pipe.SAdd(workspace.TagIndexKey(prefix, tag), next.ID)
	}
	if prev.Category != next.Category {
		if prev.Category != "" {
			pipe.SRem(workspace.CategoryIndexKey(prefix, prev.Category), next.ID)
		}
		if next.Category != "" {
			pipe.SAdd(workspace.CategoryIndexKey(prefix, next.Category), next.ID)
		}
	}
	return nil
}

// Delete hard-deletes the entry and its index memberships. Relationships and
// version entries referencing it stay in place and are filtered at read
// time. Returns false when the entry does not exist.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	start := time.Now()

	entry, prefix, err := r.locate(ctx, id)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}

	pipe := r.store.Pipeline()
	pipe.Del(workspace.MemoryKey(prefix, id))
	pipe.ZRem(workspace.TimelineKey(prefix), id)
	pipe.SRem(workspace.TypeIndexKey(prefix, string(entry.ContextType)), id)
	for _, tag := range entry.Tags {
		pipe.SRem(workspace.TagIndexKey(prefix, tag), id)
	}
	if entry.Category != "" {
		pipe.SRem(workspace.CategoryIndexKey(prefix, entry.Category), id)
	}
	if err := pipe.Exec(ctx); err != nil {
		observability.RecordMemoryWrite("delete", time.Since(start), false)
		return false, fmt.Errorf("failed to delete memory %s: %w", id, err)
	}

	observability.RecordMemoryWrite("delete", time.Since(start), true)
	observability.RecordMutationAudit("memory_deleted", "user", "success", map[string]interface{}{
		"memory_id": id,
	})
	r.logger.Debug().Str("memory_id", id).Msg("Memory deleted")
	return true, nil
}

// Recent returns the newest live entries across the in-scope namespaces.
func (r *Repository) Recent(ctx context.Context, limit int) ([]*MemoryEntry, error) {
	limit = r.normalizeLimit(limit)

	var entries []*MemoryEntry
	for _, prefix := range r.resolver.ReadPrefixes(r.workspaceID) {
		ids, err := r.store.ZRevRange(ctx, workspace.TimelineKey(prefix), 0, int64(limit)-1)
		if err != nil {
			return nil, fmt.Errorf("failed to read timeline: %w", err)
		}
		for _, id := range ids {
			entry, err := r.getInPrefix(ctx, prefix, id)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				entries = append(entries, entry)
			}
		}
	}

	sortByRecency(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ByType returns live entries of one context type, newest first.
func (r *Repository) ByType(ctx context.Context, contextType ContextType, limit int) ([]*MemoryEntry, error) {
	if !ValidContextTypes[contextType] {
		return nil, validationErr("context_type", "unknown context type %q", contextType)
	}
	return r.byIndex(ctx, func(prefix string) string {
		return workspace.TypeIndexKey(prefix, string(contextType))
	}, limit)
}

// ByTag returns live entries carrying one tag, newest first.
func (r *Repository) ByTag(ctx context.Context, tag string, limit int) ([]*MemoryEntry, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, validationErr("tag", "must not be empty")
	}
	return r.byIndex(ctx, func(prefix string) string {
		return workspace.TagIndexKey(prefix, tag)
	}, limit)
}

// ByCategory returns live entries in one category, newest first.
func (r *Repository) ByCategory(ctx context.Context, category string, limit int) ([]*MemoryEntry, error) {
	if strings.TrimSpace(category) == "" {
		return nil, validationErr("category", "must not be empty")
	}
	return r.byIndex(ctx, func(prefix string) string {
		return workspace.CategoryIndexKey(prefix, category)
	}, limit)
}

func (r *Repository) byIndex(ctx context.Context, key func(prefix string) string, limit int) ([]*MemoryEntry, error) {
	limit = r.normalizeLimit(limit)

	var entries []*MemoryEntry
	for _, prefix := range r.resolver.ReadPrefixes(r.workspaceID) {
		ids, err := r.store.SMembers(ctx, key(prefix))
		if err != nil {
			return nil, fmt.Errorf("failed to read index: %w", err)
		}
		for _, id := range ids {
			entry, err := r.getInPrefix(ctx, prefix, id)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				entries = append(entries, entry)
			}
		}
	}

	sortByRecency(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *Repository) normalizeLimit(limit int) int {
	if limit <= 0 {
		return r.defaultLimit
	}
	if limit > r.maxLimit {
		return r.maxLimit
	}
	return limit
}

func sortByRecency(entries []*MemoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].ID > entries[j].ID
	})
}

func dedupeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func diffTags(prev, next []string) (added, removed []string) {
	prevSet := make(map[string]struct{}, len(prev))
	for _, t := range prev {
		prevSet[t] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, t := range next {
		nextSet[t] = struct{}{}
		if _, ok := prevSet[t]; !ok {
			added = append(added, t)
		}
	}
	for _, t := range prev {
		if _, ok := nextSet[t]; !ok {
			removed = append(removed, t)
		}
	}
	return added, removed
}
