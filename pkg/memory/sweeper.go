package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/engramdev/engram/internal/observability"
	"github.com/engramdev/engram/pkg/workspace"
)

// SweepExpired reclaims lazily expired entries: timeline members whose
// record is past expiry or already gone (backend-side TTL fired) are
// removed together with their index memberships. Scans up to the configured
// scan limit per namespace; returns the number of reclaimed entries.
func (r *Repository) SweepExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	var reclaimed int64

	for _, prefix := range r.resolver.ReadPrefixes(r.workspaceID) {
		ids, err := r.store.ZRange(ctx, workspace.TimelineKey(prefix), 0, int64(r.scanLimit)-1)
		if err != nil {
			return reclaimed, fmt.Errorf("failed to scan timeline: %w", err)
		}
		for _, id := range ids {
			fields, err := r.store.HGetAll(ctx, workspace.MemoryKey(prefix, id))
			if err != nil {
				return reclaimed, fmt.Errorf("failed to read memory %s: %w", id, err)
			}
			entry, decodeErr := decodeEntry(fields)
			if decodeErr == nil && entry != nil && !entry.Expired(r.now()) {
				continue
			}

			pipe := r.store.Pipeline()
			pipe.Del(workspace.MemoryKey(prefix, id))
			pipe.ZRem(workspace.TimelineKey(prefix), id)
			if entry != nil {
				pipe.SRem(workspace.TypeIndexKey(prefix, string(entry.ContextType)), id)
				for _, tag := range entry.Tags {
					pipe.SRem(workspace.TagIndexKey(prefix, tag), id)
				}
				if entry.Category != "" {
					pipe.SRem(workspace.CategoryIndexKey(prefix, entry.Category), id)
				}
			}
			if err := pipe.Exec(ctx); err != nil {
				return reclaimed, fmt.Errorf("failed to reclaim memory %s: %w", id, err)
			}
			reclaimed++
		}
	}

	observability.RecordSweep(reclaimed, time.Since(start))
	if reclaimed > 0 {
		r.logger.Info().Int64("reclaimed", reclaimed).Msg("Expired memories swept")
	}
	return reclaimed, nil
}

// PruneAllVersions trims every in-scope memory's version ledger to keep
// entries. keep <= 0 disables pruning.
func (r *Repository) PruneAllVersions(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	var pruned int64
	for _, prefix := range r.resolver.ReadPrefixes(r.workspaceID) {
		ids, err := r.store.ZRange(ctx, workspace.TimelineKey(prefix), 0, int64(r.scanLimit)-1)
		if err != nil {
			return pruned, fmt.Errorf("failed to scan timeline: %w", err)
		}
		for _, id := range ids {
			n, err := r.PruneVersions(ctx, id, keep)
			if err != nil {
				return pruned, err
			}
			pruned += n
		}
	}
	return pruned, nil
}

// SweeperConfig holds maintenance scheduling settings.
type SweeperConfig struct {
	Schedule     string // cron expression, default every 10 minutes
	KeepVersions int    // 0 keeps full history
	Logger       zerolog.Logger
}

// Sweeper runs expiry reclamation and version pruning on a schedule.
type Sweeper struct {
	repo         *Repository
	cron         *cron.Cron
	schedule     string
	keepVersions int
	logger       zerolog.Logger
}

// NewSweeper creates a maintenance sweeper for one repository.
func NewSweeper(repo *Repository, cfg SweeperConfig) *Sweeper {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = "*/10 * * * *"
	}
	return &Sweeper{
		repo:         repo,
		cron:         cron.New(),
		schedule:     schedule,
		keepVersions: cfg.KeepVersions,
		logger:       cfg.Logger.With().Str("component", "sweeper").Logger(),
	}
}

// Start registers the maintenance job and starts the scheduler.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("Maintenance sweeper started")
	return nil
}

// RunOnce performs a single maintenance pass.
func (s *Sweeper) RunOnce(ctx context.Context) {
	if _, err := s.repo.SweepExpired(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Expiry sweep failed")
	}
	if s.keepVersions > 0 {
		if pruned, err := s.repo.PruneAllVersions(ctx, s.keepVersions); err != nil {
			s.logger.Error().Err(err).Msg("Version pruning failed")
		} else if pruned > 0 {
			s.logger.Info().Int64("pruned", pruned).Msg("Version ledgers pruned")
		}
	}
}

// Stop halts the scheduler and waits for a running pass to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Maintenance sweeper stopped")
}
