package cli

import (
	"context"
	"fmt"

	"github.com/engramdev/engram/internal/config"
	"github.com/engramdev/engram/internal/logger"
	"github.com/engramdev/engram/pkg/kv"
	"github.com/engramdev/engram/pkg/memory"
	"github.com/engramdev/engram/pkg/workspace"
)

// env bundles the wired components a command needs.
type env struct {
	cfg   *config.Config
	log   *logger.Logger
	store kv.Store
	repo  *memory.Repository
}

func (e *env) close() {
	if e.store != nil {
		_ = e.store.Close()
	}
	if e.log != nil {
		_ = e.log.Close()
	}
}

// buildEnv loads configuration and wires the store, embedder, and
// repository for a CLI invocation.
func buildEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		_ = log.Close()
		return nil, err
	}

	resolver, err := workspace.NewResolver(workspace.Mode(cfg.Workspace.Mode))
	if err != nil {
		_ = store.Close()
		_ = log.Close()
		return nil, err
	}

	repo, err := memory.NewRepository(memory.Config{
		Store:         store,
		Resolver:      resolver,
		WorkspacePath: cfg.Workspace.Path,
		Embedder:      buildEmbedder(cfg),
		Logger:        log.GetZerolog(),
		ScanLimit:     cfg.Search.ScanLimit,
		DefaultLimit:  cfg.Search.DefaultLimit,
		MaxLimit:      cfg.Search.MaxLimit,
	})
	if err != nil {
		_ = store.Close()
		_ = log.Close()
		return nil, err
	}

	return &env{cfg: cfg, log: log, store: store, repo: repo}, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		store := kv.NewRedisStore(kv.RedisConfig{
			Addr:     cfg.Store.Addr,
			Password: cfg.Store.Password,
			DB:       cfg.Store.DB,
		})
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Store.Addr, err)
		}
		return store, nil
	case "memory", "":
		return kv.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildEmbedder(cfg *config.Config) memory.EmbeddingProvider {
	switch cfg.Embedding.Provider {
	case "openai":
		return memory.NewOpenAIProvider(cfg.Embedding.APIKey, cfg.Embedding.Model)
	case "none":
		return nil
	default:
		return memory.NewMockEmbeddingProvider(cfg.Embedding.Dimension)
	}
}
