package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateBackend validates the store backend selection
func (v *Validator) ValidateBackend(backend string) error {
	switch backend {
	case "redis", "memory":
		return nil
	case "":
		return fmt.Errorf("store backend cannot be empty")
	default:
		return fmt.Errorf("unknown store backend %q (must be: redis, memory)", backend)
	}
}

// ValidateWorkspaceMode validates the workspace scope mode
func (v *Validator) ValidateWorkspaceMode(mode string) error {
	switch mode {
	case "isolated", "global", "hybrid", "":
		return nil
	default:
		return fmt.Errorf("unknown workspace mode %q (must be: isolated, global, hybrid)", mode)
	}
}

// ValidateEmbeddingProvider validates the embedding provider selection
func (v *Validator) ValidateEmbeddingProvider(cfg EmbeddingConfig) error {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return fmt.Errorf("openai embedding provider requires an API key")
		}
		if !strings.HasPrefix(cfg.APIKey, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
		return nil
	case "mock", "none", "":
		return nil
	default:
		return fmt.Errorf("unknown embedding provider %q (must be: openai, mock, none)", cfg.Provider)
	}
}

// ValidateSchedule validates a maintenance cron expression
func (v *Validator) ValidateSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	return nil
}

// ValidateSearchBounds validates the search limit settings
func (v *Validator) ValidateSearchBounds(cfg SearchConfig) error {
	if cfg.DefaultLimit < 0 || cfg.MaxLimit < 0 || cfg.ScanLimit < 0 {
		return fmt.Errorf("search limits cannot be negative")
	}
	if cfg.MaxLimit > 0 && cfg.DefaultLimit > cfg.MaxLimit {
		return fmt.Errorf("search default_limit %d exceeds max_limit %d", cfg.DefaultLimit, cfg.MaxLimit)
	}
	return nil
}

// Validate validates the whole configuration
func (v *Validator) Validate(cfg *Config) error {
	if err := v.ValidateBackend(cfg.Store.Backend); err != nil {
		return err
	}
	if err := v.ValidateWorkspaceMode(cfg.Workspace.Mode); err != nil {
		return err
	}
	if err := v.ValidateEmbeddingProvider(cfg.Embedding); err != nil {
		return err
	}
	if err := v.ValidateSchedule(cfg.Maintenance.Schedule); err != nil {
		return err
	}
	if err := v.ValidateSearchBounds(cfg.Search); err != nil {
		return err
	}
	if cfg.Versions.MaxPerMemory < 0 {
		return fmt.Errorf("versions max_per_memory cannot be negative")
	}
	return nil
}
