package config

// Config represents the main engram configuration
type Config struct {
	// Store backend
	Store StoreConfig `json:"store" mapstructure:"store"`

	// Workspace scoping
	Workspace WorkspaceConfig `json:"workspace" mapstructure:"workspace"`

	// Embedding provider
	Embedding EmbeddingConfig `json:"embedding" mapstructure:"embedding"`

	// Search bounds
	Search SearchConfig `json:"search" mapstructure:"search"`

	// Version ledger retention
	Versions VersionsConfig `json:"versions" mapstructure:"versions"`

	// Background maintenance
	Maintenance MaintenanceConfig `json:"maintenance" mapstructure:"maintenance"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// StoreConfig selects and configures the key-value backend. The two
// backends are wire-compatible; switching requires no data migration.
type StoreConfig struct {
	Backend  string `json:"backend" mapstructure:"backend"` // redis or memory
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password,omitempty" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
}

// WorkspaceConfig controls scoping of memory reads and writes.
type WorkspaceConfig struct {
	Mode string `json:"mode" mapstructure:"mode"` // isolated, global, or hybrid
	Path string `json:"path" mapstructure:"path"` // defaults to the working directory
}

// EmbeddingConfig selects the embedding provider for semantic search.
type EmbeddingConfig struct {
	Provider  string `json:"provider" mapstructure:"provider"` // openai, mock, or none
	APIKey    string `json:"api_key,omitempty" mapstructure:"api_key"`
	Model     string `json:"model" mapstructure:"model"`
	Dimension int    `json:"dimension,omitempty" mapstructure:"dimension"` // mock provider only
}

// SearchConfig bounds list and search reads.
type SearchConfig struct {
	DefaultLimit int `json:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int `json:"max_limit" mapstructure:"max_limit"`
	ScanLimit    int `json:"scan_limit" mapstructure:"scan_limit"`
}

// VersionsConfig controls version ledger retention. MaxPerMemory 0 keeps
// full history.
type VersionsConfig struct {
	MaxPerMemory int `json:"max_per_memory" mapstructure:"max_per_memory"`
}

// MaintenanceConfig controls the background expiry sweeper.
type MaintenanceConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Schedule string `json:"schedule" mapstructure:"schedule"` // cron expression
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "memory",
			Addr:    "localhost:6379",
		},
		Workspace: WorkspaceConfig{
			Mode: "isolated",
		},
		Embedding: EmbeddingConfig{
			Provider: "mock",
			Model:    "text-embedding-3-small",
		},
		Search: SearchConfig{
			DefaultLimit: 100,
			MaxLimit:     1000,
			ScanLimit:    1000,
		},
		Maintenance: MaintenanceConfig{
			Enabled:  true,
			Schedule: "*/10 * * * *",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
	}
}
