package config

// Config represents the main mnemo configuration
type Config struct {
	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Database path (record store and vector index share one file)
	DBPath string `json:"db_path" mapstructure:"db_path"`

	// Embedding
	Embedding EmbeddingConfig `json:"embedding" mapstructure:"embedding"`

	// Enrichment fetch
	Fetch FetchConfig `json:"fetch" mapstructure:"fetch"`

	// Directory ingestion
	Ingest IngestConfig `json:"ingest" mapstructure:"ingest"`

	// Clustering
	Cluster ClusterConfig `json:"cluster" mapstructure:"cluster"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
}

// EmbeddingConfig holds embedding provider configuration
type EmbeddingConfig struct {
	Provider  string `json:"provider" mapstructure:"provider"` // openai, mock
	Model     string `json:"model" mapstructure:"model"`
	APIKey    string `json:"api_key" mapstructure:"api_key"`
	Dimension int    `json:"dimension" mapstructure:"dimension"`
}

// FetchConfig holds enrichment fetcher configuration
type FetchConfig struct {
	Backend        string `json:"backend" mapstructure:"backend"` // http, browser
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// IngestConfig holds directory ingestion configuration
type IngestConfig struct {
	// Roots that the daemon watches and re-ingests when they change
	WatchRoots []string `json:"watch_roots" mapstructure:"watch_roots"`
	// Owner of chunks produced by watched-root re-ingestion
	WatchUser string `json:"watch_user" mapstructure:"watch_user"`
}

// ClusterConfig holds re-clustering schedule configuration
type ClusterConfig struct {
	// Cron expression for the periodic organize pass; "" disables it
	Schedule string `json:"schedule" mapstructure:"schedule"`
	// Cron expression for the periodic consistency sweep; "" disables it
	SweepSchedule string `json:"sweep_schedule" mapstructure:"sweep_schedule"`
	// Repair drift found by scheduled sweeps instead of only reporting it
	SweepRepair bool `json:"sweep_repair" mapstructure:"sweep_repair"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			Dimension: 1536,
		},
		Fetch: FetchConfig{
			Backend:        "http",
			TimeoutSeconds: 15,
		},
		Cluster: ClusterConfig{
			Schedule:      "0 3 * * *",
			SweepSchedule: "30 3 * * *",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9190",
		},
	}
}
