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

// Validate checks a full configuration.
func (v *Validator) Validate(cfg *Config) error {
	if err := v.ValidateEmbedding(cfg.Embedding); err != nil {
		return err
	}
	if err := v.ValidateFetch(cfg.Fetch); err != nil {
		return err
	}
	if err := v.ValidateSchedule(cfg.Cluster.Schedule); err != nil {
		return fmt.Errorf("cluster schedule: %w", err)
	}
	if err := v.ValidateSchedule(cfg.Cluster.SweepSchedule); err != nil {
		return fmt.Errorf("sweep schedule: %w", err)
	}
	return nil
}

// ValidateEmbedding validates embedding provider settings.
func (v *Validator) ValidateEmbedding(cfg EmbeddingConfig) error {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return fmt.Errorf("openai API key cannot be empty")
		}
		if !strings.HasPrefix(cfg.APIKey, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	case "mock":
		// No credentials needed.
	default:
		return fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}

	if cfg.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}
	return nil
}

// ValidateFetch validates the enrichment fetcher settings.
func (v *Validator) ValidateFetch(cfg FetchConfig) error {
	switch cfg.Backend {
	case "http", "browser":
	default:
		return fmt.Errorf("unknown fetch backend: %s", cfg.Backend)
	}
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("fetch timeout cannot be negative")
	}
	return nil
}

// ValidateSchedule validates a cron expression. An empty schedule is
// allowed and disables the job.
func (v *Validator) ValidateSchedule(expr string) error {
	if expr == "" {
		return nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}
