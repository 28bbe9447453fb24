package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// yamlConfig mirrors Config's shape for YAML unmarshaling; every section
// is optional so a user file can override just the parts it cares about.
type yamlConfig struct {
	Server    *ServerConfig    `yaml:"server"`
	Queue     *QueueConfig     `yaml:"queue"`
	LLM       *LLMConfig       `yaml:"llm"`
	Fetch     *FetchConfig     `yaml:"fetch"`
	RateLimit *RateLimitConfig `yaml:"rate_limit"`
	Reasoning *ReasoningConfig `yaml:"reasoning"`
	Validation *ValidationConfig `yaml:"validation"`
}

// Initialize loads a .env file (if present), loads configPath (if
// non-empty), merges it over the built-in defaults, and validates the
// result. This is the primary entry point cmd/paperd calls at startup.
func Initialize(_ context.Context, configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file, continuing without it", "error", err)
	}

	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadYAMLOverlay(configPath, cfg); err != nil {
			return nil, NewLoadError(configPath, err)
		}
	}
	cfg.configPath = configPath

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	slog.Info("configuration initialized", "config_path", configPath,
		"worker_count", cfg.Queue.WorkerCount, "max_concurrent_jobs", cfg.Queue.MaxConcurrentJobs)
	return cfg, nil
}

func loadYAMLOverlay(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}
	data = ExpandEnv(data)

	var overlay yamlConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if overlay.Server != nil {
		if err := mergo.Merge(&cfg.Server, overlay.Server, mergo.WithOverride); err != nil {
			return fmt.Errorf("merge server config: %w", err)
		}
	}
	if overlay.Queue != nil {
		if err := mergo.Merge(&cfg.Queue, overlay.Queue, mergo.WithOverride); err != nil {
			return fmt.Errorf("merge queue config: %w", err)
		}
	}
	if overlay.LLM != nil {
		if err := mergo.Merge(&cfg.LLM, overlay.LLM, mergo.WithOverride); err != nil {
			return fmt.Errorf("merge llm config: %w", err)
		}
	}
	if overlay.Fetch != nil {
		if err := mergo.Merge(&cfg.Fetch, overlay.Fetch, mergo.WithOverride); err != nil {
			return fmt.Errorf("merge fetch config: %w", err)
		}
	}
	if overlay.RateLimit != nil {
		if err := mergo.Merge(&cfg.RateLimit, overlay.RateLimit, mergo.WithOverride); err != nil {
			return fmt.Errorf("merge rate_limit config: %w", err)
		}
	}
	if overlay.Reasoning != nil {
		if err := mergo.Merge(&cfg.Reasoning, overlay.Reasoning, mergo.WithOverride); err != nil {
			return fmt.Errorf("merge reasoning config: %w", err)
		}
	}
	if overlay.Validation != nil {
		cfg.Validation = *overlay.Validation
	}
	return nil
}
