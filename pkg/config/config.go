// Package config loads and validates the process-wide configuration for
// paperd: a single immutable Config assembled once at startup from YAML
// plus environment overrides.
package config

import "time"

// Config is the umbrella object returned by Initialize and threaded
// through cmd/paperd to every component that needs it.
type Config struct {
	configPath string

	Server    ServerConfig
	Queue     QueueConfig
	LLM       LLMConfig
	Fetch     FetchConfig
	RateLimit RateLimitConfig
	Reasoning ReasoningConfig
	Validation ValidationConfig
}

// ConfigPath returns the file the configuration was loaded from, for
// logging.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// ServerConfig configures the pkg/api HTTP control plane.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" validate:"required"`
}

// QueueConfig controls how PipelineJobs are polled, claimed, and
// processed by the worker pool. Mirrors the teacher's queue config shape,
// retargeted to papers instead of alert sessions.
type QueueConfig struct {
	WorkerCount             int           `yaml:"worker_count" validate:"min=1"`
	MaxConcurrentJobs       int           `yaml:"max_concurrent_jobs" validate:"min=1"`
	PollInterval            time.Duration `yaml:"poll_interval" validate:"min=0"`
	PollIntervalJitter      time.Duration `yaml:"poll_interval_jitter" validate:"min=0"`
	JobTimeout              time.Duration `yaml:"job_timeout" validate:"min=0"`
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout" validate:"min=0"`
	HeartbeatInterval       time.Duration `yaml:"heartbeat_interval" validate:"min=0"`
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval" validate:"min=0"`
	OrphanThreshold         time.Duration `yaml:"orphan_threshold" validate:"min=0"`
}

// LLMConfig configures the StructuredLLM runner's concurrency limit and
// hosted-mode pricing markup.
type LLMConfig struct {
	MaxConcurrentCalls int     `yaml:"max_concurrent_calls" validate:"min=1"`
	HostedMarkup       float64 `yaml:"hosted_markup" validate:"min=0"`
	HostedAPIKeyEnv    string  `yaml:"hosted_api_key_env" validate:"required"`
	Debug              bool    `yaml:"debug"`
}

// FetchConfig bounds the orchestrator's SSRF-guarded URL ingestion path.
type FetchConfig struct {
	MaxRedirects int           `yaml:"max_redirects" validate:"min=0"`
	MaxBytes     int64         `yaml:"max_bytes" validate:"min=1"`
	Timeout      time.Duration `yaml:"timeout" validate:"min=0"`
}

// RateLimitConfig bounds pipeline job submissions per tenant.
type RateLimitConfig struct {
	MaxJobsPerWindow int           `yaml:"max_jobs_per_window" validate:"min=1"`
	Window           time.Duration `yaml:"window" validate:"min=0"`
}

// ReasoningConfig sets the defaults a job's Options inherit unless
// overridden per-submission.
type ReasoningConfig struct {
	EnabledByDefault bool `yaml:"enabled_by_default"`
	DefaultDepth     int  `yaml:"default_depth" validate:"min=1,max=20"`
	FullGraphDefault bool `yaml:"full_graph_default"`
}

// ValidationConfig holds the ValidationEngine's debug flag. The pipeline
// driver does not read it: validation.Validate always runs with debug off.
type ValidationConfig struct {
	Debug bool `yaml:"debug"`
}
