package config

import "time"

// DefaultConfig returns the built-in defaults, overridden by whatever the
// YAML file and environment provide.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Queue: QueueConfig{
			WorkerCount:             5,
			MaxConcurrentJobs:       5,
			PollInterval:            1 * time.Second,
			PollIntervalJitter:      500 * time.Millisecond,
			JobTimeout:              15 * time.Minute,
			GracefulShutdownTimeout: 15 * time.Minute,
			HeartbeatInterval:       10 * time.Second,
			OrphanDetectionInterval: 5 * time.Minute,
			OrphanThreshold:         5 * time.Minute,
		},
		LLM: LLMConfig{
			MaxConcurrentCalls: 8,
			HostedMarkup:       1.10,
			HostedAPIKeyEnv:    "ANTHROPIC_API_KEY",
		},
		Fetch: FetchConfig{
			MaxRedirects: 3,
			MaxBytes:     10 << 20,
			Timeout:      15 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxJobsPerWindow: 10,
			Window:           60 * time.Second,
		},
		Reasoning: ReasoningConfig{
			EnabledByDefault: false,
			DefaultDepth:     2,
			FullGraphDefault: false,
		},
	}
}
