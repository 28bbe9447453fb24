package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidate = validator.New()

// Validate runs struct-tag validation over every section plus a handful
// of cross-field checks the tags can't express.
func Validate(cfg *Config) error {
	if err := structValidate.Struct(cfg.Server); err != nil {
		return wrapFieldErrors("server", err)
	}
	if err := structValidate.Struct(cfg.Queue); err != nil {
		return wrapFieldErrors("queue", err)
	}
	if err := structValidate.Struct(cfg.LLM); err != nil {
		return wrapFieldErrors("llm", err)
	}
	if err := structValidate.Struct(cfg.Fetch); err != nil {
		return wrapFieldErrors("fetch", err)
	}
	if err := structValidate.Struct(cfg.RateLimit); err != nil {
		return wrapFieldErrors("rate_limit", err)
	}
	if err := structValidate.Struct(cfg.Reasoning); err != nil {
		return wrapFieldErrors("reasoning", err)
	}

	if cfg.Queue.MaxConcurrentJobs < cfg.Queue.WorkerCount {
		return NewValidationError("queue.max_concurrent_jobs",
			fmt.Errorf("must be >= worker_count (%d)", cfg.Queue.WorkerCount))
	}
	if os.Getenv(cfg.LLM.HostedAPIKeyEnv) == "" {
		return NewValidationError("llm.hosted_api_key_env",
			fmt.Errorf("environment variable %s is not set", cfg.LLM.HostedAPIKeyEnv))
	}
	return nil
}

func wrapFieldErrors(section string, err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return NewValidationError(section, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s.%s failed %q", section, fe.Field(), fe.Tag()))
	}
	return NewValidationError(section, fmt.Errorf("%s", strings.Join(parts, ", ")))
}
