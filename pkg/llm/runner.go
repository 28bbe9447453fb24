package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/papergraph/paperd/pkg/cache"
	"github.com/papergraph/paperd/pkg/perrors"
	"github.com/papergraph/paperd/pkg/usage"
)

// ClientResolver returns the ModelClient to use for a tenant's call and
// the execution mode that produced it ("hosted" or "byo_key") — hosted
// mode resolves to the process's own API key, byo_key mode resolves to
// the tenant's decrypted key. Resolution is injected so the runner never
// needs to know about pkg/secrets directly.
type ClientResolver func(ctx context.Context, tenantID string) (client ModelClient, executionMode string, err error)

// Runner executes agent calls: cache lookup, named concurrency limiting,
// per-call timeout, and the normal→compact→minimal retry ladder on
// schema validation failure.
type Runner struct {
	resolve      ClientResolver
	callCache    *cache.CallCache
	sem          *semaphore.Weighted
	ledger       *usage.Ledger
	hostedMarkup float64
	debug        bool
}

// NewRunner wires a Runner. maxConcurrent bounds the number of in-flight
// model calls across all tenants, named "structured_llm" in logs and
// metrics to distinguish it from any future concurrency pool.
func NewRunner(resolve ClientResolver, callCache *cache.CallCache, ledger *usage.Ledger, maxConcurrent int64, hostedMarkup float64, debug bool) *Runner {
	return &Runner{
		resolve:      resolve,
		callCache:    callCache,
		sem:          semaphore.NewWeighted(maxConcurrent),
		ledger:       ledger,
		hostedMarkup: hostedMarkup,
		debug:        debug,
	}
}

// CallOptions parameterizes one Generate call.
type CallOptions struct {
	TenantID     string
	JobID        string
	Agent        Agent
	Model        string
	SystemPrompt string
	UserPrompt   string
	// CacheInput is the canonical-JSON input used to derive the cache
	// key; it is typically the same structured input the prompt was
	// built from, not the rendered prompt string itself, so a prompt
	// wording tweak under the same promptVersion doesn't silently
	// invalidate the cache.
	CacheInput interface{}
	TimeoutMS  int
}

// Generate runs options through the cache-then-call-then-validate
// pipeline and decodes the result into a T. T must match the agent's
// schema type (see schema.go).
func Generate[T any](ctx context.Context, r *Runner, opts CallOptions) (T, error) {
	var zero T

	promptVersion, schemaVersion := Versions(opts.Agent)
	provider := "anthropic" // only provider wired today; resolve() may still pick a different key
	key, err := cache.CallKey(opts.TenantID, string(opts.Agent), opts.Model, provider, promptVersion, schemaVersion, opts.CacheInput)
	if err != nil {
		return zero, fmt.Errorf("llm: derive cache key: %w", err)
	}

	var cached T
	hit, err := r.callCache.Get(ctx, key, &cached)
	if err != nil {
		return zero, fmt.Errorf("llm: cache get: %w", err)
	}
	if hit {
		return cached, nil
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return zero, fmt.Errorf("llm: acquire structured_llm semaphore: %w", err)
	}
	defer r.sem.Release(1)

	client, executionMode, err := r.resolve(ctx, opts.TenantID)
	if err != nil {
		return zero, perrors.NewAgentExecution(string(opts.Agent), fmt.Errorf("resolve model client: %w", err))
	}

	timeoutMS := opts.TimeoutMS
	if timeoutMS <= 0 {
		timeoutMS = DefaultTimeoutMS
	}

	level := CompressionNormal
	var lastDetails string
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		prompt := applyCompression(opts.Agent, opts.UserPrompt, level, lastDetails)

		callCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
		resp, callErr := client.Generate(callCtx, GenerateRequest{
			Model:        opts.Model,
			SystemPrompt: opts.SystemPrompt,
			UserPrompt:   prompt,
			SchemaName:   string(opts.Agent),
			TimeoutMS:    timeoutMS,
		})
		cancel()

		if callErr != nil {
			if callCtx.Err() == context.DeadlineExceeded {
				return zero, perrors.NewTimeout(string(opts.Agent), timeoutMS)
			}
			return zero, perrors.NewAgentExecution(string(opts.Agent), callErr)
		}

		parsed, parseErr := ParseAndValidate[T](resp.Text)
		if parseErr == nil {
			if r.ledger != nil {
				_ = r.ledger.Record(ctx, usage.Event{
					TenantID:         opts.TenantID,
					JobID:            opts.JobID,
					Agent:            string(opts.Agent),
					Model:            opts.Model,
					PromptTokens:     resp.Usage.InputTokens,
					CompletionTokens: resp.Usage.OutputTokens,
					CostUSD:          r.estimateCost(opts.Model, executionMode, resp.Usage),
				})
			}
			if level == CompressionNormal {
				if err := r.callCache.Set(ctx, key, parsed); err != nil {
					return zero, fmt.Errorf("llm: cache set: %w", err)
				}
			}
			return parsed, nil
		}

		lastDetails = parseErr.Error()
		next, more := nextLevel(level)
		if !more && attempt == MaxAttempts {
			break
		}
		level = next
	}

	return zero, perrors.NewSchemaValidation(string(opts.Agent), lastDetails, MaxAttempts)
}

// estimateCost applies a per-1k-token rate table with a hosted markup.
// byo_key calls never carry a markup since the tenant pays the provider
// directly.
func (r *Runner) estimateCost(model, executionMode string, u Usage) float64 {
	rate := rateFor(model)
	cost := (float64(u.InputTokens)/1000.0)*rate.inPer1K + (float64(u.OutputTokens)/1000.0)*rate.outPer1K
	if executionMode == "hosted" {
		cost *= r.hostedMarkup
	}
	return cost
}
