package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/papergraph/paperd/pkg/config"
	"github.com/papergraph/paperd/pkg/graphstore"
	"github.com/papergraph/paperd/pkg/pipeline"
	"github.com/papergraph/paperd/pkg/queue"
)

// Executor adapts pipeline.Driver to queue.JobExecutor: it reads the
// ResolvedInput stashed under the job's Result by Submit, loads the
// tenant's settings, and runs the staged pipeline. Grounded on the
// teacher's own thin chat-executor-over-orchestration-engine adapter,
// which exists for exactly this reason: the worker pool only knows about
// JobExecutor, not the domain engine underneath it.
type Executor struct {
	store     graphstore.GraphStore
	driver    *pipeline.Driver
	reasoning config.ReasoningConfig
}

// NewExecutor wires an Executor. reasoning supplies the
// enabled/depth/full-graph defaults a submission inherits unless it set
// its own override.
func NewExecutor(store graphstore.GraphStore, driver *pipeline.Driver, reasoning config.ReasoningConfig) *Executor {
	return &Executor{store: store, driver: driver, reasoning: reasoning}
}

// Execute implements queue.JobExecutor.
func (e *Executor) Execute(ctx context.Context, job *graphstore.PipelineJob, onProgress func(stage string)) *queue.ExecutionResult {
	input, err := decodeInput(job.Result)
	if err != nil {
		return &queue.ExecutionResult{Status: graphstore.JobStatusFailed, Error: fmt.Errorf("executor: decode job input: %w", err)}
	}

	settings, err := e.store.GetTenantSettings(ctx, job.TenantID)
	if err != nil {
		return &queue.ExecutionResult{Status: graphstore.JobStatusFailed, Error: fmt.Errorf("executor: get tenant settings: %w", err)}
	}
	if settings == nil {
		settings = &graphstore.TenantSettings{TenantID: job.TenantID, MaxReasoningDepth: e.reasoning.DefaultDepth}
	}

	paper := pipeline.PaperInput{
		PaperID:  input.PaperID,
		RawText:  input.RawText,
		Title:    input.Title,
		Year:     input.Year,
		Abstract: input.Abstract,
		Metadata: input.Metadata,
	}

	// cfg.Reasoning supplies the process-wide defaults; a submission's own
	// ReasoningEnabled/ReasoningDepth/FullGraph (set via the API) always
	// wins when present. ReasoningDepth is left nil unless the submission
	// overrides it, so the driver still falls back to the tenant's own
	// MaxReasoningDepth setting.
	reasoningEnabled := e.reasoning.EnabledByDefault && settings.MaxReasoningDepth > 0
	if input.ReasoningEnabled != nil {
		reasoningEnabled = *input.ReasoningEnabled
	}

	fullGraph := e.reasoning.FullGraphDefault
	if input.FullGraph != nil {
		fullGraph = *input.FullGraph
	}

	opts := pipeline.Options{
		ForceReingest:    job.ForceReingest || input.Force,
		ReasoningEnabled: reasoningEnabled,
		ReasoningDepth:   input.ReasoningDepth,
		FullGraph:        fullGraph,
	}

	result, err := e.driver.Run(ctx, job.TenantID, job.ID, paper, *settings, opts, onProgress)
	if err != nil {
		return &queue.ExecutionResult{Status: graphstore.JobStatusFailed, Error: err}
	}

	statsPayload, marshalErr := structToMap(result.Stats)
	if marshalErr != nil {
		statsPayload = map[string]interface{}{}
	}

	return &queue.ExecutionResult{
		Status: graphstore.JobStatusCompleted,
		Result: map[string]interface{}{
			"stage": result.Stage,
			"stats": statsPayload,
		},
	}
}

func structToMap(v interface{}) (map[string]interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
