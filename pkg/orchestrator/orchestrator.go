package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/papergraph/paperd/pkg/config"
	"github.com/papergraph/paperd/pkg/graphstore"
	"github.com/papergraph/paperd/pkg/perrors"
	"github.com/papergraph/paperd/pkg/usage"
)

// Orchestrator is JobOrchestrator: it admits submissions, resolves their
// content, and persists a pending PipelineJob for the queue to pick up.
// It never runs the pipeline itself; Executor does that on the worker side.
type Orchestrator struct {
	store         graphstore.GraphStore
	limiter       *usage.Limiter
	demoAllowlist DemoAllowlist
	rateLimit     config.RateLimitConfig
	fetch         *fetcher
	contentParser ContentParser
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithDemoAllowlist overrides the default empty allowlist.
func WithDemoAllowlist(a DemoAllowlist) Option {
	return func(o *Orchestrator) { o.demoAllowlist = a }
}

// WithContentParser overrides the default HTML/PDF/plain-text parser, e.g.
// to swap in a higher-fidelity PDF extractor.
func WithContentParser(p ContentParser) Option {
	return func(o *Orchestrator) { o.contentParser = p }
}

// New wires an Orchestrator. limiter may be nil to skip usage-ceiling
// admission entirely (e.g. in tests exercising only the rate limit gate).
func New(store graphstore.GraphStore, limiter *usage.Limiter, rateLimit config.RateLimitConfig, fetchCfg config.FetchConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:         store,
		limiter:       limiter,
		demoAllowlist: NewStaticDemoAllowlist(),
		rateLimit:     rateLimit,
		fetch:         newFetcher(fetchCfg),
		contentParser: newDefaultContentParser(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit runs admission, resolves the submission's content, and persists a
// pending PipelineJob. It returns the new job's ID.
func (o *Orchestrator) Submit(ctx context.Context, tenantID string, req SubmitRequest) (string, error) {
	if err := o.admit(ctx, tenantID); err != nil {
		return "", err
	}

	input, err := o.resolveInput(ctx, req)
	if err != nil {
		return "", err
	}

	jobID := uuid.NewString()
	resultPayload, err := encodeInput(input)
	if err != nil {
		return "", fmt.Errorf("orchestrator: encode resolved input: %w", err)
	}

	job := graphstore.PipelineJob{
		ID:            jobID,
		TenantID:      tenantID,
		PaperID:       input.PaperID,
		Status:        graphstore.JobStatusPending,
		Result:        resultPayload,
		ForceReingest: input.Force,
		CreatedAt:     clockNow(),
	}

	if err := o.store.CreatePipelineJob(ctx, job); err != nil {
		return "", fmt.Errorf("orchestrator: create pipeline job: %w", err)
	}

	slog.Info("pipeline job submitted", "tenant_id", tenantID, "job_id", jobID, "paper_id", input.PaperID)
	return jobID, nil
}

// Status returns the job's latest persisted state verbatim.
func (o *Orchestrator) Status(ctx context.Context, tenantID, jobID string) (*graphstore.PipelineJob, error) {
	job, err := o.store.GetPipelineJob(ctx, tenantID, jobID)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: get pipeline job: %w", err)
	}
	if job == nil {
		return nil, perrors.NewNotFound("pipeline_job", jobID)
	}
	return job, nil
}

// List returns a page of the tenant's jobs, most recent first.
func (o *Orchestrator) List(ctx context.Context, tenantID string, filter graphstore.JobListFilter) ([]graphstore.PipelineJob, int, error) {
	jobs, total, err := o.store.ListPipelineJobs(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("orchestrator: list pipeline jobs: %w", err)
	}
	return jobs, total, nil
}

// resolveInput dispatches on req.Kind to produce a ResolvedInput ready for
// the pipeline driver.
func (o *Orchestrator) resolveInput(ctx context.Context, req SubmitRequest) (ResolvedInput, error) {
	switch req.Kind {
	case SourceRawText:
		return o.resolveRawText(req)
	case SourceFile:
		return o.resolveFile(ctx, req)
	case SourceURL:
		return o.resolveURL(ctx, req)
	default:
		return ResolvedInput{}, perrors.NewInvalidInput(fmt.Sprintf("unknown source kind %q", req.Kind))
	}
}

func (o *Orchestrator) resolveRawText(req SubmitRequest) (ResolvedInput, error) {
	if req.PaperID == "" {
		return ResolvedInput{}, perrors.NewInvalidInput("paper_id is required for raw text submissions")
	}
	if req.RawText == "" {
		return ResolvedInput{}, perrors.NewInvalidInput("raw_text must not be empty")
	}
	return ResolvedInput{
		PaperID:          req.PaperID,
		RawText:          req.RawText,
		Title:            req.Title,
		Year:             req.Year,
		Abstract:         req.Abstract,
		Force:            req.Force,
		ReasoningEnabled: req.ReasoningEnabled,
		ReasoningDepth:   req.ReasoningDepth,
		FullGraph:        req.FullGraph,
	}, nil
}

func (o *Orchestrator) resolveFile(ctx context.Context, req SubmitRequest) (ResolvedInput, error) {
	if req.PaperID == "" {
		return ResolvedInput{}, perrors.NewInvalidInput("paper_id is required for file submissions")
	}
	if len(req.FileBuffer) == 0 {
		return ResolvedInput{}, perrors.NewInvalidInput("file buffer must not be empty")
	}

	kind := classifyContentType("", req.FileExt)
	text, metadata, err := o.parseByKind(ctx, kind, req.FileBuffer)
	if err != nil {
		return ResolvedInput{}, err
	}

	return ResolvedInput{
		PaperID:          req.PaperID,
		RawText:          text,
		Metadata:         metadata,
		Force:            req.Force,
		ReasoningEnabled: req.ReasoningEnabled,
		ReasoningDepth:   req.ReasoningDepth,
		FullGraph:        req.FullGraph,
	}, nil
}

func (o *Orchestrator) resolveURL(ctx context.Context, req SubmitRequest) (ResolvedInput, error) {
	if req.URL == "" {
		return ResolvedInput{}, perrors.NewInvalidInput("url must not be empty")
	}

	fetched, err := o.fetch.Fetch(ctx, req.URL)
	if err != nil {
		return ResolvedInput{}, err
	}

	kind := classifyContentType(fetched.ContentType, "")

	paperID := req.PaperID
	if paperID == "" {
		paperID = derivePaperIDFromURL(req.URL)
	}

	if kind == contentJSON {
		extraction, err := parseJSONContent(fetched.Body)
		if err != nil {
			return ResolvedInput{}, err
		}
		return ResolvedInput{
			PaperID:          paperID,
			RawText:          extraction.Text,
			Title:            extraction.Title,
			Abstract:         extraction.Abstract,
			Year:             extraction.Year,
			Metadata:         extraction.Metadata,
			Force:            req.Force,
			ReasoningEnabled: req.ReasoningEnabled,
			ReasoningDepth:   req.ReasoningDepth,
			FullGraph:        req.FullGraph,
		}, nil
	}

	text, metadata, err := o.parseByKind(ctx, kind, fetched.Body)
	if err != nil {
		return ResolvedInput{}, err
	}
	return ResolvedInput{
		PaperID:          paperID,
		RawText:          text,
		Metadata:         metadata,
		Force:            req.Force,
		ReasoningEnabled: req.ReasoningEnabled,
		ReasoningDepth:   req.ReasoningDepth,
		FullGraph:        req.FullGraph,
	}, nil
}

func (o *Orchestrator) parseByKind(ctx context.Context, kind contentTypeKind, body []byte) (string, map[string]interface{}, error) {
	switch kind {
	case contentPlain:
		return string(body), nil, nil
	case contentHTML, contentPDF:
		contentType := map[contentTypeKind]string{contentHTML: "text/html", contentPDF: "application/pdf"}[kind]
		return o.contentParser.Parse(ctx, body, contentType)
	default:
		return "", nil, perrors.NewUnsupportedContentType(string(kind))
	}
}

func derivePaperIDFromURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return "url-" + hex.EncodeToString(sum[:])[:32]
}

func encodeInput(input ResolvedInput) (map[string]interface{}, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return map[string]interface{}{inputResultKey: m}, nil
}

func decodeInput(result map[string]interface{}) (ResolvedInput, error) {
	raw, ok := result[inputResultKey]
	if !ok {
		return ResolvedInput{}, fmt.Errorf("pipeline job result missing %q", inputResultKey)
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return ResolvedInput{}, err
	}
	var input ResolvedInput
	if err := json.Unmarshal(b, &input); err != nil {
		return ResolvedInput{}, err
	}
	return input, nil
}
