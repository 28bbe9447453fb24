// Package e2e boots a complete in-process paperd instance — orchestrator,
// worker pool, HTTP server — against an in-memory graph store and a
// scripted LLM, for tests that drive the system the way a real client
// would: submit a paper over HTTP, then poll job status until it settles.
package e2e

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/papergraph/paperd/pkg/api"
	"github.com/papergraph/paperd/pkg/cache"
	"github.com/papergraph/paperd/pkg/config"
	"github.com/papergraph/paperd/pkg/graphstore/memstore"
	"github.com/papergraph/paperd/pkg/llm"
	"github.com/papergraph/paperd/pkg/llm/llmtest"
	"github.com/papergraph/paperd/pkg/orchestrator"
	"github.com/papergraph/paperd/pkg/pipeline"
	"github.com/papergraph/paperd/pkg/queue"
	"github.com/papergraph/paperd/pkg/usage"
)

// TestApp boots a paperd instance for e2e testing.
type TestApp struct {
	Store *memstore.Store
	LLM   *llmtest.Fake
	Pool  *queue.WorkerPool

	Server  *httptest.Server
	BaseURL string

	t *testing.T
}

type testAppConfig struct {
	podID       string
	rateLimit   config.RateLimitConfig
	fetch       config.FetchConfig
	queueConfig *config.QueueConfig
	reasoning   config.ReasoningConfig
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

// WithPodID overrides the auto-generated worker pool pod ID.
func WithPodID(id string) TestAppOption {
	return func(c *testAppConfig) { c.podID = id }
}

// WithRateLimit overrides the default (generous) rate limit.
func WithRateLimit(rl config.RateLimitConfig) TestAppOption {
	return func(c *testAppConfig) { c.rateLimit = rl }
}

// NewTestApp wires the orchestrator, a scripted LLM-backed pipeline
// driver, a worker pool, and a gin HTTP server wrapped in an
// httptest.Server. Shutdown is registered via t.Cleanup.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	tc := &testAppConfig{
		rateLimit: config.RateLimitConfig{MaxJobsPerWindow: 1000, Window: time.Minute},
		fetch:     config.FetchConfig{MaxRedirects: 3, MaxBytes: 10 << 20, Timeout: 15 * time.Second},
		reasoning: config.ReasoningConfig{EnabledByDefault: true, DefaultDepth: 2, FullGraphDefault: false},
		queueConfig: &config.QueueConfig{
			WorkerCount:             2,
			MaxConcurrentJobs:       2,
			PollInterval:            20 * time.Millisecond,
			PollIntervalJitter:      10 * time.Millisecond,
			JobTimeout:              10 * time.Second,
			GracefulShutdownTimeout: 5 * time.Second,
			HeartbeatInterval:       time.Second,
			OrphanDetectionInterval: time.Minute,
			OrphanThreshold:         time.Minute,
		},
	}
	for _, opt := range opts {
		opt(tc)
	}
	if tc.podID == "" {
		tc.podID = fmt.Sprintf("e2e-%s", t.Name())
	}

	store := memstore.New()
	fake := llmtest.NewFake()

	ledger := usage.NewLedger(store)
	resolver := func(ctx context.Context, tenantID string) (llm.ModelClient, string, error) {
		return fake, "hosted", nil
	}
	runner := llm.NewRunner(resolver, cache.NewCallCache(cache.NewMemoryTier(0), nil), ledger, 4, 0, false)
	derived := cache.NewDerivedCache(cache.NewMemoryTier(0), nil)
	driver := pipeline.NewDriver(store, runner, derived, nil)
	exec := orchestrator.NewExecutor(store, driver, tc.reasoning)

	orch := orchestrator.New(store, usage.NewLimiter(ledger), tc.rateLimit, tc.fetch)

	pool := queue.NewWorkerPool(tc.podID, store, tc.queueConfig, exec)
	ctx := context.Background()
	require.NoError(t, pool.Start(ctx))
	t.Cleanup(pool.Stop)

	srv := api.NewServer(orch, pool, nil)
	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	return &TestApp{
		Store:   store,
		LLM:     fake,
		Pool:    pool,
		Server:  httpSrv,
		BaseURL: httpSrv.URL,
		t:       t,
	}
}

// ScriptHappyPath scripts a minimal successful ingestion → entity
// extraction → relationship extraction run with one entity and no edges.
func (a *TestApp) ScriptHappyPath() {
	a.LLM.AddRouted("ingestion", llmtest.ScriptEntry{Text: `{
		"sections": [{"type": "abstract", "content": "We study X.", "word_count": 4}],
		"authors": ["A. Researcher"],
		"year": 2024,
		"warnings": []
	}`})
	a.LLM.AddRouted("entity_extraction", llmtest.ScriptEntry{Text: `{
		"entities": [
			{"type": "method", "canonical_name": "Transformer", "original_confidence": 0.9, "definition": "An attention-based architecture."}
		]
	}`})
	a.LLM.AddRouted("relationship_core", llmtest.ScriptEntry{Text: `{"relationships": []}`})
}
