package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papergraph/paperd/pkg/cache"
	"github.com/papergraph/paperd/pkg/llm/llmtest"
	"github.com/papergraph/paperd/pkg/perrors"
	"github.com/papergraph/paperd/pkg/usage"
)

type fakeUsageStore struct {
	events []usage.Event
}

func (s *fakeUsageStore) RecordUsageEvent(_ context.Context, e usage.Event) error {
	s.events = append(s.events, e)
	return nil
}

func (s *fakeUsageStore) SumUsageSince(context.Context, string, time.Time) (usage.Totals, error) {
	return usage.Totals{}, nil
}

func newTestRunner(t *testing.T, fake *llmtest.Fake) (*Runner, *fakeUsageStore) {
	t.Helper()
	resolve := func(ctx context.Context, tenantID string) (ModelClient, string, error) {
		return fake, "hosted", nil
	}
	store := &fakeUsageStore{}
	ledger := usage.NewLedger(store)
	return NewRunner(resolve, cache.NewCallCache(cache.NewMemoryTier(0), nil), ledger, 4, 1.15, false), store
}

func TestGenerateSuccessOnFirstAttempt(t *testing.T) {
	fake := llmtest.NewFake()
	fake.AddSequential(llmtest.ScriptEntry{
		Text:         `{"entities":[{"type":"method","canonical_name":"transformer","original_confidence":0.9}]}`,
		InputTokens:  100,
		OutputTokens: 50,
	})
	runner, store := newTestRunner(t, fake)

	out, err := Generate[EntityExtractionOutput](context.Background(), runner, CallOptions{
		TenantID:   "t1",
		Agent:      AgentEntityExtraction,
		Model:      "claude-haiku-4-5",
		UserPrompt: "extract entities",
		CacheInput: map[string]interface{}{"sections": "..."},
	})
	require.NoError(t, err)
	require.Len(t, out.Entities, 1)
	assert.Equal(t, "transformer", out.Entities[0].CanonicalName)
	require.Len(t, store.events, 1)
	assert.Equal(t, string(AgentEntityExtraction), store.events[0].Agent)
	assert.Greater(t, store.events[0].CostUSD, 0.0)
}

func TestGenerateCacheHitSkipsSecondCall(t *testing.T) {
	fake := llmtest.NewFake()
	fake.AddSequential(llmtest.ScriptEntry{
		Text: `{"entities":[{"type":"method","canonical_name":"transformer","original_confidence":0.9}]}`,
	})
	runner, _ := newTestRunner(t, fake)
	opts := CallOptions{
		TenantID:   "t1",
		Agent:      AgentEntityExtraction,
		Model:      "claude-haiku-4-5",
		UserPrompt: "extract entities",
		CacheInput: map[string]interface{}{"sections": "fixed"},
	}

	_, err := Generate[EntityExtractionOutput](context.Background(), runner, opts)
	require.NoError(t, err)

	_, err = Generate[EntityExtractionOutput](context.Background(), runner, opts)
	require.NoError(t, err)

	assert.Len(t, fake.Calls(), 1, "second call must be served from cache, not hit the model")
}

func TestGenerateRetriesOnSchemaFailureThenSucceeds(t *testing.T) {
	fake := llmtest.NewFake()
	fake.AddSequential(llmtest.ScriptEntry{Text: `not json`})
	fake.AddSequential(llmtest.ScriptEntry{Text: `{"relationships":[{"source":"a","target":"b","type":"uses","confidence":0.9}]}`})
	runner, _ := newTestRunner(t, fake)

	out, err := Generate[RelationshipCoreOutput](context.Background(), runner, CallOptions{
		TenantID:   "t1",
		Agent:      AgentRelationshipCore,
		Model:      "claude-haiku-4-5",
		UserPrompt: "extract relationships",
		CacheInput: map[string]interface{}{"entities": []string{"a", "b"}},
	})
	require.NoError(t, err)
	require.Len(t, out.Relationships, 1)
	assert.Len(t, fake.Calls(), 2)
}

func TestGenerateExhaustsRetriesAndReturnsSchemaValidationError(t *testing.T) {
	fake := llmtest.NewFake()
	for i := 0; i < MaxAttempts; i++ {
		fake.AddSequential(llmtest.ScriptEntry{Text: `not json`})
	}
	runner, _ := newTestRunner(t, fake)

	_, err := Generate[RelationshipCoreOutput](context.Background(), runner, CallOptions{
		TenantID:   "t1",
		Agent:      AgentRelationshipCore,
		Model:      "claude-haiku-4-5",
		UserPrompt: "extract relationships",
		CacheInput: map[string]interface{}{"entities": []string{"x"}},
	})
	require.Error(t, err)
	var schemaErr *perrors.SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, string(AgentRelationshipCore), schemaErr.Agent)
	assert.Equal(t, MaxAttempts, schemaErr.Attempts)
	assert.Len(t, fake.Calls(), MaxAttempts)
}

func TestGenerateFoldsPriorFailureIntoRetryPrompt(t *testing.T) {
	fake := llmtest.NewFake()
	fake.AddSequential(llmtest.ScriptEntry{Text: `not json`})
	fake.AddSequential(llmtest.ScriptEntry{Text: `{"entities":[{"type":"method","canonical_name":"transformer","original_confidence":0.9}]}`})
	runner, _ := newTestRunner(t, fake)

	_, err := Generate[EntityExtractionOutput](context.Background(), runner, CallOptions{
		TenantID:   "t1",
		Agent:      AgentEntityExtraction,
		Model:      "claude-haiku-4-5",
		UserPrompt: "extract entities",
		CacheInput: map[string]interface{}{"sections": "retry-feedback"},
	})
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.NotContains(t, calls[0].UserPrompt, "failed validation", "first attempt carries no prior failure yet")
	assert.Contains(t, calls[1].UserPrompt, "failed validation", "retry must fold the prior parse error back into the prompt")
	assert.Contains(t, calls[1].UserPrompt, "valid JSON only", "non-RelationshipCore agents get a valid-JSON nudge on retry")
}

func TestGenerateRelationshipCoreRetryOmitsJSONNudge(t *testing.T) {
	fake := llmtest.NewFake()
	fake.AddSequential(llmtest.ScriptEntry{Text: `not json`})
	fake.AddSequential(llmtest.ScriptEntry{Text: `{"relationships":[{"source":"a","target":"b","type":"uses","confidence":0.9}]}`})
	runner, _ := newTestRunner(t, fake)

	_, err := Generate[RelationshipCoreOutput](context.Background(), runner, CallOptions{
		TenantID:   "t1",
		Agent:      AgentRelationshipCore,
		Model:      "claude-haiku-4-5",
		UserPrompt: "extract relationships",
		CacheInput: map[string]interface{}{"entities": []string{"a", "b"}},
	})
	require.NoError(t, err)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].UserPrompt, "failed validation")
	assert.NotContains(t, calls[1].UserPrompt, "valid JSON only", "RelationshipCore relies on compressionSuffix, not the JSON nudge")
}

type stallingClient struct{}

func (stallingClient) Generate(ctx context.Context, _ GenerateRequest) (GenerateResponse, error) {
	<-ctx.Done()
	return GenerateResponse{}, ctx.Err()
}

func TestGenerateTimeoutReturnsTimeoutError(t *testing.T) {
	resolve := func(ctx context.Context, tenantID string) (ModelClient, string, error) {
		return stallingClient{}, "hosted", nil
	}
	runner := NewRunner(resolve, cache.NewCallCache(cache.NewMemoryTier(0), nil), nil, 4, 1.15, false)

	_, err := Generate[EntityExtractionOutput](context.Background(), runner, CallOptions{
		TenantID:   "t1",
		Agent:      AgentEntityExtraction,
		Model:      "claude-haiku-4-5",
		UserPrompt: "extract entities",
		CacheInput: map[string]interface{}{"sections": "stall"},
		TimeoutMS:  5,
	})
	require.Error(t, err)
	var timeoutErr *perrors.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, string(AgentEntityExtraction), timeoutErr.Agent)
}
