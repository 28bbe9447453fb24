// Package llmtest provides a scripted fake of llm.ModelClient so pipeline
// and runner tests never make a network call.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/papergraph/paperd/pkg/llm"
)

// ScriptEntry defines one scripted response. Exactly one of Text or Error
// should be set.
type ScriptEntry struct {
	Text         string
	InputTokens  int
	OutputTokens int
	FinishReason string
	Error        error
}

// Fake implements llm.ModelClient with sequential, per-call-site
// responses: each Generate call consumes the next entry in the queue for
// a given schema name, falling back to a default queue when no
// schema-specific queue is configured.
type Fake struct {
	mu          sync.Mutex
	routed      map[string][]ScriptEntry
	routedIndex map[string]int
	sequential  []ScriptEntry
	seqIndex    int
	calls       []llm.GenerateRequest
}

// NewFake constructs an empty Fake; use AddSequential/AddRouted to script
// responses before use.
func NewFake() *Fake {
	return &Fake{
		routed:      make(map[string][]ScriptEntry),
		routedIndex: make(map[string]int),
	}
}

// AddSequential queues entry for any call not matched by a routed queue.
func (f *Fake) AddSequential(entry ScriptEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sequential = append(f.sequential, entry)
}

// AddRouted queues entry for calls whose SchemaName equals schemaName.
func (f *Fake) AddRouted(schemaName string, entry ScriptEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routed[schemaName] = append(f.routed[schemaName], entry)
}

// Calls returns every request Generate has received so far, in order.
func (f *Fake) Calls() []llm.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.GenerateRequest(nil), f.calls...)
}

// Generate implements llm.ModelClient.
func (f *Fake) Generate(_ context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)

	entry, err := f.nextEntry(req.SchemaName)
	f.mu.Unlock()
	if err != nil {
		return llm.GenerateResponse{}, err
	}
	if entry.Error != nil {
		return llm.GenerateResponse{}, entry.Error
	}

	finish := entry.FinishReason
	if finish == "" {
		finish = "end_turn"
	}
	return llm.GenerateResponse{
		Text: entry.Text,
		Usage: llm.Usage{
			InputTokens:  entry.InputTokens,
			OutputTokens: entry.OutputTokens,
		},
		FinishReason: finish,
	}, nil
}

func (f *Fake) nextEntry(schemaName string) (ScriptEntry, error) {
	if queue, ok := f.routed[schemaName]; ok {
		idx := f.routedIndex[schemaName]
		if idx >= len(queue) {
			return ScriptEntry{}, fmt.Errorf("llmtest: routed script for %q exhausted", schemaName)
		}
		f.routedIndex[schemaName] = idx + 1
		return queue[idx], nil
	}
	if f.seqIndex >= len(f.sequential) {
		return ScriptEntry{}, fmt.Errorf("llmtest: sequential script exhausted (schema %q)", schemaName)
	}
	entry := f.sequential[f.seqIndex]
	f.seqIndex++
	return entry, nil
}
