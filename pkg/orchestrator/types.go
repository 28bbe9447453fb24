// Package orchestrator implements JobOrchestrator: the admission path that
// turns a raw-text, file, or URL submission into a pending PipelineJob, plus
// the JobExecutor adapter the queue worker pool calls to actually run it.
package orchestrator

import (
	"context"
	"time"
)

// SourceKind tags which of the three submission shapes a SubmitRequest
// carries. Exactly one of the corresponding fields is populated.
type SourceKind string

const (
	SourceRawText SourceKind = "raw_text"
	SourceFile    SourceKind = "file"
	SourceURL     SourceKind = "url"
)

// SubmitRequest is the orchestrator's single entry point for new work.
// PaperID is required for SourceRawText and SourceFile; SourceURL derives
// one from the URL if PaperID is empty.
type SubmitRequest struct {
	Kind  SourceKind
	Force bool

	// SourceRawText
	PaperID  string
	RawText  string
	Title    string
	Year     *int
	Abstract string

	// SourceFile
	FileBuffer []byte
	FileExt    string

	// SourceURL
	URL string

	// Reasoning overrides. Nil means "inherit the process-wide
	// ReasoningConfig default" — set only when the caller explicitly
	// asked for a specific value, so an explicit zero depth is
	// distinguishable from "unset".
	ReasoningEnabled *bool
	ReasoningDepth   *int
	FullGraph        *bool
}

// ResolvedInput is what admission produces once a submission has been
// fetched, parsed and validated. It is stashed under PipelineJob.Result's
// reserved "input" key at create time (PipelineJob carries no payload
// column) and read back out by Executor before handing it to the Driver.
type ResolvedInput struct {
	PaperID  string                 `json:"paper_id"`
	RawText  string                 `json:"raw_text"`
	Title    string                 `json:"title"`
	Year     *int                   `json:"year,omitempty"`
	Abstract string                 `json:"abstract"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Force    bool                   `json:"force"`

	ReasoningEnabled *bool `json:"reasoning_enabled,omitempty"`
	ReasoningDepth   *int  `json:"reasoning_depth,omitempty"`
	FullGraph        *bool `json:"full_graph,omitempty"`
}

// inputResultKey is the reserved PipelineJob.Result key ResolvedInput is
// marshaled under.
const inputResultKey = "input"

// ContentParser turns a fetched byte buffer of a known content type into
// plain text plus whatever metadata it can recover. Orchestrator wires a
// default implementation covering HTML, PDF and plain text;
// WithContentParser replaces it.
type ContentParser interface {
	Parse(ctx context.Context, body []byte, contentType string) (text string, metadata map[string]interface{}, err error)
}

// DemoAllowlist reports whether tenantID is a fixed demo account that must
// never be admitted for processing.
type DemoAllowlist interface {
	IsDemo(tenantID string) bool
}

// staticDemoAllowlist is the literal-list mechanism spec.md §4.1 calls for:
// a fixed set of tenant IDs, not a pattern or a remote lookup.
type staticDemoAllowlist map[string]struct{}

// NewStaticDemoAllowlist builds a DemoAllowlist from a fixed literal list of
// tenant IDs, grounded on the teacher's own demo-account gate in its alert
// ingestion path (a hardcoded set checked before any other admission rule).
func NewStaticDemoAllowlist(tenantIDs ...string) DemoAllowlist {
	s := make(staticDemoAllowlist, len(tenantIDs))
	for _, t := range tenantIDs {
		s[t] = struct{}{}
	}
	return s
}

func (s staticDemoAllowlist) IsDemo(tenantID string) bool {
	_, ok := s[tenantID]
	return ok
}

// nowFunc exists so tests can pin time without reaching for a package-level
// monkeypatch; production code leaves it at time.Now.
var nowFunc = time.Now

func clockNow() time.Time { return nowFunc() }
