// Package usage meters LLM spend per tenant and gates admission against
// configured cost and token ceilings.
package usage

import "time"

// Event is one metered LLM call, mirroring the ent UsageEvent schema.
type Event struct {
	TenantID         string
	JobID            string
	Agent            string
	Model            string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	CacheHit         bool
	CreatedAt        time.Time
}

// Totals is the aggregate cost/token sum for a window, optionally broken
// down per stage (agent). There is no per-model breakdown.
type Totals struct {
	CostUSD float64
	Tokens  int
	ByAgent map[string]StageTotals
}

// StageTotals is the per-agent breakdown within a Totals window.
type StageTotals struct {
	CostUSD float64
	Tokens  int
	Calls   int
}

// Window identifies the aggregation period a Limiter checks against.
type Window string

const (
	WindowDaily   Window = "daily"
	WindowMonthly Window = "monthly"
)

// State is the Limiter's verdict for one (window, metric) pair.
type State string

const (
	StateOK       State = "ok"
	StateWarning  State = "warning"
	StateExceeded State = "exceeded"
)

const (
	warningThreshold = 0.80
)
