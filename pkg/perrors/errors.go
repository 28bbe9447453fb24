// Package perrors defines the error taxonomy shared across the pipeline,
// queue and API layers, and the mapping from each kind to an HTTP status.
package perrors

import (
	"errors"
	"fmt"
)

// Sentinel kinds usable with errors.Is. Stage-specific errors below carry
// additional context and still satisfy errors.Is against these via Unwrap.
var (
	ErrRateLimited      = errors.New("rate limited")
	ErrUsageLimitExceed = errors.New("usage limit exceeded")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrTenantRequired   = errors.New("tenant required")
	ErrDemoBlocked      = errors.New("processing disabled for demo accounts")
)

// TimeoutError indicates an LLM call exceeded its configured timeout.
type TimeoutError struct {
	Agent string
	MS    int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: call exceeded timeout of %dms", e.Agent, e.MS)
}

// NewTimeout constructs a TimeoutError.
func NewTimeout(agent string, ms int) error {
	return &TimeoutError{Agent: agent, MS: ms}
}

// SchemaValidationError indicates structured output failed schema
// validation after exhausting all retry/compression attempts.
type SchemaValidationError struct {
	Agent    string
	Details  string
	Attempts int
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s: schema validation failed after %d attempts: %s", e.Agent, e.Attempts, e.Details)
}

// NewSchemaValidation constructs a SchemaValidationError.
func NewSchemaValidation(agent, details string, attempts int) error {
	return &SchemaValidationError{Agent: agent, Details: details, Attempts: attempts}
}

// AgentExecutionError wraps any other failure during an LLM stage. Every
// error returned by a stage runner that is not a TimeoutError or
// SchemaValidationError is wrapped into one of these before propagation.
type AgentExecutionError struct {
	Agent string
	Cause error
}

func (e *AgentExecutionError) Error() string {
	return fmt.Sprintf("%s: agent execution failed: %v", e.Agent, e.Cause)
}

func (e *AgentExecutionError) Unwrap() error {
	return e.Cause
}

// NewAgentExecution constructs an AgentExecutionError, or returns cause
// unchanged if it is already one of the three LLM-stage error kinds.
func NewAgentExecution(agent string, cause error) error {
	if cause == nil {
		return nil
	}
	var te *TimeoutError
	var se *SchemaValidationError
	var ae *AgentExecutionError
	if errors.As(cause, &te) || errors.As(cause, &se) || errors.As(cause, &ae) {
		return cause
	}
	return &AgentExecutionError{Agent: agent, Cause: cause}
}

// InvalidInputError carries the specific reason a submission was rejected:
// bad URL, unsupported content type, missing fields, private-network host.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// NewInvalidInput constructs an InvalidInputError.
func NewInvalidInput(reason string) error {
	return &InvalidInputError{Reason: reason}
}

// NotFoundError identifies the kind and id of the missing resource.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NewNotFound constructs a NotFoundError.
func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// UsageLimitError reports which ceiling (daily/monthly, cost/token) was
// breached for a tenant.
type UsageLimitError struct {
	Tenant string
	Window string
	Metric string
}

func (e *UsageLimitError) Error() string {
	return fmt.Sprintf("tenant %s exceeded %s %s limit", e.Tenant, e.Window, e.Metric)
}

func (e *UsageLimitError) Unwrap() error {
	return ErrUsageLimitExceed
}

// NewUsageLimit constructs a UsageLimitError.
func NewUsageLimit(tenant, window, metric string) error {
	return &UsageLimitError{Tenant: tenant, Window: window, Metric: metric}
}

// RateLimitedError reports a per-tenant admission rate-limit breach.
type RateLimitedError struct {
	Tenant string
	Limit  int
	Window string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("tenant %s exceeded %d submissions per %s", e.Tenant, e.Limit, e.Window)
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// NewRateLimited constructs a RateLimitedError.
func NewRateLimited(tenant string, limit int, window string) error {
	return &RateLimitedError{Tenant: tenant, Limit: limit, Window: window}
}

// DemoBlockedError reports that a fixed demo-account allowlist blocked
// submission for this tenant.
type DemoBlockedError struct {
	Tenant string
}

func (e *DemoBlockedError) Error() string {
	return fmt.Sprintf("tenant %s is a demo account, processing is disabled", e.Tenant)
}

func (e *DemoBlockedError) Unwrap() error {
	return ErrDemoBlocked
}

// NewDemoBlocked constructs a DemoBlockedError.
func NewDemoBlocked(tenant string) error {
	return &DemoBlockedError{Tenant: tenant}
}

// UnsupportedContentTypeError reports a URL fetch whose Content-Type
// doesn't match any of the supported parsers.
type UnsupportedContentTypeError struct {
	ContentType string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("unsupported content type: %s", e.ContentType)
}

func (e *UnsupportedContentTypeError) Unwrap() error {
	return ErrInvalidInput
}

// NewUnsupportedContentType constructs an UnsupportedContentTypeError.
func NewUnsupportedContentType(contentType string) error {
	return &UnsupportedContentTypeError{ContentType: contentType}
}
