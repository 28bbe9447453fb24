package llm

// Agent names a fixed LLM invocation point in the pipeline, each with its
// own prompt, schema and retry policy.
type Agent string

const (
	AgentIngestion             Agent = "ingestion"
	AgentEntityExtraction      Agent = "entity_extraction"
	AgentRelationshipCore      Agent = "relationship_core"
	AgentRelationshipEvidence  Agent = "relationship_evidence"
	AgentReasoning             Agent = "reasoning"
)

// versions pins (prompt_version, schema_version) per agent. Both numbers
// are part of every cache key, so bumping either here invalidates every
// cached result for that agent on next deploy.
var versions = map[Agent]struct{ Prompt, Schema int }{
	AgentIngestion:            {Prompt: 1, Schema: 1},
	AgentEntityExtraction:     {Prompt: 1, Schema: 1},
	AgentRelationshipCore:     {Prompt: 1, Schema: 1},
	AgentRelationshipEvidence: {Prompt: 1, Schema: 1},
	AgentReasoning:            {Prompt: 1, Schema: 1},
}

// Versions returns the (promptVersion, schemaVersion) pair for agent.
func Versions(agent Agent) (int, int) {
	v := versions[agent]
	return v.Prompt, v.Schema
}

// DefaultTimeoutMS is the per-call timeout absent an explicit override.
const DefaultTimeoutMS = 30_000

// MaxAttempts bounds the normal→compact→minimal retry ladder: one attempt
// per compression level.
const MaxAttempts = 3
