package validation

// Confidence thresholds and penalties from the deterministic decision
// table. These are never configurable per tenant — TenantSettings'
// semantic_gating_threshold governs the alias resolver, a different
// decision surface.
const (
	ConfidenceReject = 0.3
	ConfidenceReview = 0.6
	OrphanPenalty    = 0.10
)

// ReviewStatus mirrors the ent schema's review_status enum.
type ReviewStatus string

const (
	StatusApproved ReviewStatus = "approved"
	StatusFlagged  ReviewStatus = "flagged"
	StatusRejected ReviewStatus = "rejected"
)

// EntityCandidate is one entity mention surfaced by entity extraction,
// before dedup/confidence review. Multiple candidates with the same
// (canonical name, type) represent repeated mentions and are collapsed.
type EntityCandidate struct {
	Name       string
	Type       string
	Confidence float64
	Metadata   map[string]interface{}
}

// ValidatedEntity is the ValidationEngine's decision for one canonical
// entity: its final confidence, review status, and the reasons that led
// there.
type ValidatedEntity struct {
	CanonicalName      string
	Type               string
	OriginalConfidence float64
	AdjustedConfidence float64
	MentionCount       int
	Status             ReviewStatus
	Reasons            []string
	Metadata           map[string]interface{}
}

// EdgeCandidate is one relationship proposed by relationship extraction,
// before validation.
type EdgeCandidate struct {
	Source           string
	Target           string
	RelationshipType string
	Confidence       float64
	Evidence         string
}

// ValidatedEdge is the ValidationEngine's decision for one edge.
type ValidatedEdge struct {
	Source           string
	Target           string
	RelationshipType string
	Confidence       float64
	Evidence         string
	Status           ReviewStatus
	Reasons          []string
}

// EntityKey is the (canonical name, type) identity used to index entities.
// Edge endpoints are resolved by canonical name alone.
type EntityKey struct {
	Name string
	Type string
}
