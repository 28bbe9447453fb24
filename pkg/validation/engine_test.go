package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeRoundTrip(t *testing.T) {
	inputs := []string{"  Neural   Network ", "TRANSFORMER", "already canonical", ""}
	for _, in := range inputs {
		once := Canonicalize(in)
		twice := Canonicalize(once)
		assert.Equal(t, once, twice, "canonicalize must be idempotent for %q", in)
	}
}

func TestBoundaryConfidenceDecisions(t *testing.T) {
	assert.Equal(t, StatusFlagged, confidenceDecision(0.3), "exactly 0.3 is not < reject threshold, so flagged")
	assert.Equal(t, StatusApproved, confidenceDecision(0.6), "exactly 0.6 is not < review threshold, so approved")
	assert.Equal(t, StatusRejected, confidenceDecision(0.29))
	assert.Equal(t, StatusFlagged, confidenceDecision(0.59))
}

func TestOrphanPenaltyAndReason(t *testing.T) {
	entities := ValidateEntities([]EntityCandidate{
		{Name: "Widget", Type: "method", Confidence: 0.4},
	})
	require.Len(t, entities, 1)
	e := entities[0]
	assert.InDelta(t, 0.30, e.AdjustedConfidence, 1e-9)
	assert.Equal(t, StatusFlagged, e.Status)
	assert.Contains(t, e.Reasons, "orphan_entity:single_mention")
}

func TestAdjustedNeverExceedsOriginalOrGoesBelowZero(t *testing.T) {
	entities := ValidateEntities([]EntityCandidate{
		{Name: "zero conf single", Type: "method", Confidence: 0.05},
		{Name: "high conf", Type: "method", Confidence: 0.95},
	})
	for _, e := range entities {
		assert.LessOrEqual(t, e.AdjustedConfidence, e.OriginalConfidence)
		assert.GreaterOrEqual(t, e.AdjustedConfidence, 0.0)
		assert.LessOrEqual(t, e.AdjustedConfidence, 1.0)
	}
}

func TestLevenshteinDistanceSanity(t *testing.T) {
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 0, levenshteinDistance("same", "same"))
}

// Scenario 1: orphan + duplicate collision — same 3-char bucket, distance
// too large (3) to group. Both remain separate, orphan-penalized, approved.
func TestScenarioOrphanAndNonDuplicateCollision(t *testing.T) {
	entities := ValidateEntities([]EntityCandidate{
		{Name: "Neural Network", Type: "method", Confidence: 0.9},
		{Name: "Neural Netw", Type: "method", Confidence: 0.85},
	})
	require.Len(t, entities, 2)

	byName := indexByName(entities)
	nn := byName["neural network"]
	nw := byName["neural netw"]

	assert.GreaterOrEqual(t, levenshteinDistance(nn.CanonicalName, nw.CanonicalName), 3, "distance must be >= 3 so the pair is not grouped as duplicates")
	assert.InDelta(t, 0.80, nn.AdjustedConfidence, 1e-9)
	assert.InDelta(t, 0.75, nw.AdjustedConfidence, 1e-9)
	assert.Equal(t, StatusApproved, nn.Status)
	assert.Equal(t, StatusApproved, nw.Status)
}

// Scenario 2: true duplicate pair — bucket "tra", distance 1. Winner is
// the higher-adjusted-confidence member ("transformer"); the loser is
// overridden to flagged (winner's own decision is approved since its
// adjusted 0.80 is not a duplicate-loser override target — only losers
// get their decision overridden by the winner's status).
func TestScenarioTrueDuplicatePair(t *testing.T) {
	entities := ValidateEntities([]EntityCandidate{
		{Name: "transformer", Type: "method", Confidence: 0.9},
		{Name: "transformr", Type: "method", Confidence: 0.85},
	})
	require.Len(t, entities, 2)

	byName := indexByName(entities)
	winner := byName["transformer"]
	loser := byName["transformr"]

	assert.InDelta(t, 0.80, winner.AdjustedConfidence, 1e-9)
	assert.InDelta(t, 0.75, loser.AdjustedConfidence, 1e-9)
	assert.Equal(t, StatusApproved, winner.Status)
	assert.Equal(t, StatusFlagged, loser.Status)
	assert.Contains(t, loser.Reasons, "duplicate_of:transformer")
	assert.Contains(t, loser.Reasons, "duplicate_loser:flagged")
}

// Scenario 3: self edge.
func TestScenarioSelfEdge(t *testing.T) {
	entities := ValidateEntities([]EntityCandidate{{Name: "A", Type: "method", Confidence: 0.9}})
	edges := ValidateEdges([]EdgeCandidate{{Source: "A", Target: "A", RelationshipType: "uses", Confidence: 0.9}}, entities)
	require.Len(t, edges, 1)
	assert.Equal(t, StatusRejected, edges[0].Status)
	assert.Contains(t, edges[0].Reasons, "self_reference")
}

// Scenario 4: unknown endpoint.
func TestScenarioUnknownEndpoint(t *testing.T) {
	entities := ValidateEntities([]EntityCandidate{{Name: "A", Type: "method", Confidence: 0.9}})
	edges := ValidateEdges([]EdgeCandidate{{Source: "A", Target: "B", RelationshipType: "uses", Confidence: 0.9}}, entities)
	require.Len(t, edges, 1)
	assert.Equal(t, StatusRejected, edges[0].Status)
	assert.Contains(t, edges[0].Reasons, "unknown_endpoint:target:b")
}

// Scenario 5: confidence thresholds.
func TestScenarioConfidenceThresholds(t *testing.T) {
	entities := ValidateEntities([]EntityCandidate{
		{Name: "A", Type: "method", Confidence: 0.9},
		{Name: "B", Type: "method", Confidence: 0.9},
	})
	edges := ValidateEdges([]EdgeCandidate{
		{Source: "A", Target: "B", RelationshipType: "r1", Confidence: 0.29},
		{Source: "A", Target: "B", RelationshipType: "r2", Confidence: 0.30},
		{Source: "A", Target: "B", RelationshipType: "r3", Confidence: 0.59},
		{Source: "A", Target: "B", RelationshipType: "r4", Confidence: 0.60},
	}, entities)
	require.Len(t, edges, 4)

	assert.Equal(t, StatusRejected, edges[0].Status)
	assert.Contains(t, edges[0].Reasons, "confidence_too_low:0.29")
	assert.Equal(t, StatusFlagged, edges[1].Status)
	assert.Contains(t, edges[1].Reasons, "low_confidence:0.30")
	assert.Equal(t, StatusFlagged, edges[2].Status)
	assert.Contains(t, edges[2].Reasons, "low_confidence:0.59")
	assert.Equal(t, StatusApproved, edges[3].Status)
	assert.Contains(t, edges[3].Reasons, "ok")
}

func TestMentionCountSuppressesOrphanPenalty(t *testing.T) {
	entities := ValidateEntities([]EntityCandidate{
		{Name: "Widget", Type: "method", Confidence: 0.5},
		{Name: "Widget", Type: "method", Confidence: 0.4},
	})
	require.Len(t, entities, 1)
	e := entities[0]
	assert.Equal(t, 2, e.MentionCount)
	assert.InDelta(t, 0.5, e.AdjustedConfidence, 1e-9, "no orphan penalty once mentioned more than once")
	assert.NotContains(t, e.Reasons, "orphan_entity:single_mention")
}

func indexByName(entities []ValidatedEntity) map[string]ValidatedEntity {
	out := make(map[string]ValidatedEntity, len(entities))
	for _, e := range entities {
		out[e.CanonicalName] = e
	}
	return out
}
