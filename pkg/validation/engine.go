package validation

// Result is the ValidationEngine's full output for one run: the decided
// entities and edges, ready for persistence.
type Result struct {
	Entities []ValidatedEntity
	Edges    []ValidatedEdge
}

// Validate runs the complete deterministic decision pipeline. It is a
// pure function: identical inputs always produce an identical Result, in
// the same order, so callers can hash the result for DerivedCache
// memoization. When debug is true, the confidence distribution is logged
// before returning.
func Validate(entityCandidates []EntityCandidate, edgeCandidates []EdgeCandidate, debug bool) Result {
	entities := ValidateEntities(entityCandidates)
	edges := ValidateEdges(edgeCandidates, entities)

	if debug {
		LogDebugStats(entities)
	}

	return Result{Entities: entities, Edges: edges}
}
