package validation

import "fmt"

// ValidateEdges runs the deterministic edge decision pipeline against the
// entity set produced by ValidateEntities. Endpoints are matched by
// canonical name only (edges carry no entity type); an edge referencing a
// name absent from the entity set — rejected or not, it only needs to
// have been extracted — fails unknown_endpoint.
func ValidateEdges(candidates []EdgeCandidate, entities []ValidatedEntity) []ValidatedEdge {
	present := make(map[string]bool, len(entities))
	for _, e := range entities {
		present[e.CanonicalName] = true
	}

	out := make([]ValidatedEdge, 0, len(candidates))
	for _, c := range candidates {
		source := Canonicalize(c.Source)
		target := Canonicalize(c.Target)

		ve := ValidatedEdge{
			Source:           source,
			Target:           target,
			RelationshipType: c.RelationshipType,
			Confidence:       c.Confidence,
			Evidence:         c.Evidence,
		}

		if source == target {
			ve.Status = StatusRejected
			ve.Reasons = []string{"self_reference"}
			out = append(out, ve)
			continue
		}

		var unknownReasons []string
		if !present[source] {
			unknownReasons = append(unknownReasons, fmt.Sprintf("unknown_endpoint:source:%s", source))
		}
		if !present[target] {
			unknownReasons = append(unknownReasons, fmt.Sprintf("unknown_endpoint:target:%s", target))
		}
		if len(unknownReasons) > 0 {
			ve.Status = StatusRejected
			ve.Reasons = unknownReasons
			out = append(out, ve)
			continue
		}

		ve.Status = confidenceDecision(c.Confidence)
		if r := confidenceReason(ve.Status, c.Confidence); r != "" {
			ve.Reasons = []string{r}
		} else {
			ve.Reasons = []string{"ok"}
		}
		out = append(out, ve)
	}
	return out
}
