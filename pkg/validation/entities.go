package validation

import (
	"fmt"
	"sort"
)

type collapsedEntity struct {
	key          EntityKey
	original     float64
	mentionCount int
	metadata     map[string]interface{}
}

// ValidateEntities runs the deterministic entity decision pipeline:
// collapse → orphan penalty → duplicate grouping → confidence decision.
// Same input always produces the same output, in the same order (sorted
// by canonical name then type) so callers get a stable cache key.
func ValidateEntities(candidates []EntityCandidate) []ValidatedEntity {
	collapsed := collapseEntities(candidates)

	adjusted := make(map[EntityKey]float64, len(collapsed))
	reasons := make(map[EntityKey][]string, len(collapsed))
	for key, c := range collapsed {
		a := c.original
		if c.mentionCount <= 1 {
			a -= OrphanPenalty
			if a < 0 {
				a = 0
			}
			reasons[key] = append(reasons[key], "orphan_entity:single_mention")
		}
		adjusted[key] = a
	}

	groups := groupDuplicates(collapsed, adjusted)

	decision := make(map[EntityKey]ReviewStatus, len(collapsed))
	for key, a := range adjusted {
		decision[key] = confidenceDecision(a)
	}

	winnerOf := make(map[EntityKey]EntityKey)
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		winner := pickWinner(group, adjusted)
		for _, key := range group {
			if key == winner {
				continue
			}
			winnerOf[key] = winner
			if decision[winner] == StatusApproved {
				decision[key] = StatusFlagged
				reasons[key] = append(reasons[key], "duplicate_loser:flagged")
			} else {
				decision[key] = StatusRejected
				reasons[key] = append(reasons[key], "duplicate_loser:rejected")
			}
			reasons[key] = append(reasons[key], fmt.Sprintf("duplicate_of:%s", winner.Name))
		}
	}

	// Winners and non-duplicate entities record their own confidence
	// reason; duplicate losers already got duplicate_loser/duplicate_of
	// above and don't additionally restate the threshold reason.
	for key, a := range adjusted {
		if _, isLoser := winnerOf[key]; isLoser {
			continue
		}
		if r := confidenceReason(decision[key], a); r != "" {
			reasons[key] = append(reasons[key], r)
		}
	}

	keys := make([]EntityKey, 0, len(collapsed))
	for key := range collapsed {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Type < keys[j].Type
	})

	out := make([]ValidatedEntity, 0, len(keys))
	for _, key := range keys {
		c := collapsed[key]
		out = append(out, ValidatedEntity{
			CanonicalName:      key.Name,
			Type:               key.Type,
			OriginalConfidence: c.original,
			AdjustedConfidence: adjusted[key],
			MentionCount:       c.mentionCount,
			Status:             decision[key],
			Reasons:            joinOrOK(reasons[key]),
			Metadata:           c.metadata,
		})
	}
	return out
}

func collapseEntities(candidates []EntityCandidate) map[EntityKey]*collapsedEntity {
	out := make(map[EntityKey]*collapsedEntity)
	for _, c := range candidates {
		key := EntityKey{Name: Canonicalize(c.Name), Type: c.Type}
		existing, ok := out[key]
		if !ok {
			out[key] = &collapsedEntity{
				key:          key,
				original:     c.Confidence,
				mentionCount: 1,
				metadata:     c.Metadata,
			}
			continue
		}
		existing.mentionCount++
		if c.Confidence > existing.original {
			existing.original = c.Confidence
		}
		if existing.metadata == nil {
			existing.metadata = c.Metadata
		}
	}
	return out
}

// groupDuplicates buckets entities of the same type by the first 3 bytes
// of their canonical name, then unions any pair within a bucket whose
// Levenshtein distance is < 3. Returns each connected component with more
// than zero members as a slice of keys (singletons included, callers
// filter len<2).
func groupDuplicates(collapsed map[EntityKey]*collapsedEntity, adjusted map[EntityKey]float64) [][]EntityKey {
	type bucketKey struct {
		typ    string
		prefix string
	}
	buckets := make(map[bucketKey][]EntityKey)
	for key := range collapsed {
		p := key.Name
		if len(p) > 3 {
			p = p[:3]
		}
		bk := bucketKey{typ: key.Type, prefix: p}
		buckets[bk] = append(buckets[bk], key)
	}

	parent := make(map[EntityKey]EntityKey, len(collapsed))
	for key := range collapsed {
		parent[key] = key
	}
	var find func(EntityKey) EntityKey
	find = func(k EntityKey) EntityKey {
		if parent[k] != k {
			parent[k] = find(parent[k])
		}
		return parent[k]
	}
	union := func(a, b EntityKey) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for _, members := range buckets {
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				if levenshteinDistance(members[i].Name, members[j].Name) < 3 {
					union(members[i], members[j])
				}
			}
		}
	}

	groupMembers := make(map[EntityKey][]EntityKey)
	for key := range collapsed {
		root := find(key)
		groupMembers[root] = append(groupMembers[root], key)
	}

	groups := make([][]EntityKey, 0, len(groupMembers))
	for _, members := range groupMembers {
		groups = append(groups, members)
	}
	return groups
}

func pickWinner(group []EntityKey, adjusted map[EntityKey]float64) EntityKey {
	winner := group[0]
	for _, key := range group[1:] {
		if adjusted[key] > adjusted[winner] {
			winner = key
			continue
		}
		if adjusted[key] == adjusted[winner] && key.Name < winner.Name {
			winner = key
		}
	}
	return winner
}

func confidenceDecision(adjusted float64) ReviewStatus {
	switch {
	case adjusted < ConfidenceReject:
		return StatusRejected
	case adjusted < ConfidenceReview:
		return StatusFlagged
	default:
		return StatusApproved
	}
}

func confidenceReason(status ReviewStatus, adjusted float64) string {
	switch status {
	case StatusRejected:
		return fmt.Sprintf("confidence_too_low:%.2f", adjusted)
	case StatusFlagged:
		return fmt.Sprintf("low_confidence:%.2f", adjusted)
	default:
		return ""
	}
}

func joinOrOK(reasons []string) []string {
	if len(reasons) == 0 {
		return []string{"ok"}
	}
	return reasons
}
