package validation

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// Distribution holds min/max/mean/p50/p90 over a set of confidence values.
type Distribution struct {
	Min, Max, Mean, P50, P90 float64
}

func computeDistribution(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return Distribution{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: sum / float64(len(sorted)),
		P50:  percentile(sorted, 0.50),
		P90:  percentile(sorted, 0.90),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// LogDebugStats prints the min/max/mean/p50/p90 of original and adjusted
// confidences and the count per decision, for VALIDATION_DEBUG=1 runs.
func LogDebugStats(entities []ValidatedEntity) {
	if len(entities) == 0 {
		slog.Info("validation debug: no entities")
		return
	}

	original := make([]float64, len(entities))
	adjusted := make([]float64, len(entities))
	counts := map[ReviewStatus]int{}
	for i, e := range entities {
		original[i] = e.OriginalConfidence
		adjusted[i] = e.AdjustedConfidence
		counts[e.Status]++
	}

	origDist := computeDistribution(original)
	adjDist := computeDistribution(adjusted)

	slog.Info("validation debug: confidence distribution",
		"original", fmt.Sprintf("min=%.2f max=%.2f mean=%.2f p50=%.2f p90=%.2f", origDist.Min, origDist.Max, origDist.Mean, origDist.P50, origDist.P90),
		"adjusted", fmt.Sprintf("min=%.2f max=%.2f mean=%.2f p50=%.2f p90=%.2f", adjDist.Min, adjDist.Max, adjDist.Mean, adjDist.P50, adjDist.P90),
		"approved", counts[StatusApproved],
		"flagged", counts[StatusFlagged],
		"rejected", counts[StatusRejected],
	)
}
