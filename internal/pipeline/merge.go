package pipeline

import "sort"

// Merge collapses candidates that refer to overlapping spans into one
// representative per cluster, so the same PII instance reported by two
// detection methods is never double-counted and the redaction pass never
// sees overlapping replacements.
//
// Two candidates overlap when their [start,end) ranges intersect; clusters
// are the transitive closure of that relation. The representative is the
// candidate with the highest confidence, ties broken by earliest start,
// then smallest method string, then longest span, then smallest category
// string. The tie-break chain makes the result independent of input order.
func Merge(candidates []Candidate) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Category < b.Category
	})

	var merged []Candidate
	best := sorted[0]
	clusterEnd := sorted[0].End

	for _, c := range sorted[1:] {
		if c.Start < clusterEnd {
			// Same cluster: extend it and keep the better representative.
			if c.End > clusterEnd {
				clusterEnd = c.End
			}
			if wins(c, best) {
				best = c
			}
			continue
		}

		merged = append(merged, best)
		best = c
		clusterEnd = c.End
	}
	merged = append(merged, best)

	return merged
}

// wins reports whether a beats b as a cluster representative.
func wins(a, b Candidate) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.Method != b.Method {
		return a.Method < b.Method
	}
	if a.End != b.End {
		return a.End > b.End
	}
	return a.Category < b.Category
}
