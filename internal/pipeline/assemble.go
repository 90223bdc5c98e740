package pipeline

import "sort"

// Assemble partitions outcomes into accepted and rejected entities and
// computes the summary statistics. Pure function of its input.
func Assemble(outcomes []Outcome) Result {
	result := Result{
		Entities:         make([]AcceptedEntity, 0, len(outcomes)),
		FilteredEntities: make([]RejectedEntity, 0),
	}

	categories := make(map[string]struct{})

	for _, o := range outcomes {
		c := o.Candidate
		switch o.Status {
		case StatusValid, StatusCorrected:
			result.Entities = append(result.Entities, AcceptedEntity{
				Text:       c.Text,
				Start:      c.Start,
				End:        c.End,
				Category:   o.FinalCategory,
				Confidence: c.Confidence,
				Method:     c.Method,
				Reason:     o.Reason,
			})
			categories[o.FinalCategory] = struct{}{}
		case StatusFiltered:
			result.FilteredEntities = append(result.FilteredEntities, RejectedEntity{
				Text:             c.Text,
				Start:            c.Start,
				End:              c.End,
				OriginalCategory: o.OriginalCategory,
				Confidence:       c.Confidence,
				Reason:           o.Reason,
			})
		}
	}

	found := make([]string, 0, len(categories))
	for name := range categories {
		found = append(found, name)
	}
	sort.Strings(found)

	totalValid := len(result.Entities)
	totalFiltered := len(result.FilteredEntities)

	// An empty run validates at 1.0: nothing was rejected.
	rate := 1.0
	if totalValid+totalFiltered > 0 {
		rate = float64(totalValid) / float64(totalValid+totalFiltered)
	}

	result.Summary = Summary{
		TotalValid:      totalValid,
		TotalFiltered:   totalFiltered,
		CategoriesFound: found,
		ValidationRate:  rate,
	}

	return result
}
