package pipeline

import "fmt"

// Validate checks a candidate's text against its assigned category and,
// on failure, cross-validates against every other category in priority
// order. Cross-validation recovers entities that a detector spotted
// correctly but labeled wrong: a value with the exact structure of a PAN
// reported as a driver license is a PAN, not a false positive.
func (e *Engine) Validate(c Candidate) Outcome {
	outcome := Outcome{
		Candidate:        c,
		OriginalCategory: c.Category,
		FinalCategory:    c.Category,
	}

	// Primary validation: whole-string match against the assigned
	// category. An unknown category is a plain failure and falls through
	// to cross-validation, so detectors emitting labels outside the
	// schema can still have their spans recovered.
	if cat, ok := e.registry.Lookup(c.Category); ok && cat.Pattern.MatchString(c.Text) {
		outcome.Status = StatusValid
		outcome.Reason = "matches assigned category pattern"
		return outcome
	}

	// Cross-validation: first match in priority order wins. Specific
	// patterns rank ahead of generic ones, so a broad category cannot
	// absorb a value that belongs to a narrower class. Catch-all
	// patterns never acquire entities from other categories.
	for _, cat := range e.registry.ByPriority() {
		if cat.Name == c.Category || cat.CatchAll {
			continue
		}
		if cat.Pattern.MatchString(c.Text) {
			outcome.Status = StatusCorrected
			outcome.FinalCategory = cat.Name
			outcome.Reason = fmt.Sprintf("corrected from %s: matches %s pattern", c.Category, cat.Name)
			return outcome
		}
	}

	outcome.Status = StatusFiltered
	outcome.Reason = fmt.Sprintf("no category pattern matched %q", c.Text)
	return outcome
}

// ApplyConfidenceFilter demotes accepted outcomes below the confidence
// threshold to FILTERED. It runs after validation, never before: a
// low-confidence candidate still deserves a precise pattern verdict, and
// the threshold reason must never overwrite a pattern-mismatch reason.
func ApplyConfidenceFilter(o Outcome, minConfidence float64) Outcome {
	if o.Status == StatusFiltered {
		return o
	}
	if o.Candidate.Confidence < minConfidence {
		o.Status = StatusFiltered
		o.Reason = fmt.Sprintf("below minimum confidence %.2f", minConfidence)
	}
	return o
}
