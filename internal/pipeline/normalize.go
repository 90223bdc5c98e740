package pipeline

import "go.uber.org/zap"

// Normalize rebuilds each candidate's text from its reported offsets into
// the source. Token-based detectors reconstruct words with injected
// separators, so the echoed text is never trusted: the source slice is
// authoritative. Candidates with out-of-bounds offsets are dropped and
// counted as anomalies, never fabricated.
func (e *Engine) Normalize(source string, candidates []Candidate) []Candidate {
	out := make([]Candidate, 0, len(candidates))

	for _, c := range candidates {
		if c.Start < 0 || c.End <= c.Start || c.End > len(source) {
			e.anomalies.Add(1)
			e.logger.Warn("Dropping candidate with out-of-bounds span",
				zap.String("category", c.Category),
				zap.String("method", c.Method),
				zap.Int("start", c.Start),
				zap.Int("end", c.End),
				zap.Int("source_len", len(source)),
			)
			continue
		}

		c.Text = source[c.Start:c.End]
		out = append(out, c)
	}

	return out
}
