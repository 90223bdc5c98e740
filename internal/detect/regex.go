package detect

import (
	"context"
	"regexp"

	"github.com/redactlabs/piiguard/internal/logger"
	"github.com/redactlabs/piiguard/internal/pipeline"
	"github.com/redactlabs/piiguard/internal/schema"
	"go.uber.org/zap"
)

// regexConfidence is reported for pattern hits: a structural match is
// strong evidence but still subject to schema reconciliation.
const regexConfidence = 0.95

// scanPattern pairs a category name with the unanchored form of its
// validation pattern, used for scanning rather than whole-string checks.
type scanPattern struct {
	category string
	re       *regexp.Regexp
}

// RegexDetector scans text with unanchored forms of the registry patterns.
// Candidates it proposes still pass through validation like everyone
// else's, so a scan hit is a proposal, not a verdict.
type RegexDetector struct {
	patterns []scanPattern
	logger   *logger.Logger
}

// NewRegexDetector derives scan patterns from the registry. Catch-all
// categories are skipped: scanning with a pattern that matches almost
// anything would flag the whole text.
func NewRegexDetector(registry *schema.Registry, log *logger.Logger) (*RegexDetector, error) {
	d := &RegexDetector{logger: log}

	for _, cat := range registry.ByPriority() {
		if cat.CatchAll {
			continue
		}
		re, err := regexp.Compile(cat.Raw)
		if err != nil {
			// The anchored form compiled at registry load, so this
			// cannot happen for the same source text.
			return nil, err
		}
		d.patterns = append(d.patterns, scanPattern{category: cat.Name, re: re})
	}

	log.Info("Regex detector initialized",
		zap.Int("patterns", len(d.patterns)),
	)

	return d, nil
}

// Name implements Detector.
func (d *RegexDetector) Name() string {
	return MethodRegex
}

// Detect implements Detector.
func (d *RegexDetector) Detect(ctx context.Context, text string) ([]pipeline.Candidate, error) {
	var candidates []pipeline.Candidate

	for _, p := range d.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			candidates = append(candidates, pipeline.Candidate{
				Text:       text[loc[0]:loc[1]],
				Start:      loc[0],
				End:        loc[1],
				Category:   p.category,
				Confidence: regexConfidence,
				Method:     MethodRegex,
			})
		}
	}

	return candidates, nil
}
