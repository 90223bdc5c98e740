package detect

import (
	"context"

	"github.com/redactlabs/piiguard/internal/logger"
	"github.com/redactlabs/piiguard/internal/pipeline"
	"go.uber.org/zap"
)

// Engine fans one text out to a set of detector collaborators and collects
// their raw candidates. Detector failures are isolated: a failing method
// contributes zero candidates and the request proceeds with the rest.
type Engine struct {
	detectors []Detector
	logger    *logger.Logger
}

// NewEngine creates a detection engine over the given detectors.
func NewEngine(detectors []Detector, log *logger.Logger) *Engine {
	return &Engine{
		detectors: detectors,
		logger:    log,
	}
}

// Methods returns the names of all registered detectors.
func (e *Engine) Methods() []string {
	names := make([]string, 0, len(e.detectors))
	for _, d := range e.detectors {
		names = append(names, d.Name())
	}
	return names
}

// Collect runs every enabled detector over the text. The enabled set is a
// list of method names; an empty list or the single entry "all" enables
// every registered detector.
func (e *Engine) Collect(ctx context.Context, text string, enabled []string) []pipeline.Candidate {
	var candidates []pipeline.Candidate

	for _, d := range e.detectors {
		if !methodEnabled(d.Name(), enabled) {
			continue
		}

		found, err := d.Detect(ctx, text)
		if err != nil {
			e.logger.Error("Detector failed, continuing without it",
				zap.String("method", d.Name()),
				zap.Error(err),
			)
			continue
		}

		candidates = append(candidates, found...)
	}

	return candidates
}

// methodEnabled reports whether a detector method is in the enabled set.
func methodEnabled(name string, enabled []string) bool {
	if len(enabled) == 0 {
		return true
	}
	for _, m := range enabled {
		if m == "all" || m == name {
			return true
		}
	}
	return false
}
