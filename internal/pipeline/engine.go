package pipeline

import (
	"sync/atomic"

	"github.com/redactlabs/piiguard/internal/logger"
	"github.com/redactlabs/piiguard/internal/schema"
	"go.uber.org/zap"
)

// Engine reconciles raw candidate detections against the schema registry.
// It is a pure, synchronous computation: the only shared state is the
// read-only registry, so one Engine serves concurrent requests.
type Engine struct {
	registry  *schema.Registry
	logger    *logger.Logger
	anomalies atomic.Int64
}

// NewEngine creates a reconciliation engine bound to a registry.
func NewEngine(registry *schema.Registry, log *logger.Logger) *Engine {
	return &Engine{
		registry: registry,
		logger:   log,
	}
}

// Run executes the full reconciliation pass over one candidate set:
// normalize spans, merge overlaps, validate, confidence-filter, assemble.
func (e *Engine) Run(source string, candidates []Candidate, minConfidence float64) Result {
	normalized := e.Normalize(source, candidates)
	merged := Merge(normalized)

	outcomes := make([]Outcome, 0, len(merged))
	for _, c := range merged {
		outcome := e.Validate(c)
		outcome = ApplyConfidenceFilter(outcome, minConfidence)
		outcomes = append(outcomes, outcome)
	}

	result := Assemble(outcomes)

	e.logger.Debug("Reconciliation complete",
		zap.Int("raw_candidates", len(candidates)),
		zap.Int("merged_candidates", len(merged)),
		zap.Int("accepted", result.Summary.TotalValid),
		zap.Int("filtered", result.Summary.TotalFiltered),
	)

	return result
}

// Anomalies returns the number of candidates dropped for reporting spans
// that do not exist in the source text. A non-zero count indicates a
// detector bug, not a user error.
func (e *Engine) Anomalies() int64 {
	return e.anomalies.Load()
}
