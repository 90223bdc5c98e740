package detect

import (
	"context"

	"github.com/redactlabs/piiguard/internal/pipeline"
)

// Detection method identifiers, reported on every candidate.
const (
	MethodRegex      = "regex"
	MethodContextual = "contextual"
	MethodML         = "ml"
)

// Detector produces raw PII candidates for a piece of text. Implementations
// are independent of each other; the reconciliation engine depends only on
// this interface, never on concrete detector types.
type Detector interface {
	Name() string
	Detect(ctx context.Context, text string) ([]pipeline.Candidate, error)
}
