// Package redact rewrites source text with accepted PII spans replaced by
// a fixed placeholder token.
package redact

import (
	"errors"
	"fmt"
	"sort"

	"github.com/redactlabs/piiguard/internal/pipeline"
)

// ErrOverlappingEntities signals that two accepted entities overlap at
// redaction time. The deduplicator makes this impossible in correct
// operation; if it occurs anyway the request must fail loudly, because a
// silent merge could leak unredacted PII.
var ErrOverlappingEntities = errors.New("overlapping entities")

// Apply replaces each accepted entity's [start,end) slice in source with
// the replacement token. Entities are processed in descending start order
// so a replacement never shifts the stored offsets of spans still to be
// processed.
func Apply(source string, entities []pipeline.AcceptedEntity, replacement string) (string, error) {
	if len(entities) == 0 {
		return source, nil
	}

	sorted := make([]pipeline.AcceptedEntity, len(entities))
	copy(sorted, entities)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start > sorted[j].Start
	})

	// Consistency check before touching the text: sorted descending by
	// start, each entity must end at or before the next-left one starts.
	for i := 1; i < len(sorted); i++ {
		if sorted[i].End > sorted[i-1].Start {
			return "", fmt.Errorf("%w: [%d,%d) and [%d,%d)",
				ErrOverlappingEntities,
				sorted[i].Start, sorted[i].End,
				sorted[i-1].Start, sorted[i-1].End,
			)
		}
	}

	redacted := source
	for _, ent := range sorted {
		if ent.Start < 0 || ent.End > len(redacted) {
			return "", fmt.Errorf("entity span [%d,%d) out of bounds for text of length %d",
				ent.Start, ent.End, len(source))
		}
		redacted = redacted[:ent.Start] + replacement + redacted[ent.End:]
	}

	return redacted, nil
}
