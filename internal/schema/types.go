package schema

import (
	"fmt"
	"regexp"
)

// Category is a single PII category with its validation pattern.
// Categories are immutable after the registry is loaded.
type Category struct {
	Name     string
	Pattern  *regexp.Regexp // anchored whole-string pattern
	Raw      string         // pattern as declared, without anchors
	Examples []string
	Priority int // lower = tried earlier during cross-validation
	CatchAll bool

	order int // declaration order, tie-break for equal priorities
}

// Definition is the declarative form of a category, as written in the
// built-in schema or a schema override file.
type Definition struct {
	Name     string   `yaml:"name"`
	Pattern  string   `yaml:"pattern"`
	Examples []string `yaml:"examples"`
	Priority int      `yaml:"priority"`
	CatchAll bool     `yaml:"catch_all"`
}

// LoadError indicates the schema cannot be used at all. The process must
// not serve traffic after a LoadError.
type LoadError struct {
	Category string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Category != "" {
		return fmt.Sprintf("schema: category %s: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("schema: %v", e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
