package schema

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/redactlabs/piiguard/internal/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Registry is the process-wide table of PII categories. It is built once
// at startup and read-only afterwards, so concurrent lookups need no locks.
type Registry struct {
	byName  map[string]*Category
	ordered []*Category
}

// schemaFile is the on-disk override format: an ordered list of category
// definitions.
type schemaFile struct {
	Categories []Definition `yaml:"categories"`
}

// Load builds a registry from the built-in schema, or from a YAML override
// file when path is non-empty. A pattern that does not compile is fatal;
// example values that do not match their own pattern only cost the category
// its examples.
func Load(path string, log *logger.Logger) (*Registry, error) {
	defs := Builtin()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Err: fmt.Errorf("read schema file: %w", err)}
		}
		var file schemaFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, &LoadError{Err: fmt.Errorf("parse schema file: %w", err)}
		}
		if len(file.Categories) == 0 {
			return nil, &LoadError{Err: fmt.Errorf("schema file %s declares no categories", path)}
		}
		defs = file.Categories
		log.Info("Using schema override file",
			zap.String("path", path),
			zap.Int("categories", len(defs)),
		)
	}

	return New(defs, log)
}

// New compiles a registry from category definitions.
func New(defs []Definition, log *logger.Logger) (*Registry, error) {
	reg := &Registry{
		byName:  make(map[string]*Category, len(defs)),
		ordered: make([]*Category, 0, len(defs)),
	}

	for i, def := range defs {
		if def.Name == "" {
			return nil, &LoadError{Err: fmt.Errorf("category %d has no name", i)}
		}
		if _, exists := reg.byName[def.Name]; exists {
			return nil, &LoadError{Category: def.Name, Err: fmt.Errorf("duplicate category")}
		}

		// Validation is a whole-string match: a category pattern is a
		// complete-value grammar, so partial matches must not count.
		compiled, err := regexp.Compile("^(?:" + def.Pattern + ")$")
		if err != nil {
			return nil, &LoadError{Category: def.Name, Err: fmt.Errorf("compile pattern: %w", err)}
		}

		cat := &Category{
			Name:     def.Name,
			Pattern:  compiled,
			Raw:      def.Pattern,
			Examples: def.Examples,
			Priority: def.Priority,
			CatchAll: def.CatchAll,
			order:    i,
		}

		// Malformed example data is non-fatal: keep the category, drop
		// the examples.
		for _, ex := range def.Examples {
			if !compiled.MatchString(ex) {
				log.Warn("Category examples do not match their own pattern, dropping examples",
					zap.String("category", def.Name),
					zap.String("example", ex),
				)
				cat.Examples = nil
				break
			}
		}

		reg.byName[cat.Name] = cat
		reg.ordered = append(reg.ordered, cat)
	}

	// Priority ascending; stable sort keeps declaration order for ties.
	sort.SliceStable(reg.ordered, func(i, j int) bool {
		if reg.ordered[i].Priority != reg.ordered[j].Priority {
			return reg.ordered[i].Priority < reg.ordered[j].Priority
		}
		return reg.ordered[i].order < reg.ordered[j].order
	})

	log.Info("Schema registry loaded",
		zap.Int("categories", len(reg.ordered)),
	)

	return reg, nil
}

// Lookup returns the category with the given name.
func (r *Registry) Lookup(name string) (*Category, bool) {
	cat, ok := r.byName[name]
	return cat, ok
}

// ByPriority returns all categories in cross-validation order: priority
// ascending, declaration order on ties. Callers must not mutate the slice.
func (r *Registry) ByPriority() []*Category {
	return r.ordered
}

// Len returns the number of categories in the registry.
func (r *Registry) Len() int {
	return len(r.ordered)
}
