package filtering

import (
	"fmt"

	"github.com/gobwas/glob"
)

// SKUFilter handles SKU filtering using glob patterns
type SKUFilter interface {
	// ShouldInclude determines if a SKU should be included based on include/exclude patterns.
	// Returns (shouldInclude bool, reason string)
	ShouldInclude(sku string, include, exclude []string) (bool, string)
}

// defaultSKUFilter implements SKU filtering using glob patterns
type defaultSKUFilter struct{}

var _ SKUFilter = (*defaultSKUFilter)(nil)

// NewDefaultSKUFilter creates a new defaultSKUFilter
func NewDefaultSKUFilter() SKUFilter {
	return &defaultSKUFilter{}
}

// matchPattern matches a glob pattern against a SKU. No separators are
// passed to the compiler, so "*" matches across any character.
func matchPattern(pattern, sku string) (bool, error) {
	compiled, err := glob.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid glob pattern: %w", err)
	}
	return compiled.Match(sku), nil
}

// ShouldInclude applies the exclude patterns first, then the include patterns.
// Without patterns every SKU is included.
func (*defaultSKUFilter) ShouldInclude(sku string, include, exclude []string) (bool, string) {
	for _, pattern := range exclude {
		matches, err := matchPattern(pattern, sku)
		if err != nil {
			return false, fmt.Sprintf("invalid exclude pattern '%s': %v", pattern, err)
		}
		if matches {
			return false, fmt.Sprintf("excluded by pattern '%s'", pattern)
		}
	}

	if len(include) > 0 {
		for _, pattern := range include {
			matches, err := matchPattern(pattern, sku)
			if err != nil {
				return false, fmt.Sprintf("invalid include pattern '%s': %v", pattern, err)
			}
			if matches {
				return true, fmt.Sprintf("included by pattern '%s'", pattern)
			}
		}
		return false, fmt.Sprintf("no match found in include patterns %v", include)
	}

	if len(exclude) > 0 {
		return true, fmt.Sprintf("no match in exclude patterns %v", exclude)
	}
	return true, "no sku filters specified"
}
