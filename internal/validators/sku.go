// Package validators provides validation functions for catalog entities.
package validators

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxSKULength is the longest SKU accepted, counted in characters
const MaxSKULength = 100

// ValidateSKU validates a product SKU and returns it trimmed.
//
// Requirements:
//   - Not empty after trimming surrounding whitespace
//   - Valid UTF-8
//   - At most MaxSKULength characters
//   - No control characters
func ValidateSKU(sku string) (string, error) {
	sku = strings.TrimSpace(sku)

	if sku == "" {
		return "", fmt.Errorf("sku cannot be empty")
	}
	if !utf8.ValidString(sku) {
		return "", fmt.Errorf("sku is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(sku); n > MaxSKULength {
		return "", fmt.Errorf("sku exceeds maximum length of %d characters (got %d)", MaxSKULength, n)
	}
	if i := strings.IndexFunc(sku, unicode.IsControl); i >= 0 {
		return "", fmt.Errorf("sku contains a control character at byte %d", i)
	}

	return sku, nil
}

// IsValidSKU is a convenience wrapper around ValidateSKU for boolean checks
func IsValidSKU(sku string) bool {
	_, err := ValidateSKU(sku)
	return err == nil
}
