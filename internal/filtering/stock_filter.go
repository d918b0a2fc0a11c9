package filtering

import (
	"fmt"
	"slices"

	"github.com/webspark/catalog-sync/internal/product"
)

// StockFilter handles stock status filtering using exact matching
type StockFilter interface {
	// ShouldInclude determines if a product with the given stock status should be included
	// Returns (shouldInclude bool, reason string)
	ShouldInclude(stock product.StockStatus, include, exclude []string) (bool, string)
}

// DefaultStockFilter implements stock filtering using exact string matching
type DefaultStockFilter struct{}

// NewDefaultStockFilter creates a new DefaultStockFilter
func NewDefaultStockFilter() *DefaultStockFilter {
	return &DefaultStockFilter{}
}

// ShouldInclude determines if a product with the given stock status should be included
func (*DefaultStockFilter) ShouldInclude(stock product.StockStatus, include, exclude []string) (bool, string) {
	status := string(stock)

	if slices.Contains(exclude, status) {
		return false, fmt.Sprintf("excluded by stock status '%s'", status)
	}

	if len(include) > 0 {
		if slices.Contains(include, status) {
			return true, fmt.Sprintf("included by stock status '%s'", status)
		}
		return false, fmt.Sprintf("stock status '%s' not in include list %v", status, include)
	}

	if len(exclude) > 0 {
		return true, fmt.Sprintf("stock status '%s' not in exclude list %v", status, exclude)
	}
	return true, "no stock filters specified"
}
