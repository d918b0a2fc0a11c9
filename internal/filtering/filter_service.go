package filtering

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/webspark/catalog-sync/internal/config"
	"github.com/webspark/catalog-sync/internal/feed"
)

// Excluded describes a record removed by the filters
type Excluded struct {
	SKU    string
	Reason string
}

// FilterService coordinates SKU and stock filtering of feed records
type FilterService interface {
	// ApplyFilters returns the records passing filter, in their original order,
	// and the records it removed
	ApplyFilters(ctx context.Context, records []feed.Record, filter *config.FilterConfig) ([]feed.Record, []Excluded)
}

// defaultFilterService implements filtering coordination using SKU and stock filters
type defaultFilterService struct {
	skuFilter   SKUFilter
	stockFilter StockFilter
}

// NewDefaultFilterService creates a new defaultFilterService with default filter implementations
func NewDefaultFilterService() FilterService {
	return &defaultFilterService{
		skuFilter:   NewDefaultSKUFilter(),
		stockFilter: NewDefaultStockFilter(),
	}
}

// NewFilterService creates a new defaultFilterService with custom filter implementations
func NewFilterService(skuFilter SKUFilter, stockFilter StockFilter) FilterService {
	return &defaultFilterService{
		skuFilter:   skuFilter,
		stockFilter: stockFilter,
	}
}

// ApplyFilters implements FilterService. A nil filter keeps every record.
func (s *defaultFilterService) ApplyFilters(
	ctx context.Context, records []feed.Record, filter *config.FilterConfig,
) ([]feed.Record, []Excluded) {
	if filter.IsEmpty() {
		return records, nil
	}

	var skuInclude, skuExclude, stockInclude, stockExclude []string
	if filter.SKU != nil {
		skuInclude = filter.SKU.Include
		skuExclude = filter.SKU.Exclude
	}
	if filter.Stock != nil {
		stockInclude = filter.Stock.Include
		stockExclude = filter.Stock.Exclude
	}

	kept := make([]feed.Record, 0, len(records))
	var excluded []Excluded
	for _, rec := range records {
		if ok, reason := s.skuFilter.ShouldInclude(rec.SKU, skuInclude, skuExclude); !ok {
			excluded = append(excluded, Excluded{SKU: rec.SKU, Reason: fmt.Sprintf("sku filter: %s", reason)})
			continue
		}
		if ok, reason := s.stockFilter.ShouldInclude(rec.StockStatus, stockInclude, stockExclude); !ok {
			excluded = append(excluded, Excluded{SKU: rec.SKU, Reason: fmt.Sprintf("stock filter: %s", reason)})
			continue
		}
		kept = append(kept, rec)
	}

	for _, e := range excluded {
		slog.DebugContext(ctx, "Excluding product", "sku", e.SKU, "reason", e.Reason)
	}
	slog.InfoContext(ctx, "Feed filtering completed",
		"included", len(kept),
		"excluded", len(excluded))

	return kept, excluded
}
