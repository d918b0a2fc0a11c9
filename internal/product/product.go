// Package product holds the value types shared by the feed and the catalog.
package product

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// StockStatus is the availability of a product
type StockStatus string

const (
	// StockInStock means the product can be ordered
	StockInStock StockStatus = "instock"

	// StockOutOfStock means the product cannot be ordered
	StockOutOfStock StockStatus = "outofstock"

	// StockOnBackorder means the product can be ordered but ships later
	StockOnBackorder StockStatus = "onbackorder"
)

// ParseStockStatus maps the spellings used by product feeds onto a StockStatus
func ParseStockStatus(s string) (StockStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "instock", "in_stock", "in stock", "true", "yes", "1":
		return StockInStock, nil
	case "outofstock", "out_of_stock", "out of stock", "false", "no", "0":
		return StockOutOfStock, nil
	case "onbackorder", "on_backorder", "backorder":
		return StockOnBackorder, nil
	default:
		return "", fmt.Errorf("unknown stock status %q", s)
	}
}

// Valid reports whether s is one of the known statuses
func (s StockStatus) Valid() bool {
	switch s {
	case StockInStock, StockOutOfStock, StockOnBackorder:
		return true
	default:
		return false
	}
}

// Attributes are the mutable fields of a product. The SKU is the identity
// and is kept outside so an update can never rewrite it.
type Attributes struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	StockStatus StockStatus     `json:"stockStatus"`
}

// Equal reports whether two attribute sets describe the same product state
func (a Attributes) Equal(other Attributes) bool {
	return a.Name == other.Name &&
		a.Description == other.Description &&
		a.Price.Equal(other.Price) &&
		a.StockStatus == other.StockStatus
}
