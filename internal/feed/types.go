// Package feed downloads the remote product feed and turns it into records.
//
// The feed is a JSON document: either an array of product objects or an
// object carrying such an array under "products", "items" or "data". Each
// element is decoded on its own so one malformed product never fails the
// whole download.
package feed

import (
	"time"

	"github.com/webspark/catalog-sync/internal/product"
)

// Record is one product as published by the feed
type Record struct {
	SKU string `json:"sku"`
	product.Attributes
}

// SkippedRecord describes a feed element that could not be decoded
type SkippedRecord struct {
	// Index is the element position in the feed, counted from zero
	Index int `json:"index"`
	// SKU is set when the element carried one
	SKU    string `json:"sku,omitempty"`
	Reason string `json:"reason"`
}

// FetchResult is the outcome of one download
type FetchResult struct {
	// Records are the decoded products in feed order, after truncation
	Records []Record
	// Skipped lists malformed elements within the truncated window
	Skipped []SkippedRecord
	// Total is the element count before truncation
	Total int
	// Hash is the hex SHA-256 of the response body
	Hash      string
	FetchedAt time.Time
}

// Processed is the number of elements considered after truncation
func (r *FetchResult) Processed() int {
	return len(r.Records) + len(r.Skipped)
}
