package service

import "fmt"

// ListProductsOptions is the options for the ListProducts operation
type ListProductsOptions struct {
	Cursor string
	Limit  int
	Search string
}

// Option is a function that sets an option for the ListProducts operation
type Option func(*ListProductsOptions) error

// WithCursor resumes listing after the SKU encoded in cursor
func WithCursor(cursor string) Option {
	return func(o *ListProductsOptions) error {
		if cursor == "" {
			return fmt.Errorf("invalid cursor: %s", cursor)
		}
		o.Cursor = cursor
		return nil
	}
}

// WithLimit sets the page size
func WithLimit(limit int) Option {
	return func(o *ListProductsOptions) error {
		if limit <= 0 {
			return fmt.Errorf("invalid limit: %d", limit)
		}
		o.Limit = min(limit, MaxLimit)
		return nil
	}
}

// WithSearch keeps entries whose SKU or name contains search, ignoring case
func WithSearch(search string) Option {
	return func(o *ListProductsOptions) error {
		if search == "" {
			return fmt.Errorf("invalid search: %s", search)
		}
		o.Search = search
		return nil
	}
}
