package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no entry matches
	ErrNotFound = errors.New("catalog entry not found")

	// ErrDuplicateSKU is returned when creating an entry whose SKU exists
	ErrDuplicateSKU = errors.New("duplicate sku")
)

// NotFoundError reports an entry that vanished between lookup and mutation
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("catalog entry %s not found", e.ID)
}

// Unwrap returns ErrNotFound so callers can use errors.Is
func (*NotFoundError) Unwrap() error {
	return ErrNotFound
}

// CreateError reports a rejected create
type CreateError struct {
	SKU string
	Err error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("failed to create catalog entry %s: %v", e.SKU, e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}
