package service

import (
	"encoding/base64"
	"fmt"
)

// DecodeCursor decodes a base64-encoded cursor into the SKU it points past.
// Returns an empty string if the cursor is empty.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("failed to decode cursor: %w", err)
	}
	if len(decoded) == 0 {
		return "", fmt.Errorf("invalid cursor format: empty sku")
	}
	return string(decoded), nil
}

// EncodeCursor encodes the last SKU of a page
func EncodeCursor(sku string) string {
	return base64.URLEncoding.EncodeToString([]byte(sku))
}
