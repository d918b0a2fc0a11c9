package feed

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/webspark/catalog-sync/internal/product"
	"github.com/webspark/catalog-sync/internal/validators"
)

// envelopeKeys are the object members searched for the product array
var envelopeKeys = []string{"products", "items", "data"}

// stockKeys are the element members holding the stock status, first match wins
var stockKeys = []string{"in_stock", "inStock", "stock_status", "stockStatus"}

var (
	errNotObject   = errors.New("element is not an object")
	errMissingSKU  = errors.New("missing sku")
	errNegativePrc = errors.New("price is negative")
)

// Parse decodes a feed body. At most maxRecords elements are decoded, taken
// from the front of the feed. An empty body or a JSON null is an empty feed.
func Parse(body []byte, maxRecords int) (*FetchResult, error) {
	sum := sha256.Sum256(body)
	result := &FetchResult{Hash: hex.EncodeToString(sum[:])}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return result, nil
	}
	if !gjson.ValidBytes(trimmed) {
		return nil, &ParseError{Reason: "invalid JSON"}
	}

	elements, err := productArray(gjson.ParseBytes(trimmed))
	if err != nil {
		return nil, err
	}

	result.Total = len(elements)
	if maxRecords < 0 {
		maxRecords = 0
	}
	if len(elements) > maxRecords {
		elements = elements[:maxRecords]
	}

	result.Records = make([]Record, 0, len(elements))
	for i, el := range elements {
		rec, err := decodeRecord(el)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRecord{
				Index:  i,
				SKU:    rawSKU(el),
				Reason: err.Error(),
			})
			continue
		}
		result.Records = append(result.Records, rec)
	}

	return result, nil
}

func productArray(root gjson.Result) ([]gjson.Result, error) {
	switch {
	case root.IsArray():
		return root.Array(), nil
	case root.IsObject():
		for _, key := range envelopeKeys {
			if v := root.Get(key); v.IsArray() {
				return v.Array(), nil
			}
		}
		return nil, &ParseError{Reason: fmt.Sprintf("object has no %s array", strings.Join(envelopeKeys, "/"))}
	default:
		return nil, &ParseError{Reason: fmt.Sprintf("expected array or object, got %s", root.Type)}
	}
}

func decodeRecord(el gjson.Result) (Record, error) {
	if !el.IsObject() {
		return Record{}, errNotObject
	}

	sku := rawSKU(el)
	if sku == "" {
		return Record{}, errMissingSKU
	}
	sku, err := validators.ValidateSKU(sku)
	if err != nil {
		return Record{}, err
	}

	price, err := decodePrice(el.Get("price"))
	if err != nil {
		return Record{}, err
	}

	stock, err := decodeStock(el)
	if err != nil {
		return Record{}, err
	}

	return Record{
		SKU: sku,
		Attributes: product.Attributes{
			Name:        el.Get("name").String(),
			Description: el.Get("description").String(),
			Price:       price,
			StockStatus: stock,
		},
	}, nil
}

// rawSKU accepts string and numeric SKUs; surrounding blanks are dropped
func rawSKU(el gjson.Result) string {
	v := el.Get("sku")
	switch v.Type {
	case gjson.String:
		return strings.TrimSpace(v.Str)
	case gjson.Number:
		return v.Raw
	default:
		return ""
	}
}

// decodePrice reads a number or a numeric string, optionally prefixed with "$".
// A missing price is zero.
func decodePrice(v gjson.Result) (decimal.Decimal, error) {
	var raw string
	switch v.Type {
	case gjson.Null:
		return decimal.Zero, nil
	case gjson.Number:
		raw = v.Raw
	case gjson.String:
		raw = strings.TrimPrefix(strings.TrimSpace(v.Str), "$")
	default:
		return decimal.Zero, fmt.Errorf("price has unsupported type %s", v.Type)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q", v.String())
	}
	if d.IsNegative() {
		return decimal.Zero, errNegativePrc
	}
	return d, nil
}

// decodeStock maps the first present stock member. A missing member means in stock.
func decodeStock(el gjson.Result) (product.StockStatus, error) {
	for _, key := range stockKeys {
		v := el.Get(key)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		switch v.Type {
		case gjson.True:
			return product.StockInStock, nil
		case gjson.False:
			return product.StockOutOfStock, nil
		case gjson.Number:
			if v.Float() > 0 {
				return product.StockInStock, nil
			}
			return product.StockOutOfStock, nil
		case gjson.String:
			return product.ParseStockStatus(v.Str)
		default:
			return "", fmt.Errorf("%s has unsupported type %s", key, v.Type)
		}
	}
	return product.StockInStock, nil
}
