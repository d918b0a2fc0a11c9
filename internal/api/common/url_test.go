package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webspark/catalog-sync/internal/validators"
)

func TestGetAndValidateURLParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		wantValue  string
		wantErrMsg string
	}{
		{name: "plain_sku", path: "/products/SKU-123", wantValue: "SKU-123"},
		{name: "dots_and_underscores", path: "/products/mug_v1.2", wantValue: "mug_v1.2"},
		{name: "encoded_slash", path: "/products/A%2FB", wantValue: "A/B"},
		{name: "encoded_colon", path: "/products/A%3AB", wantValue: "A:B"},
		{name: "inner_space", path: "/products/SKU%201", wantValue: "SKU 1"},
		{name: "surrounding_spaces_trimmed", path: "/products/%20SKU-1%20", wantValue: "SKU-1"},
		{name: "tab", path: "/products/SKU%091", wantErrMsg: "invalid sku: sku contains a control character at byte 3"},
		{name: "only_spaces", path: "/products/%20%20", wantErrMsg: "invalid sku: sku cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotValue string
			var gotErr error
			r := chi.NewRouter()
			r.Get("/products/{sku}", func(_ http.ResponseWriter, r *http.Request) {
				gotValue, gotErr = GetAndValidateURLParam(r, "sku", validators.ValidateSKU)
			})
			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			if tt.wantErrMsg != "" {
				require.Error(t, gotErr)
				assert.Equal(t, tt.wantErrMsg, gotErr.Error())
				return
			}
			require.NoError(t, gotErr)
			assert.Equal(t, tt.wantValue, gotValue)
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	WriteErrorResponse(rr, "boom", http.StatusTeapot)

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"boom"}`, rr.Body.String())
}
