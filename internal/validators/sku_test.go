package validators

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSKU(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sku     string
		want    string
		wantErr string
	}{
		{name: "simple", sku: "SHOE-1", want: "SHOE-1"},
		{name: "trimmed", sku: "  SHOE-1\t", want: "SHOE-1"},
		{name: "slashes_and_spaces_inside", sku: "A/B C", want: "A/B C"},
		{name: "unicode", sku: "ÄPFEL-1", want: "ÄPFEL-1"},
		{name: "max_length", sku: strings.Repeat("x", MaxSKULength), want: strings.Repeat("x", MaxSKULength)},
		{name: "max_length_multibyte", sku: strings.Repeat("é", MaxSKULength), want: strings.Repeat("é", MaxSKULength)},
		{name: "empty", sku: "", wantErr: "cannot be empty"},
		{name: "blank", sku: "   ", wantErr: "cannot be empty"},
		{name: "too_long", sku: strings.Repeat("x", MaxSKULength+1), wantErr: "maximum length"},
		{name: "control_character", sku: "A\x00B", wantErr: "control character"},
		{name: "newline_inside", sku: "A\nB", wantErr: "control character"},
		{name: "invalid_utf8", sku: "A\xffB", wantErr: "UTF-8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ValidateSKU(tt.sku)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.False(t, IsValidSKU(tt.sku))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsValidSKU(tt.sku))
		})
	}
}
