package httpclient_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webspark/catalog-sync/internal/httpclient"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		statusCode    int
		url           string
		message       string
		expectedError string
	}{
		{
			name:          "all fields",
			statusCode:    404,
			url:           "http://example.com/feed.json",
			message:       "404 Not Found",
			expectedError: "HTTP 404 for URL http://example.com/feed.json: 404 Not Found",
		},
		{
			name:          "empty message",
			statusCode:    500,
			url:           "http://example.com",
			expectedError: "HTTP 500 for URL http://example.com: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := httpclient.NewHTTPError(tt.statusCode, tt.url, tt.message)
			require.Error(t, err)
			assert.Equal(t, tt.expectedError, err.Error())

			var httpErr *httpclient.HTTPError
			require.True(t, errors.As(err, &httpErr))
			assert.Equal(t, tt.statusCode, httpErr.StatusCode)
			assert.Equal(t, tt.url, httpErr.URL)
		})
	}
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("fetch: %w", httpclient.NewHTTPError(503, "http://x", "down"))
	assert.Equal(t, 503, httpclient.StatusCode(wrapped))
	assert.Equal(t, 0, httpclient.StatusCode(errors.New("plain")))
	assert.Equal(t, 0, httpclient.StatusCode(nil))
}
