package common

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// ParamValidator checks a decoded URL parameter and returns its normalized form
type ParamValidator func(string) (string, error)

// GetAndValidateURLParam extracts a chi URL parameter, path-unescapes it
// and runs validate on the result. Encoded slashes arrive still escaped
// because chi routes on the raw path.
func GetAndValidateURLParam(r *http.Request, paramName string, validate ParamValidator) (string, error) {
	decoded, err := url.PathUnescape(chi.URLParam(r, paramName))
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", paramName)
	}

	value, err := validate(decoded)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", paramName, err)
	}
	return value, nil
}
