package feed

import "fmt"

// FetchError reports a failure to reach the feed: network, timeout or a
// non-success HTTP status
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch feed %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch feed %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports a feed payload that is not a usable JSON document
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse feed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to parse feed: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
