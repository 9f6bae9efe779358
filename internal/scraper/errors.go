package scraper

import (
	"errors"
	"fmt"
)

// FetchError indicates a network-level failure while retrieving a page.
// Callers may retry with backoff when Retryable is set.
type FetchError struct {
	URL        string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseMismatchError indicates the page downloaded fine but none of the
// selector strategies recognized its structure. This is surfaced as a named
// failure rather than being treated as "event has no fights".
type ParseMismatchError struct {
	URL        string
	Strategies []string
}

func (e *ParseMismatchError) Error() string {
	return fmt.Sprintf("parse %s: no fights matched by strategies %v", e.URL, e.Strategies)
}

// IsRetryable reports whether the error is a retryable fetch failure.
func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Retryable
}

// IsParseMismatch reports whether the error is a page-structure mismatch.
func IsParseMismatch(err error) bool {
	var pe *ParseMismatchError
	return errors.As(err, &pe)
}
