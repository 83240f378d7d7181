package remote

import (
	"errors"
	"fmt"
)

var (
	ErrFetch  = errors.New("fetch failed")
	ErrClosed = errors.New("loader is closed")
)

// FetchError describes a failed page request.
type FetchError struct {
	URL        string
	Limit      int
	Skip       int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s (limit=%d skip=%d): status %d: %v", e.URL, e.Limit, e.Skip, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s (limit=%d skip=%d): %v", e.URL, e.Limit, e.Skip, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// Retryable reports whether the request may succeed if repeated.
func (e *FetchError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == 429 || e.StatusCode == 408
}
