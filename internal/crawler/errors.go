package crawler

import (
	"errors"
	"fmt"
)

// ErrDisallowed is wrapped by a FetchError when robots.txt forbids a URL.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// FetchError reports a transport or HTTP failure. A page that could not be
// fetched is never returned as an empty document.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
