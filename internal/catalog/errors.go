package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable means the upstream could not be contacted, timed out,
	// or answered with a non-success status.
	ErrUnreachable = errors.New("catalog upstream unreachable")
	// ErrMalformed means the upstream document could not be decoded.
	ErrMalformed = errors.New("catalog document malformed")
)

// FetchError describes a failed catalog fetch. It matches ErrUnreachable or
// ErrMalformed via errors.Is, as well as the underlying cause.
type FetchError struct {
	Kind error
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.URL)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func unreachable(url string, err error) error {
	return &FetchError{Kind: ErrUnreachable, URL: url, Err: err}
}

func malformed(url string, err error) error {
	return &FetchError{Kind: ErrMalformed, URL: url, Err: err}
}
