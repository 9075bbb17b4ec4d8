package pagination

import "fmt"

// FetchError reports an aborted fetch session.
type FetchError struct {
	// Page is the 1-based page whose fetch failed.
	Page int

	// Records is how many records had been collected (and discarded) before the failure.
	Records int

	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d: %v", e.Page, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}
