package fetch

import "time"

// PageResult is the normalized outcome of exactly one page fetch. The
// fetcher never lets a transport problem escape as a Go error; the driver
// decides whether a failed page is terminal or an exhaustion signal.
//
// Invariant: Success false implies Records empty.
type PageResult struct {
	Success bool

	// Records holds the raw records of this page, each an opaque mapping.
	Records []map[string]any

	// TotalPages is the page count reported by the source envelope, zero
	// when the source does not report one.
	TotalPages int

	// ErrClass and Err describe the failure when Success is false.
	ErrClass ErrorClass
	Err      string

	// Elapsed is the wall time of the HTTP call including decoding.
	Elapsed time.Duration
}

// failure builds a failed PageResult.
func failure(class ErrorClass, msg string, elapsed time.Duration) PageResult {
	return PageResult{
		Success:  false,
		ErrClass: class,
		Err:      msg,
		Elapsed:  elapsed,
	}
}
