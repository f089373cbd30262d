// Package errors provides common domain error types for civicwatch.
//
// It defines sentinel errors for domain conditions like "not found" or
// "throttled" that are shared across packages. Typed sentinels enable
// consistent handling with errors.Is() checks at the CLI and coordinator
// boundaries.
//
// Usage:
//
//	import cwerrors "github.com/civicwatch/civicwatch/pkg/errors"
//
//	// Return a domain error
//	return nil, fmt.Errorf("meeting %d: %w", id, cwerrors.ErrFetch)
//
//	// Check for domain errors
//	if cwerrors.IsFetch(err) {
//	    // retryable upstream failure
//	}
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested resource (meeting, job) was not found.
	ErrNotFound = errors.New("not found")

	// ErrFetch indicates the upstream meeting service was unreachable or
	// returned a non-2xx response. Fatal to a single ingest, retryable by
	// the caller.
	ErrFetch = errors.New("upstream fetch failed")

	// ErrValidation indicates invalid input such as a malformed date.
	ErrValidation = errors.New("validation error")

	// ErrThrottled indicates a crawl job submission was rejected because a
	// job is already active or the cooldown window has not elapsed.
	ErrThrottled = errors.New("throttled")

	// ErrRangeTooWide indicates a crawl range exceeds the configured
	// maximum span.
	ErrRangeTooWide = errors.New("date range too wide")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsFetch reports whether any error in err's chain is ErrFetch.
func IsFetch(err error) bool {
	return errors.Is(err, ErrFetch)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsThrottled reports whether any error in err's chain is ErrThrottled.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}

// IsRangeTooWide reports whether any error in err's chain is ErrRangeTooWide.
func IsRangeTooWide(err error) bool {
	return errors.Is(err, ErrRangeTooWide)
}
