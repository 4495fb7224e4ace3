package urllib3

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/urllib3/urllib3-go/retry"
)

// EmptyPoolError is raised when a blocking per-origin pool has no
// connection to offer before the caller's deadline.
type EmptyPoolError struct {
	URL   string
	Cause error
}

func (e *EmptyPoolError) Error() string {
	return fmt.Sprintf("urllib3: empty pool for %s: %s", e.URL, e.Cause)
}
func (e *EmptyPoolError) Unwrap() error { return e.Cause }

// MaxRetryError is raised when any retry budget category would go negative.
// Reason is the error or status summary of the last attempt; History carries
// every prior attempt for diagnostics.
type MaxRetryError struct {
	URL     string
	Reason  error
	History []retry.Event
}

func (e *MaxRetryError) Error() string {
	return fmt.Sprintf("urllib3: max retries exceeded for %s: %s", e.URL, e.Reason)
}
func (e *MaxRetryError) Unwrap() error { return e.Reason }

// NewMaxRetryError builds a MaxRetryError from the final State, wrapping
// lastErr (nil if the final attempt instead produced lastStatus).
func NewMaxRetryError(url string, history []retry.Event, lastErr error, lastStatus int) *MaxRetryError {
	reason := lastErr
	if reason == nil {
		reason = errors.Errorf("status %d", lastStatus)
	}
	return &MaxRetryError{URL: url, Reason: reason, History: history}
}

// ResponseError is raised when status-based retry is exhausted and the
// caller configured RaiseOnStatus: it carries the final Response instead of
// forcing the caller to inspect MaxRetryError's opaque Reason.
type ResponseError struct {
	URL      string
	Status   int
	Response *Response
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("urllib3: response error for %s: status %d", e.URL, e.Status)
}

// InvalidURLError surfaces a malformed or unresolvable URL (wraps
// urlutil.InvalidURLError).
type InvalidURLError struct {
	Cause error
}

func (e *InvalidURLError) Error() string { return "urllib3: " + e.Cause.Error() }
func (e *InvalidURLError) Unwrap() error { return e.Cause }
