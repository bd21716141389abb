// Package insights is the client for the external product-analytics
// service. It renders no queries itself: callers hand it query text and it
// handles transport, authentication, failure classification and retries.
package insights

import (
	"errors"
	"fmt"
	"time"
)

// ThrottledError signals the service rate-limited the request (429).
// RetryAfter is zero when the response carried no hint.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return "analytics service throttled the request"
}

// ServerError signals a 5xx response or a transport-level failure
// (including per-attempt timeout). Status is zero for transport failures.
// It deliberately carries no connection details.
type ServerError struct {
	Status int
}

func (e *ServerError) Error() string {
	if e.Status == 0 {
		return "analytics service unreachable"
	}
	return fmt.Sprintf("analytics service returned status %d", e.Status)
}

// ClientError signals a caller-fixable non-2xx response (400/401/403/404).
// Never retried.
type ClientError struct {
	Status int
	Body   string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("analytics query rejected with status %d", e.Status)
}

// IsRetryable reports whether err belongs to a failure class that
// participates in the retry policy.
func IsRetryable(err error) bool {
	var throttled *ThrottledError
	var server *ServerError
	return errors.As(err, &throttled) || errors.As(err, &server)
}
