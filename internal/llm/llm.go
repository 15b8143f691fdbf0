// Package llm holds what the text-generation clients share: the error
// shape for failed API calls and the rule for which failures to retry.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrMalformedResponse marks a successful call whose reply holds no usable
// completion. Repeating the call is not expected to help.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError is a non-2xx answer from a generation API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("API request failed with status %d: %s", e.Code, body)
}

// IsRetryable reports whether a failed generation call may succeed when
// repeated: timeouts, rate limits, server errors and transport failures.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformedResponse) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests ||
			se.Code == http.StatusRequestTimeout ||
			se.Code >= 500
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "exhausted", "unavailable", "overloaded", "timeout"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
