package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/example/cafe-client/internal/apperr"
)

var networkMessages = []string{
	"failed to fetch",
	"network error",
	"networkerror",
	"network request failed",
	"timeout",
	"connection refused",
	"connection reset",
}

// IsNetworkError reports failures where no response reached the client:
// transport errors, timeouts, and errors whose text names a network failure.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	switch apperr.KindOf(err) {
	case apperr.KindNetwork:
		return true
	case apperr.KindHTTPStatus, apperr.KindValidation:
		// a response arrived, or nothing was sent
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range networkMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsRetryableHTTPError reports 5xx responses and 429.
func IsRetryableHTTPError(err error) bool {
	status, ok := apperr.StatusOf(err)
	if !ok {
		return false
	}
	return (status >= 500 && status < 600) || status == http.StatusTooManyRequests
}

// IsRetryableError is IsNetworkError or IsRetryableHTTPError.
func IsRetryableError(err error) bool {
	return IsNetworkError(err) || IsRetryableHTTPError(err)
}

// IsClientError reports 4xx responses other than 429.
func IsClientError(err error) bool {
	status, ok := apperr.StatusOf(err)
	return ok && status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

// Except wraps a predicate so that errors matching skip are never retried.
func Except(pred func(error) bool, skip func(error) bool) func(error) bool {
	return func(err error) bool {
		if skip(err) {
			return false
		}
		return pred(err)
	}
}
