package retry

import (
	"errors"
	"net"
	"strconv"
	"strings"
)

// statusCoder is implemented by provider errors that carry an HTTP status code.
type statusCoder interface {
	StatusCode() int
}

// transientPatterns are substrings matched case-insensitively against an
// error's message when no structured status code or net.Error is available.
var transientPatterns = []string{
	"connection reset",
	"connection refused",
	"timeout",
	"rate limit",
	"too many requests",
	"service unavailable",
	"bad gateway",
	"gateway timeout",
	"temporary",
}

// isTransientStatusCode reports whether an HTTP status code indicates a
// retryable condition: 429 (rate limited) or any 5xx server error.
func isTransientStatusCode(code int) bool {
	return code == 429 || (code >= 500 && code < 600)
}

// IsTransient reports whether err represents a condition worth retrying:
// a rate limit, a server-side failure, or a network-level timeout.
// It inspects, in order, a StatusCode() method, the net.Error interface,
// then falls back to substring matching on the error message (covering
// provider SDKs and googleapi errors that encode the status in the text).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return isTransientStatusCode(sc.StatusCode())
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	if code, ok := extractGoogleAPIStatus(msg); ok {
		return isTransientStatusCode(code)
	}

	return false
}

// extractGoogleAPIStatus pulls the numeric status out of messages shaped like
// "googleapi: Error 503: Service Unavailable".
func extractGoogleAPIStatus(msg string) (int, bool) {
	const marker = "googleapi: error "
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return 0, false
	}
	rest := msg[idx+len(marker):]
	end := strings.IndexByte(rest, ':')
	if end < 0 {
		end = len(rest)
	}
	code, err := strconv.Atoi(strings.TrimSpace(rest[:end]))
	if err != nil {
		return 0, false
	}
	return code, true
}
