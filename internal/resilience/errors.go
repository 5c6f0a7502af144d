package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// ErrNoCredential indicates no API credential is configured. Fatal for the
// whole run; never retried.
var ErrNoCredential = errors.New("no API credential configured")

// AuthError indicates an invalid or expired credential. Fatal for the whole
// run; the user must reconfigure before retrying.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError wraps an error as a terminal authentication failure.
func NewAuthError(err error) *AuthError {
	return &AuthError{Err: err}
}

// RateLimitError indicates a quota/429-class rejection. Retryable with
// exponential backoff up to the attempt ceiling.
type RateLimitError struct {
	Err        error
	StatusCode int
}

func (e *RateLimitError) Error() string { return e.Err.Error() }
func (e *RateLimitError) Unwrap() error { return e.Err }

// NewRateLimitError wraps an error as a rate-limit rejection.
func NewRateLimitError(err error, statusCode int) *RateLimitError {
	return &RateLimitError{Err: err, StatusCode: statusCode}
}

// TransientError wraps an error that is safe to retry after a short fixed
// delay (5xx, malformed response, network failure).
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// IsAuth reports whether the error chain contains a terminal credential
// failure (AuthError or ErrNoCredential).
func IsAuth(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoCredential) {
		return true
	}
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsRateLimit reports whether the error chain contains a RateLimitError.
func IsRateLimit(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// IsTransient reports whether the error (or any error in its chain) is a
// TransientError, or matches common transient network patterns.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsRetryable reports whether the error should be retried at all.
// Auth and credential errors are never retryable.
func IsRetryable(err error) bool {
	if IsAuth(err) {
		return false
	}
	return IsRateLimit(err) || IsTransient(err)
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
