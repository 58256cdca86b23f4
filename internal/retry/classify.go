package retry

import (
	"context"
	"errors"
	"net"
	"slices"
	"strings"
	"syscall"
)

var (
	retryableCodes    = []string{"ECONNRESET", "ETIMEDOUT", "ECONNREFUSED", "ENOTFOUND", "EAI_AGAIN"}
	retryableStatuses = []int{408, 429, 500, 502, 503, 504}
	retryableTypes    = []string{"rate_limit_error", "server_error", "timeout"}
	retryableMessages = []string{"timeout", "econnreset", "rate limit"}
)

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// Typed is implemented by errors that carry an upstream error type.
type Typed interface {
	ErrorType() string
}

// Coded is implemented by errors that carry a symbolic error code.
type Coded interface {
	ErrorCode() string
}

// IsRetryable reports whether err looks transient: a network failure,
// one of the retryable HTTP statuses, a transient upstream type, or a
// message mentioning a timeout, connection reset or rate limit.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if code := Code(err); code != "" && slices.Contains(retryableCodes, code) {
		return true
	}

	var sc StatusCoder
	if errors.As(err, &sc) && slices.Contains(retryableStatuses, sc.StatusCode()) {
		return true
	}

	var typed Typed
	if errors.As(err, &typed) && slices.Contains(retryableTypes, typed.ErrorType()) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range retryableMessages {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Code maps err to one of the symbolic network codes, preferring a code
// declared on the error itself. It returns "" when nothing matches.
func Code(err error) string {
	var coded Coded
	if errors.As(err, &coded) && coded.ErrorCode() != "" {
		return coded.ErrorCode()
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET):
		return "ECONNRESET"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "ECONNREFUSED"
	case errors.Is(err, syscall.ETIMEDOUT), errors.Is(err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return "ENOTFOUND"
		}
		if dnsErr.IsTemporary || dnsErr.IsTimeout {
			return "EAI_AGAIN"
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}
	return ""
}
