// Package retry decides which failures are safe to retry and drives the
// retry loop around single-attempt transport calls.
package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/vietddude/objstore/transport"
)

// Predicate classifies one transport outcome as retryable or not.
// Implementations must be pure: deterministic, no mutation of err, no panic.
type Predicate func(err error) bool

// ShouldRetry is the default predicate. It retries idempotency-safe
// transient failures: timeouts, connection-level resets, 408/429/5xx
// statuses, their gRPC equivalents, and structured backend reasons.
// Context cancellation is never retried; the caller gave up.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var se *transport.Error
	if errors.As(err, &se) {
		return se.IsTransient()
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	// Connection-level failures arrive as opaque *url.Error / *net.OpError
	// chains; match on text the way the upstream clients do.
	s := err.Error()
	for _, m := range []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"http2: stream closed",
	} {
		if strings.Contains(s, m) {
			return true
		}
	}

	return false
}
