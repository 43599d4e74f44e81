package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/vietddude/objstore/transport"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		err    error
		expect bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, false},
		{fmt.Errorf("read object: %w", context.Canceled), false},
		{io.ErrUnexpectedEOF, true},
		{fmt.Errorf("copy body: %w", io.ErrUnexpectedEOF), true},
		{timeoutErr{}, true},
		{errors.New("read tcp 10.0.0.1:443: connection reset by peer"), true},
		{errors.New("dial tcp 10.0.0.1:443: connection refused"), true},
		{errors.New("write: broken pipe"), true},
		{errors.New("http2: stream closed"), true},
		{errors.New("no such host"), false},
		{&transport.Error{StatusCode: 503}, true},
		{&transport.Error{StatusCode: 429}, true},
		{&transport.Error{StatusCode: 404}, false},
		{&transport.Error{StatusCode: 412}, false},
		{fmt.Errorf("stat: %w", &transport.Error{StatusCode: 500}), true},
	}

	for _, tt := range tests {
		if got := ShouldRetry(tt.err); got != tt.expect {
			t.Errorf("ShouldRetry(%v) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestShouldRetryStructuredReasons(t *testing.T) {
	tests := []struct {
		reason string
		expect bool
	}{
		{"rateLimitExceeded", true},
		{"backendError", true},
		{"internalError", true},
		{"badGateway", true},
		{"invalidArgument", false},
	}

	for _, tt := range tests {
		err := &transport.Error{StatusCode: 400, Reason: tt.reason}
		if got := ShouldRetry(err); got != tt.expect {
			t.Errorf("ShouldRetry(reason=%q) = %v, want %v", tt.reason, got, tt.expect)
		}
	}
}

func TestShouldRetryDoesNotMutate(t *testing.T) {
	err := &transport.Error{StatusCode: 503, Reason: "backendError", RetryAfter: 2 * time.Second}
	before := *err
	ShouldRetry(err)
	if *err != before {
		t.Errorf("predicate mutated error: before %+v, after %+v", before, *err)
	}
}
