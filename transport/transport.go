// Package transport defines the wire-level abstraction the client core rides
// on. A Transport issues exactly one attempt of one request; retry, backoff
// and chunking are layered on top by the retry and transfer packages.
package transport

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ByteRange selects a contiguous slice of an object.
// Length < 0 means "to the end of the object".
type ByteRange struct {
	Offset int64
	Length int64
}

// Request describes a single attempt against the storage service.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
	Range  *ByteRange

	// InvocationID identifies the logical call across all of its retry
	// attempts; Attempt is the zero-based attempt number. Both are forwarded
	// to the service for server-side observability.
	InvocationID string
	Attempt      int
}

// Response is the buffered outcome of a successful attempt.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transport issues one attempt of one request. Implementations must be safe
// for concurrent use; the transfer manager calls RoundTrip from many workers.
type Transport interface {
	RoundTrip(ctx context.Context, req *Request) (*Response, error)
	Close() error
}

// Timeout configures the two phases of a call. Zero values mean unbounded.
type Timeout struct {
	Connect time.Duration
	Read    time.Duration
}

// SingleTimeout applies one value to both phases.
func SingleTimeout(d time.Duration) Timeout {
	return Timeout{Connect: d, Read: d}
}

func (t Timeout) httpTransport() *http.Transport {
	base := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if t.Connect > 0 {
		base.DialContext = (&net.Dialer{Timeout: t.Connect}).DialContext
	}
	if t.Read > 0 {
		base.ResponseHeaderTimeout = t.Read
	}
	return base
}
