package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/objstore/metrics"
)

// HTTPTransport speaks the service's REST/JSON API.
type HTTPTransport struct {
	name       string
	endpoint   string
	httpClient *http.Client
	header     http.Header

	monitor *Monitor
}

// HTTPOption customizes an HTTPTransport.
type HTTPOption func(*HTTPTransport)

// WithHeader attaches headers (credentials, user agent) to every request.
// Authentication is the caller's concern; the transport just forwards it.
func WithHeader(h http.Header) HTTPOption {
	return func(t *HTTPTransport) { t.header = h }
}

// WithHTTPClient replaces the underlying client, ignoring the Timeout given
// to NewHTTPTransport. Useful for tests and custom TLS setups.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) { t.httpClient = c }
}

// NewHTTPTransport creates a REST/JSON transport for the given endpoint.
func NewHTTPTransport(name, endpoint string, timeout Timeout, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{
		name:     name,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{
			Transport: timeout.httpTransport(),
		},
		monitor: NewMonitor(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip issues one attempt. Non-2xx statuses become *Error; network
// failures are returned as-is so the retry predicate can inspect them.
func (t *HTTPTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	metrics.RequestsTotal.WithLabelValues(t.name, req.Method).Inc()

	u := t.endpoint + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		t.monitor.RecordFailure()
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range t.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Range != nil {
		httpReq.Header.Set("Range", formatRange(req.Range))
	}
	if req.InvocationID != "" {
		httpReq.Header.Set("X-Invocation-Id", req.InvocationID)
		httpReq.Header.Set("X-Invocation-Attempt", strconv.Itoa(req.Attempt))
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.monitor.RecordFailure()
		metrics.RequestErrorsTotal.WithLabelValues(t.name, req.Method, "network").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.monitor.RecordFailure()
		metrics.RequestErrorsTotal.WithLabelValues(t.name, req.Method, "read").Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		t.monitor.RecordFailure()
		metrics.RequestErrorsTotal.WithLabelValues(t.name, req.Method, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, FromHTTP(resp.StatusCode, resp.Header, payload)
	}

	latency := time.Since(start)
	t.monitor.RecordSuccess(latency)
	metrics.RequestLatency.WithLabelValues(t.name, req.Method).Observe(latency.Seconds())

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       payload,
	}, nil
}

// Health exposes the transport's health snapshot.
func (t *HTTPTransport) Health() HealthStatus {
	return t.monitor.Health()
}

// Close cleans up idle connections.
func (t *HTTPTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}

func formatRange(r *ByteRange) string {
	if r.Length < 0 {
		return fmt.Sprintf("bytes=%d-", r.Offset)
	}
	return fmt.Sprintf("bytes=%d-%d", r.Offset, r.Offset+r.Length-1)
}
