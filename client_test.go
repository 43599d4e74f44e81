package objstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/objstore/retry"
	"github.com/vietddude/objstore/transport"
)

// fakeTransport records every attempt and delegates responses to handler.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []transport.Request
	handler func(call int, req *transport.Request) (*transport.Response, error)
}

func (f *fakeTransport) RoundTrip(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, *req)
	n := len(f.calls)
	f.mu.Unlock()
	return f.handler(n, req)
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func jsonResp(body string) (*transport.Response, error) {
	return &transport.Response{StatusCode: 200, Body: []byte(body)}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy() *retry.Policy {
	return retry.NewPolicy(retry.ShouldRetry, time.Millisecond, 2.0, 2*time.Millisecond, time.Second)
}

func newTestClient(f *fakeTransport, opts ...ClientOption) *Client {
	opts = append([]ClientOption{WithRetryPolicy(fastPolicy()), WithLogger(quietLogger())}, opts...)
	return NewClient(f, opts...)
}

func TestClientRetriesIdempotentOperation(t *testing.T) {
	f := &fakeTransport{handler: func(call int, req *transport.Request) (*transport.Response, error) {
		if call <= 2 {
			return nil, &transport.Error{StatusCode: 503}
		}
		return jsonResp(`{"bucket":"b","name":"obj","size":"42"}`)
	}}
	c := newTestClient(f)

	attrs, err := c.Bucket("b").Object("obj").Attrs(context.Background())
	if err != nil {
		t.Fatalf("Attrs = %v", err)
	}
	if attrs.Size != 42 {
		t.Errorf("Size = %d, want 42", attrs.Size)
	}
	if f.callCount() != 3 {
		t.Fatalf("attempts = %d, want 3", f.callCount())
	}

	// All attempts share one invocation id; the attempt number advances.
	id := f.calls[0].InvocationID
	if id == "" {
		t.Error("InvocationID is empty")
	}
	for i, call := range f.calls {
		if call.InvocationID != id {
			t.Errorf("attempt %d: InvocationID = %q, want %q", i, call.InvocationID, id)
		}
		if call.Attempt != i {
			t.Errorf("attempt %d: Attempt = %d", i, call.Attempt)
		}
	}
}

func TestClientDeleteWithoutPreconditionSingleAttempt(t *testing.T) {
	f := &fakeTransport{handler: func(call int, req *transport.Request) (*transport.Response, error) {
		return nil, &transport.Error{StatusCode: 503}
	}}
	c := newTestClient(f)

	err := c.Bucket("b").Object("obj").Delete(context.Background())
	var se *transport.Error
	if !errors.As(err, &se) || se.StatusCode != 503 {
		t.Fatalf("Delete = %v, want the original 503", err)
	}
	var de *retry.DeadlineError
	if errors.As(err, &de) {
		t.Error("Delete wrapped the error in a DeadlineError; unconditional operations must not retry")
	}
	if f.callCount() != 1 {
		t.Errorf("attempts = %d, want 1 without a generation precondition", f.callCount())
	}
}

func TestClientDeleteWithPreconditionRetries(t *testing.T) {
	f := &fakeTransport{handler: func(call int, req *transport.Request) (*transport.Response, error) {
		if call == 1 {
			return nil, &transport.Error{StatusCode: 503}
		}
		return jsonResp(`{}`)
	}}
	c := newTestClient(f)

	h := c.Bucket("b").Object("obj").If(Conditions{GenerationMatch: 7})
	if err := h.Delete(context.Background()); err != nil {
		t.Fatalf("Delete = %v", err)
	}
	if f.callCount() != 2 {
		t.Errorf("attempts = %d, want 2", f.callCount())
	}
	if got := f.calls[0].Query.Get("ifGenerationMatch"); got != "7" {
		t.Errorf("ifGenerationMatch = %q, want 7", got)
	}
}

func TestClientStrictIdempotency(t *testing.T) {
	f := &fakeTransport{handler: func(call int, req *transport.Request) (*transport.Response, error) {
		t.Error("transport called; strict mode must reject before sending")
		return jsonResp(`{}`)
	}}
	c := newTestClient(f, WithStrictIdempotency())

	err := c.Bucket("b").Object("obj").Delete(context.Background())
	var pre *PreconditionRequiredError
	if !errors.As(err, &pre) {
		t.Fatalf("Delete = %v, want *PreconditionRequiredError", err)
	}
	if pre.Op != retry.OpObjectDelete || pre.Class != retry.ClassIfGenerationMatch {
		t.Errorf("error = %+v, want objects.delete / if_generation_match", pre)
	}

	// The same operation with its precondition goes through.
	h := c.Bucket("b").Object("obj").If(Conditions{GenerationMatch: 7})
	f.handler = func(call int, req *transport.Request) (*transport.Response, error) {
		return jsonResp(`{}`)
	}
	if err := h.Delete(context.Background()); err != nil {
		t.Errorf("Delete with precondition = %v", err)
	}
}

func TestClientUpdateEtagActivatesRetry(t *testing.T) {
	f := &fakeTransport{handler: func(call int, req *transport.Request) (*transport.Response, error) {
		if call == 1 {
			return nil, &transport.Error{StatusCode: 503}
		}
		return jsonResp(`{"name":"obj"}`)
	}}
	c := newTestClient(f)

	ct := "text/plain"
	_, err := c.Bucket("b").Object("obj").Update(context.Background(), ObjectAttrsToUpdate{
		ContentType: &ct,
		Etag:        "etag-1",
	})
	if err != nil {
		t.Fatalf("Update = %v", err)
	}
	if f.callCount() != 2 {
		t.Errorf("attempts = %d, want 2 with an etag in the body", f.callCount())
	}

	// Without the etag the patch gets one attempt.
	f.calls = nil
	f.handler = func(call int, req *transport.Request) (*transport.Response, error) {
		return nil, &transport.Error{StatusCode: 503}
	}
	if _, err := c.Bucket("b").Object("obj").Update(context.Background(), ObjectAttrsToUpdate{ContentType: &ct}); err == nil {
		t.Fatal("Update = nil, want error")
	}
	if f.callCount() != 1 {
		t.Errorf("attempts = %d, want 1 without an etag", f.callCount())
	}
}

func TestClientUploadAutoNamedNeverRetries(t *testing.T) {
	f := &fakeTransport{handler: func(call int, req *transport.Request) (*transport.Response, error) {
		return nil, &transport.Error{StatusCode: 503}
	}}
	c := newTestClient(f)

	_, err := c.Bucket("b").UploadAutoNamed(context.Background(), []byte("data"), "")
	if err == nil {
		t.Fatal("UploadAutoNamed = nil, want error")
	}
	if f.callCount() != 1 {
		t.Errorf("attempts = %d, want 1 for a server-named insert", f.callCount())
	}
}
