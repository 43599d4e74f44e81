// Package objstore is a client for a cloud object-storage service's
// REST/JSON and gRPC APIs. It layers idempotency-aware retry policies and a
// concurrent chunked transfer manager on top of an injected transport; the
// storage itself, authentication, and URL signing live elsewhere.
package objstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/vietddude/objstore/retry"
	"github.com/vietddude/objstore/transport"
)

// Client talks to one storage endpoint through one transport.
// It is safe for concurrent use.
type Client struct {
	transport transport.Transport
	policy    *retry.Policy
	strict    bool
	log       *slog.Logger
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithRetryPolicy replaces the default retry policy for every operation.
// Idempotency classes still gate when the policy applies.
func WithRetryPolicy(p *retry.Policy) ClientOption {
	return func(c *Client) { c.policy = p }
}

// WithStrictIdempotency makes the client refuse conditionally-idempotent
// operations whose precondition is missing, instead of silently running them
// without retry.
func WithStrictIdempotency() ClientOption {
	return func(c *Client) { c.strict = true }
}

// WithLogger sets the client's logger.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient wraps an injected transport. The client never constructs the
// transport itself; credentials and endpoints are the transport's concern.
func NewClient(t transport.Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport: t,
		policy:    retry.DefaultPolicy,
		log:       slog.Default().With("component", "objstore"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// Bucket returns a handle for the named bucket. No RPC is issued.
func (c *Client) Bucket(name string) *BucketHandle {
	return &BucketHandle{c: c, name: name}
}

// PreconditionRequiredError reports that an operation is only conditionally
// idempotent and the activating precondition was not supplied. It is raised
// at policy-resolution time, before any request is sent.
type PreconditionRequiredError struct {
	Op    retry.Op
	Class retry.Classification
}

func (e *PreconditionRequiredError) Error() string {
	return fmt.Sprintf("%s is retryable only with a %s precondition and none was supplied", e.Op, e.Class)
}

// call resolves the operation's retry directive against the request and
// drives the executor around single transport attempts. Retries are
// invisible on eventual success; terminal failures propagate the original
// transport error.
func (c *Client) call(ctx context.Context, op retry.Op, req *transport.Request) (*transport.Response, error) {
	params := retry.Params{Query: req.Query, Body: req.Body}
	policy := retry.DirectiveWith(op, c.policy).Resolve(params)

	if c.strict {
		// Precondition presence is checked against the default directive so
		// a client with retries disabled still enforces it.
		switch class := retry.Classify(op); class {
		case retry.ClassIfGenerationMatch, retry.ClassIfMetagenerationMatch, retry.ClassIfEtagMatch:
			if retry.DirectiveFor(op).Resolve(params) == nil {
				return nil, &PreconditionRequiredError{Op: op, Class: class}
			}
		}
	}

	req.InvocationID = uuid.NewString()

	return retry.InvokeValue(ctx, policy, op, func(ctx context.Context, attempt int) (*transport.Response, error) {
		if attempt > 0 {
			c.log.Debug("retrying", "op", op, "attempt", attempt, "invocation", req.InvocationID)
		}
		r := *req
		r.Attempt = attempt
		return c.transport.RoundTrip(ctx, &r)
	})
}
