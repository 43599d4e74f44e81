package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/objstore/metrics"
	"github.com/vietddude/objstore/transport"
)

// DeadlineError reports an exhausted retry budget. It preserves the last
// underlying failure so callers can still branch on the service error.
type DeadlineError struct {
	Budget time.Duration
	Cause  error
}

func (e *DeadlineError) Error() string {
	return fmt.Sprintf("retry deadline %s exceeded: last error: %v", e.Budget, e.Cause)
}

func (e *DeadlineError) Unwrap() error { return e.Cause }

// Invoke drives the retry loop around fn, which performs exactly one
// attempt. A nil policy means one attempt with any failure terminal.
//
// Failures the predicate rejects propagate unchanged. The deadline bounds
// retries, measured from the start of the first attempt: no retry attempt
// ever starts past the budget, but the first attempt always runs. The
// attempt number is handed to fn so the transport can forward it.
func Invoke(ctx context.Context, policy *Policy, op Op, fn func(ctx context.Context, attempt int) error) error {
	if policy == nil {
		return fn(ctx, 0)
	}

	pred := policy.predicate
	if pred == nil {
		pred = ShouldRetry
	}

	start := time.Now()
	for attempt := 0; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if !pred(err) {
			return err
		}
		if policy.Expired(time.Since(start)) {
			return &DeadlineError{Budget: policy.deadline, Cause: err}
		}

		delay := policy.NextDelay(attempt)
		var se *transport.Error
		if errors.As(err, &se) && se.RetryAfter > delay {
			delay = se.RetryAfter
		}

		// A retry attempt must not start past the budget. The check uses the
		// un-jittered delay so a budget shorter than the configured backoff
		// always yields exactly one attempt, independent of the jitter draw.
		worst := policy.baseDelay(attempt)
		if delay > worst {
			worst = delay
		}
		if policy.deadline > 0 && time.Since(start)+worst >= policy.deadline {
			return &DeadlineError{Budget: policy.deadline, Cause: err}
		}

		metrics.RetriesTotal.WithLabelValues(string(op)).Inc()

		select {
		case <-ctx.Done():
			return &DeadlineError{Budget: policy.deadline, Cause: errors.Join(ctx.Err(), err)}
		case <-time.After(delay):
		}
	}
}

// InvokeValue is Invoke for attempts that produce a value.
func InvokeValue[T any](ctx context.Context, policy *Policy, op Op, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var out T
	err := Invoke(ctx, policy, op, func(ctx context.Context, attempt int) error {
		v, err := fn(ctx, attempt)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
