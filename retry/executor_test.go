package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/objstore/transport"
)

func TestInvokeSuccessAfterTransients(t *testing.T) {
	p := NewPolicy(ShouldRetry, time.Millisecond, 2.0, 10*time.Millisecond, 0)

	calls := 0
	err := Invoke(context.Background(), p, OpObjectRead, func(ctx context.Context, attempt int) error {
		calls++
		if attempt != calls-1 {
			t.Errorf("attempt = %d on call %d", attempt, calls)
		}
		if calls <= 2 {
			return &transport.Error{StatusCode: 503}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Invoke = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestInvokeTerminalErrorUnchanged(t *testing.T) {
	p := NewPolicy(ShouldRetry, time.Millisecond, 2.0, 10*time.Millisecond, 0)

	terminal := &transport.Error{StatusCode: 404, Message: "no such object"}
	calls := 0
	err := Invoke(context.Background(), p, OpObjectRead, func(ctx context.Context, attempt int) error {
		calls++
		return terminal
	})

	if !errors.Is(err, terminal) {
		t.Fatalf("Invoke = %v, want the original terminal error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestInvokeNilPolicy(t *testing.T) {
	calls := 0
	err := Invoke(context.Background(), nil, OpObjectInsertAutoName, func(ctx context.Context, attempt int) error {
		calls++
		return &transport.Error{StatusCode: 503}
	})

	if err == nil {
		t.Fatal("Invoke = nil, want error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 with nil policy", calls)
	}
}

// A budget shorter than the first backoff delay still buys exactly one
// attempt: the deadline bounds retries, never the first call.
func TestInvokeShortDeadlineSingleAttempt(t *testing.T) {
	p := NewPolicy(ShouldRetry, time.Second, 2.0, time.Second, 50*time.Millisecond)

	calls := 0
	start := time.Now()
	err := Invoke(context.Background(), p, OpObjectRead, func(ctx context.Context, attempt int) error {
		calls++
		return &transport.Error{StatusCode: 503}
	})
	elapsed := time.Since(start)

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	var de *DeadlineError
	if !errors.As(err, &de) {
		t.Fatalf("Invoke = %v, want DeadlineError", err)
	}
	if de.Budget != 50*time.Millisecond {
		t.Errorf("Budget = %v, want 50ms", de.Budget)
	}
	var se *transport.Error
	if !errors.As(de.Cause, &se) || se.StatusCode != 503 {
		t.Errorf("Cause = %v, want the last 503", de.Cause)
	}
	// No retry attempt may start past the budget, so the sleep never runs.
	if elapsed > 200*time.Millisecond {
		t.Errorf("Invoke took %v, want well under the 1s backoff", elapsed)
	}
}

func TestInvokeDeadlineErrorUnwraps(t *testing.T) {
	p := NewPolicy(ShouldRetry, time.Millisecond, 2.0, time.Millisecond, 5*time.Millisecond)

	cause := &transport.Error{StatusCode: 502, Reason: "badGateway"}
	err := Invoke(context.Background(), p, OpObjectRead, func(ctx context.Context, attempt int) error {
		return cause
	})

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false for %v", err)
	}
}

func TestInvokeContextCanceled(t *testing.T) {
	p := NewPolicy(ShouldRetry, 50*time.Millisecond, 2.0, 50*time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Invoke(ctx, p, OpObjectRead, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return &transport.Error{StatusCode: 503}
	})

	if err == nil {
		t.Fatal("Invoke = nil, want error after cancellation")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("errors.Is(err, context.Canceled) = false for %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestInvokeHonorsRetryAfter(t *testing.T) {
	p := NewPolicy(ShouldRetry, time.Millisecond, 1.0, time.Millisecond, 0)

	calls := 0
	start := time.Now()
	err := Invoke(context.Background(), p, OpObjectRead, func(ctx context.Context, attempt int) error {
		calls++
		if calls == 1 {
			return &transport.Error{StatusCode: 429, RetryAfter: 100 * time.Millisecond}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Invoke = %v, want nil", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Invoke took %v, want at least the server-suggested 100ms", elapsed)
	}
}

func TestInvokeValue(t *testing.T) {
	p := NewPolicy(ShouldRetry, time.Millisecond, 2.0, time.Millisecond, 0)

	calls := 0
	got, err := InvokeValue(context.Background(), p, OpObjectRead, func(ctx context.Context, attempt int) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, &transport.Error{StatusCode: 503}
		}
		return []byte("payload"), nil
	})

	if err != nil {
		t.Fatalf("InvokeValue = %v, want nil", err)
	}
	if string(got) != "payload" {
		t.Errorf("value = %q, want %q", got, "payload")
	}
}
