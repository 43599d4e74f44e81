package retry

import (
	"math"
	"math/rand"
	"time"
)

// Policy is an immutable retry policy. With* methods return modified copies;
// the package-level defaults are never mutated in place.
type Policy struct {
	predicate    Predicate
	initialDelay time.Duration
	multiplier   float64
	maxDelay     time.Duration
	deadline     time.Duration // 0 = unbounded
}

// DefaultPolicy matches the service's suggested client behavior:
// 1s initial delay doubling up to 60s, with a 120s retry budget.
var DefaultPolicy = NewPolicy(ShouldRetry, time.Second, 2.0, 60*time.Second, 120*time.Second)

// NewPolicy builds a Policy, normalizing out-of-range inputs: the initial
// delay must be positive, the multiplier at least 1, the cap at least the
// initial delay. A non-positive deadline means the budget is unbounded.
func NewPolicy(p Predicate, initial time.Duration, multiplier float64, maxDelay, deadline time.Duration) *Policy {
	if p == nil {
		p = ShouldRetry
	}
	if initial <= 0 {
		initial = time.Second
	}
	if multiplier < 1 {
		multiplier = 1
	}
	if maxDelay < initial {
		maxDelay = initial
	}
	if deadline < 0 {
		deadline = 0
	}
	return &Policy{
		predicate:    p,
		initialDelay: initial,
		multiplier:   multiplier,
		maxDelay:     maxDelay,
		deadline:     deadline,
	}
}

// Predicate returns the outcome classifier.
func (p *Policy) Predicate() Predicate { return p.predicate }

// Deadline returns the retry budget; 0 means unbounded.
func (p *Policy) Deadline() time.Duration { return p.deadline }

// WithDeadline returns a copy with a new retry budget.
func (p *Policy) WithDeadline(d time.Duration) *Policy {
	return NewPolicy(p.predicate, p.initialDelay, p.multiplier, p.maxDelay, d)
}

// WithDelays returns a copy with new backoff parameters.
func (p *Policy) WithDelays(initial time.Duration, multiplier float64, maxDelay time.Duration) *Policy {
	return NewPolicy(p.predicate, initial, multiplier, maxDelay, p.deadline)
}

// WithPredicate returns a copy with a new outcome classifier.
func (p *Policy) WithPredicate(pred Predicate) *Policy {
	return NewPolicy(pred, p.initialDelay, p.multiplier, p.maxDelay, p.deadline)
}

// baseDelay is the un-jittered delay before retry number attempt (0-based):
// min(initial * multiplier^attempt, maxDelay).
func (p *Policy) baseDelay(attempt int) time.Duration {
	d := float64(p.initialDelay) * math.Pow(p.multiplier, float64(attempt))
	if d > float64(p.maxDelay) {
		d = float64(p.maxDelay)
	}
	return time.Duration(d)
}

// NextDelay returns the sleep before retry number attempt, with full jitter
// in [0, baseDelay) so many clients retrying at once do not synchronize.
func (p *Policy) NextDelay(attempt int) time.Duration {
	base := p.baseDelay(attempt)
	if base <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(base)))
}

// Expired reports whether the retry budget has been spent. The deadline
// bounds retries, not the first attempt; callers with an expired budget
// still get exactly one attempt.
func (p *Policy) Expired(elapsed time.Duration) bool {
	return p.deadline > 0 && elapsed >= p.deadline
}
