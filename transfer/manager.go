package transfer

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/objstore"
	"github.com/vietddude/objstore/metrics"
	"github.com/vietddude/objstore/retry"
)

const (
	// DefaultPartSize is 32 MiB, large enough to amortize per-request
	// overhead without starving the pool of schedulable work.
	DefaultPartSize = 32 << 20

	DefaultConcurrency = 8

	// maxComposeSources is the service's per-call compose limit.
	maxComposeSources = 32
)

// FailurePolicy picks how a transfer reacts to one part failing terminally.
type FailurePolicy int

const (
	// FailFast cancels queued and in-flight parts on the first terminal
	// part failure. In-flight parts finish their current attempt.
	FailFast FailurePolicy = iota

	// BestEffort lets independent parts run to completion and aggregates
	// every failure at the end.
	BestEffort
)

// ObjectService is the slice of the client the manager consumes. The
// *Attempt methods perform exactly one attempt; the manager owns each
// part's retry loop and passes the attempt number through for server-side
// observability.
type ObjectService interface {
	StatObject(ctx context.Context, bucket, object string) (*objstore.ObjectAttrs, error)
	ReadRangeAttempt(ctx context.Context, bucket, object string, gen, offset, length int64, invocationID string, attempt int) ([]byte, error)
	UploadPartAttempt(ctx context.Context, bucket, name string, data []byte, invocationID string, attempt int) (*objstore.ObjectAttrs, error)
	ComposeObjects(ctx context.Context, bucket, dst string, sources []string, generationMatch int64) (*objstore.ObjectAttrs, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

// Manager drives chunked and batched transfers. One Manager may be shared;
// each operation owns its plan privately.
type Manager struct {
	svc         ObjectService
	partSize    int64
	concurrency int
	checksum    ChecksumMode
	policy      *retry.Policy
	log         *slog.Logger

	failure    FailurePolicy
	failureSet bool
}

// Option customizes a Manager.
type Option func(*Manager)

// WithPartSize sets the per-part byte count.
func WithPartSize(n int64) Option {
	return func(m *Manager) {
		if n > 0 {
			m.partSize = n
		}
	}
}

// WithConcurrency bounds the worker pool.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithFailurePolicy overrides the per-operation defaults (fail-fast for
// chunked transfers, best-effort for the Many variants).
func WithFailurePolicy(p FailurePolicy) Option {
	return func(m *Manager) {
		m.failure = p
		m.failureSet = true
	}
}

// WithChecksumMode sets how finished transfers are validated.
func WithChecksumMode(mode ChecksumMode) Option {
	return func(m *Manager) { m.checksum = mode }
}

// WithRetryPolicy replaces the per-part retry policy.
func WithRetryPolicy(p *retry.Policy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithLogger sets the manager's logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// NewManager creates a Manager over the given service.
func NewManager(svc ObjectService, opts ...Option) *Manager {
	m := &Manager{
		svc:         svc,
		partSize:    DefaultPartSize,
		concurrency: DefaultConcurrency,
		checksum:    ChecksumAuto,
		policy:      retry.DefaultPolicy,
		log:         slog.Default().With("component", "transfer"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) failureFor(def FailurePolicy) FailurePolicy {
	if m.failureSet {
		return m.failure
	}
	return def
}

// runTasks fans n tasks over the bounded pool. Each task owns its own
// status slot and result slot; the aggregator reads them only after Wait,
// so the slices need no locking. Under FailFast the first terminal error
// cancels the group context; tasks that have not started yet observe the
// cancellation and report PartSkipped instead of running.
func (m *Manager) runTasks(ctx context.Context, n int, failure FailurePolicy, run func(ctx context.Context, i int) error) ([]PartStatus, []error) {
	statuses := make([]PartStatus, n)
	results := make([]error, n)

	var g *errgroup.Group
	gctx := ctx
	if failure == FailFast {
		g, gctx = errgroup.WithContext(ctx)
	} else {
		g = new(errgroup.Group)
	}
	g.SetLimit(m.concurrency)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				statuses[i] = PartSkipped
				results[i] = err
				return nil
			}

			statuses[i] = PartInFlight
			if err := run(gctx, i); err != nil {
				statuses[i] = PartFailed
				results[i] = err
				if failure == FailFast {
					return err
				}
				return nil
			}

			statuses[i] = PartDone
			return nil
		})
	}
	_ = g.Wait()
	return statuses, results
}

// aggregate folds task outcomes into a PartialError, or nil when every
// task succeeded.
func aggregate(direction string, statuses []PartStatus, results []error) *PartialError {
	pe := &PartialError{Direction: direction}
	for i, s := range statuses {
		switch s {
		case PartDone:
			pe.Succeeded = append(pe.Succeeded, i)
			metrics.TransferPartsTotal.WithLabelValues(direction, "done").Inc()
		case PartFailed:
			pe.Failed = append(pe.Failed, PartFailure{Index: i, Err: results[i]})
			metrics.TransferPartsTotal.WithLabelValues(direction, "failed").Inc()
		default:
			pe.Skipped = append(pe.Skipped, i)
			metrics.TransferPartsTotal.WithLabelValues(direction, "skipped").Inc()
		}
	}
	if len(pe.Failed) == 0 && len(pe.Skipped) == 0 {
		return nil
	}
	return pe
}

// finish converts an aggregate into the operation's error. A transfer with
// no terminal part failures that still has skipped parts was cancelled by
// the caller; surface the context error directly.
func finish(ctx context.Context, pe *PartialError) error {
	if pe == nil {
		return nil
	}
	if len(pe.Failed) == 0 && ctx.Err() != nil {
		return ctx.Err()
	}
	return pe
}
