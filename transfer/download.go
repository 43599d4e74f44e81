package transfer

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/vietddude/objstore"
	"github.com/vietddude/objstore/metrics"
	"github.com/vietddude/objstore/retry"
)

// Download moves bucket/object into dst as independently-retried ranged
// reads, each written to its own offset exactly once. The read generation
// is pinned up front so a concurrent overwrite cannot interleave two
// versions of the object across parts.
//
// When dst also implements io.ReaderAt (an *os.File does), the reassembled
// bytes are re-read and validated against the service's checksum; a
// mismatch returns *IntegrityError and the destination must not be treated
// as complete.
func (m *Manager) Download(ctx context.Context, bucket, object string, dst io.WriterAt) (*objstore.ObjectAttrs, error) {
	attrs, err := m.svc.StatObject(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", object, err)
	}

	plan := BuildPlan(attrs.Size, m.partSize)
	invocation := uuid.NewString()

	m.log.Info("starting chunked download",
		"bucket", bucket, "object", object,
		"size", attrs.Size, "parts", len(plan.Parts), "concurrency", m.concurrency)

	statuses, results := m.runTasks(ctx, len(plan.Parts), m.failureFor(FailFast), func(ctx context.Context, i int) error {
		part := &plan.Parts[i]
		if part.Length == 0 {
			return nil
		}

		data, err := retry.InvokeValue(ctx, m.policy, retry.OpObjectRead, func(ctx context.Context, attempt int) ([]byte, error) {
			return m.svc.ReadRangeAttempt(ctx, bucket, object, attrs.Generation, part.Offset, part.Length, invocation, attempt)
		})
		if err != nil {
			return err
		}
		if int64(len(data)) != part.Length {
			return fmt.Errorf("part %d: short read: got %d bytes, want %d", i, len(data), part.Length)
		}

		if _, err := dst.WriteAt(data, part.Offset); err != nil {
			return fmt.Errorf("part %d: write destination: %w", i, err)
		}

		metrics.TransferBytesTotal.WithLabelValues("download").Add(float64(part.Length))
		return nil
	})
	for i, s := range statuses {
		plan.Parts[i].Status = s
	}

	if err := finish(ctx, aggregate("download", statuses, results)); err != nil {
		m.log.Warn("chunked download incomplete", "bucket", bucket, "object", object, "error", err)
		return nil, err
	}

	if m.checksum != ChecksumDisabled {
		if r, ok := dst.(io.ReaderAt); ok {
			local, err := computeChecksums(r, attrs.Size)
			if err != nil {
				return nil, err
			}
			if err := m.checksum.verify(local, attrs); err != nil {
				return nil, err
			}
		} else if m.checksum != ChecksumAuto {
			return nil, fmt.Errorf("%w: destination is not readable for validation", ErrChecksumUnavailable)
		}
	}

	m.log.Info("chunked download complete", "bucket", bucket, "object", object)
	return attrs, nil
}
