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

// Upload moves size bytes from src into bucket/dst as independently-retried
// parts, then composes them into the final object. Parts are temporary
// objects named under dst; on success they are cleaned up, on failure they
// are left in place so the caller can inspect and resume; the manager
// never silently deletes partial remote state.
//
// Part uploads are idempotent (the part's name and range fully determine
// placement), so every part retries under the manager's policy without
// needing preconditions.
func (m *Manager) Upload(ctx context.Context, bucket, dst string, src io.ReaderAt, size int64) (*objstore.ObjectAttrs, error) {
	plan := BuildPlan(size, m.partSize)
	session := uuid.NewString()[:8]
	invocation := uuid.NewString()

	m.log.Info("starting chunked upload",
		"bucket", bucket, "object", dst,
		"size", size, "parts", len(plan.Parts), "concurrency", m.concurrency)

	var local checksums
	if m.checksum != ChecksumDisabled {
		var err error
		local, err = computeChecksums(src, size)
		if err != nil {
			return nil, err
		}
	}

	partNames := make([]string, len(plan.Parts))
	for i := range partNames {
		partNames[i] = fmt.Sprintf("%s.part.%s.%04d", dst, session, i)
	}

	statuses, results := m.runTasks(ctx, len(plan.Parts), m.failureFor(FailFast), func(ctx context.Context, i int) error {
		part := &plan.Parts[i]

		buf := make([]byte, part.Length)
		if part.Length > 0 {
			if _, err := src.ReadAt(buf, part.Offset); err != nil {
				return fmt.Errorf("read source part %d: %w", i, err)
			}
		}

		err := retry.Invoke(ctx, m.policy, retry.OpPartUpload, func(ctx context.Context, attempt int) error {
			_, err := m.svc.UploadPartAttempt(ctx, bucket, partNames[i], buf, invocation, attempt)
			return err
		})
		if err != nil {
			return err
		}

		metrics.TransferBytesTotal.WithLabelValues("upload").Add(float64(part.Length))
		return nil
	})
	for i, s := range statuses {
		plan.Parts[i].Status = s
	}

	if err := finish(ctx, aggregate("upload", statuses, results)); err != nil {
		m.log.Warn("chunked upload incomplete", "bucket", bucket, "object", dst, "error", err)
		return nil, err
	}

	attrs, intermediates, err := m.composeAll(ctx, bucket, dst, partNames)
	if err != nil {
		return nil, fmt.Errorf("finalize %s: %w", dst, err)
	}

	// Housekeeping only: the object is already committed, so cleanup
	// failures are logged, not returned.
	m.cleanup(ctx, bucket, append(partNames, intermediates...))

	if m.checksum != ChecksumDisabled {
		if err := m.checksum.verify(local, attrs); err != nil {
			return nil, err
		}
	}

	m.log.Info("chunked upload complete", "bucket", bucket, "object", dst, "generation", attrs.Generation)
	return attrs, nil
}

// composeAll commits the parts into dst, batching hierarchically when the
// part count exceeds the service's per-call compose limit. It returns the
// final attrs and the names of any intermediate objects it created.
func (m *Manager) composeAll(ctx context.Context, bucket, dst string, sources []string) (*objstore.ObjectAttrs, []string, error) {
	var intermediates []string
	level := 0

	for len(sources) > maxComposeSources {
		var next []string
		for i := 0; i < len(sources); i += maxComposeSources {
			end := i + maxComposeSources
			if end > len(sources) {
				end = len(sources)
			}
			name := fmt.Sprintf("%s.compose.%d.%04d", dst, level, i/maxComposeSources)
			if _, err := m.svc.ComposeObjects(ctx, bucket, name, sources[i:end], 0); err != nil {
				return nil, intermediates, err
			}
			intermediates = append(intermediates, name)
			next = append(next, name)
		}
		sources = next
		level++
	}

	attrs, err := m.svc.ComposeObjects(ctx, bucket, dst, sources, 0)
	if err != nil {
		return nil, intermediates, err
	}
	return attrs, intermediates, nil
}

func (m *Manager) cleanup(ctx context.Context, bucket string, names []string) {
	for _, name := range names {
		if err := m.svc.DeleteObject(ctx, bucket, name); err != nil {
			m.log.Warn("failed to delete temporary part object", "bucket", bucket, "object", name, "error", err)
		}
	}
}
