package transfer

import (
	"context"

	"github.com/google/uuid"

	"github.com/vietddude/objstore"
	"github.com/vietddude/objstore/metrics"
	"github.com/vietddude/objstore/retry"
)

// UploadItem is one whole object to upload.
type UploadItem struct {
	Name string
	Data []byte
}

// ItemResult is the per-item outcome of a Many transfer. Exactly one of
// Err or the payload fields is meaningful.
type ItemResult struct {
	Name  string
	Attrs *objstore.ObjectAttrs
	Data  []byte
	Err   error
}

// UploadMany uploads many whole objects over the same bounded pool.
// Defaults to best-effort: independent items keep going and failures are
// aggregated. A plain named insert carries no precondition, so each item
// gets a single attempt; callers who want retries should upload to fresh
// names or use the chunked Upload path.
func (m *Manager) UploadMany(ctx context.Context, bucket string, items []UploadItem) ([]ItemResult, error) {
	out := make([]ItemResult, len(items))
	invocation := uuid.NewString()

	directive := retry.DirectiveFor(retry.OpObjectInsert)

	statuses, results := m.runTasks(ctx, len(items), m.failureFor(BestEffort), func(ctx context.Context, i int) error {
		policy := directive.Resolve(retry.Params{})
		attrs, err := retry.InvokeValue(ctx, policy, retry.OpObjectInsert, func(ctx context.Context, attempt int) (*objstore.ObjectAttrs, error) {
			return m.svc.UploadPartAttempt(ctx, bucket, items[i].Name, items[i].Data, invocation, attempt)
		})
		if err != nil {
			return err
		}
		out[i].Attrs = attrs
		metrics.TransferBytesTotal.WithLabelValues("upload").Add(float64(len(items[i].Data)))
		return nil
	})

	for i := range out {
		out[i].Name = items[i].Name
		out[i].Err = results[i]
	}
	return out, finish(ctx, aggregate("upload", statuses, results))
}

// DownloadMany downloads many whole objects over the same bounded pool.
// Reads are always idempotent, so every item retries under the manager's
// policy. Defaults to best-effort.
func (m *Manager) DownloadMany(ctx context.Context, bucket string, objects []string) ([]ItemResult, error) {
	out := make([]ItemResult, len(objects))
	invocation := uuid.NewString()

	statuses, results := m.runTasks(ctx, len(objects), m.failureFor(BestEffort), func(ctx context.Context, i int) error {
		data, err := retry.InvokeValue(ctx, m.policy, retry.OpObjectRead, func(ctx context.Context, attempt int) ([]byte, error) {
			return m.svc.ReadRangeAttempt(ctx, bucket, objects[i], 0, 0, -1, invocation, attempt)
		})
		if err != nil {
			return err
		}
		out[i].Data = data
		metrics.TransferBytesTotal.WithLabelValues("download").Add(float64(len(data)))
		return nil
	})

	for i := range out {
		out[i].Name = objects[i]
		out[i].Err = results[i]
	}
	return out, finish(ctx, aggregate("download", statuses, results))
}
