package transfer

import (
	"context"
	"crypto/md5"
	"hash/crc32"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vietddude/objstore"
	"github.com/vietddude/objstore/retry"
	"github.com/vietddude/objstore/transport"
)

// fakeService is an in-memory ObjectService. Failure hooks let tests
// inject per-object, per-attempt errors.
type fakeService struct {
	mu      sync.Mutex
	objects map[string][]byte

	uploadHook func(name string, attempt int) error
	readHook   func(object string, offset int64, attempt int) error

	// statCRC overrides the crc32c reported in attrs, to simulate a
	// service-side digest that disagrees with the bytes.
	statCRC *uint32

	partDelay time.Duration

	inFlight      int32
	maxConcurrent int32
	maxAttempt    int32
	composes      [][]string
}

func newFakeService() *fakeService {
	return &fakeService{objects: make(map[string][]byte)}
}

func (f *fakeService) attrsLocked(bucket, name string) *objstore.ObjectAttrs {
	data := f.objects[name]
	crc := crc32.Checksum(data, castagnoli)
	if f.statCRC != nil {
		crc = *f.statCRC
	}
	sum := md5.Sum(data)
	return &objstore.ObjectAttrs{
		Bucket:         bucket,
		Name:           name,
		Size:           int64(len(data)),
		Generation:     1,
		Metageneration: 1,
		CRC32C:         crc,
		HasCRC32C:      true,
		MD5:            sum[:],
	}
}

func (f *fakeService) StatObject(ctx context.Context, bucket, object string) (*objstore.ObjectAttrs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[object]; !ok {
		return nil, &transport.Error{StatusCode: 404, Message: "not found"}
	}
	return f.attrsLocked(bucket, object), nil
}

func (f *fakeService) ReadRangeAttempt(ctx context.Context, bucket, object string, gen, offset, length int64, invocationID string, attempt int) ([]byte, error) {
	if f.readHook != nil {
		if err := f.readHook(object, offset, attempt); err != nil {
			return nil, err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[object]
	if !ok {
		return nil, &transport.Error{StatusCode: 404, Message: "not found"}
	}
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	end := int64(len(data))
	if length >= 0 && offset+length < end {
		end = offset + length
	}
	out := make([]byte, end-offset)
	copy(out, data[offset:end])
	return out, nil
}

func (f *fakeService) UploadPartAttempt(ctx context.Context, bucket, name string, data []byte, invocationID string, attempt int) (*objstore.ObjectAttrs, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxConcurrent)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxConcurrent, max, n) {
			break
		}
	}
	for {
		max := atomic.LoadInt32(&f.maxAttempt)
		if int32(attempt) <= max || atomic.CompareAndSwapInt32(&f.maxAttempt, max, int32(attempt)) {
			break
		}
	}
	if f.partDelay > 0 {
		time.Sleep(f.partDelay)
	}

	if f.uploadHook != nil {
		if err := f.uploadHook(name, attempt); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	f.objects[name] = stored
	return f.attrsLocked(bucket, name), nil
}

func (f *fakeService) ComposeObjects(ctx context.Context, bucket, dst string, sources []string, generationMatch int64) (*objstore.ObjectAttrs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var combined []byte
	for _, src := range sources {
		data, ok := f.objects[src]
		if !ok {
			return nil, &transport.Error{StatusCode: 404, Message: "compose source missing: " + src}
		}
		combined = append(combined, data...)
	}
	f.objects[dst] = combined
	f.composes = append(f.composes, append([]string(nil), sources...))
	return f.attrsLocked(bucket, dst), nil
}

func (f *fakeService) DeleteObject(ctx context.Context, bucket, object string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[object]; !ok {
		return &transport.Error{StatusCode: 404, Message: "not found"}
	}
	delete(f.objects, object)
	return nil
}

func (f *fakeService) objectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// memFile is an in-memory io.WriterAt / io.ReaderAt destination.
type memFile struct {
	data []byte
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	copy(m.data[off:], p)
	return len(p), nil
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// writeOnly hides ReadAt so checksum validation has nothing to re-read.
type writeOnly struct {
	inner *memFile
}

func (w writeOnly) WriteAt(p []byte, off int64) (int, error) { return w.inner.WriteAt(p, off) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy() *retry.Policy {
	return retry.NewPolicy(retry.ShouldRetry, time.Millisecond, 2.0, 2*time.Millisecond, time.Second)
}

func testBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 31)
	}
	return data
}
