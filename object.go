package objstore

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/objstore/retry"
	"github.com/vietddude/objstore/transport"
)

// ObjectAttrs are the object properties the client reads and writes.
type ObjectAttrs struct {
	Bucket         string
	Name           string
	Size           int64
	ContentType    string
	Etag           string
	Generation     int64
	Metageneration int64
	CRC32C         uint32
	HasCRC32C      bool
	MD5            []byte
	Updated        time.Time
}

// Conditions constrain object operations to a known version of the object.
// A matching condition also makes an otherwise-unsafe retry safe: the
// server rejects a duplicate application instead of double-applying it.
type Conditions struct {
	GenerationMatch        int64
	GenerationNotMatch     int64
	MetagenerationMatch    int64
	MetagenerationNotMatch int64
}

func (c *Conditions) apply(q url.Values) {
	if c == nil {
		return
	}
	set := func(k string, v int64) {
		if v != 0 {
			q.Set(k, strconv.FormatInt(v, 10))
		}
	}
	set("ifGenerationMatch", c.GenerationMatch)
	set("ifGenerationNotMatch", c.GenerationNotMatch)
	set("ifMetagenerationMatch", c.MetagenerationMatch)
	set("ifMetagenerationNotMatch", c.MetagenerationNotMatch)
}

// ObjectHandle addresses one object, optionally pinned to a generation.
type ObjectHandle struct {
	c      *Client
	bucket string
	name   string
	gen    int64
	conds  *Conditions
}

// If returns a handle whose operations carry the given preconditions.
func (o *ObjectHandle) If(conds Conditions) *ObjectHandle {
	o2 := *o
	o2.conds = &conds
	return &o2
}

// Generation returns a handle pinned to a specific object generation.
func (o *ObjectHandle) Generation(gen int64) *ObjectHandle {
	o2 := *o
	o2.gen = gen
	return &o2
}

func (o *ObjectHandle) path() string {
	return "/b/" + url.PathEscape(o.bucket) + "/o/" + url.PathEscape(o.name)
}

func (o *ObjectHandle) query() url.Values {
	q := url.Values{}
	if o.gen != 0 {
		q.Set("generation", strconv.FormatInt(o.gen, 10))
	}
	o.conds.apply(q)
	return q
}

// Attrs fetches the object's current properties.
func (o *ObjectHandle) Attrs(ctx context.Context) (*ObjectAttrs, error) {
	resp, err := o.c.call(ctx, retry.OpObjectGet, &transport.Request{
		Method: http.MethodGet,
		Path:   o.path(),
		Query:  o.query(),
	})
	if err != nil {
		return nil, err
	}
	return parseObject(resp.Body)
}

// Delete deletes the object. Without a generation precondition the delete
// runs with no retry; a retried delete racing a rewrite could remove the
// wrong version.
func (o *ObjectHandle) Delete(ctx context.Context) error {
	_, err := o.c.call(ctx, retry.OpObjectDelete, &transport.Request{
		Method: http.MethodDelete,
		Path:   o.path(),
		Query:  o.query(),
	})
	return err
}

// ObjectAttrsToUpdate lists the mutable object fields. Nil pointers are
// left untouched. Etag, when set, is sent in the body and activates
// retry for the patch.
type ObjectAttrsToUpdate struct {
	ContentType *string
	Etag        string
}

// Update patches the object's metadata.
func (o *ObjectHandle) Update(ctx context.Context, uattrs ObjectAttrsToUpdate) (*ObjectAttrs, error) {
	body := rawObject{Etag: uattrs.Etag}
	if uattrs.ContentType != nil {
		body.ContentType = *uattrs.ContentType
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode object update: %w", err)
	}

	var header http.Header
	if uattrs.Etag != "" {
		header = http.Header{"If-Match": {uattrs.Etag}}
	}
	resp, err := o.c.call(ctx, retry.OpObjectPatch, &transport.Request{
		Method: http.MethodPatch,
		Path:   o.path(),
		Query:  o.query(),
		Header: header,
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}
	return parseObject(resp.Body)
}

// Upload writes data as this object in one request. With a generation
// precondition the insert is retried on transient failures; without one it
// gets a single attempt.
func (o *ObjectHandle) Upload(ctx context.Context, data []byte, contentType string) (*ObjectAttrs, error) {
	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", o.name)
	o.conds.apply(q)

	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	} else {
		header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := o.c.call(ctx, retry.OpObjectInsert, &transport.Request{
		Method: http.MethodPost,
		Path:   "/upload/b/" + url.PathEscape(o.bucket) + "/o",
		Query:  q,
		Header: header,
		Body:   data,
	})
	if err != nil {
		return nil, err
	}
	return parseObject(resp.Body)
}

// Read fetches the whole object. Reads are always idempotent.
func (o *ObjectHandle) Read(ctx context.Context) ([]byte, error) {
	return o.ReadRange(ctx, 0, -1)
}

// ReadRange fetches length bytes starting at offset; length < 0 means to
// the end of the object.
func (o *ObjectHandle) ReadRange(ctx context.Context, offset, length int64) ([]byte, error) {
	q := o.query()
	q.Set("alt", "media")

	req := &transport.Request{
		Method: http.MethodGet,
		Path:   o.path(),
		Query:  q,
	}
	if offset != 0 || length >= 0 {
		req.Range = &transport.ByteRange{Offset: offset, Length: length}
	}

	resp, err := o.c.call(ctx, retry.OpObjectRead, req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Compose commits the named source objects, in order, as this object.
// This is the finalize step of a chunked upload.
func (o *ObjectHandle) Compose(ctx context.Context, sources []string) (*ObjectAttrs, error) {
	type sourceObject struct {
		Name string `json:"name"`
	}
	body := struct {
		SourceObjects []sourceObject `json:"sourceObjects"`
		Destination   rawObject      `json:"destination"`
	}{Destination: rawObject{Name: o.name, Bucket: o.bucket}}
	for _, s := range sources {
		body.SourceObjects = append(body.SourceObjects, sourceObject{Name: s})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode compose: %w", err)
	}

	resp, err := o.c.call(ctx, retry.OpObjectCompose, &transport.Request{
		Method: http.MethodPost,
		Path:   o.path() + "/compose",
		Query:  o.query(),
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}
	return parseObject(resp.Body)
}

// Rewrite copies this object to dst server-side, following rewrite tokens
// until the service reports completion.
func (o *ObjectHandle) Rewrite(ctx context.Context, dst *ObjectHandle) (*ObjectAttrs, error) {
	path := o.path() + "/rewriteTo/b/" + url.PathEscape(dst.bucket) + "/o/" + url.PathEscape(dst.name)

	token := ""
	for {
		q := o.query()
		if token != "" {
			q.Set("rewriteToken", token)
		}

		resp, err := o.c.call(ctx, retry.OpObjectRewrite, &transport.Request{
			Method: http.MethodPost,
			Path:   path,
			Query:  q,
		})
		if err != nil {
			return nil, err
		}

		var page struct {
			Done         bool      `json:"done"`
			RewriteToken string    `json:"rewriteToken"`
			Resource     rawObject `json:"resource"`
		}
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return nil, fmt.Errorf("decode rewrite response: %w", err)
		}
		if page.Done {
			return page.Resource.toAttrs()
		}
		token = page.RewriteToken
	}
}

// UploadAutoNamed writes data as a new server-named object. There is no way
// to retry this safely: a repeat would create a second object. One attempt.
func (b *BucketHandle) UploadAutoNamed(ctx context.Context, data []byte, contentType string) (*ObjectAttrs, error) {
	q := url.Values{}
	q.Set("uploadType", "media")

	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}

	resp, err := b.c.call(ctx, retry.OpObjectInsertAutoName, &transport.Request{
		Method: http.MethodPost,
		Path:   "/upload/b/" + url.PathEscape(b.name) + "/o",
		Query:  q,
		Header: header,
		Body:   data,
	})
	if err != nil {
		return nil, err
	}
	return parseObject(resp.Body)
}

// StatObject fetches object attrs by bucket and name. Used by the transfer
// manager to size download plans and read expected checksums.
func (c *Client) StatObject(ctx context.Context, bucket, object string) (*ObjectAttrs, error) {
	return c.Bucket(bucket).Object(object).Attrs(ctx)
}

// ComposeObjects commits sources as dst; the transfer manager's finalize
// call. Passing generationMatch != 0 adds the precondition that makes the
// compose retryable; 0 omits it.
func (c *Client) ComposeObjects(ctx context.Context, bucket, dst string, sources []string, generationMatch int64) (*ObjectAttrs, error) {
	h := c.Bucket(bucket).Object(dst)
	if generationMatch != 0 {
		h = h.If(Conditions{GenerationMatch: generationMatch})
	}
	return h.Compose(ctx, sources)
}

// ReadRangeAttempt issues exactly one ranged-read attempt. The transfer
// manager runs each part inside its own executor and owns the retry loop,
// so this primitive must not retry on its own.
func (c *Client) ReadRangeAttempt(ctx context.Context, bucket, object string, gen int64, offset, length int64, invocationID string, attempt int) ([]byte, error) {
	q := url.Values{}
	q.Set("alt", "media")
	if gen != 0 {
		q.Set("generation", strconv.FormatInt(gen, 10))
	}

	resp, err := c.transport.RoundTrip(ctx, &transport.Request{
		Method:       http.MethodGet,
		Path:         "/b/" + url.PathEscape(bucket) + "/o/" + url.PathEscape(object),
		Query:        q,
		Range:        &transport.ByteRange{Offset: offset, Length: length},
		InvocationID: invocationID,
		Attempt:      attempt,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// UploadPartAttempt issues exactly one part-upload attempt, writing data as
// the named temporary part object. Like ReadRangeAttempt, retry belongs to
// the transfer manager's per-part executor.
func (c *Client) UploadPartAttempt(ctx context.Context, bucket, name string, data []byte, invocationID string, attempt int) (*ObjectAttrs, error) {
	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", name)

	resp, err := c.transport.RoundTrip(ctx, &transport.Request{
		Method:       http.MethodPost,
		Path:         "/upload/b/" + url.PathEscape(bucket) + "/o",
		Query:        q,
		Body:         data,
		InvocationID: invocationID,
		Attempt:      attempt,
	})
	if err != nil {
		return nil, err
	}
	return parseObject(resp.Body)
}

// DeleteObject deletes bucket/object. Flat variant of
// Bucket().Object().Delete used by the transfer manager's cleanup.
func (c *Client) DeleteObject(ctx context.Context, bucket, object string) error {
	return c.Bucket(bucket).Object(object).Delete(ctx)
}

// NewInvocationID mints the identifier correlating all attempts of one
// logical call.
func NewInvocationID() string { return uuid.NewString() }

type rawObject struct {
	Bucket         string `json:"bucket,omitempty"`
	Name           string `json:"name,omitempty"`
	Size           string `json:"size,omitempty"`
	ContentType    string `json:"contentType,omitempty"`
	Etag           string `json:"etag,omitempty"`
	Generation     string `json:"generation,omitempty"`
	Metageneration string `json:"metageneration,omitempty"`
	Crc32c         string `json:"crc32c,omitempty"`
	Md5Hash        string `json:"md5Hash,omitempty"`
	Updated        string `json:"updated,omitempty"`
}

func (r *rawObject) toAttrs() (*ObjectAttrs, error) {
	attrs := &ObjectAttrs{
		Bucket:      r.Bucket,
		Name:        r.Name,
		ContentType: r.ContentType,
		Etag:        r.Etag,
	}

	parse := func(field, s string, dst *int64) error {
		if s == "" {
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("decode %s: %w", field, err)
		}
		*dst = v
		return nil
	}
	if err := parse("size", r.Size, &attrs.Size); err != nil {
		return nil, err
	}
	if err := parse("generation", r.Generation, &attrs.Generation); err != nil {
		return nil, err
	}
	if err := parse("metageneration", r.Metageneration, &attrs.Metageneration); err != nil {
		return nil, err
	}

	if r.Crc32c != "" {
		// Big-endian uint32, base64-encoded, per the JSON API.
		raw, err := base64.StdEncoding.DecodeString(r.Crc32c)
		if err != nil || len(raw) != 4 {
			return nil, fmt.Errorf("decode crc32c %q", r.Crc32c)
		}
		attrs.CRC32C = binary.BigEndian.Uint32(raw)
		attrs.HasCRC32C = true
	}
	if r.Md5Hash != "" {
		raw, err := base64.StdEncoding.DecodeString(r.Md5Hash)
		if err != nil {
			return nil, fmt.Errorf("decode md5: %w", err)
		}
		attrs.MD5 = raw
	}
	if r.Updated != "" {
		if t, err := time.Parse(time.RFC3339, r.Updated); err == nil {
			attrs.Updated = t
		}
	}
	return attrs, nil
}

func parseObject(body []byte) (*ObjectAttrs, error) {
	var raw rawObject
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return raw.toAttrs()
}
