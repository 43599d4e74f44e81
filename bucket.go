package objstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vietddude/objstore/retry"
	"github.com/vietddude/objstore/transport"
)

// BucketAttrs are the bucket properties the client reads and writes.
type BucketAttrs struct {
	Name           string
	Location       string
	StorageClass   string
	Metageneration int64
	Etag           string
	Created        time.Time
}

// BucketConditions constrain bucket mutations to a known metageneration,
// which also makes them safely retryable.
type BucketConditions struct {
	MetagenerationMatch    int64
	MetagenerationNotMatch int64
}

func (c *BucketConditions) apply(q url.Values) {
	if c == nil {
		return
	}
	if c.MetagenerationMatch != 0 {
		q.Set("ifMetagenerationMatch", strconv.FormatInt(c.MetagenerationMatch, 10))
	}
	if c.MetagenerationNotMatch != 0 {
		q.Set("ifMetagenerationNotMatch", strconv.FormatInt(c.MetagenerationNotMatch, 10))
	}
}

// BucketHandle addresses one bucket. Handles are cheap values; methods
// issue RPCs.
type BucketHandle struct {
	c     *Client
	name  string
	conds *BucketConditions
}

// Name returns the bucket name.
func (b *BucketHandle) Name() string { return b.name }

// Object returns a handle for an object in this bucket. No RPC is issued.
func (b *BucketHandle) Object(name string) *ObjectHandle {
	return &ObjectHandle{c: b.c, bucket: b.name, name: name}
}

// If returns a handle whose mutations carry the given preconditions.
func (b *BucketHandle) If(conds BucketConditions) *BucketHandle {
	b2 := *b
	b2.conds = &conds
	return &b2
}

// Create creates the bucket. Bucket names are caller-chosen, so creation is
// idempotent: repeating it either succeeds once or reports a conflict.
func (b *BucketHandle) Create(ctx context.Context, attrs *BucketAttrs) (*BucketAttrs, error) {
	body := rawBucket{Name: b.name}
	if attrs != nil {
		body.Location = attrs.Location
		body.StorageClass = attrs.StorageClass
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode bucket: %w", err)
	}

	resp, err := b.c.call(ctx, retry.OpBucketInsert, &transport.Request{
		Method: http.MethodPost,
		Path:   "/b",
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}
	return parseBucket(resp.Body)
}

// Attrs fetches the bucket's current properties.
func (b *BucketHandle) Attrs(ctx context.Context) (*BucketAttrs, error) {
	resp, err := b.c.call(ctx, retry.OpBucketGet, &transport.Request{
		Method: http.MethodGet,
		Path:   "/b/" + url.PathEscape(b.name),
	})
	if err != nil {
		return nil, err
	}
	return parseBucket(resp.Body)
}

// Delete deletes the bucket, which must be empty.
func (b *BucketHandle) Delete(ctx context.Context) error {
	q := url.Values{}
	b.conds.apply(q)
	_, err := b.c.call(ctx, retry.OpBucketDelete, &transport.Request{
		Method: http.MethodDelete,
		Path:   "/b/" + url.PathEscape(b.name),
		Query:  q,
	})
	return err
}

// BucketAttrsToUpdate lists the mutable bucket fields. Nil pointers are
// left untouched.
type BucketAttrsToUpdate struct {
	StorageClass *string
}

// Update patches the bucket. Without a metageneration precondition the
// patch runs with no retry; see the idempotency classifier.
func (b *BucketHandle) Update(ctx context.Context, uattrs BucketAttrsToUpdate) (*BucketAttrs, error) {
	body := rawBucket{}
	if uattrs.StorageClass != nil {
		body.StorageClass = *uattrs.StorageClass
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode bucket update: %w", err)
	}

	q := url.Values{}
	b.conds.apply(q)
	resp, err := b.c.call(ctx, retry.OpBucketPatch, &transport.Request{
		Method: http.MethodPatch,
		Path:   "/b/" + url.PathEscape(b.name),
		Query:  q,
		Body:   payload,
	})
	if err != nil {
		return nil, err
	}
	return parseBucket(resp.Body)
}

// Objects lists the bucket's objects under prefix, following page tokens
// until exhausted.
func (b *BucketHandle) Objects(ctx context.Context, prefix string) ([]*ObjectAttrs, error) {
	var out []*ObjectAttrs
	pageToken := ""
	for {
		q := url.Values{}
		if prefix != "" {
			q.Set("prefix", prefix)
		}
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		resp, err := b.c.call(ctx, retry.OpObjectList, &transport.Request{
			Method: http.MethodGet,
			Path:   "/b/" + url.PathEscape(b.name) + "/o",
			Query:  q,
		})
		if err != nil {
			return nil, err
		}

		var page struct {
			Items         []rawObject `json:"items"`
			NextPageToken string      `json:"nextPageToken"`
		}
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return nil, fmt.Errorf("decode object list: %w", err)
		}
		for i := range page.Items {
			attrs, err := page.Items[i].toAttrs()
			if err != nil {
				return nil, err
			}
			out = append(out, attrs)
		}

		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

type rawBucket struct {
	Name           string `json:"name,omitempty"`
	Location       string `json:"location,omitempty"`
	StorageClass   string `json:"storageClass,omitempty"`
	Metageneration string `json:"metageneration,omitempty"`
	Etag           string `json:"etag,omitempty"`
	TimeCreated    string `json:"timeCreated,omitempty"`
}

func parseBucket(body []byte) (*BucketAttrs, error) {
	var raw rawBucket
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode bucket: %w", err)
	}
	attrs := &BucketAttrs{
		Name:         raw.Name,
		Location:     raw.Location,
		StorageClass: raw.StorageClass,
		Etag:         raw.Etag,
	}
	if raw.Metageneration != "" {
		mg, err := strconv.ParseInt(raw.Metageneration, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode metageneration: %w", err)
		}
		attrs.Metageneration = mg
	}
	if raw.TimeCreated != "" {
		t, err := time.Parse(time.RFC3339, raw.TimeCreated)
		if err == nil {
			attrs.Created = t
		}
	}
	return attrs, nil
}
