package objstore

import (
	"context"
	"testing"

	"github.com/vietddude/objstore/transport"
)

func TestParseBucket(t *testing.T) {
	body := []byte(`{
		"name": "my-bucket",
		"location": "EU",
		"storageClass": "STANDARD",
		"metageneration": "5",
		"etag": "CAU=",
		"timeCreated": "2025-06-01T00:00:00Z"
	}`)

	attrs, err := parseBucket(body)
	if err != nil {
		t.Fatalf("parseBucket = %v", err)
	}
	if attrs.Name != "my-bucket" || attrs.Location != "EU" || attrs.StorageClass != "STANDARD" {
		t.Errorf("attrs = %+v", attrs)
	}
	if attrs.Metageneration != 5 {
		t.Errorf("Metageneration = %d, want 5", attrs.Metageneration)
	}
	if attrs.Created.IsZero() {
		t.Error("Created not parsed")
	}

	if _, err := parseBucket([]byte(`{"metageneration": "x"}`)); err == nil {
		t.Error("parseBucket with bad metageneration = nil, want error")
	}
}

func TestBucketCreateRetries(t *testing.T) {
	f := &fakeTransport{handler: func(call int, req *transport.Request) (*transport.Response, error) {
		if call == 1 {
			return nil, &transport.Error{StatusCode: 503}
		}
		return jsonResp(`{"name":"my-bucket","location":"EU"}`)
	}}
	c := newTestClient(f)

	attrs, err := c.Bucket("my-bucket").Create(context.Background(), &BucketAttrs{Location: "EU"})
	if err != nil {
		t.Fatalf("Create = %v", err)
	}
	if attrs.Name != "my-bucket" {
		t.Errorf("Name = %q", attrs.Name)
	}
	// Bucket names are caller-chosen, so creation always retries.
	if f.callCount() != 2 {
		t.Errorf("attempts = %d, want 2", f.callCount())
	}
}

func TestBucketUpdateNeedsMetageneration(t *testing.T) {
	f := &fakeTransport{handler: func(call int, req *transport.Request) (*transport.Response, error) {
		return nil, &transport.Error{StatusCode: 503}
	}}
	c := newTestClient(f)

	sc := "NEARLINE"
	if _, err := c.Bucket("b").Update(context.Background(), BucketAttrsToUpdate{StorageClass: &sc}); err == nil {
		t.Fatal("Update = nil, want error")
	}
	if f.callCount() != 1 {
		t.Errorf("attempts = %d, want 1 without a metageneration precondition", f.callCount())
	}

	f.calls = nil
	f.handler = func(call int, req *transport.Request) (*transport.Response, error) {
		if call == 1 {
			return nil, &transport.Error{StatusCode: 503}
		}
		return jsonResp(`{"name":"b","storageClass":"NEARLINE"}`)
	}
	h := c.Bucket("b").If(BucketConditions{MetagenerationMatch: 5})
	if _, err := h.Update(context.Background(), BucketAttrsToUpdate{StorageClass: &sc}); err != nil {
		t.Fatalf("Update with precondition = %v", err)
	}
	if f.callCount() != 2 {
		t.Errorf("attempts = %d, want 2 with the precondition", f.callCount())
	}
}

func TestObjectsPagination(t *testing.T) {
	f := &fakeTransport{handler: func(call int, req *transport.Request) (*transport.Response, error) {
		if call == 1 {
			return jsonResp(`{"items":[{"name":"a","size":"1"},{"name":"b","size":"2"}],"nextPageToken":"page-2"}`)
		}
		return jsonResp(`{"items":[{"name":"c","size":"3"}]}`)
	}}
	c := newTestClient(f)

	objects, err := c.Bucket("bkt").Objects(context.Background(), "logs/")
	if err != nil {
		t.Fatalf("Objects = %v", err)
	}
	if len(objects) != 3 {
		t.Fatalf("objects = %d, want 3", len(objects))
	}
	for i, want := range []string{"a", "b", "c"} {
		if objects[i].Name != want {
			t.Errorf("objects[%d].Name = %q, want %q", i, objects[i].Name, want)
		}
	}

	if got := f.calls[0].Query.Get("prefix"); got != "logs/" {
		t.Errorf("prefix = %q, want logs/", got)
	}
	if got := f.calls[0].Query.Get("pageToken"); got != "" {
		t.Errorf("first call pageToken = %q, want empty", got)
	}
	if got := f.calls[1].Query.Get("pageToken"); got != "page-2" {
		t.Errorf("second call pageToken = %q, want page-2", got)
	}
}
