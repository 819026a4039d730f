package disk

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"pkt.systems/shelfd/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	info, err := store.PutObject(ctx, "books/abc", bytes.NewReader([]byte(`{"title":"x"}`)), storage.PutObjectOptions{
		ContentType: storage.ContentTypeJSON,
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag == "" || info.Size != int64(len(`{"title":"x"}`)) {
		t.Fatalf("unexpected info: %+v", info)
	}

	res, err := store.GetObject(ctx, "books/abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Reader.Close()
	payload, err := io.ReadAll(res.Reader)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(payload) != `{"title":"x"}` {
		t.Fatalf("payload mismatch: %s", payload)
	}
	if res.Info.ETag != info.ETag || res.Info.ContentType != storage.ContentTypeJSON {
		t.Fatalf("metadata mismatch: %+v", res.Info)
	}
}

func TestIfNotExistsIsCreateOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.PutObject(ctx, "authors/name/k", bytes.NewReader([]byte("first")), storage.PutObjectOptions{IfNotExists: true}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := store.PutObject(ctx, "authors/name/k", bytes.NewReader([]byte("second")), storage.PutObjectOptions{IfNotExists: true})
	if !errors.Is(err, storage.ErrCASMismatch) {
		t.Fatalf("expected cas mismatch, got %v", err)
	}

	res, err := store.GetObject(ctx, "authors/name/k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Reader.Close()
	payload, _ := io.ReadAll(res.Reader)
	if string(payload) != "first" {
		t.Fatalf("create-only write was overwritten: %s", payload)
	}
}

func TestExpectedETagCAS(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	info, err := store.PutObject(ctx, "alpha", bytes.NewReader([]byte("one")), storage.PutObjectOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.PutObject(ctx, "alpha", bytes.NewReader([]byte("two")), storage.PutObjectOptions{ExpectedETag: "stale"}); !errors.Is(err, storage.ErrCASMismatch) {
		t.Fatalf("expected cas mismatch, got %v", err)
	}
	if _, err := store.PutObject(ctx, "alpha", bytes.NewReader([]byte("two")), storage.PutObjectOptions{ExpectedETag: info.ETag}); err != nil {
		t.Fatalf("cas replace: %v", err)
	}
	if _, err := store.PutObject(ctx, "missing", bytes.NewReader(nil), storage.PutObjectOptions{ExpectedETag: "x"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListObjectsOrderAndPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, key := range []string{"books/2", "authors/name/a b", "books/1"} {
		if _, err := store.PutObject(ctx, key, bytes.NewReader([]byte(key)), storage.PutObjectOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	res, err := store.ListObjects(ctx, storage.ListOptions{Prefix: "books/"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res.Objects) != 2 || res.Objects[0].Key != "books/1" || res.Objects[1].Key != "books/2" {
		t.Fatalf("unexpected listing: %+v", res.Objects)
	}

	// Keys with spaces and slashes survive the escaped file naming.
	res, err = store.ListObjects(ctx, storage.ListOptions{Prefix: "authors/"})
	if err != nil {
		t.Fatalf("list authors: %v", err)
	}
	if len(res.Objects) != 1 || res.Objects[0].Key != "authors/name/a b" {
		t.Fatalf("unexpected author listing: %+v", res.Objects)
	}
}

func TestDeleteObject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if _, err := store.PutObject(ctx, "alpha", bytes.NewReader([]byte("x")), storage.PutObjectOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.DeleteObject(ctx, "alpha", storage.DeleteObjectOptions{}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteObject(ctx, "alpha", storage.DeleteObjectOptions{}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.DeleteObject(ctx, "alpha", storage.DeleteObjectOptions{IgnoreNotFound: true}); err != nil {
		t.Fatalf("delete ignoring missing: %v", err)
	}
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	const racers = 16

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.PutObject(ctx, "raced", bytes.NewReader([]byte("v")), storage.PutObjectOptions{IfNotExists: true})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			} else if !errors.Is(err, storage.ErrCASMismatch) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Fatalf("expected one winner, got %d", winners)
	}
}
