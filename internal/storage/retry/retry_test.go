package retry

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/shelfd/internal/clock"
	"pkt.systems/shelfd/internal/storage"
)

type flakyBackend struct {
	failures  int
	calls     int
	lastBody  []byte
	permanent error
}

func (f *flakyBackend) ListObjects(context.Context, storage.ListOptions) (*storage.ListResult, error) {
	f.calls++
	if f.permanent != nil {
		return nil, f.permanent
	}
	if f.calls <= f.failures {
		return nil, storage.NewTransientError(errors.New("list flake"))
	}
	return &storage.ListResult{}, nil
}

func (f *flakyBackend) GetObject(context.Context, string) (storage.GetObjectResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return storage.GetObjectResult{}, storage.NewTransientError(errors.New("get flake"))
	}
	return storage.GetObjectResult{
		Reader: io.NopCloser(bytes.NewReader(nil)),
		Info:   &storage.ObjectInfo{},
	}, nil
}

func (f *flakyBackend) PutObject(_ context.Context, _ string, body io.Reader, _ storage.PutObjectOptions) (*storage.ObjectInfo, error) {
	f.calls++
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.lastBody = payload
	if f.calls <= f.failures {
		return nil, storage.NewTransientError(errors.New("put flake"))
	}
	return &storage.ObjectInfo{Size: int64(len(payload))}, nil
}

func (f *flakyBackend) DeleteObject(context.Context, string, storage.DeleteObjectOptions) error {
	f.calls++
	if f.calls <= f.failures {
		return storage.NewTransientError(errors.New("delete flake"))
	}
	return nil
}

func (f *flakyBackend) Close() error { return nil }

func TestRetriesTransientErrors(t *testing.T) {
	inner := &flakyBackend{failures: 2}
	clk := clock.NewManual(time.Now())
	backend := Wrap(inner, pslog.NoopLogger(), clk, Config{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond})

	if _, err := backend.ListObjects(context.Background(), storage.ListOptions{}); err != nil {
		t.Fatalf("expected retries to succeed, got %v", err)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
	if slept := clk.Slept(); len(slept) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %v", slept)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	inner := &flakyBackend{failures: 10}
	clk := clock.NewManual(time.Now())
	backend := Wrap(inner, pslog.NoopLogger(), clk, Config{
		MaxAttempts: 4,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    15 * time.Millisecond,
		Multiplier:  2.0,
	})

	_, err := backend.ListObjects(context.Background(), storage.ListOptions{})
	if !storage.IsTransient(err) {
		t.Fatalf("expected final transient error, got %v", err)
	}
	slept := clk.Slept()
	if len(slept) != 3 {
		t.Fatalf("expected 3 sleeps, got %v", slept)
	}
	if slept[0] != 10*time.Millisecond || slept[1] != 15*time.Millisecond || slept[2] != 15*time.Millisecond {
		t.Fatalf("expected capped exponential backoff, got %v", slept)
	}
}

func TestNonTransientErrorsAreNotRetried(t *testing.T) {
	inner := &flakyBackend{permanent: errors.New("hard failure")}
	backend := Wrap(inner, pslog.NoopLogger(), clock.NewManual(time.Now()), Config{MaxAttempts: 5})

	_, err := backend.ListObjects(context.Background(), storage.ListOptions{})
	if err == nil || storage.IsTransient(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("expected single attempt, got %d", inner.calls)
	}
}

func TestPutObjectRewindsBodyBetweenAttempts(t *testing.T) {
	inner := &flakyBackend{failures: 1}
	backend := Wrap(inner, pslog.NoopLogger(), clock.NewManual(time.Now()), Config{MaxAttempts: 3, BaseDelay: time.Millisecond})

	info, err := backend.PutObject(context.Background(), "k", bytes.NewReader([]byte("payload")), storage.PutObjectOptions{})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("payload")) {
		t.Fatalf("expected full payload on retry, got %d bytes", info.Size)
	}
	if string(inner.lastBody) != "payload" {
		t.Fatalf("body was not rewound before retry: %q", inner.lastBody)
	}
}
