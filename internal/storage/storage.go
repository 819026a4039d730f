package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Content type constants used for payload blobs across backends.
const (
	ContentTypeJSON        = "application/json"
	ContentTypeOctetStream = "application/octet-stream"
)

// Sentinel errors shared by all backends.
var (
	ErrNotFound       = errors.New("storage: not found")
	ErrCASMismatch    = errors.New("storage: cas mismatch")
	ErrNotImplemented = errors.New("storage: not implemented")
)

// ObjectInfo captures metadata exposed by backends for a stored object.
type ObjectInfo struct {
	Key          string
	ETag         string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// PutObjectOptions controls conditional semantics and metadata for PutObject.
type PutObjectOptions struct {
	// ExpectedETag enables CAS semantics. When empty, no CAS is enforced.
	ExpectedETag string
	// IfNotExists enforces creation-only semantics when true. Ignored when
	// ExpectedETag is provided.
	IfNotExists bool
	ContentType string
}

// DeleteObjectOptions controls conditional semantics for DeleteObject.
type DeleteObjectOptions struct {
	ExpectedETag   string
	IgnoreNotFound bool
}

// ListOptions guides ListObjects traversal.
type ListOptions struct {
	Prefix     string
	StartAfter string
	Limit      int
}

// ListResult captures the outcome of a ListObjects call.
type ListResult struct {
	Objects        []ObjectInfo
	NextStartAfter string
	Truncated      bool
}

// GetObjectResult captures an object reader with its metadata.
type GetObjectResult struct {
	Reader io.ReadCloser
	Info   *ObjectInfo
}

// Backend defines the storage contract expected by the catalog service.
type Backend interface {
	// ListObjects enumerates objects under the supplied prefix in ascending
	// lexical order. Results are limited by opts.Limit when >0 and resume
	// from opts.StartAfter when provided.
	ListObjects(ctx context.Context, opts ListOptions) (*ListResult, error)
	// GetObject fetches the raw bytes for key and returns a reader alongside
	// metadata. Callers must close the returned reader.
	GetObject(ctx context.Context, key string) (GetObjectResult, error)
	// PutObject writes a blob to the provided key, applying conditional
	// semantics when opts.ExpectedETag or opts.IfNotExists are set. An object
	// is either fully visible or absent; readers never observe partial writes.
	PutObject(ctx context.Context, key string, body io.Reader, opts PutObjectOptions) (*ObjectInfo, error)
	// DeleteObject removes the object identified by key, optionally enforcing
	// a matching ETag when opts.ExpectedETag is set.
	DeleteObject(ctx context.Context, key string, opts DeleteObjectOptions) error

	// Close releases backend resources.
	Close() error
}

type transientError struct {
	err error
}

func (t transientError) Error() string { return t.err.Error() }
func (t transientError) Unwrap() error { return t.err }

// NewTransientError marks err as retryable.
func NewTransientError(err error) error {
	if err == nil {
		return nil
	}
	return transientError{err: err}
}

// IsTransient reports whether err was marked as retryable.
func IsTransient(err error) bool {
	var te transientError
	return errors.As(err, &te)
}

// VisitObjects walks every object under prefix in lexical order, paging
// through the backend with pageSize, and invokes visit for each entry.
func VisitObjects(ctx context.Context, backend Backend, prefix string, pageSize int, visit func(ObjectInfo) error) error {
	if backend == nil || visit == nil {
		return ErrNotImplemented
	}
	if pageSize <= 0 {
		pageSize = 256
	}
	startAfter := ""
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := backend.ListObjects(ctx, ListOptions{
			Prefix:     prefix,
			StartAfter: startAfter,
			Limit:      pageSize,
		})
		if err != nil {
			return err
		}
		for _, obj := range res.Objects {
			if err := visit(obj); err != nil {
				return err
			}
		}
		if !res.Truncated || res.NextStartAfter == "" {
			return nil
		}
		startAfter = res.NextStartAfter
	}
}
