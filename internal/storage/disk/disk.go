// Package disk implements storage.Backend on a local directory (disk:///path).
//
// Each object lives in a single file whose name is the URL-escaped key. The
// file starts with a one-line JSON header (etag, content type, size) followed
// by the raw payload. Writes land in a temp file first and become visible via
// link (create-only) or rename (replace), so readers never observe a partial
// object.
package disk

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"pkt.systems/shelfd/internal/storage"
	"pkt.systems/shelfd/internal/uuidv7"
)

const tempDirName = ".tmp"

// Config configures the disk store.
type Config struct {
	// Root is the directory holding object files. Created when missing.
	Root string
}

// Store implements storage.Backend on the local filesystem.
type Store struct {
	root    string
	tempDir string

	// casMu serializes conditional writes; link/rename keeps plain writes
	// atomic, but ExpectedETag checks need read-then-replace in one step.
	casMu sync.Mutex
}

type fileHeader struct {
	ETag        string `json:"etag"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// New opens (and if needed creates) the disk store rooted at cfg.Root.
func New(cfg Config) (*Store, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, fmt.Errorf("disk: root directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("disk: create root: %w", err)
	}
	tempDir := filepath.Join(root, tempDirName)
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("disk: create temp dir: %w", err)
	}
	return &Store{root: root, tempDir: tempDir}, nil
}

// Close satisfies storage.Backend.
func (s *Store) Close() error {
	return nil
}

// ListObjects enumerates object files in ascending key order.
func (s *Store) ListObjects(ctx context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, storage.NewTransientError(fmt.Errorf("disk: read root: %w", err))
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, err := url.PathUnescape(entry.Name())
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := &storage.ListResult{}
	added := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.Prefix != "" && !strings.HasPrefix(key, opts.Prefix) {
			if added > 0 {
				break
			}
			continue
		}
		if opts.StartAfter != "" && key <= opts.StartAfter {
			continue
		}
		if opts.Limit > 0 && added >= opts.Limit {
			result.Truncated = true
			result.NextStartAfter = result.Objects[len(result.Objects)-1].Key
			return result, nil
		}
		info, err := s.statObject(key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		result.Objects = append(result.Objects, *info)
		added++
	}
	return result, nil
}

// GetObject opens the object file for key and returns a payload reader.
func (s *Store) GetObject(_ context.Context, key string) (storage.GetObjectResult, error) {
	f, err := os.Open(s.objectPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storage.GetObjectResult{}, storage.ErrNotFound
		}
		return storage.GetObjectResult{}, storage.NewTransientError(fmt.Errorf("disk: open %q: %w", key, err))
	}
	header, reader, err := readHeader(f)
	if err != nil {
		_ = f.Close()
		return storage.GetObjectResult{}, fmt.Errorf("disk: read header %q: %w", key, err)
	}
	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return storage.GetObjectResult{}, storage.NewTransientError(fmt.Errorf("disk: stat %q: %w", key, err))
	}
	info := &storage.ObjectInfo{
		Key:          key,
		ETag:         header.ETag,
		Size:         header.Size,
		LastModified: stat.ModTime().UTC(),
		ContentType:  header.ContentType,
	}
	return storage.GetObjectResult{
		Reader: &objectReader{Reader: reader, closer: f},
		Info:   info,
	}, nil
}

// PutObject writes key via a temp file plus link (create-only) or rename.
func (s *Store) PutObject(_ context.Context, key string, body io.Reader, opts storage.PutObjectOptions) (*storage.ObjectInfo, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("disk: read body: %w", err)
	}
	header := fileHeader{
		ETag:        uuidv7.NewString(),
		ContentType: opts.ContentType,
		Size:        int64(len(payload)),
	}
	tempPath, err := s.writeTemp(header, payload)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tempPath)

	finalPath := s.objectPath(key)
	switch {
	case opts.ExpectedETag != "":
		s.casMu.Lock()
		defer s.casMu.Unlock()
		current, err := s.statObject(key)
		if err != nil {
			return nil, err
		}
		if current.ETag != opts.ExpectedETag {
			return nil, storage.ErrCASMismatch
		}
		if err := os.Rename(tempPath, finalPath); err != nil {
			return nil, storage.NewTransientError(fmt.Errorf("disk: rename %q: %w", key, err))
		}
	case opts.IfNotExists:
		// Hard link fails with EEXIST when the key is already present, which
		// makes create-only atomic without any lock.
		if err := os.Link(tempPath, finalPath); err != nil {
			if errors.Is(err, os.ErrExist) {
				return nil, storage.ErrCASMismatch
			}
			return nil, storage.NewTransientError(fmt.Errorf("disk: link %q: %w", key, err))
		}
	default:
		if err := os.Rename(tempPath, finalPath); err != nil {
			return nil, storage.NewTransientError(fmt.Errorf("disk: rename %q: %w", key, err))
		}
	}
	return &storage.ObjectInfo{
		Key:          key,
		ETag:         header.ETag,
		Size:         header.Size,
		LastModified: time.Now().UTC(),
		ContentType:  header.ContentType,
	}, nil
}

// DeleteObject removes the object file for key with optional CAS.
func (s *Store) DeleteObject(_ context.Context, key string, opts storage.DeleteObjectOptions) error {
	s.casMu.Lock()
	defer s.casMu.Unlock()
	if opts.ExpectedETag != "" {
		current, err := s.statObject(key)
		if err != nil {
			return err
		}
		if current.ETag != opts.ExpectedETag {
			return storage.ErrCASMismatch
		}
	}
	err := os.Remove(s.objectPath(key))
	if errors.Is(err, os.ErrNotExist) {
		if opts.IgnoreNotFound || opts.ExpectedETag != "" {
			return nil
		}
		return storage.ErrNotFound
	}
	if err != nil {
		return storage.NewTransientError(fmt.Errorf("disk: remove %q: %w", key, err))
	}
	return nil
}

func (s *Store) objectPath(key string) string {
	return filepath.Join(s.root, url.PathEscape(key))
}

func (s *Store) statObject(key string) (*storage.ObjectInfo, error) {
	f, err := os.Open(s.objectPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.ErrNotFound
		}
		return nil, storage.NewTransientError(fmt.Errorf("disk: open %q: %w", key, err))
	}
	defer f.Close()
	header, _, err := readHeader(f)
	if err != nil {
		return nil, fmt.Errorf("disk: read header %q: %w", key, err)
	}
	stat, err := f.Stat()
	if err != nil {
		return nil, storage.NewTransientError(fmt.Errorf("disk: stat %q: %w", key, err))
	}
	return &storage.ObjectInfo{
		Key:          key,
		ETag:         header.ETag,
		Size:         header.Size,
		LastModified: stat.ModTime().UTC(),
		ContentType:  header.ContentType,
	}, nil
}

func (s *Store) writeTemp(header fileHeader, payload []byte) (string, error) {
	f, err := os.CreateTemp(s.tempDir, "obj-*")
	if err != nil {
		return "", storage.NewTransientError(fmt.Errorf("disk: create temp: %w", err))
	}
	tempPath := f.Name()
	headerLine, err := json.Marshal(header)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("disk: marshal header: %w", err)
	}
	if _, err := f.Write(append(headerLine, '\n')); err == nil {
		_, err = f.Write(payload)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tempPath)
		return "", storage.NewTransientError(fmt.Errorf("disk: write temp: %w", err))
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tempPath)
		return "", storage.NewTransientError(fmt.Errorf("disk: sync temp: %w", err))
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tempPath)
		return "", storage.NewTransientError(fmt.Errorf("disk: close temp: %w", err))
	}
	return tempPath, nil
}

func readHeader(f *os.File) (fileHeader, io.Reader, error) {
	reader := bufio.NewReader(f)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return fileHeader{}, nil, err
	}
	var header fileHeader
	if err := json.Unmarshal(bytes.TrimRight(line, "\n"), &header); err != nil {
		return fileHeader{}, nil, err
	}
	return header, reader, nil
}

type objectReader struct {
	io.Reader
	closer io.Closer
}

func (r *objectReader) Close() error {
	return r.closer.Close()
}
