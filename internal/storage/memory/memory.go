// Package memory implements storage.Backend with mutex-guarded maps. It is
// the default backend for tests and local development (mem://).
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"pkt.systems/shelfd/internal/storage"
	"pkt.systems/shelfd/internal/uuidv7"
)

// Store implements storage.Backend in-memory.
type Store struct {
	mu   sync.RWMutex
	objs map[string]*objectEntry

	sortedKeys []string
	keysDirty  bool
}

type objectEntry struct {
	payload     []byte
	etag        string
	contentType string
	updated     time.Time
}

// New returns a ready to use in-memory store.
func New() *Store {
	return &Store{
		objs:      make(map[string]*objectEntry),
		keysDirty: true,
	}
}

// Close satisfies storage.Backend but requires no action for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// ListObjects returns in-memory objects sorted lexicographically.
func (s *Store) ListObjects(_ context.Context, opts storage.ListOptions) (*storage.ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keysDirty {
		s.sortedKeys = s.sortedKeys[:0]
		for key := range s.objs {
			s.sortedKeys = append(s.sortedKeys, key)
		}
		sort.Strings(s.sortedKeys)
		s.keysDirty = false
	}
	keys := s.sortedKeys
	startIdx := 0
	if opts.StartAfter != "" {
		startIdx = sort.Search(len(keys), func(i int) bool { return keys[i] > opts.StartAfter })
	}
	result := &storage.ListResult{}
	added := 0
	for idx := startIdx; idx < len(keys); idx++ {
		key := keys[idx]
		if opts.Prefix != "" && !strings.HasPrefix(key, opts.Prefix) {
			if added > 0 {
				break
			}
			continue
		}
		if opts.Limit > 0 && added >= opts.Limit {
			result.Truncated = true
			result.NextStartAfter = result.Objects[len(result.Objects)-1].Key
			return result, nil
		}
		entry := s.objs[key]
		result.Objects = append(result.Objects, storage.ObjectInfo{
			Key:          key,
			ETag:         entry.etag,
			Size:         int64(len(entry.payload)),
			LastModified: entry.updated,
			ContentType:  entry.contentType,
		})
		added++
	}
	return result, nil
}

// GetObject returns the payload for key if present.
func (s *Store) GetObject(_ context.Context, key string) (storage.GetObjectResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.objs[key]
	if !ok {
		return storage.GetObjectResult{}, storage.ErrNotFound
	}
	payload := append([]byte(nil), entry.payload...)
	info := &storage.ObjectInfo{
		Key:          key,
		ETag:         entry.etag,
		Size:         int64(len(payload)),
		LastModified: entry.updated,
		ContentType:  entry.contentType,
	}
	return storage.GetObjectResult{
		Reader: io.NopCloser(bytes.NewReader(payload)),
		Info:   info,
	}, nil
}

// PutObject stores or replaces the object for key depending on opts. The
// existence check and the write happen under one lock, so IfNotExists is
// atomic with respect to concurrent callers racing on the same key.
func (s *Store) PutObject(_ context.Context, key string, body io.Reader, opts storage.PutObjectOptions) (*storage.ObjectInfo, error) {
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, exists := s.objs[key]
	switch {
	case opts.ExpectedETag != "":
		if !exists {
			return nil, storage.ErrNotFound
		}
		if entry.etag != opts.ExpectedETag {
			return nil, storage.ErrCASMismatch
		}
	case opts.IfNotExists && exists:
		return nil, storage.ErrCASMismatch
	}
	etag := uuidv7.NewString()
	now := time.Now().UTC()
	s.objs[key] = &objectEntry{
		payload:     payload,
		etag:        etag,
		contentType: opts.ContentType,
		updated:     now,
	}
	if !exists && !s.keysDirty {
		s.insertKeyLocked(key)
	}
	return &storage.ObjectInfo{
		Key:          key,
		ETag:         etag,
		Size:         int64(len(payload)),
		LastModified: now,
		ContentType:  opts.ContentType,
	}, nil
}

// DeleteObject removes the object for key with optional CAS.
func (s *Store) DeleteObject(_ context.Context, key string, opts storage.DeleteObjectOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, exists := s.objs[key]
	if !exists {
		if opts.IgnoreNotFound {
			return nil
		}
		return storage.ErrNotFound
	}
	if opts.ExpectedETag != "" && entry.etag != opts.ExpectedETag {
		return storage.ErrCASMismatch
	}
	delete(s.objs, key)
	if !s.keysDirty {
		s.removeKeyLocked(key)
	}
	return nil
}

func (s *Store) insertKeyLocked(key string) {
	idx := sort.SearchStrings(s.sortedKeys, key)
	if idx < len(s.sortedKeys) && s.sortedKeys[idx] == key {
		return
	}
	s.sortedKeys = append(s.sortedKeys, "")
	copy(s.sortedKeys[idx+1:], s.sortedKeys[idx:])
	s.sortedKeys[idx] = key
}

func (s *Store) removeKeyLocked(key string) {
	idx := sort.SearchStrings(s.sortedKeys, key)
	if idx < len(s.sortedKeys) && s.sortedKeys[idx] == key {
		s.sortedKeys = append(s.sortedKeys[:idx], s.sortedKeys[idx+1:]...)
	}
}
