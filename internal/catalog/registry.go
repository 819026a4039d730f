package catalog

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"

	"pkt.systems/shelfd/internal/storage"
	"pkt.systems/shelfd/internal/uuidv7"
)

// MaxNameLength bounds author names and book titles after canonicalization.
const MaxNameLength = 512

// CanonicalAuthorName normalizes name for registry lookups: surrounding
// whitespace is trimmed and internal whitespace runs collapse to a single
// space. Comparison stays case-sensitive.
func CanonicalAuthorName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func authorNameKey(canonical string) string {
	return authorNamePrefix + url.PathEscape(canonical)
}

// ResolveOrCreateAuthor returns the author registered under name, creating
// the record when it does not exist yet. Concurrent callers with the same
// name all receive the same author id; exactly one record is ever created.
func (s *Service) ResolveOrCreateAuthor(ctx context.Context, name string) (Author, error) {
	canonical := CanonicalAuthorName(name)
	if canonical == "" {
		return Author{}, invalidArgument("author name must not be empty")
	}
	if len(canonical) > MaxNameLength {
		return Author{}, invalidArgument("author name exceeds maximum length")
	}
	key := authorNameKey(canonical)

	// Fast path: the common case after first registration.
	author, err := s.loadAuthor(ctx, key)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return Author{}, storageFailure("resolve author", err)
	}

	mu := s.creationMutex(canonical)
	mu.Lock()
	defer mu.Unlock()

	// Another local goroutine may have created the record while this one
	// waited on the mutex.
	author, err = s.loadAuthor(ctx, key)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return Author{}, storageFailure("resolve author", err)
	}

	candidate := Author{
		ID:            uuidv7.NewString(),
		Name:          canonical,
		CreatedAtUnix: s.clock.Now().Unix(),
	}
	_, err = s.putRecord(ctx, key, candidate, storage.PutObjectOptions{IfNotExists: true})
	if err == nil {
		s.logger.Debug("author created", "author_id", candidate.ID, "name", canonical)
		return candidate, nil
	}
	if !errors.Is(err, storage.ErrCASMismatch) {
		return Author{}, storageFailure("create author", err)
	}

	// Lost the cross-process race; the winner's record is authoritative.
	author, err = s.loadAuthor(ctx, key)
	if err == nil {
		return author, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return Author{}, conflictFailure("author registration raced and record is not yet visible", err)
	}
	return Author{}, storageFailure("resolve author", err)
}

func (s *Service) loadAuthor(ctx context.Context, key string) (Author, error) {
	var author Author
	if err := s.getRecord(ctx, key, &author); err != nil {
		return Author{}, err
	}
	return author, nil
}

// ListAuthors returns every registered author ordered by canonical name.
func (s *Service) ListAuthors(ctx context.Context) ([]Author, error) {
	authors := make([]Author, 0, 16)
	err := storage.VisitObjects(ctx, s.store, authorNamePrefix, s.listPageSize, func(obj storage.ObjectInfo) error {
		author, err := s.loadAuthor(ctx, obj.Key)
		if err != nil {
			// A record listed but missing on read means a concurrent delete
			// by an operator tool; skip rather than fail the whole listing.
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return err
		}
		authors = append(authors, author)
		return nil
	})
	if err != nil {
		return nil, storageFailure("list authors", err)
	}
	// Escaped key order is not byte order of the names themselves.
	sort.Slice(authors, func(i, j int) bool { return authors[i].Name < authors[j].Name })
	return authors, nil
}

// authorsByID loads the full registry keyed by author id.
func (s *Service) authorsByID(ctx context.Context) (map[string]Author, error) {
	authors, err := s.ListAuthors(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Author, len(authors))
	for _, author := range authors {
		byID[author.ID] = author
	}
	return byID, nil
}
