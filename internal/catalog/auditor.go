package catalog

import (
	"context"
	"errors"

	"pkt.systems/shelfd/internal/storage"
)

// Audit recomputes the integrity counters by scanning both prefixes. Books
// are listed before authors: a book is only ever written after its author is
// durably visible, so the later author scan can only over-approximate the
// set referenced by the book snapshot and orphan counts stay exact under
// concurrent writes. A book whose author is absent counts toward
// OrphanBookCount only, never toward PerAuthorBookCount.
func (s *Service) Audit(ctx context.Context) (Stats, error) {
	stats := Stats{PerAuthorBookCount: make(map[string]int64)}
	booksByAuthor := make(map[string]int64)

	err := storage.VisitObjects(ctx, s.store, bookPrefix, s.listPageSize, func(obj storage.ObjectInfo) error {
		var book Book
		if err := s.getRecord(ctx, obj.Key, &book); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return err
		}
		stats.BookCount++
		booksByAuthor[book.AuthorID]++
		return nil
	})
	if err != nil {
		return Stats{}, storageFailure("audit books", err)
	}

	authors, err := s.authorsByID(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.AuthorCount = int64(len(authors))
	for authorID, count := range booksByAuthor {
		if _, ok := authors[authorID]; ok {
			stats.PerAuthorBookCount[authorID] = count
		} else {
			stats.OrphanBookCount += count
		}
	}
	s.logger.Debug("audit complete",
		"authors", stats.AuthorCount,
		"books", stats.BookCount,
		"orphans", stats.OrphanBookCount)
	return stats, nil
}
