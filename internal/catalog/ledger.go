package catalog

import (
	"context"
	"errors"

	"github.com/rs/xid"
	"pkt.systems/shelfd/internal/storage"
)

func bookKey(id string) string {
	return bookPrefix + id
}

// AppendBook appends a book record referencing authorID. The caller must have
// made the author durably visible first; AppendBook does not re-verify it.
// Book ids are time-ordered, so lexical listing preserves insertion order.
func (s *Service) AppendBook(ctx context.Context, title, authorID string) (Book, error) {
	if title == "" {
		return Book{}, invalidArgument("book title must not be empty")
	}
	if len(title) > MaxNameLength {
		return Book{}, invalidArgument("book title exceeds maximum length")
	}
	if authorID == "" {
		return Book{}, invalidArgument("author id must not be empty")
	}
	book := Book{
		ID:            xid.New().String(),
		Title:         title,
		AuthorID:      authorID,
		CreatedAtUnix: s.clock.Now().Unix(),
	}
	_, err := s.putRecord(ctx, bookKey(book.ID), book, storage.PutObjectOptions{IfNotExists: true})
	if err != nil {
		return Book{}, storageFailure("append book", err)
	}
	s.logger.Debug("book appended", "book_id", book.ID, "author_id", authorID)
	return book, nil
}

// ListBooks returns every book in insertion order with author names resolved.
// When authorName is non-empty, only books by that author are returned; an
// unknown author name yields a not found failure.
func (s *Service) ListBooks(ctx context.Context, authorName string) ([]BookView, error) {
	filterID := ""
	if authorName != "" {
		canonical := CanonicalAuthorName(authorName)
		author, err := s.loadAuthor(ctx, authorNameKey(canonical))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, notFoundFailure("author not found: " + canonical)
			}
			return nil, storageFailure("resolve author filter", err)
		}
		filterID = author.ID
	}

	authors, err := s.authorsByID(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]BookView, 0, 16)
	err = storage.VisitObjects(ctx, s.store, bookPrefix, s.listPageSize, func(obj storage.ObjectInfo) error {
		var book Book
		if err := s.getRecord(ctx, obj.Key, &book); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return err
		}
		if filterID != "" && book.AuthorID != filterID {
			return nil
		}
		view := BookView{Book: book}
		if author, ok := authors[book.AuthorID]; ok {
			view.AuthorName = author.Name
		}
		views = append(views, view)
		return nil
	})
	if err != nil {
		return nil, storageFailure("list books", err)
	}
	return views, nil
}
