package catalog

import "context"

// CreateBook performs the coordinated write path: the author named by
// authorName is resolved or created first, and only once that record is
// durably visible is the book appended. Authors are never rolled back when
// the append fails; a later retry reuses the same author record.
func (s *Service) CreateBook(ctx context.Context, title, authorName string) (BookView, error) {
	if CanonicalAuthorName(authorName) == "" {
		return BookView{}, invalidArgument("author name must not be empty")
	}
	if title == "" {
		return BookView{}, invalidArgument("book title must not be empty")
	}

	author, err := s.ResolveOrCreateAuthor(ctx, authorName)
	if err != nil && FailureCode(err) == CodeConflict {
		// The winning writer's record lags visibility by one round trip at
		// most; a single re-resolve absorbs it.
		author, err = s.ResolveOrCreateAuthor(ctx, authorName)
	}
	if err != nil {
		return BookView{}, err
	}

	book, err := s.AppendBook(ctx, title, author.ID)
	if err != nil {
		return BookView{}, err
	}
	return BookView{Book: book, AuthorName: author.Name}, nil
}
