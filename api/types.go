// Package api defines the wire types shared by the shelfd HTTP server and
// its client.
package api

// CreateBookRequest is the body of POST /books.
type CreateBookRequest struct {
	// Title is the book title. Required, non-empty.
	Title string `json:"title"`
	// AuthorName names the author. Required; resolved or created before the
	// book is appended.
	AuthorName string `json:"author_name"`
}

// Book is the wire representation of a catalog book.
type Book struct {
	BookID        string `json:"book_id"`
	Title         string `json:"title"`
	AuthorID      string `json:"author_id"`
	AuthorName    string `json:"author_name,omitempty"`
	CreatedAtUnix int64  `json:"created_at_unix"`
}

// Author is the wire representation of a registry author.
type Author struct {
	AuthorID      string `json:"author_id"`
	Name          string `json:"name"`
	CreatedAtUnix int64  `json:"created_at_unix"`
}

// BooksResponse is the body of GET /books.
type BooksResponse struct {
	Books []Book `json:"books"`
}

// AuthorsResponse is the body of GET /authors.
type AuthorsResponse struct {
	Authors []Author `json:"authors"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	AuthorCount        int64            `json:"author_count"`
	BookCount          int64            `json:"book_count"`
	PerAuthorBookCount map[string]int64 `json:"per_author_book_count"`
	OrphanBookCount    int64            `json:"orphan_book_count"`
}

// HealthResponse is the body of GET /healthz and GET /readyz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is returned on any non-2xx status.
type ErrorResponse struct {
	ErrorCode string `json:"error"`
	Detail    string `json:"detail,omitempty"`
}
