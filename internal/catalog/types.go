package catalog

// Storage key prefixes. Author records are keyed by canonical name so the
// backend's create-only put doubles as the uniqueness constraint; book keys
// embed a time-ordered xid so lexical listing preserves insertion order.
const (
	authorNamePrefix = "authors/name/"
	bookPrefix       = "books/"
)

// Author is the durable author record. Created on first reference by name,
// never mutated, never deleted.
type Author struct {
	// ID is the opaque author identifier.
	ID string `json:"id"`
	// Name is the canonicalized author name, unique across the registry.
	Name string `json:"name"`
	// CreatedAtUnix is the creation time as a Unix timestamp in seconds.
	CreatedAtUnix int64 `json:"created_at_unix"`
}

// Book is the durable book record. Immutable once visible.
type Book struct {
	// ID is the opaque book identifier.
	ID string `json:"id"`
	// Title is the book title. Titles are not a natural key; duplicates are fine.
	Title string `json:"title"`
	// AuthorID references the author that was durably visible before this
	// book was appended.
	AuthorID string `json:"author_id"`
	// CreatedAtUnix is the creation time as a Unix timestamp in seconds.
	CreatedAtUnix int64 `json:"created_at_unix"`
}

// BookView is a book with its author resolved, as returned to callers.
type BookView struct {
	Book
	// AuthorName is the canonical name of the referenced author.
	AuthorName string `json:"author_name"`
}

// Stats aggregates the integrity counters computed by Audit.
type Stats struct {
	// AuthorCount is the number of authors in the registry snapshot.
	AuthorCount int64 `json:"author_count"`
	// BookCount is the number of books in the ledger snapshot.
	BookCount int64 `json:"book_count"`
	// PerAuthorBookCount maps author id to the number of books bound to it.
	PerAuthorBookCount map[string]int64 `json:"per_author_book_count"`
	// OrphanBookCount counts books whose author id is missing from the
	// registry snapshot. Always zero when the write ordering holds.
	OrphanBookCount int64 `json:"orphan_book_count"`
}
