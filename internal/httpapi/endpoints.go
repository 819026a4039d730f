package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"pkt.systems/shelfd/api"
	"pkt.systems/shelfd/internal/catalog"
)

func (h *Handler) handleBooks(w http.ResponseWriter, r *http.Request) error {
	switch r.Method {
	case http.MethodPost:
		return h.handleBookCreate(w, r)
	case http.MethodGet:
		return h.handleBookList(w, r)
	default:
		return httpError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: "use GET or POST"}
	}
}

func (h *Handler) handleBookCreate(w http.ResponseWriter, r *http.Request) error {
	var req api.CreateBookRequest
	if err := h.decodeRequest(r, &req); err != nil {
		return err
	}
	view, err := h.catalog.CreateBook(r.Context(), req.Title, req.AuthorName)
	if err != nil {
		return convertCatalogError(err)
	}
	h.writeJSON(w, http.StatusCreated, bookToAPI(view))
	return nil
}

func (h *Handler) handleBookList(w http.ResponseWriter, r *http.Request) error {
	authorName := strings.TrimSpace(r.URL.Query().Get("author_name"))
	views, err := h.catalog.ListBooks(r.Context(), authorName)
	if err != nil {
		return convertCatalogError(err)
	}
	resp := api.BooksResponse{Books: make([]api.Book, 0, len(views))}
	for _, view := range views {
		resp.Books = append(resp.Books, bookToAPI(view))
	}
	h.writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *Handler) handleAuthors(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return httpError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: "use GET"}
	}
	authors, err := h.catalog.ListAuthors(r.Context())
	if err != nil {
		return convertCatalogError(err)
	}
	resp := api.AuthorsResponse{Authors: make([]api.Author, 0, len(authors))}
	for _, author := range authors {
		resp.Authors = append(resp.Authors, api.Author{
			AuthorID:      author.ID,
			Name:          author.Name,
			CreatedAtUnix: author.CreatedAtUnix,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return httpError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: "use GET"}
	}
	stats, err := h.catalog.Audit(r.Context())
	if err != nil {
		return convertCatalogError(err)
	}
	h.writeJSON(w, http.StatusOK, api.StatsResponse{
		AuthorCount:        stats.AuthorCount,
		BookCount:          stats.BookCount,
		PerAuthorBookCount: stats.PerAuthorBookCount,
		OrphanBookCount:    stats.OrphanBookCount,
	})
	return nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) error {
	h.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
	return nil
}

func (h *Handler) handleReady(w http.ResponseWriter, _ *http.Request) error {
	if h.ready != nil && !h.ready() {
		return httpError{Status: http.StatusServiceUnavailable, Code: "not_ready", Detail: "server is not ready"}
	}
	h.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ready"})
	return nil
}

func (h *Handler) decodeRequest(r *http.Request, dst any) error {
	body := http.MaxBytesReader(nil, r.Body, h.jsonMaxBytes)
	defer body.Close()
	if err := decodeJSONBody(body, dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return httpError{Status: http.StatusRequestEntityTooLarge, Code: "payload_too_large", Detail: "request body exceeds limit"}
		}
		if errors.Is(err, io.EOF) {
			return httpError{Status: http.StatusBadRequest, Code: "invalid_json", Detail: "request body required"}
		}
		return httpError{Status: http.StatusBadRequest, Code: "invalid_json", Detail: err.Error()}
	}
	return nil
}

func bookToAPI(view catalog.BookView) api.Book {
	return api.Book{
		BookID:        view.ID,
		Title:         view.Title,
		AuthorID:      view.AuthorID,
		AuthorName:    view.AuthorName,
		CreatedAtUnix: view.CreatedAtUnix,
	}
}

// convertCatalogError maps transport-neutral catalog failures onto HTTP
// status codes and wire error codes.
func convertCatalogError(err error) error {
	if err == nil {
		return nil
	}
	var failure catalog.Failure
	if !errors.As(err, &failure) {
		return err
	}
	status := failure.HTTPStatus
	if status == 0 {
		switch failure.Code {
		case catalog.CodeNotFound:
			status = http.StatusNotFound
		case catalog.CodeConflict:
			status = http.StatusConflict
		case catalog.CodeStorageError:
			status = http.StatusServiceUnavailable
		case catalog.CodeInvalidArgument:
			status = http.StatusBadRequest
		default:
			status = http.StatusInternalServerError
		}
	}
	return httpError{Status: status, Code: failure.Code, Detail: failure.Detail}
}
