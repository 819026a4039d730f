package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"pkt.systems/shelfd/api"
	"pkt.systems/shelfd/internal/catalog"
	"pkt.systems/shelfd/internal/storage/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	svc, err := catalog.New(catalog.Config{Store: memory.New()})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	h, err := New(Config{Catalog: svc})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func postJSON(t *testing.T, mux http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, mux http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestMetricsRecordWrittenStatus(t *testing.T) {
	svc, err := catalog.New(catalog.Config{Store: memory.New()})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	metrics := NewMetrics(prometheus.NewRegistry())
	h, err := New(Config{Catalog: svc, Metrics: metrics})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)

	if rec := postJSON(t, mux, "/books", `{"title":"Moby-Dick","author_name":"Herman Melville"}`); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec := get(t, mux, "/books"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := postJSON(t, mux, "/books", `{"title":"","author_name":"Herman Melville"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	for _, tc := range []struct {
		status string
		want   float64
	}{
		{"201", 1},
		{"200", 1},
		{"400", 1},
	} {
		if got := testutil.ToFloat64(metrics.requests.WithLabelValues("books", tc.status)); got != tc.want {
			t.Fatalf("status %s counted %v times, expected %v", tc.status, got, tc.want)
		}
	}
}

func TestCreateBookEndpoint(t *testing.T) {
	mux := newTestHandler(t)

	rec := postJSON(t, mux, "/books", `{"title":"Moby-Dick","author_name":"Herman Melville"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	book := decodeBody[api.Book](t, rec)
	if book.BookID == "" || book.AuthorID == "" {
		t.Fatalf("missing ids in response: %+v", book)
	}
	if book.AuthorName != "Herman Melville" {
		t.Fatalf("expected author name in response, got %q", book.AuthorName)
	}

	rec = postJSON(t, mux, "/books", `{"title":"Billy Budd","author_name":"Herman Melville"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if second := decodeBody[api.Book](t, rec); second.AuthorID != book.AuthorID {
		t.Fatalf("same author name must map to the same author id")
	}
}

func TestCreateBookRejectsBadRequests(t *testing.T) {
	mux := newTestHandler(t)

	cases := []struct {
		name string
		body string
		code string
	}{
		{"empty body", ``, "invalid_json"},
		{"trailing garbage", `{"title":"T","author_name":"A"}{}`, "invalid_json"},
		{"unknown field", `{"title":"T","author_name":"A","extra":1}`, "invalid_json"},
		{"missing title", `{"author_name":"A"}`, "invalid_argument"},
		{"blank author", `{"title":"T","author_name":"  "}`, "invalid_argument"},
	}
	for _, tc := range cases {
		rec := postJSON(t, mux, "/books", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", tc.name, rec.Code, rec.Body.String())
		}
		errResp := decodeBody[api.ErrorResponse](t, rec)
		if errResp.ErrorCode != tc.code {
			t.Fatalf("%s: expected code %q, got %q", tc.name, tc.code, errResp.ErrorCode)
		}
	}
}

func TestListBooksEndpoint(t *testing.T) {
	mux := newTestHandler(t)

	for _, body := range []string{
		`{"title":"Moby-Dick","author_name":"Herman Melville"}`,
		`{"title":"Mrs Dalloway","author_name":"Virginia Woolf"}`,
	} {
		if rec := postJSON(t, mux, "/books", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := get(t, mux, "/books")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	books := decodeBody[api.BooksResponse](t, rec)
	if len(books.Books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(books.Books))
	}
	if books.Books[0].Title != "Moby-Dick" {
		t.Fatalf("insertion order not preserved: %+v", books.Books)
	}

	rec = get(t, mux, "/books?author_name=Virginia+Woolf")
	filtered := decodeBody[api.BooksResponse](t, rec)
	if len(filtered.Books) != 1 || filtered.Books[0].Title != "Mrs Dalloway" {
		t.Fatalf("unexpected filtered result: %+v", filtered.Books)
	}

	rec = get(t, mux, "/books?author_name=Nobody")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown author, got %d", rec.Code)
	}
	if errResp := decodeBody[api.ErrorResponse](t, rec); errResp.ErrorCode != "not_found" {
		t.Fatalf("expected not_found, got %q", errResp.ErrorCode)
	}
}

func TestListAuthorsEndpoint(t *testing.T) {
	mux := newTestHandler(t)

	for _, body := range []string{
		`{"title":"B1","author_name":"Zadie Smith"}`,
		`{"title":"B2","author_name":"Ann Patchett"}`,
	} {
		if rec := postJSON(t, mux, "/books", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed: %d", rec.Code)
		}
	}

	rec := get(t, mux, "/authors")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	authors := decodeBody[api.AuthorsResponse](t, rec)
	if len(authors.Authors) != 2 {
		t.Fatalf("expected 2 authors, got %d", len(authors.Authors))
	}
	if authors.Authors[0].Name != "Ann Patchett" || authors.Authors[1].Name != "Zadie Smith" {
		t.Fatalf("authors not sorted by name: %+v", authors.Authors)
	}
}

func TestStatsEndpoint(t *testing.T) {
	mux := newTestHandler(t)

	for i := 0; i < 3; i++ {
		if rec := postJSON(t, mux, "/books", `{"title":"T","author_name":"Jane Doe"}`); rec.Code != http.StatusCreated {
			t.Fatalf("seed: %d", rec.Code)
		}
	}

	rec := get(t, mux, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	stats := decodeBody[api.StatsResponse](t, rec)
	if stats.AuthorCount != 1 || stats.BookCount != 3 || stats.OrphanBookCount != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	var sum int64
	for _, n := range stats.PerAuthorBookCount {
		sum += n
	}
	if sum != stats.BookCount {
		t.Fatalf("per-author counts sum to %d, book count is %d", sum, stats.BookCount)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/books", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	rec = postJSON(t, mux, "/authors", `{}`)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for POST /authors, got %d", rec.Code)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	svc, err := catalog.New(catalog.Config{Store: memory.New()})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	ready := false
	h, err := New(Config{Catalog: svc, Ready: func() bool { return ready }})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)

	if rec := get(t, mux, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", rec.Code)
	}
	if rec := get(t, mux, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before ready: expected 503, got %d", rec.Code)
	}
	ready = true
	if rec := get(t, mux, "/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("readyz after ready: expected 200, got %d", rec.Code)
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	svc, err := catalog.New(catalog.Config{Store: memory.New()})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	h, err := New(Config{Catalog: svc, JSONMaxBytes: 64})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	mux := http.NewServeMux()
	h.Register(mux)

	big := bytes.Repeat([]byte("x"), 256)
	body := `{"title":"` + string(big) + `","author_name":"A"}`
	rec := postJSON(t, mux, "/books", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}
