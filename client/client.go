// Package client provides a small HTTP client for the shelfd catalog API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pkt.systems/shelfd/api"
)

// DefaultTimeout bounds each request issued by the client.
const DefaultTimeout = 30 * time.Second

// Client talks to a shelfd server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	ownsClient bool
}

// Option customises client construction.
type Option func(*Client)

// WithHTTPClient supplies a custom http.Client. The caller keeps ownership;
// Close will not shut it down.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
			c.ownsClient = false
		}
	}
}

// WithTimeout overrides the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 && c.ownsClient {
			c.httpClient.Timeout = d
		}
	}
}

// New constructs a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("client: base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		ownsClient: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases idle connections held by the client-owned transport.
func (c *Client) Close() error {
	if c != nil && c.ownsClient {
		c.httpClient.CloseIdleConnections()
	}
	return nil
}

// APIError carries a structured non-2xx response.
type APIError struct {
	Status   int
	Response api.ErrorResponse
	Body     string
}

func (e *APIError) Error() string {
	if e.Response.ErrorCode != "" {
		if e.Response.Detail != "" {
			return fmt.Sprintf("shelfd: %s (%d): %s", e.Response.ErrorCode, e.Status, e.Response.Detail)
		}
		return fmt.Sprintf("shelfd: %s (%d)", e.Response.ErrorCode, e.Status)
	}
	return fmt.Sprintf("shelfd: unexpected status %d: %s", e.Status, e.Body)
}

// CreateBook resolves or creates the named author and appends a book.
func (c *Client) CreateBook(ctx context.Context, title, authorName string) (api.Book, error) {
	var out api.Book
	err := c.do(ctx, http.MethodPost, "/books", api.CreateBookRequest{
		Title:      title,
		AuthorName: authorName,
	}, &out)
	return out, err
}

// Books lists books in insertion order. A non-empty authorName restricts the
// listing to that author.
func (c *Client) Books(ctx context.Context, authorName string) ([]api.Book, error) {
	path := "/books"
	if authorName != "" {
		path += "?author_name=" + url.QueryEscape(authorName)
	}
	var out api.BooksResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Books, nil
}

// Authors lists registered authors sorted by name.
func (c *Client) Authors(ctx context.Context) ([]api.Author, error) {
	var out api.AuthorsResponse
	if err := c.do(ctx, http.MethodGet, "/authors", nil, &out); err != nil {
		return nil, err
	}
	return out.Authors, nil
}

// Stats fetches the integrity audit counters.
func (c *Client) Stats(ctx context.Context) (api.StatsResponse, error) {
	var out api.StatsResponse
	err := c.do(ctx, http.MethodGet, "/stats", nil, &out)
	return out, err
}

// Healthz probes liveness.
func (c *Client) Healthz(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Readyz probes readiness.
func (c *Client) Readyz(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/readyz", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{Status: resp.StatusCode, Body: string(raw)}
		_ = json.Unmarshal(raw, &apiErr.Response)
		return apiErr
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}
