package domain

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/johnqh/di-web/internal/services/worker/storage"
)

// Request is one intercepted outgoing request.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// NewRequest builds a Request from a raw URL.
func NewRequest(method, rawURL string, header http.Header, body []byte) (Request, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Request{}, fmt.Errorf("parse request url: %w", err)
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	return Request{Method: method, URL: parsed, Header: header, Body: body}, nil
}

// Key returns the cache key for the request.
func (r Request) Key() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// AcceptsHTML reports whether the request negotiates an HTML document.
func (r Request) AcceptsHTML() bool {
	if r.Header == nil {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// Mutating reports whether the request changes upstream state.
func (r Request) Mutating() bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Fetcher performs one network fetch on behalf of the worker.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (storage.Response, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req Request) (storage.Response, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, req Request) (storage.Response, error) {
	return f(ctx, req)
}

// MessageSkipWaiting is the control signal asking a waiting worker version
// to activate immediately.
const MessageSkipWaiting = "SKIP_WAITING"

// Message is one control message delivered to the worker.
type Message struct {
	Type string
}
