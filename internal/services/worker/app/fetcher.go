package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/johnqh/di-web/internal/platform/timeouts"
	"github.com/johnqh/di-web/internal/services/worker/domain"
	"github.com/johnqh/di-web/internal/services/worker/storage"
)

// upstreamFetcher performs worker network fetches against the application
// upstream. Relative request URLs resolve against the base origin.
type upstreamFetcher struct {
	base   *url.URL
	client *http.Client
}

func newUpstreamFetcher(base *url.URL) *upstreamFetcher {
	return &upstreamFetcher{
		base: base,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeouts.UpstreamFetch,
		},
	}
}

func (f *upstreamFetcher) Fetch(ctx context.Context, req domain.Request) (storage.Response, error) {
	if req.URL == nil {
		return storage.Response{}, fmt.Errorf("request url is required")
	}
	target := req.URL
	if !target.IsAbs() && f.base != nil {
		target = f.base.ResolveReference(target)
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return storage.Response{}, fmt.Errorf("build upstream request: %w", err)
	}
	for name, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}

	res, err := f.client.Do(httpReq)
	if err != nil {
		return storage.Response{}, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return storage.Response{}, fmt.Errorf("read %s: %w", target, err)
	}
	return storage.Response{
		StatusCode: res.StatusCode,
		Header:     res.Header.Clone(),
		Body:       payload,
	}, nil
}

var _ domain.Fetcher = (*upstreamFetcher)(nil)
