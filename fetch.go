package curator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html/charset"

	"github.com/docutag/curator/extract"
)

const (
	// DefaultFetchTimeout bounds one raw-document fetch.
	DefaultFetchTimeout = 10 * time.Second
	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes = 10 * 1024 * 1024
	// UserAgent is sent with every fetch.
	UserAgent = "curator/1.0"
)

var errHTTPStatus = errors.New("unexpected HTTP status")

// Document is a fetched source document decoded to UTF-8.
type Document struct {
	URL         string
	ContentType string
	Body        string
}

// HTTPFetcher downloads source documents.
type HTTPFetcher struct {
	httpClient *http.Client
}

// NewFetcher creates an HTTPFetcher. Zero timeout uses DefaultFetchTimeout.
func NewFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// Fetch GETs rawURL. The declared content type is checked before the body is
// read, so unsupported documents cost only the response headers.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html, text/markdown, text/plain;q=0.9, */*;q=0.1")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: errHTTPStatus}
	}

	contentType := resp.Header.Get("Content-Type")
	if _, err := extract.DetectFormat(contentType); err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: err}
	}

	body, err := charset.NewReader(io.LimitReader(resp.Body, MaxBodyBytes), contentType)
	if err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode body: %w", err)}
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}

	return &Document{URL: rawURL, ContentType: contentType, Body: string(data)}, nil
}
