// Package http serves fragments over HTTP range requests.
package http //nolint:revive // intentional naming for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	nethttp "net/http"
	"time"

	"github.com/d70-t/preffs/backend"
	"github.com/d70-t/preffs/internal/sizing"
)

// Schemes served by this backend.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// ErrRangeNotSupported is returned when a server answers a range request
// with the whole object.
var ErrRangeNotSupported = errors.New("preffs: range requests not supported")

// Backend reads byte ranges with one GET request per fragment.
type Backend struct {
	client  *nethttp.Client
	headers nethttp.Header
}

// Option configures a Backend.
type Option func(*Backend)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(b *Backend) {
		b.client = client
	}
}

// WithTimeout sets a per-request timeout on a dedicated client.
func WithTimeout(d time.Duration) Option {
	return func(b *Backend) {
		if d <= 0 {
			return
		}
		b.client = &nethttp.Client{Timeout: d}
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(b *Backend) {
		if headers == nil {
			return
		}
		b.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(b *Backend) {
		if b.headers == nil {
			b.headers = make(nethttp.Header)
		}
		b.headers.Set(key, value)
	}
}

// New creates an HTTP backend.
func New(opts ...Option) *Backend {
	b := &Backend{client: nethttp.DefaultClient}
	for _, opt := range opts {
		opt(b)
	}
	if b.client == nil {
		b.client = nethttp.DefaultClient
	}
	return b
}

// Factory returns a backend.Factory producing an HTTP backend.
// The same factory serves both http and https.
func Factory(opts ...Option) backend.Factory {
	return func(context.Context, string) (backend.Backend, error) {
		return New(opts...), nil
	}
}

// ReadRange implements backend.Backend.
//
// The server must answer with 206 Partial Content. A 200 response means the
// server ignored the range and fails with ErrRangeNotSupported; 404 maps to
// fs.ErrNotExist.
func (b *Backend) ReadRange(ctx context.Context, uri string, start, end uint64) ([]byte, error) {
	if end < start {
		return nil, fmt.Errorf("read %s: invalid range [%d,%d)", uri, start, end)
	}
	n, err := sizing.Int(end - start)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}

	req, err := b.newRequest(ctx, uri)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end-1))

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		// ok
	case nethttp.StatusOK:
		return nil, ErrRangeNotSupported
	case nethttp.StatusNotFound:
		return nil, fmt.Errorf("get %s: %w", uri, fs.ErrNotExist)
	case nethttp.StatusRequestedRangeNotSatisfiable:
		return nil, fmt.Errorf("get %s: range [%d,%d) not satisfiable: %w", uri, start, end, io.ErrUnexpectedEOF)
	default:
		return nil, fmt.Errorf("range request failed: %s", resp.Status)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("get %s: %w", uri, err)
	}
	return buf, nil
}

// SupportsConcurrentFetch implements backend.ConcurrentFetcher.
func (b *Backend) SupportsConcurrentFetch() bool {
	return true
}

// newRequest creates a GET request with the configured headers.
func (b *Backend) newRequest(ctx context.Context, uri string) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, uri, nethttp.NoBody)
	if err != nil {
		return nil, err
	}
	for key, values := range b.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	return req, nil
}

var (
	_ backend.Backend           = (*Backend)(nil)
	_ backend.ConcurrentFetcher = (*Backend)(nil)
)
