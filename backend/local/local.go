// Package local serves fragments stored in files on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/d70-t/preffs/backend"
	"github.com/d70-t/preffs/internal/sizing"
)

// Scheme is the URI scheme served by this backend.
// Paths without a scheme are local paths as well.
const Scheme = "file"

// Backend reads byte ranges from local files.
type Backend struct {
	baseDir string
}

// Option configures a Backend.
type Option func(*Backend)

// WithBaseDir resolves relative paths against dir instead of the working
// directory.
func WithBaseDir(dir string) Option {
	return func(b *Backend) {
		b.baseDir = dir
	}
}

// New creates a local backend.
func New(opts ...Option) *Backend {
	b := &Backend{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Factory returns a backend.Factory producing a local backend.
func Factory(opts ...Option) backend.Factory {
	return func(context.Context, string) (backend.Backend, error) {
		return New(opts...), nil
	}
}

// Path returns the filesystem path addressed by uri.
func (b *Backend) Path(uri string) string {
	p := uri
	if strings.HasPrefix(strings.ToLower(uri), Scheme+"://") {
		p = uri[len(Scheme)+3:]
	}
	p = filepath.FromSlash(p)
	if b.baseDir != "" && !filepath.IsAbs(p) {
		p = filepath.Join(b.baseDir, p)
	}
	return p
}

// ReadRange implements backend.Backend.
func (b *Backend) ReadRange(ctx context.Context, uri string, start, end uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if end < start {
		return nil, fmt.Errorf("read %s: invalid range [%d,%d)", uri, start, end)
	}
	n, err := sizing.Int(end - start)
	if err != nil {
		return nil, err
	}
	off, err := sizing.Int64(start)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(b.Path(uri)) //nolint:gosec // manifest paths are intentionally user-provided
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.ReadAt(buf, off)
	if read == n {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("read %s: got %d of %d bytes: %w", uri, read, n, err)
}

// SupportsConcurrentFetch implements backend.ConcurrentFetcher.
func (b *Backend) SupportsConcurrentFetch() bool {
	return true
}

var (
	_ backend.Backend           = (*Backend)(nil)
	_ backend.ConcurrentFetcher = (*Backend)(nil)
)
