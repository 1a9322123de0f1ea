// Package memory serves fragments from in-process objects.
//
// It backs the mem:// scheme and is mainly used by tests and examples.
package memory

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/d70-t/preffs/backend"
)

// Scheme is the URI scheme served by this backend.
const Scheme = "mem"

// Backend holds named objects in memory.
// Objects are addressed as "mem://name" or by bare name.
type Backend struct {
	mu         sync.RWMutex
	objects    map[string][]byte
	concurrent bool
}

// Option configures a Backend.
type Option func(*Backend)

// WithObject stores data under name.
func WithObject(name string, data []byte) Option {
	return func(b *Backend) {
		b.objects[name] = data
	}
}

// WithConcurrentFetch sets the value reported by SupportsConcurrentFetch.
// The default is true.
func WithConcurrentFetch(enabled bool) Option {
	return func(b *Backend) {
		b.concurrent = enabled
	}
}

// New creates a memory backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		objects:    make(map[string][]byte),
		concurrent: true,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Put stores data under name, replacing any existing object.
func (b *Backend) Put(name string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[name] = data
}

// ReadRange implements backend.Backend.
func (b *Backend) ReadRange(ctx context.Context, uri string, start, end uint64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := backend.TrimScheme(uri)

	b.mu.RLock()
	data, ok := b.objects[name]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("read %s: %w", uri, fs.ErrNotExist)
	}
	if end < start {
		return nil, fmt.Errorf("read %s: invalid range [%d,%d)", uri, start, end)
	}
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("read %s: range [%d,%d) exceeds %d bytes: %w", uri, start, end, len(data), io.ErrUnexpectedEOF)
	}
	out := make([]byte, end-start)
	copy(out, data[start:end])
	return out, nil
}

// SupportsConcurrentFetch implements backend.ConcurrentFetcher.
func (b *Backend) SupportsConcurrentFetch() bool {
	return b.concurrent
}

var (
	_ backend.Backend           = (*Backend)(nil)
	_ backend.ConcurrentFetcher = (*Backend)(nil)
)
