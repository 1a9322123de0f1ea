// Package testutil provides shared helpers for preffs tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"

	"github.com/d70-t/preffs/backend"
)

// Call records one ReadRange invocation.
type Call struct {
	URI   string
	Start uint64
	End   uint64
}

// MockBackend is a controllable in-memory backend.
//
// It records calls, tracks peak concurrency, and can inject per-URI errors
// and per-call delays to reorder completions.
type MockBackend struct {
	concurrent bool

	mu      sync.Mutex
	objects map[string][]byte
	errs    map[string]error
	delay   func(Call) time.Duration
	calls   []Call

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// NewMockBackend returns a backend serving objects keyed by full URI.
func NewMockBackend(concurrent bool, objects map[string][]byte) *MockBackend {
	m := &MockBackend{
		concurrent: concurrent,
		objects:    make(map[string][]byte, len(objects)),
		errs:       make(map[string]error),
	}
	for uri, data := range objects {
		m.objects[uri] = data
	}
	return m
}

// SetError makes every read of uri fail with err.
func (m *MockBackend) SetError(uri string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[uri] = err
}

// SetDelay installs a function choosing how long each call sleeps.
func (m *MockBackend) SetDelay(fn func(Call) time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = fn
}

// Calls returns the recorded calls in arrival order.
func (m *MockBackend) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// MaxInFlight returns the peak number of concurrent calls observed.
func (m *MockBackend) MaxInFlight() int {
	return int(m.maxInFlight.Load())
}

// ReadRange implements backend.Backend.
func (m *MockBackend) ReadRange(ctx context.Context, uri string, start, end uint64) ([]byte, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.maxInFlight.Load()
		if n <= peak || m.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	call := Call{URI: uri, Start: start, End: end}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	data, ok := m.objects[uri]
	err := m.errs[uri]
	delay := m.delay
	m.mu.Unlock()

	if delay != nil {
		select {
		case <-time.After(delay(call)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("mock %s: %w", uri, fs.ErrNotExist)
	}
	if end > uint64(len(data)) || start > end {
		return nil, fmt.Errorf("mock %s [%d,%d): %w", uri, start, end, io.ErrUnexpectedEOF)
	}
	return append([]byte(nil), data[start:end]...), nil
}

// SupportsConcurrentFetch implements backend.ConcurrentFetcher.
func (m *MockBackend) SupportsConcurrentFetch() bool {
	return m.concurrent
}

var (
	_ backend.Backend           = (*MockBackend)(nil)
	_ backend.ConcurrentFetcher = (*MockBackend)(nil)
)
