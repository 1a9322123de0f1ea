package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/d70-t/preffs/internal/reftype"
)

// Registry lazily creates and memoizes one Backend per URI scheme.
//
// Concurrent first requests for the same scheme share a single
// construction. Failed constructions are not cached, so a later Get retries.
// A Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	handles   map[string]Backend
	group     singleflight.Group // zero value is valid
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFactory registers the factory used for scheme.
// A later registration for the same scheme replaces the earlier one.
func WithFactory(scheme string, f Factory) RegistryOption {
	return func(r *Registry) {
		scheme = normalizeScheme(scheme)
		r.factories[scheme] = f
		delete(r.handles, scheme)
	}
}

// WithBackend registers a ready-made backend for scheme.
func WithBackend(scheme string, b Backend) RegistryOption {
	return func(r *Registry) {
		scheme = normalizeScheme(scheme)
		r.factories[scheme] = Static(b)
		r.handles[scheme] = b
	}
}

// WithLogger sets the logger for registry events.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry with the given options applied.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		handles:   make(map[string]Backend),
	}
	r.Apply(opts...)
	return r
}

// Apply applies additional options to the registry.
// Registering a factory drops any handle already built for that scheme.
func (r *Registry) Apply(opts ...RegistryOption) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, opt := range opts {
		opt(r)
	}
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Registry) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Schemes returns the schemes with a registered factory.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for scheme := range r.factories {
		out = append(out, scheme)
	}
	return out
}

// Get returns the backend for scheme, constructing it on first use.
//
// Get fails with an error matching reftype.ErrUnsupportedBackend if no
// factory is registered for scheme or the factory fails. The factory shares
// one construction among concurrent callers, so it sees ctx's values but
// not its cancellation.
func (r *Registry) Get(ctx context.Context, scheme string) (Backend, error) {
	scheme = normalizeScheme(scheme)

	r.mu.RLock()
	b, ok := r.handles[scheme]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	v, err, _ := r.group.Do(scheme, func() (any, error) {
		r.mu.RLock()
		b, ok := r.handles[scheme]
		factory, known := r.factories[scheme]
		r.mu.RUnlock()
		if ok {
			return b, nil
		}
		if !known {
			return nil, fmt.Errorf("%w: scheme %q", reftype.ErrUnsupportedBackend, scheme)
		}

		b, err := factory(context.WithoutCancel(ctx), scheme)
		if err != nil {
			return nil, fmt.Errorf("%w: scheme %q: %w", reftype.ErrUnsupportedBackend, scheme, err)
		}
		if b == nil {
			return nil, fmt.Errorf("%w: scheme %q: factory returned no backend", reftype.ErrUnsupportedBackend, scheme)
		}

		r.mu.Lock()
		r.handles[scheme] = b
		r.mu.Unlock()
		r.log().Debug("backend created", "scheme", scheme, "concurrent", Concurrent(b))
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Backend), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

func normalizeScheme(scheme string) string {
	return strings.ToLower(scheme)
}
