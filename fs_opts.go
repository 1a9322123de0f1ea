package preffs

import (
	"log/slog"

	"github.com/d70-t/preffs/backend"
	"github.com/d70-t/preffs/manifest"
)

// Option configures an FS.
type Option func(*FS)

// WithLogger sets the logger for filesystem events.
// Without it, nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(f *FS) {
		f.logger = logger
	}
}

// WithListingCacheSize sets how many directory listings are memoized.
// Values <= 0 use the default of 512.
func WithListingCacheSize(n int) Option {
	return func(f *FS) {
		f.listingCacheSize = n
	}
}

// WithMaxConcurrentFetches bounds the number of backend requests in flight
// across all reads of the filesystem. Values <= 0 leave fan-out unbounded,
// which is the default.
func WithMaxConcurrentFetches(n int) Option {
	return func(f *FS) {
		f.maxConcurrentFetches = n
	}
}

// WithBackend serves scheme with b.
func WithBackend(scheme string, b backend.Backend) Option {
	return func(f *FS) {
		f.registryOpts = append(f.registryOpts, backend.WithBackend(scheme, b))
	}
}

// WithBackendFactory constructs the backend for scheme on first use.
func WithBackendFactory(scheme string, factory backend.Factory) Option {
	return func(f *FS) {
		f.registryOpts = append(f.registryOpts, backend.WithFactory(scheme, factory))
	}
}

// WithRegistry uses r instead of a private registry.
//
// The default file and http(s) factories are not added to r. Backends
// registered with WithBackend or WithBackendFactory are added to r.
func WithRegistry(r *backend.Registry) Option {
	return func(f *FS) {
		f.registry = r
	}
}

// WithBaseDir resolves relative local fragment paths against dir.
// Open sets it to the manifest's directory.
func WithBaseDir(dir string) Option {
	return func(f *FS) {
		f.baseDir = dir
	}
}

// WithDecodeOptions passes options to the manifest decoder used by Open.
func WithDecodeOptions(opts ...manifest.DecodeOption) Option {
	return func(f *FS) {
		f.decodeOpts = append(f.decodeOpts, opts...)
	}
}

// WithRegistryOptions applies opts to the filesystem's registry.
// Later options override the default file and http(s) factories.
func WithRegistryOptions(opts ...backend.RegistryOption) Option {
	return func(f *FS) {
		f.registryOpts = append(f.registryOpts, opts...)
	}
}
