package preffs

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/d70-t/preffs/backend"
	preffshttp "github.com/d70-t/preffs/backend/http"
	"github.com/d70-t/preffs/backend/local"
	"github.com/d70-t/preffs/internal/fetch"
	"github.com/d70-t/preffs/internal/index"
	"github.com/d70-t/preffs/internal/namespace"
	"github.com/d70-t/preffs/manifest"
)

// FS is a read-only filesystem over a reference manifest.
//
// The manifest is loaded once and never changes, so an FS is safe for
// concurrent use without locking. Backend handles are created lazily, one
// per URI scheme.
type FS struct {
	idx      *index.Index
	view     *namespace.View
	registry *backend.Registry
	fetcher  *fetch.Fetcher

	listingCacheSize     int
	maxConcurrentFetches int
	registryOpts         []backend.RegistryOption
	baseDir              string
	decodeOpts           []manifest.DecodeOption
	logger               *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (f *FS) log() *slog.Logger {
	if f.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.logger
}

// New creates an FS over records.
//
// records must be sorted by key with the rows of each key in concatenation
// order; see manifest.SortStable. New fails with an error matching
// ErrManifestIntegrity if the table breaks an invariant.
func New(records []manifest.Record, opts ...Option) (*FS, error) {
	f := &FS{}
	for _, opt := range opts {
		opt(f)
	}
	return f.init(records)
}

// Open reads the manifest at path and creates an FS over it.
//
// The manifest may be FlatBuffers, CBOR or YAML, optionally zstd or lz4
// compressed. Relative local fragment paths resolve against the manifest's
// directory unless WithBaseDir says otherwise.
func Open(ctx context.Context, path string, opts ...Option) (*FS, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := &FS{baseDir: filepath.Dir(path)}
	for _, opt := range opts {
		opt(f)
	}

	records, err := manifest.ReadFile(path, f.decodeOpts...)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	f.log().Debug("manifest loaded", "path", path, "rows", len(records))
	return f.init(records)
}

func (f *FS) init(records []manifest.Record) (*FS, error) {
	idx, err := index.Load(records)
	if err != nil {
		return nil, err
	}
	f.idx = idx

	if f.registry == nil {
		httpFactory := preffshttp.Factory()
		f.registry = backend.NewRegistry(
			backend.WithLogger(f.logger),
			backend.WithFactory(local.Scheme, local.Factory(local.WithBaseDir(f.baseDir))),
			backend.WithFactory(preffshttp.SchemeHTTP, httpFactory),
			backend.WithFactory(preffshttp.SchemeHTTPS, httpFactory),
		)
	}
	f.registry.Apply(f.registryOpts...)

	f.view = namespace.New(idx,
		namespace.WithCacheSize(f.listingCacheSize),
		namespace.WithLogger(f.logger),
	)
	f.fetcher = fetch.New(f.registry,
		fetch.WithMaxConcurrency(f.maxConcurrentFetches),
		fetch.WithLogger(f.logger),
	)
	return f, nil
}

// Registry returns the backend registry used by the filesystem.
func (f *FS) Registry() *backend.Registry {
	return f.registry
}

// Len returns the number of manifest rows.
func (f *FS) Len() int {
	return f.idx.Len()
}
