// Package backend defines the storage contract behind remote fragments and
// the registry that hands out one backend per URI scheme.
//
// A Backend serves byte ranges of objects addressed by URI. Implementations
// live in the subpackages (local, http, s3, minio, oci, memory); the registry
// constructs them lazily through a Factory the first time a scheme is needed.
package backend

import (
	"context"
	"strings"
)

// Backend serves byte-range reads for one URI scheme.
//
// ReadRange returns exactly end-start bytes of the object at uri, or an
// error. Implementations must be safe for concurrent use.
type Backend interface {
	ReadRange(ctx context.Context, uri string, start, end uint64) ([]byte, error)
}

// ConcurrentFetcher is an optional capability of a Backend.
//
// Backends that can serve several range reads of one logical file in
// parallel report true. Backends that do not implement the interface are
// fetched sequentially.
type ConcurrentFetcher interface {
	SupportsConcurrentFetch() bool
}

// Concurrent reports whether b declares concurrent fetch support.
func Concurrent(b Backend) bool {
	cf, ok := b.(ConcurrentFetcher)
	return ok && cf.SupportsConcurrentFetch()
}

// Factory constructs the backend serving scheme.
type Factory func(ctx context.Context, scheme string) (Backend, error)

// Static returns a Factory that always yields b.
func Static(b Backend) Factory {
	return func(context.Context, string) (Backend, error) {
		return b, nil
	}
}

// TrimScheme returns uri without its "scheme://" prefix.
// URIs without a scheme are returned unchanged.
func TrimScheme(uri string) string {
	if _, rest, ok := strings.Cut(uri, "://"); ok {
		return rest
	}
	return uri
}
