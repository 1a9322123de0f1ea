package preffs

import "github.com/d70-t/preffs/internal/reftype"

// Errors re-exported from reftype.
var (
	// ErrNotFound is returned when a key or directory is absent. It is
	// fs.ErrNotExist.
	ErrNotFound = reftype.ErrNotFound

	// ErrNotDir is returned when a directory operation names a file.
	ErrNotDir = reftype.ErrNotDir

	// ErrManifestIntegrity is returned when a manifest violates its invariants.
	ErrManifestIntegrity = reftype.ErrManifestIntegrity

	// ErrUnsupportedBackend is returned when no backend serves a URI scheme.
	ErrUnsupportedBackend = reftype.ErrUnsupportedBackend

	// ErrBackendFetch is returned when a backend range read fails.
	ErrBackendFetch = reftype.ErrBackendFetch

	// ErrObjectNotFound is returned when a key's backend object is missing.
	// It never matches ErrNotFound.
	ErrObjectNotFound = reftype.ErrObjectNotFound

	// ErrNotImplemented is returned when wildcard or recursive expansion
	// reaches a remote fragment group.
	ErrNotImplemented = reftype.ErrNotImplemented

	// ErrSizeOverflow is returned when a size value overflows.
	ErrSizeOverflow = reftype.ErrSizeOverflow
)

// IntegrityError describes a manifest row that breaks a table invariant.
type IntegrityError = reftype.IntegrityError

// FetchError describes a failed range read of one remote fragment.
type FetchError = reftype.FetchError
