// Package reftype holds the error taxonomy shared by the preffs packages.
package reftype

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a key is absent from the manifest.
	// It is fs.ErrNotExist so callers can use either name with errors.Is.
	ErrNotFound = fs.ErrNotExist

	// ErrNotDir is returned when a directory operation names a file.
	ErrNotDir = errors.New("preffs: not a directory")

	// ErrManifestIntegrity is returned when the manifest violates its invariants.
	ErrManifestIntegrity = errors.New("preffs: manifest integrity violation")

	// ErrUnsupportedBackend is returned when no backend can serve a URI scheme.
	ErrUnsupportedBackend = errors.New("preffs: unsupported backend")

	// ErrBackendFetch is returned when a backend range read fails.
	ErrBackendFetch = errors.New("preffs: backend fetch failed")

	// ErrObjectNotFound is returned when a manifest key exists but the
	// backend object its fragment points at does not.
	ErrObjectNotFound = errors.New("preffs: backend object not found")

	// ErrNotImplemented is returned for wildcard or recursive expansion
	// against remote fragment groups. It also matches errors.ErrUnsupported.
	ErrNotImplemented = fmt.Errorf("preffs: not implemented: %w", errors.ErrUnsupported)

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("preffs: size overflow")
)

// IntegrityError describes a manifest row that breaks a table invariant.
type IntegrityError struct {
	Key    string
	Row    int
	Reason string
}

func (e *IntegrityError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: row %d: %s", ErrManifestIntegrity, e.Row, e.Reason)
	}
	return fmt.Sprintf("%s: key %q (row %d): %s", ErrManifestIntegrity, e.Key, e.Row, e.Reason)
}

// Is reports whether target is ErrManifestIntegrity.
func (e *IntegrityError) Is(target error) bool {
	return target == ErrManifestIntegrity
}

// FetchError describes a failed range read of one remote fragment.
type FetchError struct {
	URI   string
	Start uint64
	End   uint64
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s [%d,%d): %v", ErrBackendFetch, e.URI, e.Start, e.End, e.Err)
}

// Unwrap exposes ErrBackendFetch and the backend's own error. A missing
// object surfaces as ErrObjectNotFound instead of fs.ErrNotExist, which is
// reserved for keys absent from the manifest.
func (e *FetchError) Unwrap() []error {
	if errors.Is(e.Err, fs.ErrNotExist) {
		return []error{ErrBackendFetch, ErrObjectNotFound}
	}
	return []error{ErrBackendFetch, e.Err}
}
