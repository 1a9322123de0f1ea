package preffs

import (
	"context"
	"errors"
	"io/fs"
	"path"

	"github.com/d70-t/preffs/internal/namespace"
	"github.com/d70-t/preffs/internal/pathutil"
	"github.com/d70-t/preffs/internal/reftype"
	"github.com/d70-t/preffs/internal/resolve"
)

// Range is a half-open byte range over a logical file.
type Range = resolve.Range

// FullRange returns the range covering a whole file.
func FullRange() Range { return resolve.Full() }

// RangeFrom returns the range from start to the end of the file.
func RangeFrom(start uint64) Range { return resolve.From(start) }

// RangeBetween returns the range [start, end).
func RangeBetween(start, end uint64) Range { return resolve.Between(start, end) }

// Entry describes a file or directory. Name is the full logical path.
type Entry = namespace.Entry

// Entry kinds.
const (
	KindFile = namespace.KindFile
	KindDir  = namespace.KindDir
)

// ReadRange returns bytes [r.Start, r.End) of the file at key.
//
// Ranges are clipped to the file: a start at or beyond the file length, or
// an empty range, yields empty bytes. A missing key fails with
// fs.ErrNotExist before any backend is contacted; a failing fragment fails
// the whole read with ErrBackendFetch.
func (f *FS) ReadRange(ctx context.Context, key string, r Range) ([]byte, error) {
	key = NormalizePath(key)
	pieces, err := resolve.Resolve(f.idx, key, r)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: key, Err: reftype.ErrNotFound}
	}
	data, err := f.fetcher.Fetch(ctx, pieces)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: key, Err: err}
	}
	return data, nil
}

// Cat returns the whole file at key.
func (f *FS) Cat(ctx context.Context, key string) ([]byte, error) {
	return f.ReadRange(ctx, key, FullRange())
}

// Size returns the logical length of the file at key.
func (f *FS) Size(key string) (uint64, error) {
	key = NormalizePath(key)
	size, err := resolve.Size(f.idx, key)
	if err != nil {
		return 0, &fs.PathError{Op: "size", Path: key, Err: reftype.ErrNotFound}
	}
	return size, nil
}

// ListDirectory returns the immediate children of dir in key order.
//
// File sizes are the sum of their fragment sizes; nested descendants
// collapse into one directory entry. Listing the root of an empty manifest
// returns an empty slice. Listing a file fails with ErrNotDir.
func (f *FS) ListDirectory(dir string) ([]Entry, error) {
	dir = NormalizePath(dir)
	entries, err := f.view.List(dir)
	if err != nil {
		return nil, &fs.PathError{Op: "list", Path: dir, Err: unwrapSentinel(err)}
	}
	return entries, nil
}

// Stat describes the file or directory at p.
func (f *FS) Stat(p string) (Entry, error) {
	p = NormalizePath(p)
	entry, err := f.view.Stat(p)
	if err != nil {
		return Entry{}, &fs.PathError{Op: "stat", Path: p, Err: reftype.ErrNotFound}
	}
	return entry, nil
}

// Exists reports whether p names a file or a directory.
func (f *FS) Exists(p string) bool {
	return f.view.Exists(NormalizePath(p))
}

// IsFile reports whether p names a file.
func (f *FS) IsFile(p string) bool {
	return f.view.IsFile(NormalizePath(p))
}

// IsDir reports whether p names a directory.
func (f *FS) IsDir(p string) bool {
	return f.view.IsDir(NormalizePath(p))
}

// Glob returns the file keys matching pattern in key order.
// Pattern syntax is that of path.Match.
func (f *FS) Glob(pattern string) ([]string, error) {
	pattern = NormalizePath(pattern)
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	var out []string
	for key := range f.idx.Keys(pathutil.LiteralPrefix(pattern)) {
		if ok, _ := path.Match(pattern, key); ok {
			out = append(out, key)
		}
	}
	return out, nil
}

// Find returns every file key at or below p in key order.
func (f *FS) Find(p string) []string {
	return f.view.Files(NormalizePath(p))
}

// unwrapSentinel reduces a namespace error to its sentinel so that
// *fs.PathError carries the path only once.
func unwrapSentinel(err error) error {
	for _, sentinel := range []error{reftype.ErrNotDir, reftype.ErrNotFound} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return err
}
