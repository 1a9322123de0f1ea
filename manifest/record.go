package manifest

import (
	"cmp"
	"slices"
	"strings"
)

// DefaultScheme is the scheme of paths that carry no "scheme://" prefix.
const DefaultScheme = "file"

// Record is one row of a reference table.
//
// Inline rows carry their payload in Raw. Remote rows reference the byte
// range [Offset, Offset+Size) of the object at Path.
type Record struct {
	// Key is the logical path of the file this fragment belongs to.
	Key string

	// Path is the URI of the backend object (remote rows only).
	Path string

	// Offset is the first byte of the fragment within Path (remote rows only).
	Offset uint64

	// Size is the fragment length in bytes (remote rows only).
	Size uint64

	// Raw is the literal fragment payload (inline rows only).
	Raw []byte

	// Inline reports whether the row carries Raw rather than a remote range.
	Inline bool
}

// InlineRecord returns an inline row for key.
func InlineRecord(key string, raw []byte) Record {
	if raw == nil {
		raw = []byte{}
	}
	return Record{Key: key, Raw: raw, Inline: true}
}

// RemoteRecord returns a row referencing [offset, offset+size) of path.
func RemoteRecord(key, path string, offset, size uint64) Record {
	return Record{Key: key, Path: path, Offset: offset, Size: size}
}

// Len returns the logical size of the fragment.
func (r *Record) Len() uint64 {
	if r.Inline {
		return uint64(len(r.Raw))
	}
	return r.Size
}

// Scheme returns the backend scheme of a remote row, or "" for inline rows.
func (r *Record) Scheme() string {
	if r.Inline {
		return ""
	}
	return Scheme(r.Path)
}

// Scheme returns the lower-cased scheme of uri, the text before "://".
// URIs without a scheme are local paths and yield DefaultScheme.
func Scheme(uri string) string {
	scheme, _, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" {
		return DefaultScheme
	}
	return strings.ToLower(scheme)
}

// SortStable orders records by key, keeping the relative order of rows that
// share a key. Producers use it before encoding so that fragment order, which
// the table records only by position, survives.
func SortStable(records []Record) {
	slices.SortStableFunc(records, func(a, b Record) int {
		return cmp.Compare(a.Key, b.Key)
	})
}
