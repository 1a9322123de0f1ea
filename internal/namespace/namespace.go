// Package namespace derives a directory hierarchy from the flat, sorted key
// table of an index.
//
// No tree is stored. A directory exists when at least one key lies below
// it; listing a directory scans that key range once, coalescing nested keys
// into one entry per immediate subdirectory and summing the fragment sizes
// of each file.
package namespace

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/d70-t/preffs/internal/index"
	"github.com/d70-t/preffs/internal/pathutil"
	"github.com/d70-t/preffs/internal/reftype"
)

// Kind distinguishes files from directories.
type Kind uint8

const (
	KindFile Kind = iota
	KindDir
)

func (k Kind) String() string {
	if k == KindDir {
		return "directory"
	}
	return "file"
}

// Entry describes one immediate child of a directory, or the target of Stat.
type Entry struct {
	// Name is the full logical path of the entry.
	Name string
	// Size is the sum of fragment sizes for files and zero for directories.
	Size uint64
	Kind Kind
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDir
}

// View answers listing and metadata queries over an index.
// It is safe for concurrent use.
type View struct {
	idx       *index.Index
	cacheSize int
	cache     *listingCache
	logger    *slog.Logger
}

// Option configures a View.
type Option func(*View)

// WithCacheSize sets how many directory listings are memoized.
// Values <= 0 use DefaultCacheSize.
func WithCacheSize(n int) Option {
	return func(v *View) {
		v.cacheSize = n
	}
}

// WithLogger sets the logger for cache events.
func WithLogger(logger *slog.Logger) Option {
	return func(v *View) {
		v.logger = logger
	}
}

// New creates a view over idx.
func New(idx *index.Index, opts ...Option) *View {
	v := &View{idx: idx}
	for _, opt := range opts {
		opt(v)
	}
	v.cache = newListingCache(v.cacheSize)
	return v
}

// log returns the logger, falling back to a discard logger if nil.
func (v *View) log() *slog.Logger {
	if v.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return v.logger
}

// List returns the immediate children of dir in key order.
//
// The root "" always lists, even for an empty index. Listing a file key
// fails with reftype.ErrNotDir; listing an absent path fails with
// reftype.ErrNotFound. A name that is both a file key and a directory
// prefix is listed once, as the file. The returned slice is owned by the
// caller.
func (v *View) List(dir string) ([]Entry, error) {
	if cached, ok := v.cache.get(dir); ok {
		v.log().Debug("listing cache hit", "dir", dir)
		return slices.Clone(cached), nil
	}
	v.log().Debug("listing cache miss", "dir", dir)

	rows := v.idx.PrefixRange(dir)
	if dir != "" && len(rows) == 0 {
		if v.idx.IsFile(dir) {
			return nil, fmt.Errorf("list %q: %w", dir, reftype.ErrNotDir)
		}
		return nil, fmt.Errorf("list %q: %w", dir, reftype.ErrNotFound)
	}

	entries := make([]Entry, 0)
	var (
		pending    Entry
		hasPending bool
		lastDir    string
		files      = make(map[string]struct{})
	)
	flush := func() {
		if hasPending {
			entries = append(entries, pending)
			files[pending.Name] = struct{}{}
			hasPending = false
		}
	}
	for i := range rows {
		row := &rows[i]
		full, sub := pathutil.ChildOf(row.Key, dir)
		if sub {
			flush()
			if _, shadowed := files[full]; !shadowed && full != lastDir {
				entries = append(entries, Entry{Name: full, Kind: KindDir})
			}
			lastDir = full
			continue
		}
		if hasPending && pending.Name == full {
			pending.Size += row.Len()
			continue
		}
		flush()
		pending = Entry{Name: full, Size: row.Len(), Kind: KindFile}
		hasPending = true
	}
	flush()

	v.cache.set(dir, entries)
	return slices.Clone(entries), nil
}

// Stat describes path. A key that is both a file and a directory prefix is
// reported as a file.
func (v *View) Stat(path string) (Entry, error) {
	if path == "" {
		return Entry{Kind: KindDir}, nil
	}
	if rows, ok := v.idx.Lookup(path); ok {
		var size uint64
		for i := range rows {
			size += rows[i].Len()
		}
		return Entry{Name: path, Size: size, Kind: KindFile}, nil
	}
	if v.idx.IsDir(path) {
		return Entry{Name: path, Kind: KindDir}, nil
	}
	return Entry{}, fmt.Errorf("stat %q: %w", path, reftype.ErrNotFound)
}

// Exists reports whether path names a file or a directory.
// The root always exists.
func (v *View) Exists(path string) bool {
	return path == "" || v.idx.IsFile(path) || v.idx.IsDir(path)
}

// IsFile reports whether path is a file key.
func (v *View) IsFile(path string) bool {
	return v.idx.IsFile(path)
}

// IsDir reports whether path is a directory.
func (v *View) IsDir(path string) bool {
	return path == "" || v.idx.IsDir(path)
}

// Files returns the file keys at or below path in key order: path itself
// when it is a file, followed by every descendant key.
func (v *View) Files(path string) []string {
	var out []string
	if path != "" && v.idx.IsFile(path) {
		out = append(out, path)
	}
	for key := range v.idx.Keys(pathutil.DirPrefix(path)) {
		out = append(out, key)
	}
	return out
}
