package preffs

import (
	"cmp"
	"context"
	"errors"
	"io"
	"io/fs"
	"slices"

	"github.com/d70-t/preffs/internal/file"
	"github.com/d70-t/preffs/internal/pathutil"
)

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithContext sets the context used by every read made through the Reader.
// If not set, context.Background() is used.
func WithContext(ctx context.Context) ReaderOption {
	return func(r *Reader) {
		r.ctx = ctx
	}
}

// Reader adapts an FS to the io/fs interfaces.
//
// Reader implements fs.FS, fs.StatFS, fs.ReadFileFS and fs.ReadDirFS. Names
// follow fs.ValidPath: the root is "." and there are no leading slashes.
type Reader struct {
	fsys *FS
	ctx  context.Context
}

// Reader returns an io/fs view of the filesystem.
func (f *FS) Reader(opts ...ReaderOption) *Reader {
	r := &Reader{fsys: f, ctx: context.Background()}
	for _, opt := range opts {
		opt(r)
	}
	if r.ctx == nil {
		r.ctx = context.Background()
	}
	return r
}

// Open implements fs.FS.
func (r *Reader) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	key := keyFromFSName(name)

	if key != "" && r.fsys.IsFile(key) {
		return r.fsys.OpenFile(r.ctx, key)
	}
	if r.fsys.IsDir(key) {
		return &openDir{r: r, name: name, key: key}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Stat implements fs.StatFS.
func (r *Reader) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	entry, err := r.fsys.Stat(keyFromFSName(name))
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	info, err := entryInfo(entry)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	return info, nil
}

// ReadFile implements fs.ReadFileFS.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	data, err := r.fsys.Cat(r.ctx, keyFromFSName(name))
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			err = pe.Err
		}
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return data, nil
}

// ReadDir implements fs.ReadDirFS.
//
// Entries are sorted by name. Directories are synthesized from key
// prefixes. A file key shadows a directory of the same name.
func (r *Reader) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	key := keyFromFSName(name)
	if key != "" && r.fsys.IsFile(key) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: ErrNotDir}
	}
	entries, err := r.fsys.view.List(key)
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: unwrapSentinel(err)}
	}
	return dirEntries(entries)
}

// entryInfo converts an Entry to fs.FileInfo named by its base name.
func entryInfo(e Entry) (fs.FileInfo, error) {
	if e.IsDir() {
		return file.NewDirInfo(pathutil.Base(e.Name)), nil
	}
	return file.NewInfo(pathutil.Base(e.Name), e.Size)
}

func dirEntries(entries []Entry) ([]fs.DirEntry, error) {
	out := make([]fs.DirEntry, 0, len(entries))
	for _, e := range entries {
		info, err := entryInfo(e)
		if err != nil {
			return nil, err
		}
		out = append(out, fs.FileInfoToDirEntry(info))
	}
	slices.SortStableFunc(out, func(a, b fs.DirEntry) int {
		return cmp.Compare(a.Name(), b.Name())
	})
	return out, nil
}

// openDir implements fs.File and fs.ReadDirFile for synthetic directories.
type openDir struct {
	r       *Reader
	name    string
	key     string
	entries []fs.DirEntry
	loaded  bool
	pos     int
	closed  bool
}

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) {
	return file.NewDirInfo(pathutil.Base(d.name)), nil
}

func (d *openDir) Close() error {
	if d.closed {
		return &fs.PathError{Op: "close", Path: d.name, Err: fs.ErrClosed}
	}
	d.closed = true
	d.entries = nil
	return nil
}

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.closed {
		return nil, &fs.PathError{Op: "readdir", Path: d.name, Err: fs.ErrClosed}
	}
	if !d.loaded {
		entries, err := d.r.fsys.view.List(d.key)
		if err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: d.name, Err: unwrapSentinel(err)}
		}
		if d.entries, err = dirEntries(entries); err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: d.name, Err: err}
		}
		d.loaded = true
	}

	rest := d.entries[d.pos:]
	if n <= 0 {
		d.pos = len(d.entries)
		return slices.Clone(rest), nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(rest))
	d.pos += n
	return slices.Clone(rest[:n]), nil
}

var (
	_ fs.FS          = (*Reader)(nil)
	_ fs.StatFS      = (*Reader)(nil)
	_ fs.ReadFileFS  = (*Reader)(nil)
	_ fs.ReadDirFS   = (*Reader)(nil)
	_ fs.ReadDirFile = (*openDir)(nil)
)
