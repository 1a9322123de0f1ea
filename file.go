package preffs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"sync"

	"github.com/d70-t/preffs/internal/file"
	"github.com/d70-t/preffs/internal/pathutil"
	"github.com/d70-t/preffs/internal/reftype"
	"github.com/d70-t/preffs/internal/sizing"
)

// File is an open logical file.
//
// Reads are range reads against the manifest: only the fragments that
// intersect the requested bytes are fetched. File implements fs.File,
// io.ReaderAt and io.Seeker. ReadAt is safe for concurrent use; Read and
// Seek share an offset and are serialized.
type File struct {
	fsys *FS
	ctx  context.Context
	key  string
	size int64

	mu     sync.Mutex
	off    int64
	closed bool
}

// OpenFile opens the file at key. Reads use ctx.
func (f *FS) OpenFile(ctx context.Context, key string) (*File, error) {
	key = NormalizePath(key)
	size, err := f.Size(key)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: key, Err: reftype.ErrNotFound}
	}
	n, err := sizing.Int64(size)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: key, Err: err}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &File{fsys: f, ctx: ctx, key: key, size: n}, nil
}

// Name returns the logical key of the file.
func (fl *File) Name() string {
	return fl.key
}

// Size returns the logical length of the file.
func (fl *File) Size() int64 {
	return fl.size
}

// Read implements io.Reader.
func (fl *File) Read(p []byte) (int, error) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.closed {
		return 0, &fs.PathError{Op: "read", Path: fl.key, Err: fs.ErrClosed}
	}
	n, err := fl.readAt(p, fl.off)
	fl.off += int64(n)
	if errors.Is(err, io.EOF) && n > 0 {
		err = nil
	}
	return n, err
}

// ReadAt implements io.ReaderAt.
func (fl *File) ReadAt(p []byte, off int64) (int, error) {
	fl.mu.Lock()
	closed := fl.closed
	fl.mu.Unlock()
	if closed {
		return 0, &fs.PathError{Op: "read", Path: fl.key, Err: fs.ErrClosed}
	}
	return fl.readAt(p, off)
}

func (fl *File) readAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, &fs.PathError{Op: "read", Path: fl.key, Err: fs.ErrInvalid}
	}
	if off >= fl.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	end := min(off+int64(len(p)), fl.size)
	data, err := fl.fsys.ReadRange(fl.ctx, fl.key, RangeBetween(uint64(off), uint64(end))) //nolint:gosec // both bounds checked non-negative
	if err != nil {
		return 0, err
	}
	n := copy(p, data)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek implements io.Seeker.
func (fl *File) Seek(offset int64, whence int) (int64, error) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.closed {
		return 0, &fs.PathError{Op: "seek", Path: fl.key, Err: fs.ErrClosed}
	}

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = fl.off + offset
	case io.SeekEnd:
		abs = fl.size + offset
	default:
		return 0, &fs.PathError{Op: "seek", Path: fl.key, Err: fs.ErrInvalid}
	}
	if abs < 0 {
		return 0, &fs.PathError{Op: "seek", Path: fl.key, Err: fs.ErrInvalid}
	}
	fl.off = abs
	return abs, nil
}

// Stat implements fs.File.
func (fl *File) Stat() (fs.FileInfo, error) {
	return file.NewInfo(pathutil.Base(fl.key), uint64(fl.size)) //nolint:gosec // size came from a uint64
}

// Close implements fs.File. Closing twice fails with fs.ErrClosed.
func (fl *File) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.closed {
		return &fs.PathError{Op: "close", Path: fl.key, Err: fs.ErrClosed}
	}
	fl.closed = true
	return nil
}

var (
	_ fs.File     = (*File)(nil)
	_ io.ReaderAt = (*File)(nil)
	_ io.Seeker   = (*File)(nil)
)
