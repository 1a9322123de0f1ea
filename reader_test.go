package preffs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderFSTest(t *testing.T) {
	t.Parallel()

	for _, concurrent := range []bool{true, false} {
		r := newTestFS(t, concurrent).Reader()
		require.NoError(t, fstest.TestFS(r, "a/b", "a/c", "b"))
	}
}

func TestReaderFileShadowsDirectory(t *testing.T) {
	t.Parallel()

	fsys, err := New(inlineRecords("a", "a/b"))
	require.NoError(t, err)
	r := fsys.Reader()

	require.NoError(t, fstest.TestFS(r, "a"))

	entries, err := r.ReadDir(".")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].IsDir())

	_, err = r.ReadDir("a")
	assert.ErrorIs(t, err, ErrNotDir)
}

func TestReaderOpen(t *testing.T) {
	t.Parallel()

	r := newTestFS(t, true).Reader(WithContext(context.Background()))

	f, err := r.Open("a/b")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "01236789", string(data))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "b", info.Name())
	assert.Equal(t, int64(8), info.Size())
	assert.False(t, info.IsDir())
}

func TestReaderOpenErrors(t *testing.T) {
	t.Parallel()

	r := newTestFS(t, true).Reader()

	tests := []struct {
		name string
		want error
	}{
		{"missing", fs.ErrNotExist},
		{"a/missing", fs.ErrNotExist},
		{"/a/b", fs.ErrInvalid},
		{"a/../b", fs.ErrInvalid},
		{"a/", fs.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := r.Open(tt.name)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var pe *fs.PathError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "open", pe.Op)
			assert.Equal(t, tt.name, pe.Path)
		})
	}
}

func TestReaderReadFile(t *testing.T) {
	t.Parallel()

	r := newTestFS(t, true).Reader()

	data, err := fs.ReadFile(r, "a/c")
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))

	_, err = r.ReadFile("nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var pe *fs.PathError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "readfile", pe.Op)
	assert.Equal(t, "nope", pe.Path)
}

func TestReaderStat(t *testing.T) {
	t.Parallel()

	r := newTestFS(t, true).Reader()

	info, err := r.Stat(".")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, ".", info.Name())

	info, err = r.Stat("a")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "a", info.Name())

	info, err = r.Stat("a/c")
	require.NoError(t, err)
	assert.Equal(t, "c", info.Name())
	assert.Equal(t, int64(10), info.Size())

	_, err = r.Stat("zzz")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReaderReadDir(t *testing.T) {
	t.Parallel()

	r := newTestFS(t, true).Reader()

	entries, err := fs.ReadDir(r, ".")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name())
	assert.True(t, entries[0].IsDir())
	assert.Equal(t, "b", entries[1].Name())
	assert.False(t, entries[1].IsDir())

	_, err = r.ReadDir("b")
	assert.ErrorIs(t, err, ErrNotDir)

	_, err = r.ReadDir("nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReaderReadDirSortsByName(t *testing.T) {
	t.Parallel()

	// Key order puts "d/x-y" before the "d/x" directory; names sort the other way.
	fsys, err := New(inlineRecords("d/x-y", "d/x/z"))
	require.NoError(t, err)

	entries, err := fsys.Reader().ReadDir("d")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "x", entries[0].Name())
	assert.Equal(t, "x-y", entries[1].Name())
}

func TestReaderOpenDirReadDirN(t *testing.T) {
	t.Parallel()

	fsys, err := New(inlineRecords("d/1", "d/2", "d/3"))
	require.NoError(t, err)

	f, err := fsys.Reader().Open("d")
	require.NoError(t, err)
	defer f.Close()

	dir, ok := f.(fs.ReadDirFile)
	require.True(t, ok)

	first, err := dir.ReadDir(2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "1", first[0].Name())

	rest, err := dir.ReadDir(2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "3", rest[0].Name())

	_, err = dir.ReadDir(2)
	assert.ErrorIs(t, err, io.EOF)

	_, err = f.Read(make([]byte, 1))
	assert.ErrorIs(t, err, fs.ErrInvalid)
}

func TestReaderOpenDirClose(t *testing.T) {
	t.Parallel()

	fsys, err := New(inlineRecords("d/1", "d/2"))
	require.NoError(t, err)

	f, err := fsys.Reader().Open("d")
	require.NoError(t, err)
	dir, ok := f.(fs.ReadDirFile)
	require.True(t, ok)

	_, err = dir.ReadDir(1)
	require.NoError(t, err)
	require.NoError(t, dir.Close())

	_, err = dir.ReadDir(1)
	assert.ErrorIs(t, err, fs.ErrClosed)
	assert.ErrorIs(t, dir.Close(), fs.ErrClosed)
}

func TestReaderWalk(t *testing.T) {
	t.Parallel()

	r := newTestFS(t, true).Reader()

	var files []string
	err := fs.WalkDir(r, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b", "a/c", "b"}, files)
}

func TestReaderCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newTestFS(t, true).Reader(WithContext(ctx))

	_, err := r.ReadFile("a/b")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// Inline data needs no backend and ignores the context.
	data, err := r.ReadFile("b")
	require.NoError(t, err)
	assert.Equal(t, "test", string(data))
}
