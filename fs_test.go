package preffs

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d70-t/preffs/backend/memory"
	"github.com/d70-t/preffs/internal/testutil"
	"github.com/d70-t/preffs/manifest"
)

const sourceURI = "mem://src"

// newTestFS builds an FS over the shared fixture, served from memory.
func newTestFS(t *testing.T, concurrent bool, opts ...Option) *FS {
	t.Helper()
	mem := memory.New(
		memory.WithObject("src", []byte(testutil.SourceData)),
		memory.WithConcurrentFetch(concurrent),
	)
	opts = append([]Option{WithBackend(memory.Scheme, mem)}, opts...)
	fsys, err := New(testutil.FixtureRecords(sourceURI), opts...)
	require.NoError(t, err)
	return fsys
}

func TestNewRejectsIntegrityViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		records []manifest.Record
	}{
		{
			name: "mixed variants",
			records: []manifest.Record{
				manifest.InlineRecord("a", []byte("x")),
				manifest.RemoteRecord("a", sourceURI, 0, 1),
			},
		},
		{
			name: "mixed schemes",
			records: []manifest.Record{
				manifest.RemoteRecord("a", sourceURI, 0, 1),
				manifest.RemoteRecord("a", "https://example.com/x", 0, 1),
			},
		},
		{
			name: "unsorted",
			records: []manifest.Record{
				manifest.InlineRecord("b", []byte("x")),
				manifest.InlineRecord("a", []byte("y")),
			},
		},
		{
			name: "key size overflow",
			records: []manifest.Record{
				manifest.RemoteRecord("big", sourceURI, 0, 1<<63),
				manifest.RemoteRecord("big", sourceURI, 0, 1<<63),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.records)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrManifestIntegrity)

			var ie *IntegrityError
			assert.True(t, errors.As(err, &ie))
		})
	}
}

func TestNewEmpty(t *testing.T) {
	t.Parallel()

	fsys, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, fsys.Len())

	entries, err := fsys.ListDirectory("")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.True(t, fsys.Exists(""))
	assert.False(t, fsys.Exists("a"))
}

func TestOpenManifestFile(t *testing.T) {
	t.Parallel()

	formats := []struct {
		name   string
		format manifest.Format
	}{
		{"flatbuffers", manifest.FormatFlatBuffers},
		{"cbor", manifest.FormatCBOR},
		{"yaml", manifest.FormatYAML},
	}

	for _, tt := range formats {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "data.bin"), []byte(testutil.SourceData), 0o600))

			// Relative fragment paths resolve against the manifest directory.
			data := testutil.WriteManifest(t, testutil.FixtureRecords("data.bin"), tt.format)
			path := filepath.Join(dir, "refs.manifest")
			require.NoError(t, os.WriteFile(path, data, 0o600))

			fsys, err := Open(context.Background(), path)
			require.NoError(t, err)
			assert.Equal(t, 4, fsys.Len())

			got, err := fsys.Cat(context.Background(), "a/b")
			require.NoError(t, err)
			assert.Equal(t, "01236789", string(got))

			_, err = fsys.Cat(context.Background(), "missing")
			assert.ErrorIs(t, err, fs.ErrNotExist)
		})
	}
}

func TestOpenMissingManifest(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpenCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, "unused")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRegistrySharesBackends(t *testing.T) {
	t.Parallel()

	mem := memory.New(memory.WithObject("src", []byte(testutil.SourceData)))
	first, err := New(testutil.FixtureRecords(sourceURI), WithBackend(memory.Scheme, mem))
	require.NoError(t, err)

	second, err := New(testutil.FixtureRecords(sourceURI), WithRegistry(first.Registry()))
	require.NoError(t, err)
	assert.Same(t, first.Registry(), second.Registry())

	got, err := second.Cat(context.Background(), "a/c")
	require.NoError(t, err)
	assert.Equal(t, testutil.SourceData, string(got))
}
