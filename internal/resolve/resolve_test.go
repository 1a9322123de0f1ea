package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d70-t/preffs/internal/index"
	"github.com/d70-t/preffs/internal/reftype"
	"github.com/d70-t/preffs/manifest"
)

func mustIndex(tb testing.TB, records ...manifest.Record) *index.Index {
	tb.Helper()
	idx, err := index.Load(records)
	require.NoError(tb, err)
	return idx
}

// join concatenates inline pieces.
func join(pieces []Piece) []byte {
	out := []byte{}
	for _, p := range pieces {
		out = append(out, p.Data...)
	}
	return out
}

func TestResolveRemote(t *testing.T) {
	t.Parallel()

	idx := mustIndex(t,
		manifest.RemoteRecord("a/b", "data.bin", 0, 4),
		manifest.RemoteRecord("a/b", "data.bin", 6, 4),
	)

	tests := []struct {
		name string
		r    Range
		want []Piece
	}{
		{
			name: "full",
			r:    Full(),
			want: []Piece{
				{URI: "data.bin", Scheme: "file", Start: 0, End: 4},
				{URI: "data.bin", Scheme: "file", Start: 6, End: 10},
			},
		},
		{
			name: "spanning boundary",
			r:    Between(2, 6),
			want: []Piece{
				{URI: "data.bin", Scheme: "file", Start: 2, End: 4},
				{URI: "data.bin", Scheme: "file", Start: 6, End: 8},
			},
		},
		{
			name: "within second fragment",
			r:    Between(5, 7),
			want: []Piece{
				{URI: "data.bin", Scheme: "file", Start: 7, End: 9},
			},
		},
		{
			name: "start on boundary",
			r:    From(4),
			want: []Piece{
				{URI: "data.bin", Scheme: "file", Start: 6, End: 10},
			},
		},
		{
			name: "end on boundary",
			r:    Between(0, 4),
			want: []Piece{
				{URI: "data.bin", Scheme: "file", Start: 0, End: 4},
			},
		},
		{name: "start at length", r: From(8), want: nil},
		{name: "start beyond length", r: From(100), want: nil},
		{name: "end zero", r: Between(0, 0), want: nil},
		{name: "inverted", r: Between(5, 3), want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Collect(idx, "a/b", tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveInlineMatchesSlice(t *testing.T) {
	t.Parallel()

	idx := mustIndex(t,
		manifest.InlineRecord("k", []byte("abc")),
		manifest.InlineRecord("k", nil),
		manifest.InlineRecord("k", []byte("d")),
		manifest.InlineRecord("k", []byte("efgh")),
	)
	full := []byte("abcdefgh")

	pieces, err := Collect(idx, "k", Full())
	require.NoError(t, err)
	assert.Equal(t, full, join(pieces))

	for start := 0; start <= len(full); start++ {
		for end := start; end <= len(full); end++ {
			pieces, err := Collect(idx, "k", Between(uint64(start), uint64(end)))
			require.NoError(t, err)
			assert.Equal(t, full[start:end], join(pieces), "range [%d,%d)", start, end)
		}
		pieces, err := Collect(idx, "k", From(uint64(start)))
		require.NoError(t, err)
		assert.Equal(t, full[start:], join(pieces), "range [%d,EOF)", start)
	}
}

func TestResolveStopsEarly(t *testing.T) {
	t.Parallel()

	idx := mustIndex(t,
		manifest.RemoteRecord("k", "mem://x", 0, 2),
		manifest.RemoteRecord("k", "mem://x", 10, 2),
		manifest.RemoteRecord("k", "mem://x", 20, 2),
	)
	seq, err := Resolve(idx, "k", Between(0, 2))
	require.NoError(t, err)

	var n int
	for p := range seq {
		n++
		assert.Equal(t, "mem", p.Scheme)
	}
	assert.Equal(t, 1, n)
}

func TestResolveMissing(t *testing.T) {
	t.Parallel()

	idx := mustIndex(t, manifest.InlineRecord("a/b", []byte("x")))
	_, err := Resolve(idx, "a", Full())
	require.ErrorIs(t, err, reftype.ErrNotFound)

	_, err = Size(idx, "missing")
	require.ErrorIs(t, err, reftype.ErrNotFound)
}

func TestSize(t *testing.T) {
	t.Parallel()

	idx := mustIndex(t,
		manifest.RemoteRecord("a/b", "data.bin", 0, 4),
		manifest.RemoteRecord("a/b", "data.bin", 6, 4),
		manifest.InlineRecord("b", []byte("test")),
	)
	size, err := Size(idx, "a/b")
	require.NoError(t, err)
	assert.Equal(t, uint64(8), size)
	size, err = Size(idx, "b")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), size)
}

func TestPieceLen(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(3), Piece{Inline: true, Data: []byte("abc")}.Len())
	assert.Equal(t, uint64(5), Piece{Start: 5, End: 10}.Len())
	assert.Equal(t, "inline(3)", Piece{Inline: true, Data: []byte("abc")}.String())
	assert.Equal(t, "x[5,10)", Piece{URI: "x", Start: 5, End: 10}.String())
}
