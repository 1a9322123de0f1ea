package fetch

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d70-t/preffs/backend"
	"github.com/d70-t/preffs/internal/index"
	"github.com/d70-t/preffs/internal/reftype"
	"github.com/d70-t/preffs/internal/resolve"
	"github.com/d70-t/preffs/internal/testutil"
	"github.com/d70-t/preffs/manifest"
)

const uri = "mock://data.bin"

func newFetcher(tb testing.TB, mock *testutil.MockBackend, opts ...Option) (*Fetcher, *index.Index) {
	tb.Helper()
	idx, err := index.Load(testutil.FixtureRecords(uri))
	require.NoError(tb, err)
	reg := backend.NewRegistry(backend.WithBackend("mock", mock))
	return New(reg, opts...), idx
}

func read(tb testing.TB, f *Fetcher, idx *index.Index, key string, r resolve.Range) ([]byte, error) {
	tb.Helper()
	seq, err := resolve.Resolve(idx, key, r)
	require.NoError(tb, err)
	return f.Fetch(context.Background(), seq)
}

func TestFetchScenario(t *testing.T) {
	t.Parallel()

	for _, concurrent := range []bool{true, false} {
		name := "sequential"
		if concurrent {
			name = "concurrent"
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			mock := testutil.NewMockBackend(concurrent, map[string][]byte{uri: []byte(testutil.SourceData)})
			f, idx := newFetcher(t, mock)

			got, err := read(t, f, idx, "a/b", resolve.Full())
			require.NoError(t, err)
			assert.Equal(t, "01236789", string(got))

			got, err = read(t, f, idx, "a/c", resolve.Full())
			require.NoError(t, err)
			assert.Equal(t, "0123456789", string(got))

			got, err = read(t, f, idx, "b", resolve.Full())
			require.NoError(t, err)
			assert.Equal(t, "test", string(got))

			got, err = read(t, f, idx, "a/b", resolve.Between(2, 6))
			require.NoError(t, err)
			assert.Equal(t, "2367", string(got))
		})
	}
}

func TestFetchRangeProperty(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockBackend(true, map[string][]byte{uri: []byte(testutil.SourceData)})
	f, idx := newFetcher(t, mock)

	full, err := read(t, f, idx, "a/b", resolve.Full())
	require.NoError(t, err)
	for start := 0; start <= len(full); start++ {
		for end := start; end <= len(full); end++ {
			got, err := read(t, f, idx, "a/b", resolve.Between(uint64(start), uint64(end)))
			require.NoError(t, err)
			assert.Equal(t, string(full[start:end]), string(got), "range [%d,%d)", start, end)
		}
	}
}

func TestFetchInlineNeedsNoBackend(t *testing.T) {
	t.Parallel()

	idx, err := index.Load([]manifest.Record{manifest.InlineRecord("b", []byte("test"))})
	require.NoError(t, err)
	f := New(backend.NewRegistry())

	seq, err := resolve.Resolve(idx, "b", resolve.Full())
	require.NoError(t, err)
	got, err := f.Fetch(context.Background(), seq)
	require.NoError(t, err)
	assert.Equal(t, "test", string(got))
}

func TestFetchOrderIndependentOfCompletion(t *testing.T) {
	t.Parallel()

	records := make([]manifest.Record, 0, 10)
	for i := range 10 {
		records = append(records, manifest.RemoteRecord("k", uri, uint64(i), 1))
	}
	idx, err := index.Load(records)
	require.NoError(t, err)

	mock := testutil.NewMockBackend(true, map[string][]byte{uri: []byte(testutil.SourceData)})
	// Earlier pieces finish last.
	mock.SetDelay(func(c testutil.Call) time.Duration {
		return time.Duration(10-c.Start) * 2 * time.Millisecond
	})
	f := New(backend.NewRegistry(backend.WithBackend("mock", mock)))

	seq, err := resolve.Resolve(idx, "k", resolve.Full())
	require.NoError(t, err)
	got, err := f.Fetch(context.Background(), seq)
	require.NoError(t, err)
	assert.Equal(t, testutil.SourceData, string(got))
	assert.Greater(t, mock.MaxInFlight(), 1, "pieces should be fetched in parallel")
}

func TestFetchSequentialBackend(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockBackend(false, map[string][]byte{uri: []byte(testutil.SourceData)})
	mock.SetDelay(func(testutil.Call) time.Duration { return time.Millisecond })
	f, idx := newFetcher(t, mock)

	_, err := read(t, f, idx, "a/b", resolve.Full())
	require.NoError(t, err)
	assert.Equal(t, 1, mock.MaxInFlight())
	assert.Equal(t, []testutil.Call{
		{URI: uri, Start: 0, End: 4},
		{URI: uri, Start: 6, End: 10},
	}, mock.Calls())
}

func TestFetchMaxConcurrency(t *testing.T) {
	t.Parallel()

	records := make([]manifest.Record, 0, 10)
	for i := range 10 {
		records = append(records, manifest.RemoteRecord("k", uri, uint64(i), 1))
	}
	idx, err := index.Load(records)
	require.NoError(t, err)

	mock := testutil.NewMockBackend(true, map[string][]byte{uri: []byte(testutil.SourceData)})
	mock.SetDelay(func(testutil.Call) time.Duration { return 2 * time.Millisecond })
	f := New(backend.NewRegistry(backend.WithBackend("mock", mock)), WithMaxConcurrency(2))

	seq, err := resolve.Resolve(idx, "k", resolve.Full())
	require.NoError(t, err)
	got, err := f.Fetch(context.Background(), seq)
	require.NoError(t, err)
	assert.Equal(t, testutil.SourceData, string(got))
	assert.LessOrEqual(t, mock.MaxInFlight(), 2)
}

func TestFetchErrors(t *testing.T) {
	t.Parallel()

	t.Run("backend failure", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("connection reset")
		mock := testutil.NewMockBackend(true, map[string][]byte{uri: []byte(testutil.SourceData)})
		mock.SetError(uri, cause)
		f, idx := newFetcher(t, mock)

		got, err := read(t, f, idx, "a/b", resolve.Full())
		assert.Nil(t, got, "no partial assembly")
		require.ErrorIs(t, err, reftype.ErrBackendFetch)
		require.ErrorIs(t, err, cause)
		var fe *reftype.FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, uri, fe.URI)
	})

	t.Run("short read", func(t *testing.T) {
		t.Parallel()
		mock := testutil.NewMockBackend(true, map[string][]byte{uri: []byte("0123")})
		f, idx := newFetcher(t, mock)
		_, err := read(t, f, idx, "a/c", resolve.Full())
		require.ErrorIs(t, err, reftype.ErrBackendFetch)
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		t.Parallel()
		idx, err := index.Load([]manifest.Record{manifest.RemoteRecord("k", "gopher://x", 0, 1)})
		require.NoError(t, err)
		f := New(backend.NewRegistry())
		seq, err := resolve.Resolve(idx, "k", resolve.Full())
		require.NoError(t, err)
		_, err = f.Fetch(context.Background(), seq)
		require.ErrorIs(t, err, reftype.ErrUnsupportedBackend)
	})

	t.Run("missing key short-circuits", func(t *testing.T) {
		t.Parallel()
		mock := testutil.NewMockBackend(true, nil)
		_, idx := newFetcher(t, mock)
		_, err := resolve.Resolve(idx, "nope", resolve.Full())
		require.ErrorIs(t, err, reftype.ErrNotFound)
		assert.Empty(t, mock.Calls())
	})
}

func TestFetchPiecesMixed(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockBackend(true, map[string][]byte{uri: []byte(testutil.SourceData)})
	f := New(backend.NewRegistry(backend.WithBackend("mock", mock)))

	pieces := []resolve.Piece{
		{Inline: true, Data: []byte("<")},
		{URI: uri, Scheme: "mock", Start: 0, End: 2},
		{Inline: true, Data: []byte("|")},
		{URI: uri, Scheme: "mock", Start: 8, End: 10},
		{Inline: true, Data: []byte(">")},
	}
	got, err := f.FetchPieces(context.Background(), pieces)
	require.NoError(t, err)
	assert.Equal(t, "<01|89>", string(got))

	got, err = f.FetchPieces(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	calls := mock.Calls()
	slices.SortFunc(calls, func(a, b testutil.Call) int { return int(a.Start) - int(b.Start) })
	assert.Len(t, calls, 2)
}
