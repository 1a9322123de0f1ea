// Package fetch executes resolved fragment pieces against their backends and
// joins the bytes in piece order.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/d70-t/preffs/backend"
	"github.com/d70-t/preffs/internal/reftype"
	"github.com/d70-t/preffs/internal/resolve"
	"github.com/d70-t/preffs/internal/sizing"
)

// Fetcher executes resolved pieces.
//
// Inline pieces are copied without I/O. Remote pieces are read through the
// registry; when the backend supports concurrent fetch and a read has more
// than one remote piece, the pieces are requested in parallel and reassembled
// in piece order. A Fetcher is safe for concurrent use.
type Fetcher struct {
	registry *backend.Registry
	limit    *semaphore.Weighted // nil = unbounded
	logger   *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithMaxConcurrency bounds the number of backend requests in flight across
// all reads of the Fetcher. Values < 1 leave fan-out unbounded.
func WithMaxConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n < 1 {
			f.limit = nil
			return
		}
		f.limit = semaphore.NewWeighted(int64(n))
	}
}

// WithLogger sets the logger for fetch events.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// New creates a Fetcher reading through registry.
func New(registry *backend.Registry, opts ...Option) *Fetcher {
	f := &Fetcher{registry: registry}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// log returns the logger, falling back to a discard logger if nil.
func (f *Fetcher) log() *slog.Logger {
	if f.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.logger
}

// Fetch consumes pieces and returns their concatenated bytes.
func (f *Fetcher) Fetch(ctx context.Context, pieces iter.Seq[resolve.Piece]) ([]byte, error) {
	var collected []resolve.Piece
	for p := range pieces {
		collected = append(collected, p)
	}
	return f.FetchPieces(ctx, collected)
}

// FetchPieces returns the concatenated bytes of pieces.
//
// Any failing piece fails the whole read; no partial result is returned.
// Backend failures are reported as *reftype.FetchError.
func (f *Fetcher) FetchPieces(ctx context.Context, pieces []resolve.Piece) ([]byte, error) {
	var total uint64
	remote := 0
	for i := range pieces {
		var ok bool
		if total, ok = sizing.Add(total, pieces[i].Len()); !ok {
			return nil, reftype.ErrSizeOverflow
		}
		if !pieces[i].Inline {
			remote++
		}
	}
	size, err := sizing.Int(total)
	if err != nil {
		return nil, err
	}

	parts := make([][]byte, len(pieces))
	if remote > 0 {
		backends, concurrent, err := f.backends(ctx, pieces)
		if err != nil {
			return nil, err
		}
		if concurrent && remote > 1 {
			f.log().Debug("fetch", "strategy", "concurrent", "pieces", len(pieces), "remote", remote)
			err = f.scatter(ctx, pieces, backends, parts)
		} else {
			f.log().Debug("fetch", "strategy", "sequential", "pieces", len(pieces), "remote", remote)
			err = f.sequential(ctx, pieces, backends, parts)
		}
		if err != nil {
			return nil, err
		}
	}

	out := make([]byte, 0, size)
	for i := range pieces {
		if pieces[i].Inline {
			out = append(out, pieces[i].Data...)
			continue
		}
		out = append(out, parts[i]...)
	}
	return out, nil
}

// backends returns the backend of every remote scheme in pieces and whether
// all of them support concurrent fetch.
func (f *Fetcher) backends(ctx context.Context, pieces []resolve.Piece) (map[string]backend.Backend, bool, error) {
	out := make(map[string]backend.Backend, 1)
	concurrent := true
	for i := range pieces {
		p := &pieces[i]
		if p.Inline {
			continue
		}
		if _, ok := out[p.Scheme]; ok {
			continue
		}
		b, err := f.registry.Get(ctx, p.Scheme)
		if err != nil {
			return nil, false, err
		}
		out[p.Scheme] = b
		concurrent = concurrent && backend.Concurrent(b)
	}
	return out, concurrent, nil
}

// scatter fetches every remote piece in parallel into parts[i].
// The first failure cancels the remaining requests.
func (f *Fetcher) scatter(ctx context.Context, pieces []resolve.Piece, backends map[string]backend.Backend, parts [][]byte) error {
	eg, ctx := errgroup.WithContext(ctx)
	for i := range pieces {
		p := pieces[i]
		if p.Inline {
			continue
		}
		b := backends[p.Scheme]
		eg.Go(func() error {
			data, err := f.read(ctx, b, p)
			if err != nil {
				return err
			}
			parts[i] = data
			return nil
		})
	}
	return eg.Wait()
}

// sequential fetches remote pieces one after another.
func (f *Fetcher) sequential(ctx context.Context, pieces []resolve.Piece, backends map[string]backend.Backend, parts [][]byte) error {
	for i := range pieces {
		p := pieces[i]
		if p.Inline {
			continue
		}
		data, err := f.read(ctx, backends[p.Scheme], p)
		if err != nil {
			return err
		}
		parts[i] = data
	}
	return nil
}

// read performs one range read and checks its length.
func (f *Fetcher) read(ctx context.Context, b backend.Backend, p resolve.Piece) ([]byte, error) {
	if f.limit != nil {
		if err := f.limit.Acquire(ctx, 1); err != nil {
			return nil, &reftype.FetchError{URI: p.URI, Start: p.Start, End: p.End, Err: err}
		}
		defer f.limit.Release(1)
	}

	data, err := b.ReadRange(ctx, p.URI, p.Start, p.End)
	if err != nil {
		var fe *reftype.FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &reftype.FetchError{URI: p.URI, Start: p.Start, End: p.End, Err: err}
	}
	if uint64(len(data)) != p.Len() {
		return nil, &reftype.FetchError{
			URI:   p.URI,
			Start: p.Start,
			End:   p.End,
			Err:   fmt.Errorf("got %d bytes, want %d: %w", len(data), p.Len(), io.ErrUnexpectedEOF),
		}
	}
	return data, nil
}
