// Package resolve turns a (key, byte range) query into the ordered list of
// clipped fragment pieces that make up the requested bytes.
package resolve

import (
	"fmt"
	"iter"

	"github.com/d70-t/preffs/internal/index"
	"github.com/d70-t/preffs/internal/reftype"
)

// Range is a half-open byte range [Start, End) over a logical file.
// When HasEnd is false the range extends to the end of the file.
type Range struct {
	Start  uint64
	End    uint64
	HasEnd bool
}

// Full returns the range covering a whole file.
func Full() Range {
	return Range{}
}

// From returns the range [start, EOF).
func From(start uint64) Range {
	return Range{Start: start}
}

// Between returns the range [start, end).
func Between(start, end uint64) Range {
	return Range{Start: start, End: end, HasEnd: true}
}

// Piece is one clipped fragment of a resolved read.
//
// Inline pieces carry their bytes in Data. Remote pieces reference
// [Start, End) of the object at URI, served by the backend for Scheme.
type Piece struct {
	Inline bool
	Data   []byte

	URI    string
	Scheme string
	Start  uint64
	End    uint64
}

// Len returns the number of bytes the piece contributes.
func (p Piece) Len() uint64 {
	if p.Inline {
		return uint64(len(p.Data))
	}
	return p.End - p.Start
}

func (p Piece) String() string {
	if p.Inline {
		return fmt.Sprintf("inline(%d)", len(p.Data))
	}
	return fmt.Sprintf("%s[%d,%d)", p.URI, p.Start, p.End)
}

// Resolve returns the pieces of key that intersect r, in concatenation order.
//
// A missing key fails immediately with reftype.ErrNotFound. The returned
// sequence is lazy: fragments are clipped as they are consumed and the walk
// stops at the first fragment that starts at or after r.End. Ranges starting
// at or beyond the file length, and empty ranges, yield no pieces.
// Inline piece data aliases the index and must not be modified.
func Resolve(idx *index.Index, key string, r Range) (iter.Seq[Piece], error) {
	rows, ok := idx.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", key, reftype.ErrNotFound)
	}

	return func(yield func(Piece) bool) {
		var c uint64
		for i := range rows {
			row := &rows[i]
			s := row.Len()
			if r.Start >= c+s {
				c += s
				continue
			}
			if r.HasEnd && r.End <= c {
				return
			}

			lo := uint64(0)
			if r.Start > c {
				lo = r.Start - c
			}
			hi := s
			if r.HasEnd && r.End-c < s {
				hi = r.End - c
			}
			c += s
			if hi <= lo {
				continue
			}

			var p Piece
			if row.Inline {
				p = Piece{Inline: true, Data: row.Raw[lo:hi:hi]}
			} else {
				p = Piece{
					URI:    row.Path,
					Scheme: row.Scheme(),
					Start:  row.Offset + lo,
					End:    row.Offset + hi,
				}
			}
			if !yield(p) {
				return
			}
		}
	}, nil
}

// Collect resolves key and materializes the pieces.
func Collect(idx *index.Index, key string, r Range) ([]Piece, error) {
	seq, err := Resolve(idx, key, r)
	if err != nil {
		return nil, err
	}
	var pieces []Piece
	for p := range seq {
		pieces = append(pieces, p)
	}
	return pieces, nil
}

// Size returns the logical length of key.
func Size(idx *index.Index, key string) (uint64, error) {
	rows, ok := idx.Lookup(key)
	if !ok {
		return 0, fmt.Errorf("size %q: %w", key, reftype.ErrNotFound)
	}
	var total uint64
	for i := range rows {
		total += rows[i].Len()
	}
	return total, nil
}
