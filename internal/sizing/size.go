// Package sizing does overflow-checked arithmetic on fragment offsets and
// lengths, which the manifest stores as uint64.
package sizing

import (
	"io"
	"math"
	"math/bits"

	"github.com/d70-t/preffs/internal/reftype"
)

// Int narrows n to int. It fails with reftype.ErrSizeOverflow when n does
// not fit, which only happens on 32-bit platforms or with corrupt sizes.
func Int(n uint64) (int, error) {
	if n > math.MaxInt {
		return 0, reftype.ErrSizeOverflow
	}
	return int(n), nil
}

// Int64 narrows n to int64, failing with reftype.ErrSizeOverflow.
func Int64(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, reftype.ErrSizeOverflow
	}
	return int64(n), nil
}

// Add returns a+b and whether the sum did not wrap.
func Add(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// ReadAtMost reads r to EOF, failing with tooLarge once more than limit
// bytes have been produced. It bounds decompression output.
func ReadAtMost(r io.Reader, limit uint64, tooLarge error) ([]byte, error) {
	if limit >= math.MaxInt64 {
		return nil, tooLarge
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > limit {
		return nil, tooLarge
	}
	return data, nil
}
