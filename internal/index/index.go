package index

import (
	"fmt"
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/d70-t/preffs/internal/reftype"
	"github.com/d70-t/preffs/internal/sizing"
	"github.com/d70-t/preffs/manifest"
)

const (
	// Separator splits logical keys into path segments.
	Separator = "/"

	// sentinel is the character that sorts immediately after Separator.
	// [dir+"/", dir+"0") bounds every key below dir as long as no key uses a
	// character in between ('/' is 0x2f, '0' is 0x30, so there is none in
	// ASCII). Keys are compared bytewise, so this is a charset assumption on
	// the separator neighbourhood, not a general Unicode-aware bound.
	sentinel = "0"
)

// Index provides access to manifest rows.
//
// Rows are sorted by key and rows sharing a key are stored contiguously in
// concatenation order. An Index never changes after Load and is safe for
// concurrent use. Slices returned by accessors alias the index and must be
// treated as read-only.
type Index struct {
	records []manifest.Record
}

// Load builds an index over records.
//
// Load fails with an error matching reftype.ErrManifestIntegrity if the rows
// are not sorted by key, if a key mixes inline and remote rows, if the remote
// rows of a key reference more than one backend scheme, or if a remote range
// or the summed size of a key overflows. The records slice is copied; the Raw
// payloads are retained.
func Load(records []manifest.Record) (*Index, error) {
	owned := slices.Clone(records)
	if err := validate(owned); err != nil {
		return nil, err
	}
	return &Index{records: owned}, nil
}

func validate(records []manifest.Record) error {
	var total uint64
	for i := range records {
		r := &records[i]
		if !r.Inline {
			if _, ok := sizing.Add(r.Offset, r.Size); !ok {
				return &reftype.IntegrityError{Key: r.Key, Row: i, Reason: "offset+size overflows"}
			}
		}
		if i == 0 || records[i-1].Key != r.Key {
			total = 0
		}
		var ok bool
		if total, ok = sizing.Add(total, r.Len()); !ok {
			return &reftype.IntegrityError{Key: r.Key, Row: i, Reason: "key size overflows"}
		}
		if i == 0 {
			continue
		}
		prev := &records[i-1]
		switch {
		case prev.Key > r.Key:
			return &reftype.IntegrityError{
				Key:    r.Key,
				Row:    i,
				Reason: fmt.Sprintf("table not sorted: key follows %q", prev.Key),
			}
		case prev.Key != r.Key:
			continue
		case prev.Inline != r.Inline:
			return &reftype.IntegrityError{Key: r.Key, Row: i, Reason: "key mixes inline and remote fragments"}
		case !r.Inline && prev.Scheme() != r.Scheme():
			return &reftype.IntegrityError{
				Key:    r.Key,
				Row:    i,
				Reason: fmt.Sprintf("key mixes backend schemes %q and %q", prev.Scheme(), r.Scheme()),
			}
		}
	}
	return nil
}

// Len returns the number of rows in the index.
func (idx *Index) Len() int {
	return len(idx.records)
}

// search returns the position of the first row whose key is >= key.
func (idx *Index) search(key string) int {
	return sort.Search(len(idx.records), func(i int) bool {
		return idx.records[i].Key >= key
	})
}

// Lookup returns the rows of key in concatenation order.
// ok is false if the key has no rows.
func (idx *Index) Lookup(key string) (rows []manifest.Record, ok bool) {
	start := idx.search(key)
	end := start
	for end < len(idx.records) && idx.records[end].Key == key {
		end++
	}
	if start == end {
		return nil, false
	}
	return idx.records[start:end:end], true
}

// PrefixRange returns every row whose key lies below dir.
//
// For a non-empty dir this is the key range [dir+"/", dir+"0"); for "" it is
// the whole table.
func (idx *Index) PrefixRange(dir string) []manifest.Record {
	if dir == "" {
		return idx.records[:len(idx.records):len(idx.records)]
	}
	start := idx.search(dir + Separator)
	end := idx.search(dir + sentinel)
	return idx.records[start:end:end]
}

// IsFile reports whether key has at least one row.
func (idx *Index) IsFile(key string) bool {
	i := idx.search(key)
	return i < len(idx.records) && idx.records[i].Key == key
}

// IsDir reports whether any key lies below dir.
func (idx *Index) IsDir(dir string) bool {
	return len(idx.PrefixRange(dir)) > 0
}

// Keys returns an iterator over the distinct keys that start with prefix,
// in table order.
func (idx *Index) Keys(prefix string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var last string
		seen := false
		for i := idx.search(prefix); i < len(idx.records); i++ {
			key := idx.records[i].Key
			if !strings.HasPrefix(key, prefix) {
				return
			}
			if seen && key == last {
				continue
			}
			last, seen = key, true
			if !yield(key) {
				return
			}
		}
	}
}
