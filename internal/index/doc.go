// Package index provides the immutable, key-sorted fragment table behind a
// preffs filesystem.
//
// Rows are sorted by key, so exact lookups and directory scans are binary
// searches followed by a contiguous walk. No secondary tree is kept: the
// directory hierarchy is derived from key ordering alone.
package index
