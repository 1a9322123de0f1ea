// Package manifest reads and writes preffs reference tables.
//
// A reference table lists, per logical key, the ordered fragments that make up
// the key's virtual file. Each row is either inline bytes or a byte range of an
// external object addressed by URI:
//
//	| key | path | offset | size | raw |
//
// Either (path, offset, size) or raw is set on a row. Rows are sorted by key;
// rows sharing a key are contiguous and concatenated in table order.
//
// Tables can be persisted as FlatBuffers (the native encoding), CBOR, or YAML,
// optionally wrapped in zstd or lz4 frames. [Decode] detects the encoding from
// the content.
package manifest
