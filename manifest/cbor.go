package manifest

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// wireRow is the CBOR shape of one table row. Presence of each column is
// significant, so every optional column is a pointer.
type wireRow struct {
	Key    string  `cbor:"key"`
	Path   *string `cbor:"path,omitempty"`
	Offset *uint64 `cbor:"offset,omitempty"`
	Size   *uint64 `cbor:"size,omitempty"`
	Raw    *[]byte `cbor:"raw,omitempty"`
}

type wireTable struct {
	Version   uint32    `cbor:"version"`
	Fragments []wireRow `cbor:"fragments"`
}

// isCBOR reports whether data starts with a CBOR map or array header.
// Such bytes are never valid leading UTF-8, so YAML text cannot match.
func isCBOR(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	major := data[0] >> 5
	return major == 4 || major == 5
}

func decodeCBOR(data []byte) ([]Record, error) {
	var table wireTable
	if err := cbor.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("manifest: failed to parse cbor table: %w", err)
	}
	if table.Version > Version {
		return nil, fmt.Errorf("manifest: unsupported table version %d", table.Version)
	}

	records := make([]Record, 0, len(table.Fragments))
	for i, row := range table.Fragments {
		var raw []byte
		if row.Raw != nil {
			raw = *row.Raw
		}
		rec, err := fromColumns(i, row.Key, row.Path, row.Offset, row.Size, raw, row.Raw != nil)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func encodeCBOR(records []Record) ([]byte, error) {
	table := wireTable{Version: Version, Fragments: make([]wireRow, len(records))}
	for i := range records {
		r := &records[i]
		row := wireRow{Key: r.Key}
		if r.Inline {
			raw := r.Raw
			if raw == nil {
				raw = []byte{}
			}
			row.Raw = &raw
		} else {
			path, offset, size := r.Path, r.Offset, r.Size
			row.Path, row.Offset, row.Size = &path, &offset, &size
		}
		table.Fragments[i] = row
	}
	data, err := cbor.Marshal(table)
	if err != nil {
		return nil, fmt.Errorf("manifest: encode cbor table: %w", err)
	}
	return data, nil
}

// fromColumns builds a record from the nullable table columns.
// Exactly one of {path, offset, size} or {raw} must be populated.
func fromColumns(row int, key string, path *string, offset, size *uint64, raw []byte, hasRaw bool) (Record, error) {
	remote := path != nil || offset != nil || size != nil
	switch {
	case hasRaw && remote:
		return Record{}, rowError(row, key, "row sets both raw and path/offset/size")
	case hasRaw:
		return InlineRecord(key, raw), nil
	case path == nil || offset == nil || size == nil:
		return Record{}, rowError(row, key, "remote row needs path, offset and size")
	default:
		return RemoteRecord(key, *path, *offset, *size), nil
	}
}
