package manifest

import (
	"bytes"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/d70-t/preffs/internal/fb"
)

func isFlatBuffers(data []byte) bool {
	return len(data) >= 8 && fb.ManifestBufferHasIdentifier(data)
}

// decodeFlatBuffers converts a FlatBuffers table into records.
// Malformed buffers make the generated accessors panic; that is reported
// as a parse error.
func decodeFlatBuffers(data []byte) (records []Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("manifest: failed to parse flatbuffers table: %v", r)
		}
	}()

	root := fb.GetRootAsManifest(data, 0)
	if v := root.Version(); v > Version {
		return nil, fmt.Errorf("manifest: unsupported table version %d", v)
	}

	n := root.FragmentsLength()
	records = make([]Record, 0, n)
	var frag fb.Fragment
	for i := range n {
		if !root.Fragments(&frag, i) {
			return nil, fmt.Errorf("manifest: missing fragment %d", i)
		}
		key := string(frag.Key())
		raw := frag.RawBytes()
		path := frag.Path()
		switch {
		case raw != nil && path != nil:
			return nil, rowError(i, key, "row sets both raw and path")
		case raw != nil:
			records = append(records, Record{Key: key, Raw: bytes.Clone(raw), Inline: true})
		case path != nil:
			records = append(records, RemoteRecord(key, string(path), frag.Offset(), frag.Size()))
		default:
			return nil, rowError(i, key, "row sets neither raw nor path")
		}
	}
	return records, nil
}

func encodeFlatBuffers(records []Record) []byte {
	b := flatbuffers.NewBuilder(1024)

	offsets := make([]flatbuffers.UOffsetT, len(records))
	for i := range records {
		r := &records[i]
		key := b.CreateString(r.Key)
		var payload flatbuffers.UOffsetT
		if r.Inline {
			payload = b.CreateByteVector(r.Raw)
		} else {
			payload = b.CreateString(r.Path)
		}

		fb.FragmentStart(b)
		fb.FragmentAddKey(b, key)
		if r.Inline {
			fb.FragmentAddRaw(b, payload)
		} else {
			fb.FragmentAddPath(b, payload)
			fb.FragmentAddOffset(b, r.Offset)
			fb.FragmentAddSize(b, r.Size)
		}
		offsets[i] = fb.FragmentEnd(b)
	}

	fb.ManifestStartFragmentsVector(b, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		b.PrependUOffsetT(offsets[i])
	}
	fragments := b.EndVector(len(offsets))

	fb.ManifestStart(b)
	fb.ManifestAddVersion(b, Version)
	fb.ManifestAddFragments(b, fragments)
	fb.FinishManifestBuffer(b, fb.ManifestEnd(b))
	return b.FinishedBytes()
}
