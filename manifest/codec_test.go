package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d70-t/preffs/internal/reftype"
)

func sampleRecords() []Record {
	return []Record{
		RemoteRecord("a/b", "/data/data.bin", 0, 4),
		RemoteRecord("a/b", "/data/data.bin", 6, 4),
		RemoteRecord("a/c", "s3://bucket/data.bin", 0, 10),
		InlineRecord("b", []byte("test")),
		InlineRecord("bin", []byte{0x00, 0xff, 0x10}),
		InlineRecord("empty", nil),
	}
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()

	formats := []Format{FormatFlatBuffers, FormatCBOR, FormatYAML}
	compressions := []Compression{CompressionNone, CompressionZstd, CompressionLZ4}

	for _, format := range formats {
		for _, c := range compressions {
			t.Run(format.String()+"/"+c.String(), func(t *testing.T) {
				t.Parallel()

				data, err := Encode(sampleRecords(), format)
				require.NoError(t, err)
				if c == CompressionNone {
					assert.Equal(t, format, DetectFormat(data))
				}
				data, err = Compress(data, c)
				require.NoError(t, err)

				got, err := Decode(data)
				require.NoError(t, err)
				require.Len(t, got, len(sampleRecords()))
				for i, want := range sampleRecords() {
					assert.Equal(t, want.Key, got[i].Key)
					assert.Equal(t, want.Inline, got[i].Inline)
					assert.Equal(t, want.Len(), got[i].Len())
					if want.Inline {
						assert.Equal(t, want.Raw, got[i].Raw)
					} else {
						assert.Equal(t, want.Path, got[i].Path)
						assert.Equal(t, want.Offset, got[i].Offset)
					}
				}
			})
		}
	}
}

func TestDecodeYAMLHandWritten(t *testing.T) {
	t.Parallel()

	doc := `
version: 1
fragments:
  - {key: a/b, path: /tmp/data.bin, offset: 0, size: 4}
  - {key: a/b, path: /tmp/data.bin, offset: 6, size: 4}
  - {key: b, raw: test}
  - {key: c, raw: !!binary AP8Q}
`
	got, err := Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, RemoteRecord("a/b", "/tmp/data.bin", 6, 4), got[1])
	assert.Equal(t, []byte("test"), got[2].Raw)
	assert.Equal(t, []byte{0x00, 0xff, 0x10}, got[3].Raw)
}

func TestDecodeRejectsMalformedRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"both variants", "fragments:\n  - {key: a, path: /x, offset: 0, size: 1, raw: x}\n"},
		{"neither variant", "fragments:\n  - {key: a}\n"},
		{"missing size", "fragments:\n  - {key: a, path: /x, offset: 0}\n"},
		{"offset without path", "fragments:\n  - {key: a, offset: 0, size: 1}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode([]byte(tt.doc))
			assert.ErrorIs(t, err, reftype.ErrManifestIntegrity)
		})
	}
}

func TestDecodeRejectsNewerVersion(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte("version: 99\nfragments: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported table version")
}

func TestDecodeMaxDecodedSize(t *testing.T) {
	t.Parallel()

	data, err := Encode(sampleRecords(), FormatYAML)
	require.NoError(t, err)
	data, err = Compress(data, CompressionZstd)
	require.NoError(t, err)

	_, err = Decode(data, WithMaxDecodedSize(8))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.ErrorIs(t, err, reftype.ErrSizeOverflow)
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	data, err := Encode(sampleRecords(), FormatCBOR)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "refs.cbor")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, len(sampleRecords()))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseNames(t *testing.T) {
	t.Parallel()

	f, err := ParseFormat("yml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("parquet")
	assert.Error(t, err)

	c, err := ParseCompression("zst")
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, c)
	_, err = ParseCompression("gzip")
	assert.Error(t, err)
}
