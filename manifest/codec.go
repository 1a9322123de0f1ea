package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/d70-t/preffs/internal/reftype"
	"github.com/d70-t/preffs/internal/sizing"
)

// Version is the table format version written by Encode.
const Version uint32 = 1

// DefaultMaxDecodedSize caps the size of a decompressed table (1GB).
const DefaultMaxDecodedSize = 1 << 30

// Format identifies a table encoding.
type Format uint8

const (
	FormatFlatBuffers Format = iota
	FormatCBOR
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatFlatBuffers:
		return "flatbuffers"
	case FormatCBOR:
		return "cbor"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format name as returned by Format.String.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "flatbuffers", "fb":
		return FormatFlatBuffers, nil
	case "cbor":
		return FormatCBOR, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("manifest: unknown format %q", name)
	}
}

// Compression identifies an outer compression frame.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// ParseCompression parses a compression name as returned by Compression.String.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("manifest: unknown compression %q", name)
	}
}

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// ErrTooLarge is returned when a decompressed table exceeds the size limit.
var ErrTooLarge = fmt.Errorf("manifest: decoded table too large: %w", reftype.ErrSizeOverflow)

type decodeConfig struct {
	maxDecodedSize uint64
}

// DecodeOption configures Decode.
type DecodeOption func(*decodeConfig)

// WithMaxDecodedSize limits the size of a decompressed table.
func WithMaxDecodedSize(n uint64) DecodeOption {
	return func(c *decodeConfig) {
		c.maxDecodedSize = n
	}
}

// Decode parses a reference table, detecting compression and encoding.
//
// Row shape is validated here; ordering and per-key consistency are checked
// when the table is indexed.
func Decode(data []byte, opts ...DecodeOption) ([]Record, error) {
	cfg := decodeConfig{maxDecodedSize: DefaultMaxDecodedSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := decompress(data, cfg.maxDecodedSize)
	if err != nil {
		return nil, err
	}
	switch DetectFormat(data) {
	case FormatFlatBuffers:
		return decodeFlatBuffers(data)
	case FormatCBOR:
		return decodeCBOR(data)
	default:
		return decodeYAML(data)
	}
}

// ReadFile reads and decodes the table stored at path.
func ReadFile(path string, opts ...DecodeOption) ([]Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	records, err := Decode(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return records, nil
}

// DetectFormat reports the encoding of uncompressed table bytes.
func DetectFormat(data []byte) Format {
	if isFlatBuffers(data) {
		return FormatFlatBuffers
	}
	if isCBOR(data) {
		return FormatCBOR
	}
	return FormatYAML
}

// Encode serializes records in the given format.
func Encode(records []Record, format Format) ([]byte, error) {
	switch format {
	case FormatFlatBuffers:
		return encodeFlatBuffers(records), nil
	case FormatCBOR:
		return encodeCBOR(records)
	case FormatYAML:
		return encodeYAML(records)
	default:
		return nil, fmt.Errorf("manifest: unknown format %d", format)
	}
}

// Compress wraps encoded table bytes in a compression frame.
func Compress(data []byte, c Compression) ([]byte, error) {
	var buf bytes.Buffer
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionZstd:
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			w.Close()
			return nil, fmt.Errorf("zstd compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("zstd compress: %w", err)
		}
	case CompressionLZ4:
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
	default:
		return nil, fmt.Errorf("manifest: unknown compression %d", c)
	}
	return buf.Bytes(), nil
}

// decompress strips one compression frame, if present.
func decompress(data []byte, limit uint64) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		out, err := sizing.ReadAtMost(dec, limit, ErrTooLarge)
		if err != nil {
			return nil, wrapDecompressErr("zstd", err)
		}
		return out, nil
	case bytes.HasPrefix(data, lz4Magic):
		out, err := sizing.ReadAtMost(lz4.NewReader(bytes.NewReader(data)), limit, ErrTooLarge)
		if err != nil {
			return nil, wrapDecompressErr("lz4", err)
		}
		return out, nil
	default:
		return data, nil
	}
}

func wrapDecompressErr(kind string, err error) error {
	if errors.Is(err, ErrTooLarge) {
		return err
	}
	return fmt.Errorf("%s decompress: %w", kind, err)
}

// rowError reports a row whose populated columns do not form a valid fragment.
func rowError(row int, key, reason string) error {
	return &reftype.IntegrityError{Key: key, Row: row, Reason: reason}
}
