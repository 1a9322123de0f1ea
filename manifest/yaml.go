package manifest

import (
	"encoding/base64"
	"fmt"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

type yamlRow struct {
	Key    string     `yaml:"key"`
	Path   *string    `yaml:"path,omitempty"`
	Offset *uint64    `yaml:"offset,omitempty"`
	Size   *uint64    `yaml:"size,omitempty"`
	Raw    *yamlBytes `yaml:"raw,omitempty"`
}

type yamlTable struct {
	Version   uint32    `yaml:"version"`
	Fragments []yamlRow `yaml:"fragments"`
}

// yamlBytes is a raw payload. Printable text is written as a plain string,
// anything else as a !!binary scalar.
type yamlBytes []byte

const binaryTag = "!!binary"

// MarshalYAML implements yaml.Marshaler.
func (b yamlBytes) MarshalYAML() (any, error) {
	if isPrintable(b) {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(b)}, nil
	}
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   binaryTag,
		Value: base64.StdEncoding.EncodeToString(b),
	}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *yamlBytes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: raw must be a scalar", node.Line)
	}
	if node.ShortTag() == binaryTag {
		data, err := base64.StdEncoding.DecodeString(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: invalid !!binary raw: %w", node.Line, err)
		}
		*b = append(yamlBytes{}, data...)
		return nil
	}
	*b = append(yamlBytes{}, node.Value...)
	return nil
}

func isPrintable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if !unicode.IsPrint(r) && r != '\n' && r != '\t' {
			return false
		}
	}
	return true
}

func decodeYAML(data []byte) ([]Record, error) {
	var table yamlTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("manifest: failed to parse yaml table: %w", err)
	}
	if table.Version > Version {
		return nil, fmt.Errorf("manifest: unsupported table version %d", table.Version)
	}

	records := make([]Record, 0, len(table.Fragments))
	for i, row := range table.Fragments {
		var raw []byte
		if row.Raw != nil {
			raw = []byte(*row.Raw)
		}
		rec, err := fromColumns(i, row.Key, row.Path, row.Offset, row.Size, raw, row.Raw != nil)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func encodeYAML(records []Record) ([]byte, error) {
	table := yamlTable{Version: Version, Fragments: make([]yamlRow, len(records))}
	for i := range records {
		r := &records[i]
		row := yamlRow{Key: r.Key}
		if r.Inline {
			raw := yamlBytes(r.Raw)
			row.Raw = &raw
		} else {
			path, offset, size := r.Path, r.Offset, r.Size
			row.Path, row.Offset, row.Size = &path, &offset, &size
		}
		table.Fragments[i] = row
	}
	data, err := yaml.Marshal(&table)
	if err != nil {
		return nil, fmt.Errorf("manifest: encode yaml table: %w", err)
	}
	return data, nil
}
