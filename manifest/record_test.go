package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScheme(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"/tmp/data.bin", "file"},
		{"relative/data.bin", "file"},
		{"file:///tmp/data.bin", "file"},
		{"s3://bucket/key", "s3"},
		{"HTTPS://example.com/x", "https"},
		{"oci://ghcr.io/org/repo@sha256:abc", "oci"},
		{"://missing", "file"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, Scheme(tt.uri))
		})
	}
}

func TestRecordLenAndScheme(t *testing.T) {
	inline := InlineRecord("b", []byte("test"))
	assert.Equal(t, uint64(4), inline.Len())
	assert.Empty(t, inline.Scheme())

	remote := RemoteRecord("a", "s3://b/k", 100, 7)
	assert.Equal(t, uint64(7), remote.Len())
	assert.Equal(t, "s3", remote.Scheme())

	empty := InlineRecord("e", nil)
	assert.NotNil(t, empty.Raw)
	assert.Zero(t, empty.Len())
}

func TestSortStableKeepsFragmentOrder(t *testing.T) {
	records := []Record{
		RemoteRecord("b", "/x", 0, 1),
		RemoteRecord("a", "/x", 10, 1),
		RemoteRecord("b", "/x", 5, 1),
		RemoteRecord("a", "/x", 2, 1),
	}
	SortStable(records)

	var got []uint64
	for _, r := range records {
		got = append(got, r.Offset)
	}
	assert.Equal(t, []uint64{10, 2, 0, 5}, got)
}
