package preffs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/", ""},
		{".", ""},
		{"//", ""},
		{"a", "a"},
		{"/a/b", "a/b"},
		{"a/b/", "a/b"},
		{"a//b", "a/b"},
		{"///a///b///", "a/b"},
		{"a/./b", "a/./b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePath(tt.in), "NormalizePath(%q)", tt.in)
	}
}

func TestKeyFromFSName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", keyFromFSName("."))
	assert.Equal(t, "a/b", keyFromFSName("a/b"))
}
