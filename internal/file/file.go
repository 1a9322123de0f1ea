// Package file describes logical files and synthesized directories as
// fs.FileInfo values.
package file

import (
	"io/fs"
	"time"

	"github.com/d70-t/preffs/internal/sizing"
)

// Modes reported for logical entries. Everything in a manifest is read-only.
const (
	FileMode fs.FileMode = 0o444
	DirMode  fs.FileMode = fs.ModeDir | 0o555
)

// Info implements fs.FileInfo for both kinds of entry. Manifests carry no
// timestamps, so ModTime is always the zero time.
type Info struct {
	name string
	size int64
	mode fs.FileMode
}

var _ fs.FileInfo = (*Info)(nil)

// NewInfo describes a file of the given size.
func NewInfo(name string, size uint64) (*Info, error) {
	n, err := sizing.Int64(size)
	if err != nil {
		return nil, err
	}
	return &Info{name: name, size: n, mode: FileMode}, nil
}

// NewDirInfo describes a directory. Directories have size zero.
func NewDirInfo(name string) *Info {
	return &Info{name: name, mode: DirMode}
}

func (i *Info) Name() string { return i.name }

func (i *Info) Size() int64 { return i.size }

func (i *Info) Mode() fs.FileMode { return i.mode }

func (i *Info) ModTime() time.Time { return time.Time{} }

func (i *Info) IsDir() bool { return i.mode.IsDir() }

func (i *Info) Sys() any { return nil }
