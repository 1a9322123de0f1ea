// Command preffs reads files out of a reference manifest.
//
// Usage:
//
//	preffs -m refs.yaml ls a
//	preffs -m refs.yaml cat a/b > b.bin
//	preffs -m refs.yaml cat --start 4 --end 8 a/b
//	preffs convert refs.yaml refs.pref --format flatbuffers --compress zstd
package main

import (
	"os"

	"github.com/d70-t/preffs/cmd/preffs/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
