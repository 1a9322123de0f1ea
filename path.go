package preffs

import "strings"

// NormalizePath converts a user-provided path to a logical key.
//
// Leading, trailing and repeated slashes are dropped, and "", "/" and "."
// all name the root, which is the empty key. Elements such as "." and ".."
// inside a path are kept; keys are matched literally.
func NormalizePath(p string) string {
	key := strings.Join(strings.FieldsFunc(p, isSlash), "/")
	if key == "." {
		return ""
	}
	return key
}

func isSlash(r rune) bool { return r == '/' }

// keyFromFSName maps an fs.FS name to a logical key.
func keyFromFSName(name string) string {
	if name == "." {
		return ""
	}
	return name
}
