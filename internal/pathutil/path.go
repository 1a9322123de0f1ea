// Package pathutil provides path manipulation for slash-separated logical keys.
//
// The namespace root is the empty string; every other directory is a key
// prefix without a trailing slash.
package pathutil

import (
	"path"
	"strings"
)

const globMeta = `*?[`

// Base returns the last element of key, "." for the root.
func Base(key string) string {
	if key == "" {
		return "."
	}
	return path.Base(key)
}

// DirPrefix returns the prefix shared by every key below dir.
func DirPrefix(dir string) string {
	if dir == "" {
		return ""
	}
	return dir + "/"
}

// ChildOf returns the full path of the entry directly below dir that
// contains key, and whether that entry is a directory. key must lie
// below dir.
func ChildOf(key, dir string) (child string, isDir bool) {
	prefix := DirPrefix(dir)
	rest := key[len(prefix):]
	name, _, isDir := strings.Cut(rest, "/")
	return prefix + name, isDir
}

// HasMeta reports whether pattern contains glob metacharacters.
func HasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, globMeta)
}

// LiteralPrefix returns the part of pattern before its first glob
// metacharacter.
func LiteralPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, globMeta); i >= 0 {
		return pattern[:i]
	}
	return pattern
}
