// Package pathsafe is the sole defense against directory traversal and
// absolute-path overwrite on the receive side of a transfer. Every
// incoming FileHeader.path MUST pass IsSafeRelativePath before any
// filesystem call touches it.
package pathsafe

import "strings"

// IsSafeRelativePath reports whether path is safe to join under a
// download directory: it must not be absolute, must not contain a NUL
// byte, and must not contain a ".." component. Empty strings and "."
// components are accepted — that permissiveness is a deliberate spec
// choice, not an oversight.
func IsSafeRelativePath(path string) bool {
	if strings.HasPrefix(path, "/") {
		return false
	}
	if strings.ContainsRune(path, 0) {
		return false
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
