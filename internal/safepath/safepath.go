// Package safepath validates destination paths from untrusted sources.
//
// Batch manifests name local destination paths; a hostile manifest must not
// be able to direct output outside the directory the user chose. Check
// rejects the escape vectors: absolute paths, parent traversal components,
// Windows volume or UNC prefixes, and null bytes.
package safepath

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Azzadd/fetchmeter/core"
)

// Check reports whether path is safe to join under a base directory.
// The empty path is allowed; callers decide what it means.
func Check(path string) error {
	if path == "" {
		return nil
	}

	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("%w: null byte in %q", core.ErrUnsafePath, path)
	}

	if isAbsolute(path) {
		return fmt.Errorf("%w: absolute path %q", core.ErrUnsafePath, path)
	}

	if containsTraversal(path) {
		return fmt.Errorf("%w: parent traversal in %q", core.ErrUnsafePath, path)
	}

	return nil
}

// isAbsolute reports absolute paths for any platform's conventions, not
// just the host's: archives and manifests written on one OS are consumed
// on another.
func isAbsolute(path string) bool {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return true
	}
	// Windows volume names ("C:...") count as absolute regardless of what
	// follows the colon; drive-relative paths escape the base directory too.
	if len(path) >= 2 && path[1] == ':' && isASCIILetter(path[0]) {
		return true
	}
	return filepath.IsAbs(path)
}

// containsTraversal reports whether any path component is "..", treating
// both slash and backslash as separators.
func containsTraversal(path string) bool {
	normalized := strings.ReplaceAll(path, "\\", "/")
	for _, part := range strings.Split(normalized, "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
