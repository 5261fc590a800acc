package watcher

import (
	"path/filepath"
	"strings"
)

// Matches reports whether the base name of path matches any pattern.
// Matching is case-insensitive so "*.pdf" also accepts "SCAN.PDF".
func Matches(patterns []string, path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, pattern := range patterns {
		if ok, err := filepath.Match(strings.ToLower(pattern), name); err == nil && ok {
			return true
		}
	}
	return false
}
