// Package util holds small path, ordering and file helpers shared across the
// pipeline.
package util

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// NormalizePatternPath turns s into the slash-separated, root-relative form
// that glob patterns and relative paths are compared in.
func NormalizePatternPath(s string) string {
	clean := path.Clean(strings.TrimSpace(strings.ReplaceAll(s, "\\", "/")))
	if clean == "." {
		return ""
	}
	return strings.TrimPrefix(clean, "./")
}

// HasPathPrefix reports whether p is dir or lies below it.
func HasPathPrefix(p, dir string) bool {
	p, dir = NormalizePatternPath(p), NormalizePatternPath(dir)
	switch {
	case p == dir:
		return true
	case p == "" || dir == "":
		return false
	default:
		return strings.HasPrefix(p, dir+"/")
	}
}

// RelSlash returns target relative to root using forward slashes, or the
// normalized target when no relative path exists.
func RelSlash(root, target string) string {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return NormalizePatternPath(target)
	}
	return NormalizePatternPath(filepath.ToSlash(rel))
}

// PathDepth is the number of directories above a relative file path.
func PathDepth(p string) int {
	if p = NormalizePatternPath(p); p == "" {
		return 0
	}
	return strings.Count(p, "/")
}

func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ClampFloat bounds v to [lo, hi].
func ClampFloat(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

// WriteFileAtomic writes data to a temp file beside dest and renames it into
// place, creating parent directories as needed. Readers never observe a
// partially written digest.
func WriteFileAtomic(dest string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", dest, err)
	}
	name := tmp.Name()
	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(name, perm)
	}
	if werr == nil {
		werr = os.Rename(name, dest)
	}
	if werr != nil {
		_ = os.Remove(name)
		return fmt.Errorf("write %q: %w", dest, werr)
	}
	return nil
}
