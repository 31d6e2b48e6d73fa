package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePatternPath(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		".":                 "",
		"  ./src/app.ts  ":  "src/app.ts",
		"lib/../pkg/x.go":   "pkg/x.go",
		`src\core\index.ts`: "src/core/index.ts",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizePatternPath(in), "input %q", in)
	}
}

func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		path, dir string
		want      bool
	}{
		{"src/api", "src/api", true},
		{"src/api/users.ts", "src/api", true},
		{"src/apis/users.ts", "src/api", false},
		{"src", "src/api", false},
		{`src\api\users.ts`, "src/api", true},
		{"", "", true},
		{"src", "", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, HasPathPrefix(tc.path, tc.dir), "%q under %q", tc.path, tc.dir)
	}
}

func TestRelSlashAndDepth(t *testing.T) {
	root := filepath.Join("work", "repo")
	rel := RelSlash(root, filepath.Join(root, "pkg", "auth", "token.go"))
	assert.Equal(t, "pkg/auth/token.go", rel)
	assert.Equal(t, 2, PathDepth(rel))
	assert.Equal(t, 0, PathDepth("main.go"))
	assert.Equal(t, 0, PathDepth("./"))
}

func TestSortedStringKeys(t *testing.T) {
	assert.Equal(t, []string{"go", "python", "rust"}, SortedStringKeys(map[string]bool{"rust": true, "go": true, "python": false}))
	assert.Empty(t, SortedStringKeys(map[string]int{}))
}

func TestClampFloat(t *testing.T) {
	assert.Equal(t, 100.0, ClampFloat(140, 0, 100))
	assert.Equal(t, 0.0, ClampFloat(-2, 0, 100))
	assert.Equal(t, 37.5, ClampFloat(37.5, 0, 100))
}

func TestWriteFileAtomic(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out", "digest.md")

	require.NoError(t, WriteFileAtomic(dest, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(dest, []byte("second"), 0o600))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestWriteFileAtomic_DestinationIsDirectory(t *testing.T) {
	dest := t.TempDir()
	require.Error(t, WriteFileAtomic(dest, []byte("x"), 0o644))
}
