package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ambiance/internal/engine/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadPattern(t *testing.T) {
	_, err := NewWatcher(time.Millisecond, []string{"[unclosed"}, func([]string) {})
	require.Error(t, err)
}

func waitFor(t *testing.T, changes <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-changes:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, []string{"generated/**", "*.gen.ts"}, func(paths []string) {
		changedFiles <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))

	testFile := filepath.Join(tmpDir, "index.ts")
	require.NoError(t, os.WriteFile(testFile, []byte("export const a = 1;\n"), 0o644))
	waitFor(t, changedFiles, testFile, 2*time.Second)

	excluded := filepath.Join(tmpDir, "api.gen.ts")
	unsupported := filepath.Join(tmpDir, "notes.txt")
	require.NoError(t, os.WriteFile(excluded, []byte("export const b = 2;\n"), 0o644))
	require.NoError(t, os.WriteFile(unsupported, []byte("hello"), 0o644))

	select {
	case paths := <-changedFiles:
		for _, p := range paths {
			if p == excluded || p == unsupported {
				t.Errorf("excluded file triggered event: %s", p)
			}
		}
	case <-time.After(500 * time.Millisecond):
	}

	// New directories are watched once created.
	subdir := filepath.Join(tmpDir, "lib")
	require.NoError(t, os.MkdirAll(subdir, 0o755))
	subFile := filepath.Join(subdir, "nested.py")
	require.NoError(t, os.WriteFile(subFile, []byte("def f():\n    pass\n"), 0o644))
	waitFor(t, changedFiles, subFile, 2*time.Second)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, nil, func(paths []string) {
		changedFiles <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))

	oldPath := filepath.Join(tmpDir, "old.go")
	newPath := filepath.Join(tmpDir, "new.go")
	require.NoError(t, os.WriteFile(oldPath, []byte("package main"), 0o644))
	require.NoError(t, os.Rename(oldPath, newPath))

	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == oldPath || p == newPath {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for rename event, old=%s new=%s", oldPath, newPath)
		}
	}
}

func TestWatcher_UnchangedContentIsIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "main.go")
	content := []byte("package main\nfunc main() {}\n")
	require.NoError(t, os.WriteFile(target, content, 0o644))

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, nil, func(paths []string) {
		changedFiles <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))

	require.NoError(t, os.WriteFile(target, content, 0o644))
	select {
	case paths := <-changedFiles:
		t.Fatalf("rewrite with identical content triggered %v", paths)
	case <-time.After(400 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(target, append(content, []byte("// edit\n")...), 0o644))
	waitFor(t, changedFiles, target, 2*time.Second)
}

func TestWatcher_Filters(t *testing.T) {
	tmpDir := t.TempDir()
	w, err := NewWatcher(10*time.Millisecond, []string{"scripts/*"}, func([]string) {})
	require.NoError(t, err)
	defer w.Close()
	w.roots = []string{tmpDir}

	w.SetLanguageFilters([]parser.Language{parser.LangGo}, false)

	cases := []struct {
		path    string
		exclude bool
	}{
		{"main.go", false},
		{"main.py", true},
		{"main_test.go", true},
		{"README.md", true},
		{"scripts/build.go", true},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.exclude, w.shouldExcludeFile(filepath.Join(tmpDir, tc.path)))
		})
	}

	assert.True(t, w.shouldExcludeDir(filepath.Join(tmpDir, "node_modules")))
	assert.False(t, w.shouldExcludeDir(filepath.Join(tmpDir, "src")))
}
