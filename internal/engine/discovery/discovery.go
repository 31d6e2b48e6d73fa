// Package discovery enumerates the source files a compaction run considers
// and orders them so entry points come first.
package discovery

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ambiance/internal/core/errors"
	"ambiance/internal/engine/parser"
	"ambiance/internal/shared/util"

	"github.com/gobwas/glob"
)

// FileInfo describes one candidate source file.
type FileInfo struct {
	AbsPath  string
	RelPath  string // slash-separated, relative to the discovery root
	Ext      string
	Size     int64
	Language parser.Language
	Priority int // lower sorts first
}

type Options struct {
	Root               string
	Languages          []parser.Language // empty means every supported language
	Exclude            []string
	MaxFileSize        int64
	RespectIgnoreFiles bool
	IncludeTests       bool
}

// DefaultIgnoredDirs are skipped regardless of configuration.
var DefaultIgnoredDirs = []string{
	"node_modules", ".git", "dist", "build", "vendor", "target",
	"__pycache__", ".venv", "coverage", ".next",
}

// IgnoreFiles are read from the root when RespectIgnoreFiles is set.
var IgnoreFiles = []string{".gitignore", ".ambianceignore"}

var entryPointNames = map[string]int{
	"index": 0, "main": 0, "__main__": 0,
	"app": 1, "server": 1, "cli": 1,
	"mod": 2, "lib": 2, "__init__": 2,
}

const defaultPriority = 10

var skippedSuffixes = []string{".min.js", ".min.mjs", ".bundle.js", ".d.ts.map"}

var lockFiles = map[string]bool{
	"package-lock.json": true, "yarn.lock": true, "pnpm-lock.yaml": true,
	"Cargo.lock": true, "poetry.lock": true, "go.sum": true,
}

// Walker implements file enumeration for the compaction controller.
type Walker struct{}

func (Walker) Discover(ctx context.Context, opts Options) ([]FileInfo, error) {
	return Discover(ctx, opts)
}

// Discover walks opts.Root and returns the eligible files in priority order.
// An empty result is reported as a NO_SUPPORTED_FILES error.
func Discover(ctx context.Context, opts Options) ([]FileInfo, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid root")
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "root does not exist"), errors.CtxPath, opts.Root)
	}
	if !info.IsDir() {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "root is not a directory"), errors.CtxPath, opts.Root)
	}

	patterns := append([]string(nil), opts.Exclude...)
	if opts.RespectIgnoreFiles {
		patterns = append(patterns, readIgnoreFiles(root)...)
	}
	excludes, err := compileGlobs(patterns)
	if err != nil {
		return nil, err
	}

	allowed := make(map[parser.Language]bool, len(opts.Languages))
	for _, lang := range opts.Languages {
		allowed[lang] = true
	}
	ignoredDirs := make(map[string]bool, len(DefaultIgnoredDirs))
	for _, dir := range DefaultIgnoredDirs {
		ignoredDirs[dir] = true
	}

	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel := util.RelSlash(root, path)
		base := d.Name()
		if d.IsDir() {
			if path == root {
				return nil
			}
			if ignoredDirs[base] || matchAny(excludes, base, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		lang, ok := parser.LanguageForPath(path)
		if !ok || (len(allowed) > 0 && !allowed[lang]) {
			return nil
		}
		if isGeneratedName(base) {
			return nil
		}
		if !opts.IncludeTests && parser.IsTestFile(path) {
			return nil
		}
		if matchAny(excludes, base, rel) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			slog.Debug("skipping file without stat", "path", path, "error", err)
			return nil
		}
		if opts.MaxFileSize > 0 && fi.Size() > opts.MaxFileSize {
			slog.Debug("skipping oversized file", "path", rel, "size", fi.Size())
			return nil
		}

		files = append(files, FileInfo{
			AbsPath:  path,
			RelPath:  rel,
			Ext:      strings.ToLower(filepath.Ext(path)),
			Size:     fi.Size(),
			Language: lang,
			Priority: Priority(rel),
		})
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "walk failed"), errors.CtxPath, opts.Root)
	}

	if len(files) == 0 {
		return nil, errors.AddContext(errors.New(errors.CodeNoSupportedFiles, "no supported files found"), errors.CtxPath, opts.Root)
	}

	Sort(files)
	return files, nil
}

// Sort orders files by priority, then depth, then relative path.
func Sort(files []FileInfo) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if da, db := util.PathDepth(a.RelPath), util.PathDepth(b.RelPath); da != db {
			return da < db
		}
		return a.RelPath < b.RelPath
	})
}

// Priority ranks a relative path: entry-point names first, test files last.
func Priority(rel string) int {
	base := filepath.Base(rel)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if p, ok := entryPointNames[strings.ToLower(stem)]; ok {
		return p
	}
	if parser.IsTestFile(rel) {
		return defaultPriority + 10
	}
	return defaultPriority
}

func isGeneratedName(base string) bool {
	if lockFiles[base] {
		return true
	}
	lower := strings.ToLower(base)
	for _, suffix := range skippedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.AddContext(
				errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid exclude pattern %q", p)),
				errors.CtxOperation, "discover")
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, base, rel string) bool {
	for _, g := range globs {
		if g.Match(base) || g.Match(rel) {
			return true
		}
	}
	return false
}

// readIgnoreFiles converts root-level ignore files into glob patterns.
// Negated entries are not supported and are dropped.
func readIgnoreFiles(root string) []string {
	var patterns []string
	for _, name := range IgnoreFiles {
		f, err := os.Open(filepath.Join(root, name))
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if strings.HasPrefix(line, "!") {
				slog.Debug("ignoring negated pattern", "file", name, "pattern", line)
				continue
			}
			patterns = append(patterns, ignoreLineToGlobs(line)...)
		}
		_ = f.Close()
	}
	return patterns
}

// ignoreLineToGlobs maps one gitignore-style line onto globs matched against
// the base name and the relative path.
func ignoreLineToGlobs(line string) []string {
	anchored := strings.HasPrefix(line, "/")
	line = strings.Trim(line, "/")
	if line == "" {
		return nil
	}
	if anchored || strings.Contains(line, "/") {
		return []string{line, line + "/**"}
	}
	return []string{line, "**/" + line, "**/" + line + "/**"}
}
