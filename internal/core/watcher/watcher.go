// Package watcher reports debounced batches of changed source files under a
// set of roots.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ambiance/internal/engine/discovery"
	"ambiance/internal/engine/parser"
	"ambiance/internal/shared/observability"
	"ambiance/internal/shared/util"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	debounce    time.Duration
	excludes    []glob.Glob
	ignoredDirs map[string]bool
	languages   map[parser.Language]bool
	skipTests   bool
	onChange    func([]string)
	callbackMu  sync.Mutex

	roots     []string
	pending   map[string]time.Time
	hashes    map[string]uint64
	pendingMu sync.Mutex
	timer     *time.Timer
}

// NewWatcher builds a watcher that calls onChange with the sorted paths
// changed during each quiet period of length debounce. Exclude patterns
// match the base name or the root-relative slash path.
func NewWatcher(debounce time.Duration, excludes []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiled := make([]glob.Glob, 0, len(excludes))
	for _, pattern := range excludes {
		g, err := glob.Compile(util.NormalizePatternPath(pattern), '/')
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ignored := make(map[string]bool, len(discovery.DefaultIgnoredDirs))
	for _, dir := range discovery.DefaultIgnoredDirs {
		ignored[dir] = true
	}

	return &Watcher{
		fsWatcher:   fsw,
		debounce:    debounce,
		excludes:    compiled,
		ignoredDirs: ignored,
		onChange:    onChange,
		pending:     make(map[string]time.Time),
		hashes:      make(map[string]uint64),
	}, nil
}

// SetLanguageFilters restricts events to files of the given languages. An
// empty list accepts every supported language.
func (w *Watcher) SetLanguageFilters(languages []parser.Language, includeTests bool) {
	filter := make(map[parser.Language]bool, len(languages))
	for _, lang := range languages {
		filter[lang] = true
	}
	w.languages = filter
	w.skipTests = !includeTests
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		w.roots = append(w.roots, abs)
		if err := w.watchRecursive(abs, true); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

// watchRecursive adds root and its subdirectories. With seed set, existing
// file digests are recorded so unchanged rewrites are ignored later.
func (w *Watcher) watchRecursive(root string, seed bool) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}
		if seed && !w.shouldExcludeFile(path) {
			w.remember(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name, false); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Remove == fsnotify.Remove, event.Op&fsnotify.Rename == fsnotify.Rename:
				w.forget(event.Name)
				w.scheduleChange(event.Name)
			case event.Op&fsnotify.Write == fsnotify.Write, event.Op&fsnotify.Create == fsnotify.Create:
				if w.contentChanged(event.Name) {
					w.scheduleChange(event.Name)
				}
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

// contentChanged reports whether path's content differs from the last seen
// digest. Unreadable files count as changed.
func (w *Watcher) contentChanged(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	sum := xxhash.Sum64(content)

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if prev, ok := w.hashes[path]; ok && prev == sum {
		return false
	}
	w.hashes[path] = sum
	return true
}

func (w *Watcher) remember(path string) {
	if content, err := os.ReadFile(path); err == nil {
		w.pendingMu.Lock()
		w.hashes[path] = xxhash.Sum64(content)
		w.pendingMu.Unlock()
	}
}

func (w *Watcher) forget(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	delete(w.hashes, path)
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		sort.Strings(paths)
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

func (w *Watcher) relPath(path string) string {
	for _, root := range w.roots {
		if util.HasPathPrefix(path, root) {
			return util.RelSlash(root, path)
		}
	}
	return filepath.ToSlash(path)
}

func (w *Watcher) matchesExclude(path string) bool {
	base := filepath.Base(path)
	rel := w.relPath(path)
	for _, g := range w.excludes {
		if g.Match(base) || g.Match(rel) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	if w.ignoredDirs[filepath.Base(path)] {
		return true
	}
	return w.matchesExclude(path)
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	lang, ok := parser.LanguageForPath(path)
	if !ok {
		return true
	}
	if len(w.languages) > 0 && !w.languages[lang] {
		return true
	}
	if w.skipTests && parser.IsTestFile(path) {
		return true
	}
	return w.matchesExclude(path)
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d == nil || d.IsDir() {
			return nil
		}
		if w.shouldExcludeFile(path) {
			return nil
		}
		if w.contentChanged(path) {
			w.scheduleChange(path)
		}
		return nil
	})
}

// Roots returns the absolute roots being watched.
func (w *Watcher) Roots() []string {
	return append([]string(nil), w.roots...)
}
