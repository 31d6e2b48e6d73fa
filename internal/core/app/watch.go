package app

import (
	"context"
	"log/slog"

	"ambiance/internal/core/config"
	"ambiance/internal/core/errors"
	"ambiance/internal/core/watcher"
)

// Watch recompacts the root whenever supported files change and reports
// each result to onResult. It blocks until ctx is done.
func (c *Compactor) Watch(ctx context.Context, onResult func(*CompactedProject, error)) error {
	if onResult == nil {
		return errors.New(errors.CodeValidationError, "watch callback is required")
	}
	w, err := watcher.NewWatcher(c.cfg.Watch.Debounce, c.cfg.Discovery.Exclude, func(paths []string) {
		if ctx.Err() != nil {
			return
		}
		slog.Info("change detected, recompacting", "files", len(paths))
		onResult(c.Compact(ctx))
	})
	if err != nil {
		return err
	}
	w.SetLanguageFilters(c.engine.Languages(), config.Enabled(c.cfg.Discovery.IncludeTests, true))
	if err := w.Watch([]string{c.cfg.Root}); err != nil {
		_ = w.Close()
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			slog.Warn("failed to close watcher", "error", err)
		}
	}()

	<-ctx.Done()
	return nil
}
