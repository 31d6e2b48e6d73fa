package ports

import (
	"context"
	"time"

	"ambiance/internal/data/history"
	"ambiance/internal/engine/discovery"
	"ambiance/internal/engine/parser"
)

// SyntaxEngine abstracts tree-sitter parsing. Parse never fails; problems
// are reported in ParseResult.Errors.
type SyntaxEngine interface {
	Parse(ctx context.Context, path string, content []byte) *parser.ParseResult
	Languages() []parser.Language
	// Close releases pooled parser instances and returns how many were freed.
	Close() int
}

// FileEnumerator abstracts the project walk.
type FileEnumerator interface {
	Discover(ctx context.Context, opts discovery.Options) ([]discovery.FileInfo, error)
}

// HistoryRecorder abstracts run persistence.
type HistoryRecorder interface {
	SaveRun(run history.Run) (history.Run, error)
	Close() error
}

// RunHistory is the read side used by the history command.
type RunHistory interface {
	HistoryRecorder
	LoadRuns(projectKey string, since time.Time) ([]history.Run, error)
}
