package app

import (
	"time"

	"ambiance/internal/engine/dedup"
	"ambiance/internal/engine/parser"
	"ambiance/internal/engine/pruner"
	"ambiance/internal/engine/relevance"
	"ambiance/internal/engine/summarizer"
)

// State is the controller lifecycle position.
type State string

const (
	StateIdle          State = "idle"
	StateDiscovering   State = "discovering"
	StateParsing       State = "parsing"
	StatePruning       State = "pruning"
	StateDeduplicating State = "deduplicating"
	StateScoring       State = "scoring"
	StateSummarizing   State = "summarizing"
	StateAssembled     State = "assembled"
	StateFailed        State = "failed"
	StateDisposed      State = "disposed"
)

// Stage names used in FileError and metrics labels.
const (
	StageRead  = "read"
	StageParse = "parse"
)

// FileError is a recoverable per-file failure. The file is dropped from
// later stages; the run continues.
type FileError struct {
	Path    string `json:"path"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

type ProcessingStats struct {
	TotalFiles        int           `json:"total_files"`
	FilesProcessed    int           `json:"files_processed"`
	TotalSymbols      int           `json:"total_symbols"`
	SymbolsAfterDedup int           `json:"symbols_after_dedup"`
	DuplicatesRemoved int           `json:"duplicates_removed"`
	SecretsRedacted   int           `json:"secrets_redacted"`
	Duration          time.Duration `json:"duration"`
	Errors            []FileError   `json:"errors,omitempty"`
}

// CompactedProject is the result of one Compact call. It is not mutated
// after it is returned.
type CompactedProject struct {
	RunID            string                    `json:"run_id"`
	Root             string                    `json:"root"`
	Files            []*pruner.PrunedFile      `json:"files"`
	Summary          summarizer.ProjectSummary `json:"summary"`
	Stats            ProcessingStats           `json:"stats"`
	OriginalTokens   int                       `json:"original_tokens"`
	CompactedTokens  int                       `json:"compacted_tokens"`
	CompressionRatio float64                   `json:"compression_ratio"`
	// Selected is set only when a relevance query or task was configured.
	Selected  []relevance.ScoredSymbol `json:"selected,omitempty"`
	Selection *relevance.Selection     `json:"-"`
	Groups    []dedup.Group            `json:"-"`
}

// File looks up a compacted file by relative or absolute path.
func (p *CompactedProject) File(path string) *pruner.PrunedFile {
	for _, f := range p.Files {
		if f.RelPath == path || f.Path == path {
			return f
		}
	}
	return nil
}

type FileSummary struct {
	Path         string                `json:"path"`
	Language     parser.Language       `json:"language"`
	Purpose      string                `json:"purpose"`
	Complexity   summarizer.Complexity `json:"complexity"`
	TokenCount   int                   `json:"token_count"`
	SymbolCount  int                   `json:"symbol_count"`
	Exports      []string              `json:"exports"`
	Dependencies []string              `json:"dependencies"`
	KeySymbols   []string              `json:"key_symbols"`
}

// SymbolContext describes a symbol together with its surroundings.
type SymbolContext struct {
	Symbol     *pruner.PrunedSymbol  `json:"symbol"`
	File       string                `json:"file"`
	Purpose    string                `json:"purpose"`
	Complexity summarizer.Complexity `json:"complexity"`
	// Related are same-file symbols this one calls or extends.
	Related []string `json:"related"`
	// Dependents are files referencing this symbol.
	Dependents []string `json:"dependents"`
	// Duplicates are "path:line" locations folded into this symbol.
	Duplicates []string `json:"duplicates"`
}
