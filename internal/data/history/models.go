package history

import "time"

const SchemaVersion = 2

// Run is one persisted compaction run.
type Run struct {
	ID                string        `json:"id"`
	ProjectKey        string        `json:"project_key"`
	Timestamp         time.Time     `json:"timestamp"`
	Root              string        `json:"root"`
	TotalFiles        int           `json:"total_files"`
	FilesProcessed    int           `json:"files_processed"`
	TotalSymbols      int           `json:"total_symbols"`
	SymbolsAfterDedup int           `json:"symbols_after_dedup"`
	DuplicatesRemoved int           `json:"duplicates_removed"`
	OriginalTokens    int           `json:"original_tokens"`
	CompactedTokens   int           `json:"compacted_tokens"`
	CompressionRatio  float64       `json:"compression_ratio"`
	Duration          time.Duration `json:"duration"`
	SecretsRedacted   int           `json:"secrets_redacted"`
	ErrorCount        int           `json:"error_count"`
	Query             string        `json:"query,omitempty"`
	TaskType          string        `json:"task_type,omitempty"`
}

type TrendPoint struct {
	Timestamp         time.Time `json:"timestamp"`
	RunID             string    `json:"run_id"`
	FilesProcessed    int       `json:"files_processed"`
	SymbolsAfterDedup int       `json:"symbols_after_dedup"`
	CompactedTokens   int       `json:"compacted_tokens"`
	CompressionRatio  float64   `json:"compression_ratio"`
	DeltaFiles        int       `json:"delta_files"`
	DeltaSymbols      int       `json:"delta_symbols"`
	DeltaTokens       int       `json:"delta_tokens"`
	TokenGrowthPct    float64   `json:"token_growth_pct"`
	AvgCompression    float64   `json:"avg_compression"`
	AvgDurationMillis float64   `json:"avg_duration_ms"`
	WindowHours       float64   `json:"window_hours"`
}

type TrendReport struct {
	SchemaVersion int          `json:"schema_version"`
	ProjectKey    string       `json:"project_key"`
	Since         time.Time    `json:"since"`
	Until         time.Time    `json:"until"`
	Window        string       `json:"window"`
	RunCount      int          `json:"run_count"`
	Points        []TrendPoint `json:"points"`
}
