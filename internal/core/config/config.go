package config

import (
	"time"
)

// Config is the full compaction configuration. Field names mirror the
// recognized compaction options; TOML and YAML keys use snake_case.
type Config struct {
	Version            int           `toml:"version" yaml:"version"`
	Root               string        `toml:"root" yaml:"root"`
	MaxFileSize        int64         `toml:"max_file_size" yaml:"max_file_size"`
	SupportedLanguages []string      `toml:"supported_languages" yaml:"supported_languages"`
	IncludeDocstrings  *bool         `toml:"include_docstrings" yaml:"include_docstrings"`
	MaxTokensPerFile   int           `toml:"max_tokens_per_file" yaml:"max_tokens_per_file"`
	MaxTotalTokens     int           `toml:"max_total_tokens" yaml:"max_total_tokens"`
	MaxConcurrentFiles int           `toml:"max_concurrent_files" yaml:"max_concurrent_files"`
	Timeout            time.Duration `toml:"timeout" yaml:"timeout"`
	ReadsPerSecond     float64       `toml:"reads_per_second" yaml:"reads_per_second"`
	Discovery          Discovery     `toml:"discovery" yaml:"discovery"`
	AST                AST           `toml:"ast" yaml:"ast"`
	Dedup              Dedup         `toml:"dedup" yaml:"dedup"`
	Relevance          Relevance     `toml:"relevance" yaml:"relevance"`
	History            History       `toml:"history" yaml:"history"`
	Redaction          Redaction     `toml:"redaction" yaml:"redaction"`
	Watch              Watch         `toml:"watch" yaml:"watch"`
	Observability      Observability `toml:"observability" yaml:"observability"`
}

type Discovery struct {
	Exclude            []string `toml:"exclude" yaml:"exclude"`
	RespectIgnoreFiles *bool    `toml:"respect_ignore_files" yaml:"respect_ignore_files"`
	IncludeTests       *bool    `toml:"include_tests" yaml:"include_tests"`
}

type AST struct {
	MaxFunctionBodyLines  int   `toml:"max_function_body_lines" yaml:"max_function_body_lines"`
	IncludePrivateMethods *bool `toml:"include_private_methods" yaml:"include_private_methods"`
	IncludeComments       bool  `toml:"include_comments" yaml:"include_comments"`
}

type Dedup struct {
	Enabled                      *bool             `toml:"enabled" yaml:"enabled"`
	EnableCrossFileDeduplication *bool             `toml:"enable_cross_file_deduplication" yaml:"enable_cross_file_deduplication"`
	SignatureDuplicates          bool              `toml:"signature_duplicates" yaml:"signature_duplicates"`
	SimilarityThreshold          float64           `toml:"similarity_threshold" yaml:"similarity_threshold"`
	PrioritizeExports            *bool             `toml:"prioritize_exports" yaml:"prioritize_exports"`
	MaxAnnotationLocations       int               `toml:"max_annotation_locations" yaml:"max_annotation_locations"`
	Weights                      SimilarityWeights `toml:"weights" yaml:"weights"`
}

// SimilarityWeights tune the fuzzy "find similar" blend. They do not affect
// duplicate collapse.
type SimilarityWeights struct {
	Name    float64 `toml:"name" yaml:"name"`
	Kind    float64 `toml:"kind" yaml:"kind"`
	Body    float64 `toml:"body" yaml:"body"`
	Overlap float64 `toml:"overlap" yaml:"overlap"`
}

type Relevance struct {
	Query          string   `toml:"query" yaml:"query"`
	TaskType       string   `toml:"task_type" yaml:"task_type"`
	MaxTokens      int      `toml:"max_tokens" yaml:"max_tokens"`
	FileHints      []string `toml:"file_hints" yaml:"file_hints"`
	SymbolHints    []string `toml:"symbol_hints" yaml:"symbol_hints"`
	PreferredKinds []string `toml:"preferred_kinds" yaml:"preferred_kinds"`
}

type History struct {
	Enabled    bool   `toml:"enabled" yaml:"enabled"`
	Path       string `toml:"path" yaml:"path"`
	ProjectKey string `toml:"project_key" yaml:"project_key"`
}

// Redaction masks credentials in compacted bodies and docstrings.
type Redaction struct {
	Enabled          *bool              `toml:"enabled" yaml:"enabled"`
	Entropy          *bool              `toml:"entropy" yaml:"entropy"`
	EntropyThreshold float64            `toml:"entropy_threshold" yaml:"entropy_threshold"`
	MinTokenLength   int                `toml:"min_token_length" yaml:"min_token_length"`
	Patterns         []RedactionPattern `toml:"patterns" yaml:"patterns"`
}

type RedactionPattern struct {
	Name     string `toml:"name" yaml:"name"`
	Regex    string `toml:"regex" yaml:"regex"`
	Severity string `toml:"severity" yaml:"severity"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce" yaml:"debounce"`
}

type Observability struct {
	OTLPEndpoint   string `toml:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `toml:"otlp_insecure" yaml:"otlp_insecure"`
	MetricsAddress string `toml:"metrics_address" yaml:"metrics_address"`
}

var TaskTypes = []string{"understand", "implement", "debug", "refactor", "test", "document"}

// Enabled reports the value of an optional flag, falling back to def when unset.
func Enabled(flag *bool, def bool) bool {
	if flag == nil {
		return def
	}
	return *flag
}

func boolPtr(v bool) *bool { return &v }

// HasRelevanceContext reports whether a query or task was configured, which
// switches the controller from "keep everything" to budgeted selection.
func (c *Config) HasRelevanceContext() bool {
	return c.Relevance.Query != "" || c.Relevance.TaskType != "" ||
		len(c.Relevance.FileHints) > 0 || len(c.Relevance.SymbolHints) > 0
}

// RelevanceBudget is the token budget handed to the relevance scorer.
func (c *Config) RelevanceBudget() int {
	if c.Relevance.MaxTokens > 0 {
		return c.Relevance.MaxTokens
	}
	return c.MaxTotalTokens
}
