package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"ambiance/internal/core/errors"

	"github.com/gobwas/glob"
)

// Validate checks a defaulted config and returns a VALIDATION_ERROR naming
// the first offending field.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateLimits,
		validateAST,
		validateDedup,
		validateRelevance,
		validateExcludes,
		validateRedaction,
	} {
		if err := check(cfg); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "invalid configuration")
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateLimits(cfg *Config) error {
	if cfg.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must be >= 0, got %d", cfg.MaxFileSize)
	}
	if cfg.MaxTokensPerFile < 0 {
		return fmt.Errorf("max_tokens_per_file must be >= 0, got %d", cfg.MaxTokensPerFile)
	}
	if cfg.MaxTotalTokens < 0 {
		return fmt.Errorf("max_total_tokens must be >= 0, got %d", cfg.MaxTotalTokens)
	}
	if cfg.MaxConcurrentFiles < 1 {
		return fmt.Errorf("max_concurrent_files must be >= 1, got %d", cfg.MaxConcurrentFiles)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %s", cfg.Timeout)
	}
	if cfg.ReadsPerSecond < 0 {
		return fmt.Errorf("reads_per_second must be >= 0, got %v", cfg.ReadsPerSecond)
	}
	if len(cfg.SupportedLanguages) == 0 {
		return fmt.Errorf("supported_languages must not be empty")
	}
	return nil
}

func validateAST(cfg *Config) error {
	if cfg.AST.MaxFunctionBodyLines < 1 {
		return fmt.Errorf("ast.max_function_body_lines must be >= 1, got %d", cfg.AST.MaxFunctionBodyLines)
	}
	return nil
}

func validateDedup(cfg *Config) error {
	if cfg.Dedup.SimilarityThreshold < 0 || cfg.Dedup.SimilarityThreshold > 1 {
		return fmt.Errorf("dedup.similarity_threshold must be within [0,1], got %v", cfg.Dedup.SimilarityThreshold)
	}
	if cfg.Dedup.MaxAnnotationLocations < 1 {
		return fmt.Errorf("dedup.max_annotation_locations must be >= 1, got %d", cfg.Dedup.MaxAnnotationLocations)
	}
	w := cfg.Dedup.Weights
	if w.Name < 0 || w.Kind < 0 || w.Body < 0 || w.Overlap < 0 {
		return fmt.Errorf("dedup.weights must be non-negative")
	}
	return nil
}

func validateRelevance(cfg *Config) error {
	if cfg.Relevance.TaskType != "" && !slices.Contains(TaskTypes, cfg.Relevance.TaskType) {
		return fmt.Errorf("relevance.task_type must be one of %v, got %q", TaskTypes, cfg.Relevance.TaskType)
	}
	if cfg.Relevance.MaxTokens < 0 {
		return fmt.Errorf("relevance.max_tokens must be >= 0, got %d", cfg.Relevance.MaxTokens)
	}
	return nil
}

func validateExcludes(cfg *Config) error {
	for _, pattern := range cfg.Discovery.Exclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("discovery.exclude pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateRedaction(cfg *Config) error {
	r := cfg.Redaction
	if r.EntropyThreshold < 0 {
		return fmt.Errorf("redaction.entropy_threshold must be >= 0, got %v", r.EntropyThreshold)
	}
	if r.MinTokenLength < 0 {
		return fmt.Errorf("redaction.min_token_length must be >= 0, got %d", r.MinTokenLength)
	}
	for i, p := range r.Patterns {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("redaction.patterns[%d].name must not be empty", i)
		}
		if _, err := regexp.Compile(p.Regex); err != nil || strings.TrimSpace(p.Regex) == "" {
			return fmt.Errorf("redaction.patterns[%d] (%s) has an invalid regex %q", i, p.Name, p.Regex)
		}
	}
	return nil
}
