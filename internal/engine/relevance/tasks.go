package relevance

import (
	"regexp"
	"strings"

	"ambiance/internal/engine/dedup"
	"ambiance/internal/engine/parser"
)

type TaskType string

const (
	TaskUnderstand TaskType = "understand"
	TaskImplement  TaskType = "implement"
	TaskDebug      TaskType = "debug"
	TaskRefactor   TaskType = "refactor"
	TaskTest       TaskType = "test"
	TaskDocument   TaskType = "document"
)

// Weights combine the sub-scores into the composite total.
type Weights struct {
	Relevance  float64
	Context    float64
	Quality    float64
	Importance float64
}

var DefaultWeights = Weights{Relevance: 0.4, Context: 0.25, Quality: 0.15, Importance: 0.2}

var taskWeights = map[TaskType]Weights{
	TaskUnderstand: {Relevance: 0.35, Context: 0.3, Quality: 0.15, Importance: 0.2},
	TaskImplement:  {Relevance: 0.4, Context: 0.2, Quality: 0.2, Importance: 0.2},
	TaskDebug:      {Relevance: 0.45, Context: 0.3, Quality: 0.1, Importance: 0.15},
	TaskRefactor:   {Relevance: 0.3, Context: 0.2, Quality: 0.35, Importance: 0.15},
	TaskTest:       {Relevance: 0.4, Context: 0.25, Quality: 0.2, Importance: 0.15},
	TaskDocument:   {Relevance: 0.35, Context: 0.2, Quality: 0.15, Importance: 0.3},
}

// WeightsFor returns the composite weights of task, or the defaults.
func WeightsFor(task TaskType) Weights {
	if w, ok := taskWeights[task]; ok {
		return w
	}
	return DefaultWeights
}

const maxTaskReward = 25.0

var (
	errorHandlingPattern = regexp.MustCompile(`\b(catch|except|throw|raise|panic|try)\b|err != nil|Err\(|Result<`)
	validationPattern    = regexp.MustCompile(`(?i)(validat|check|assert|verify|ensure|guard)`)
	loggingPattern       = regexp.MustCompile(`(?i)\b(log|logger|console|slog|print)\b`)
	factoryPattern       = regexp.MustCompile(`(?i)^(create|new|make|build|init)`)
	testNamePattern      = regexp.MustCompile(`(?i)(test|spec|mock|fixture|fake|stub)`)
	assertionPattern     = regexp.MustCompile(`\b(assert\w*|expect|require\.\w+|should)\b`)
)

// taskRule awards points when match holds for a symbol.
type taskRule struct {
	reason string
	points float64
	match  func(sym dedup.HashedSymbol) bool
}

var taskRules = map[TaskType][]taskRule{
	TaskUnderstand: {
		{"documented", 10, func(s dedup.HashedSymbol) bool { return s.Docstring != "" }},
		{"type definition", 8, func(s dedup.HashedSymbol) bool { return s.Kind.IsTypeDefinition() }},
		{"central symbol", 7, func(s dedup.HashedSymbol) bool { return len(s.Relationships) >= 5 }},
		{"public surface", 5, func(s dedup.HashedSymbol) bool { return s.Exported }},
	},
	TaskImplement: {
		{"exported function", 10, func(s dedup.HashedSymbol) bool { return s.Exported && s.Kind.IsCallable() }},
		{"factory", 8, func(s dedup.HashedSymbol) bool { return factoryPattern.MatchString(s.Name) }},
		{"type definition", 7, func(s dedup.HashedSymbol) bool { return s.Kind.IsTypeDefinition() }},
		{"interface", 5, func(s dedup.HashedSymbol) bool { return s.Kind == parser.KindInterface }},
	},
	TaskDebug: {
		{"error handling", 12, hasErrorHandling},
		{"validation", 8, func(s dedup.HashedSymbol) bool { return validationPattern.MatchString(s.Name) }},
		{"logging", 5, func(s dedup.HashedSymbol) bool { return loggingPattern.MatchString(s.Body) }},
	},
	TaskRefactor: {
		{"long body", 10, func(s dedup.HashedSymbol) bool { return s.LineCount() > 20 }},
		{"duplicated", 8, func(s dedup.HashedSymbol) bool { return s.DuplicateCount > 1 }},
		{"many parameters", 7, func(s dedup.HashedSymbol) bool { return len(s.Parameters) >= 4 }},
	},
	TaskTest: {
		{"test-related name", 12, func(s dedup.HashedSymbol) bool {
			return testNamePattern.MatchString(s.Name) || testNamePattern.MatchString(s.FilePath)
		}},
		{"exported function", 8, func(s dedup.HashedSymbol) bool { return s.Exported && s.Kind.IsCallable() }},
		{"assertions", 5, func(s dedup.HashedSymbol) bool { return assertionPattern.MatchString(s.Body) }},
	},
	TaskDocument: {
		{"undocumented public symbol", 15, func(s dedup.HashedSymbol) bool { return s.Exported && s.Docstring == "" }},
		{"public type", 10, func(s dedup.HashedSymbol) bool { return s.Exported && s.Kind.IsTypeDefinition() }},
	},
}

// taskReward sums the matching rules of task, capped at maxTaskReward.
func taskReward(task TaskType, sym dedup.HashedSymbol) (float64, []string) {
	total := 0.0
	var reasons []string
	for _, rule := range taskRules[task] {
		if rule.match(sym) {
			total += rule.points
			reasons = append(reasons, rule.reason)
		}
	}
	if total > maxTaskReward {
		total = maxTaskReward
	}
	return total, reasons
}

func hasErrorHandling(s dedup.HashedSymbol) bool {
	return errorHandlingPattern.MatchString(s.Body) || strings.Contains(s.Signature, "error")
}
