// Package summarizer derives purpose strings and complexity labels for
// symbols, files and whole projects using naming heuristics.
package summarizer

import (
	"fmt"
	"strings"
	"unicode"

	"ambiance/internal/engine/parser"
	"ambiance/internal/engine/pruner"
)

type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

const (
	lowThreshold    = 5.0
	mediumThreshold = 12.0
)

// ComplexityScore is a linear blend of parameter count, relationship count
// and body length.
func ComplexityScore(sym *pruner.PrunedSymbol) float64 {
	return float64(len(sym.Parameters)) + float64(len(sym.Relationships))*0.5 + float64(sym.LineCount())/10
}

func Bucket(score float64) Complexity {
	switch {
	case score < lowThreshold:
		return ComplexityLow
	case score < mediumThreshold:
		return ComplexityMedium
	}
	return ComplexityHigh
}

func SymbolComplexity(sym *pruner.PrunedSymbol) Complexity {
	return Bucket(ComplexityScore(sym))
}

type verbRule struct {
	prefixes []string
	verb     string
}

// Checked in order; the first prefix that matches a leading word wins.
var callableRules = []verbRule{
	{[]string{"get", "fetch", "load", "read", "find", "query", "lookup", "retrieve"}, "Retrieves"},
	{[]string{"set", "update", "patch", "modify"}, "Updates"},
	{[]string{"create", "new", "make", "build", "generate"}, "Creates"},
	{[]string{"handle", "on", "process"}, "Handles"},
	{[]string{"validate", "verify", "ensure", "assert"}, "Validates"},
	{[]string{"is", "has", "can", "should", "check"}, "Checks whether"},
	{[]string{"parse", "decode", "unmarshal"}, "Parses"},
	{[]string{"format", "render", "print", "encode", "marshal", "serialize"}, "Formats"},
	{[]string{"delete", "remove", "clear", "drop"}, "Removes"},
	{[]string{"init", "setup", "configure", "register"}, "Initializes"},
	{[]string{"save", "write", "store", "persist", "put"}, "Persists"},
	{[]string{"convert", "to", "transform", "map"}, "Converts"},
	{[]string{"calculate", "compute", "count", "sum"}, "Calculates"},
	{[]string{"send", "emit", "publish", "dispatch", "notify"}, "Sends"},
	{[]string{"start", "run", "execute", "exec", "serve", "main"}, "Runs"},
	{[]string{"test"}, "Tests"},
}

type suffixRule struct {
	suffix string
	format string
}

var classRules = []suffixRule{
	{"service", "Service class providing %s operations"},
	{"controller", "Controller handling %s requests"},
	{"repository", "Data access layer for %s"},
	{"repo", "Data access layer for %s"},
	{"store", "Storage for %s"},
	{"model", "Data model for %s"},
	{"entity", "Data model for %s"},
	{"error", "Error type for %s failures"},
	{"exception", "Error type for %s failures"},
	{"handler", "Handler for %s"},
	{"manager", "Manager coordinating %s"},
	{"factory", "Factory producing %s"},
	{"builder", "Builder assembling %s"},
	{"client", "Client for %s"},
	{"config", "Configuration for %s"},
	{"component", "UI component rendering %s"},
}

// SymbolPurpose describes what sym is for. A docstring's first sentence
// wins; otherwise naming rules for the symbol kind apply, falling back to
// "<kind> definition".
func SymbolPurpose(sym *pruner.PrunedSymbol) string {
	if doc := firstSentence(sym.Docstring); doc != "" {
		return doc
	}
	words := SplitIdentifier(sym.Name)
	if len(words) == 0 {
		return fmt.Sprintf("%s definition", sym.Kind)
	}

	switch sym.Kind {
	case parser.KindFunction, parser.KindMethod:
		for _, rule := range callableRules {
			for _, prefix := range rule.prefixes {
				if words[0] != prefix {
					continue
				}
				rest := strings.Join(words[1:], " ")
				if rest == "" {
					if sym.Parent != "" {
						rest = strings.Join(SplitIdentifier(sym.Parent), " ")
					} else {
						rest = "its input"
					}
				}
				return rule.verb + " " + rest
			}
		}
		if strings.Contains(strings.ToLower(sym.Signature), "async") || sym.Async {
			return fmt.Sprintf("Asynchronously performs %s", strings.Join(words, " "))
		}

	case parser.KindClass:
		last := words[len(words)-1]
		for _, rule := range classRules {
			if last == rule.suffix {
				subject := strings.Join(words[:len(words)-1], " ")
				if subject == "" {
					subject = "the application"
				}
				return fmt.Sprintf(rule.format, subject)
			}
		}

	case parser.KindInterface:
		return "Contract for " + strings.Join(words, " ")

	case parser.KindType:
		return "Type definition for " + strings.Join(words, " ")

	case parser.KindVariable:
		if isConstantName(sym.Name) {
			return "Constant " + strings.Join(words, " ")
		}
		if strings.Contains(strings.ToLower(sym.Name), "config") {
			return "Configuration value"
		}
	}
	return fmt.Sprintf("%s definition", sym.Kind)
}

// SplitIdentifier breaks camelCase, PascalCase and snake_case names into
// lowercase words.
func SplitIdentifier(name string) []string {
	var words []string
	var cur []rune
	runes := []rune(strings.Trim(name, "_#$"))
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.':
			flush()
		case unicode.IsUpper(r):
			// Break before an upper rune that starts a new word, keeping
			// acronyms like "HTTP" together.
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				flush()
			}
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return words
}

func firstSentence(doc string) string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return ""
	}
	if idx := strings.IndexAny(doc, "\n"); idx >= 0 {
		doc = doc[:idx]
	}
	if idx := strings.Index(doc, ". "); idx >= 0 {
		doc = doc[:idx+1]
	}
	return strings.TrimSpace(doc)
}

func isConstantName(name string) bool {
	hasLetter := false
	for _, r := range name {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter && len(name) > 1
}
