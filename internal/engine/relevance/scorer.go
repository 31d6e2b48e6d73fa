// Package relevance ranks deduplicated symbols against a query and task and
// selects a subset that fits a token budget.
package relevance

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"ambiance/internal/engine/dedup"
	"ambiance/internal/engine/parser"
	"ambiance/internal/engine/pruner"
	"ambiance/internal/shared/tokens"
	"ambiance/internal/shared/util"

	"github.com/sahilm/fuzzy"
)

// Context is the caller's intent for one scoring call.
type Context struct {
	Query          string
	Task           TaskType
	FileHints      []string
	SymbolHints    []string
	PreferredKinds []parser.SymbolKind
	MaxTokens      int // 0 means unlimited
}

type ScoredSymbol struct {
	dedup.HashedSymbol
	Relevance float64
	Context   float64
	Quality   float64
	Total     float64
	Cost      int
	Reasoning []string
}

// Selection is the greedy pick for one budget.
type Selection struct {
	Selected   []ScoredSymbol
	Considered int
	TotalCost  int
	Budget     int
	// Exhausted is set when selection stopped because the next symbol did
	// not fit.
	Exhausted bool
}

const (
	queryWeight         = 60.0
	preferredKindBonus  = 10.0
	exportedBonus       = 5.0
	documentedBonus     = 5.0
	fileHintBonus       = 40.0
	symbolHintBonus     = 30.0
	densityPerEdge      = 3.0
	densityCap          = 10
	crossFileWeight     = 30.0
	qualityBaseline     = 20.0
	complexityFitMax    = 30.0
	complexityPeak      = 8.0
	namingMax           = 15.0
	typeDefBonus        = 10.0
	asyncBonus          = 5.0
	errorHandlingBonus  = 10.0
	importanceScale     = 5.0
	fuzzyMatchWeight    = 0.3
	termHitWeight       = 0.5
	partialMatchCap     = 0.35 // stays below the body match tier
	minReverseMatchName = 3
)

type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score rates every symbol in files and returns them ordered by total
// descending, ties broken by path then line.
func (s *Scorer) Score(files []*pruner.PrunedFile, ctx Context) []ScoredSymbol {
	usage := crossFileUsage(files)
	others := float64(max(len(files)-1, 1))
	query := strings.ToLower(strings.TrimSpace(ctx.Query))
	weights := WeightsFor(ctx.Task)

	var out []ScoredSymbol
	for _, f := range files {
		for _, sym := range f.Symbols {
			hs := dedup.Hash(sym, f.RelPath)
			scored := ScoredSymbol{HashedSymbol: hs, Cost: tokens.SymbolCost(sym.Signature, sym.CompactedBody)}

			rel, reasons := relevanceScore(hs, query, ctx)
			scored.Relevance = rel
			scored.Reasoning = append(scored.Reasoning, reasons...)

			used := 0
			for file := range usage[sym.Name] {
				if file != f.RelPath {
					used++
				}
			}
			cx, reasons := contextScore(hs, ctx, float64(used)/others)
			scored.Context = cx
			scored.Reasoning = append(scored.Reasoning, reasons...)

			q, reasons := qualityScore(hs)
			scored.Quality = q
			scored.Reasoning = append(scored.Reasoning, reasons...)

			imp := math.Min(sym.Importance*importanceScale, 100)
			scored.Total = weights.Relevance*rel + weights.Context*cx + weights.Quality*q + weights.Importance*imp
			out = append(out, scored)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.Location.StartLine < b.Location.StartLine
	})
	return out
}

// ScoreAndFilter scores files and greedily takes symbols in rank order
// until the next one would exceed ctx.MaxTokens. It does not skip ahead
// to smaller symbols, so the result is deterministic but not optimal.
func (s *Scorer) ScoreAndFilter(files []*pruner.PrunedFile, ctx Context) Selection {
	scored := s.Score(files, ctx)
	sel := Selection{Considered: len(scored), Budget: ctx.MaxTokens}
	for _, sym := range scored {
		if ctx.MaxTokens > 0 && sel.TotalCost+sym.Cost > ctx.MaxTokens {
			sel.Exhausted = true
			break
		}
		sel.Selected = append(sel.Selected, sym)
		sel.TotalCost += sym.Cost
	}
	return sel
}

// QueryMatch grades how well sym answers query on a 0-1 scale.
func QueryMatch(sym dedup.HashedSymbol, query string) (float64, string) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return 0, ""
	}
	name := strings.ToLower(sym.Name)
	switch {
	case name == query:
		return 1.0, "exact name match"
	case strings.Contains(name, query):
		return 0.8, "name contains query"
	case len(name) >= minReverseMatchName && strings.Contains(query, name):
		return 0.7, "query mentions name"
	case strings.Contains(strings.ToLower(sym.Signature), query):
		return 0.6, "signature matches query"
	case strings.Contains(strings.ToLower(sym.Docstring), query):
		return 0.5, "documentation matches query"
	case strings.Contains(strings.ToLower(sym.Body), query):
		return 0.4, "body matches query"
	}

	haystack := name + " " + strings.ToLower(sym.Signature) + " " + strings.ToLower(sym.Docstring)
	terms := strings.Fields(query)
	hits := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			hits++
		}
	}
	score := termHitWeight * float64(hits) / float64(len(terms))
	pattern := strings.ReplaceAll(query, " ", "")
	if len(fuzzy.Find(pattern, []string{sym.Name})) > 0 {
		score += fuzzyMatchWeight
	}
	if score == 0 {
		return 0, ""
	}
	return math.Min(score, partialMatchCap), "partial query match"
}

func relevanceScore(sym dedup.HashedSymbol, query string, ctx Context) (float64, []string) {
	var reasons []string
	score := 0.0

	if match, why := QueryMatch(sym, query); match > 0 {
		score += match * queryWeight
		reasons = append(reasons, fmt.Sprintf("%s (+%.0f)", why, match*queryWeight))
	}
	if reward, why := taskReward(ctx.Task, sym); reward > 0 {
		score += reward
		reasons = append(reasons, fmt.Sprintf("%s task: %s (+%.0f)", ctx.Task, strings.Join(why, ", "), reward))
	}
	for _, kind := range ctx.PreferredKinds {
		if sym.Kind == kind {
			score += preferredKindBonus
			reasons = append(reasons, fmt.Sprintf("preferred kind %s (+%.0f)", kind, preferredKindBonus))
			break
		}
	}
	if sym.Exported {
		score += exportedBonus
		reasons = append(reasons, fmt.Sprintf("exported (+%.0f)", exportedBonus))
	}
	if sym.Docstring != "" {
		score += documentedBonus
		reasons = append(reasons, fmt.Sprintf("documented (+%.0f)", documentedBonus))
	}
	return util.ClampFloat(score, 0, 100), reasons
}

func contextScore(sym dedup.HashedSymbol, ctx Context, crossFile float64) (float64, []string) {
	var reasons []string
	score := 0.0
	path := strings.ToLower(sym.FilePath)
	for _, hint := range ctx.FileHints {
		if hint = strings.ToLower(strings.TrimSpace(hint)); hint != "" && strings.Contains(path, hint) {
			score += fileHintBonus
			reasons = append(reasons, fmt.Sprintf("file hint %q (+%.0f)", hint, fileHintBonus))
			break
		}
	}
	name := strings.ToLower(sym.Name)
	for _, hint := range ctx.SymbolHints {
		if hint = strings.ToLower(strings.TrimSpace(hint)); hint != "" && strings.Contains(name, hint) {
			score += symbolHintBonus
			reasons = append(reasons, fmt.Sprintf("symbol hint %q (+%.0f)", hint, symbolHintBonus))
			break
		}
	}
	if n := min(len(sym.Relationships), densityCap); n > 0 {
		score += float64(n) * densityPerEdge
	}
	if crossFile > 0 {
		bonus := math.Min(crossFile, 1) * crossFileWeight
		score += bonus
		reasons = append(reasons, fmt.Sprintf("used across files (+%.0f)", bonus))
	}
	return util.ClampFloat(score, 0, 100), reasons
}

func qualityScore(sym dedup.HashedSymbol) (float64, []string) {
	var reasons []string
	score := qualityBaseline

	complexity := float64(len(sym.Parameters)) + float64(len(sym.Relationships))*0.5 + float64(sym.LineCount())/10
	score += ComplexityFit(complexity)
	score += NamingScore(sym.Name)

	if sym.Kind.IsTypeDefinition() {
		score += typeDefBonus
		reasons = append(reasons, fmt.Sprintf("type definition (+%.0f)", typeDefBonus))
	}
	if sym.Async {
		score += asyncBonus
		reasons = append(reasons, fmt.Sprintf("async (+%.0f)", asyncBonus))
	}
	if hasErrorHandling(sym) {
		score += errorHandlingBonus
		reasons = append(reasons, fmt.Sprintf("handles errors (+%.0f)", errorHandlingBonus))
	}
	return util.ClampFloat(score, 0, 100), reasons
}

// ComplexityFit peaks for moderately complex symbols and falls off for
// trivial and sprawling ones.
func ComplexityFit(c float64) float64 {
	if c <= 0 {
		return 0
	}
	if c <= complexityPeak {
		return complexityFitMax * c / complexityPeak
	}
	return math.Max(0, complexityFitMax-(c-complexityPeak)*2)
}

var genericNames = map[string]bool{
	"data": true, "temp": true, "tmp": true, "foo": true, "bar": true, "x": true,
	"obj": true, "val": true, "value": true, "thing": true, "stuff": true, "test": true,
}

// NamingScore rewards descriptive identifiers, up to namingMax.
func NamingScore(name string) float64 {
	score := 0.0
	if n := len(name); n >= 3 && n <= 30 {
		score += 5
	}
	if !genericNames[strings.ToLower(name)] && len(name) > 1 {
		score += 5
	}
	if wordCount(name) >= 2 {
		score += 5
	}
	return math.Min(score, namingMax)
}

// wordCount splits camelCase and snake_case identifiers.
func wordCount(name string) int {
	count := 0
	prevLower := false
	for i, r := range name {
		switch {
		case r == '_' || r == '-':
			prevLower = false
		case r >= 'A' && r <= 'Z':
			if i == 0 || prevLower || count == 0 {
				count++
			}
			prevLower = false
		default:
			if i == 0 || name[i-1] == '_' || name[i-1] == '-' {
				count++
			}
			prevLower = true
		}
	}
	return count
}

// crossFileUsage maps a symbol name to the files whose symbols point at it
// through calls, imports or references.
func crossFileUsage(files []*pruner.PrunedFile) map[string]map[string]bool {
	out := make(map[string]map[string]bool)
	mark := func(name, file string) {
		if out[name] == nil {
			out[name] = make(map[string]bool)
		}
		out[name][file] = true
	}
	for _, f := range files {
		for _, sym := range f.Symbols {
			for _, r := range sym.Relationships {
				switch r.Type {
				case pruner.RelCalls, pruner.RelImports:
					mark(r.Target, f.RelPath)
				case pruner.RelReferences:
					if r.File != f.RelPath {
						mark(sym.Name, r.File)
					}
				}
			}
		}
	}
	return out
}
