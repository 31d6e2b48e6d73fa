package pruner

import (
	"fmt"
	"sort"

	"ambiance/internal/engine/parser"
	"ambiance/internal/shared/tokens"
)

type RelationType string

const (
	RelCalls      RelationType = "calls"
	RelExtends    RelationType = "extends"
	RelImplements RelationType = "implements"
	RelImports    RelationType = "imports"
	RelExports    RelationType = "exports"
	RelReferences RelationType = "references"
)

// Relationship is a directed edge from a symbol to a named target. File is
// the file the edge originates from or points into, depending on Type.
type Relationship struct {
	Type   RelationType
	Target string
	File   string
	Line   int
}

func (r Relationship) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.Target)
}

// PrunedSymbol is a symbol after pruning. The deduplicator mutates the
// duplicate linkage and may append to CompactedBody.
type PrunedSymbol struct {
	parser.Symbol
	Importance     float64
	Relationships  []Relationship
	CompactedBody  string
	Members        []string // nested symbols elided from CompactedBody
	Truncated      bool
	DuplicateOf    string
	DuplicateCount int
	TokenCount     int
}

// Recount recomputes TokenCount from the compacted body and docstring.
func (s *PrunedSymbol) Recount() {
	s.TokenCount = tokens.Estimate(s.CompactedBody) + tokens.Estimate(s.Docstring)
}

// words is the word count behind TokenCount.
func (s *PrunedSymbol) words() int {
	return tokens.Words(s.CompactedBody) + tokens.Words(s.Docstring)
}

// IsDuplicate reports whether the symbol was collapsed into another.
func (s *PrunedSymbol) IsDuplicate() bool {
	return s.DuplicateOf != ""
}

// HasRelationship reports whether s has an edge of type t to target.
func (s *PrunedSymbol) HasRelationship(t RelationType, target string) bool {
	for _, r := range s.Relationships {
		if r.Type == t && r.Target == target {
			return true
		}
	}
	return false
}

type PrunedFile struct {
	Path           string // absolute path on disk
	RelPath        string
	Language       parser.Language
	TokenCount     int
	OriginalTokens int
	Symbols        []*PrunedSymbol
	Exports        []parser.Export
	Dependencies   []string // relative paths of project files this file imports
	Imports        []parser.Import
	Content        string
}

// Recount recomputes TokenCount from the words of every symbol. The total
// is rounded once, so it never exceeds the sum of the symbol counts.
func (f *PrunedFile) Recount() {
	words := 0
	for _, sym := range f.Symbols {
		words += sym.words()
	}
	f.TokenCount = tokens.ForWords(words)
}

// Symbol returns the symbol with the given name, preferring top-level ones.
func (f *PrunedFile) Symbol(name string) *PrunedSymbol {
	var nested *PrunedSymbol
	for _, sym := range f.Symbols {
		if sym.Name != name {
			continue
		}
		if sym.Parent == "" {
			return sym
		}
		if nested == nil {
			nested = sym
		}
	}
	return nested
}

// TrimToBudget drops the least important symbols until the file fits in
// budget tokens. Source order of the survivors is kept. It returns the
// number of symbols removed.
func (f *PrunedFile) TrimToBudget(budget int) int {
	if budget <= 0 || f.TokenCount <= budget {
		return 0
	}
	order := make([]int, len(f.Symbols))
	for i := range order {
		order[i] = i
	}
	// Lowest importance first; later declarations go first on ties.
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		sa, sb := f.Symbols[a], f.Symbols[b]
		if sa.Importance != sb.Importance {
			return sa.Importance < sb.Importance
		}
		return a > b
	})

	drop := make(map[int]bool)
	words := 0
	for _, sym := range f.Symbols {
		words += sym.words()
	}
	for _, idx := range order {
		if tokens.ForWords(words) <= budget {
			break
		}
		drop[idx] = true
		words -= f.Symbols[idx].words()
	}

	kept := f.Symbols[:0]
	for i, sym := range f.Symbols {
		if !drop[i] {
			kept = append(kept, sym)
		}
	}
	f.Symbols = kept
	f.Recount()
	return len(drop)
}
