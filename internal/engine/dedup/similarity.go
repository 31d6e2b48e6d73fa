package dedup

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Weights blend the components of Similarity. They are normalized by their
// sum, so only the ratios matter.
type Weights struct {
	Name    float64
	Kind    float64
	Body    float64
	Overlap float64
}

func DefaultWeights() Weights {
	return Weights{Name: 0.3, Kind: 0.1, Body: 0.4, Overlap: 0.2}
}

// maxCompareRunes bounds the edit-distance input; compacted bodies are
// short but annotations can grow them.
const maxCompareRunes = 2000

// Similarity scores two symbols in [0, 1]. Equal content hashes score 1.
// This drives exploratory lookups only; collapse uses exact hashes.
func Similarity(a, b HashedSymbol, w Weights) float64 {
	if a.ContentHash == b.ContentHash {
		return 1
	}
	total := w.Name + w.Kind + w.Body + w.Overlap
	if total <= 0 {
		w = DefaultWeights()
		total = 1
	}
	score := 0.0
	if strings.EqualFold(a.Name, b.Name) {
		score += w.Name
	}
	if a.Kind == b.Kind {
		score += w.Kind
	}
	score += w.Body * EditSimilarity(a.CompactedBody, b.CompactedBody)
	score += w.Overlap * TokenOverlap(a.CompactedBody, b.CompactedBody)
	return score / total
}

// EditSimilarity is 1 minus the Levenshtein distance normalized by the
// longer input.
func EditSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > maxCompareRunes {
		ra = ra[:maxCompareRunes]
	}
	if len(rb) > maxCompareRunes {
		rb = rb[:maxCompareRunes]
	}
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(string(ra), string(rb))
	return 1 - float64(d)/float64(longest)
}

// TokenOverlap is the Jaccard index of the identifier sets of a and b.
func TokenOverlap(a, b string) float64 {
	sa, sb := identifierSet(a), identifierSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	inter := 0
	for tok := range sa {
		if sb[tok] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

func identifierSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$')
	}) {
		out[tok] = true
	}
	return out
}

type Match struct {
	Symbol HashedSymbol
	Score  float64
}

// FindSimilar returns candidates scoring at least threshold against target,
// best first. The target itself is skipped.
func FindSimilar(target HashedSymbol, candidates []HashedSymbol, threshold float64, w Weights) []Match {
	var out []Match
	for _, c := range candidates {
		if c.PrunedSymbol == target.PrunedSymbol {
			continue
		}
		if score := Similarity(target, c, w); score >= threshold {
			out = append(out, Match{Symbol: c, Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Symbol.ID < out[j].Symbol.ID
	})
	return out
}
