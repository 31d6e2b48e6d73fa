// Package tokens estimates language-model token counts for source text.
//
// The estimate is a word-count heuristic: whitespace-separated words scaled
// by a constant factor. It is cheap, deterministic, and monotonic in the
// amount of text, which is all the budget logic relies on.
package tokens

import (
	"math"
	"strings"
)

const (
	// WordFactor approximates subword splitting of identifiers and punctuation.
	WordFactor = 1.3
	// SymbolOverhead is the fixed framing cost charged per emitted symbol
	// (path, line, kind header).
	SymbolOverhead = 10
)

// Estimate returns the estimated token count of text.
func Estimate(text string) int {
	return ForWords(Words(text))
}

// Words counts the whitespace-separated words in text.
func Words(text string) int {
	return len(strings.Fields(text))
}

// ForWords converts a word count into a token estimate. Summing words first
// and converting once rounds a multi-part total a single time.
func ForWords(words int) int {
	if words <= 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * WordFactor))
}

// EstimateAll sums Estimate over parts.
func EstimateAll(parts ...string) int {
	total := 0
	for _, p := range parts {
		total += Estimate(p)
	}
	return total
}

// SymbolCost is the budget charge for emitting one symbol with the given
// signature and body.
func SymbolCost(signature, body string) int {
	return Estimate(signature+"\n"+body) + SymbolOverhead
}
