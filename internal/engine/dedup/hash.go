package dedup

import (
	"regexp"
	"sort"
	"strings"

	"ambiance/internal/engine/pruner"

	"github.com/cespare/xxhash/v2"
)

// HashedSymbol pairs a pruned symbol with its digests.
type HashedSymbol struct {
	*pruner.PrunedSymbol
	FilePath      string
	ContentHash   uint64
	SignatureHash uint64
}

var leadingModifiers = regexp.MustCompile(`^(?:(?:export|default|declare|pub(?:\([^)]*\))?|public|async)\s+)+`)

// NormalizeSignature collapses whitespace and drops visibility modifiers
// so the same declaration hashes identically whether exported or not.
func NormalizeSignature(sig string) string {
	sig = strings.Join(strings.Fields(sig), " ")
	return leadingModifiers.ReplaceAllString(sig, "")
}

// Hash computes both digests for sym as declared in filePath.
func Hash(sym *pruner.PrunedSymbol, filePath string) HashedSymbol {
	return HashedSymbol{
		PrunedSymbol:  sym,
		FilePath:      filePath,
		ContentHash:   contentHash(sym, filePath),
		SignatureHash: xxhash.Sum64String(NormalizeSignature(sym.Signature)),
	}
}

// contentHash digests kind, signature, compacted body, elided member names
// and the symbol's own outgoing relationships. Export edges and inbound
// references from other files describe visibility and usage, not content,
// and are left out.
func contentHash(sym *pruner.PrunedSymbol, filePath string) uint64 {
	rels := make([]string, 0, len(sym.Relationships))
	for _, r := range sym.Relationships {
		if r.Type == pruner.RelExports || (r.Type == pruner.RelReferences && r.File != filePath) {
			continue
		}
		rels = append(rels, r.String())
	}
	sort.Strings(rels)

	d := xxhash.New()
	_, _ = d.WriteString(string(sym.Kind))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(NormalizeSignature(sym.Signature))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(normalizeBody(sym.CompactedBody))
	for _, m := range sym.Members {
		_, _ = d.WriteString("\x00member:")
		_, _ = d.WriteString(m)
	}
	for _, r := range rels {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(r)
	}
	return d.Sum64()
}

// normalizeBody strips modifiers from the first line and trailing spaces
// from every line.
func normalizeBody(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	if len(lines) > 0 {
		lines[0] = leadingModifiers.ReplaceAllString(strings.TrimSpace(lines[0]), "")
	}
	return strings.Join(lines, "\n")
}
