// Package pruner scores, truncates and links extracted symbols.
package pruner

import (
	"fmt"
	"math"
	"strings"

	"ambiance/internal/engine/parser"
	"ambiance/internal/shared/tokens"
)

// Importance weights.
const (
	exportBonus        = 10.0
	relationshipCap    = 10
	relationshipWeight = 0.5
	parameterCap       = 5
	parameterWeight    = 0.5
	docCharsPerPoint   = 50
	docCap             = 3.0
	typeKindBonus      = 1.0
)

type Options struct {
	MaxFunctionBodyLines  int
	IncludePrivateMethods bool
	IncludeComments       bool
	IncludeDocstrings     bool
}

type Pruner struct {
	opts Options
}

func New(opts Options) *Pruner {
	if opts.MaxFunctionBodyLines <= 0 {
		opts.MaxFunctionBodyLines = 10
	}
	return &Pruner{opts: opts}
}

// PruneFile converts a parse result into a pruned file. absPath is the file
// location on disk; res.Path is used as the relative path.
func (p *Pruner) PruneFile(res *parser.ParseResult, absPath string) *PrunedFile {
	file := &PrunedFile{
		Path:           absPath,
		RelPath:        res.Path,
		Language:       res.Language,
		OriginalTokens: tokens.Estimate(res.Content),
		Exports:        res.Exports,
		Imports:        res.Imports,
		Content:        res.Content,
	}

	names := make(map[string]bool, len(res.Symbols))
	for _, sym := range res.Symbols {
		names[sym.Name] = true
	}
	scan := newFileScan(res, names)

	kept := make([]parser.Symbol, 0, len(res.Symbols))
	for _, sym := range res.Symbols {
		if !p.opts.IncludePrivateMethods && sym.Kind == parser.KindMethod && !sym.Exported {
			continue
		}
		kept = append(kept, sym)
	}
	for _, sym := range kept {
		file.Symbols = append(file.Symbols, p.pruneSymbol(sym, memberSpans(sym, kept), scan))
	}
	file.Recount()
	return file
}

func (p *Pruner) pruneSymbol(sym parser.Symbol, members []lineSpan, scan *fileScan) *PrunedSymbol {
	ps := &PrunedSymbol{
		Symbol:         sym,
		Relationships:  scan.relationships(sym),
		DuplicateCount: 1,
	}
	ps.Importance = Importance(sym, len(ps.Relationships))

	body := sym.Body
	if len(members) > 0 {
		body = elideLines(body, sym.Location.StartLine, members)
		for _, m := range members {
			ps.Members = append(ps.Members, m.name)
		}
	}
	if !p.opts.IncludeComments {
		body = StripComments(body, scan.lang)
	}
	if len(members) > 0 && sym.Signature != "" && isHollow(body) {
		body = sym.Signature
	}
	ps.CompactedBody, ps.Truncated = Truncate(body, p.opts.MaxFunctionBodyLines, scan.lang.LineComment())
	if !p.opts.IncludeDocstrings {
		ps.Docstring = ""
	}
	ps.Recount()
	return ps
}

// lineSpan is the inclusive range of 1-based file lines a member occupies.
type lineSpan struct {
	name       string
	start, end int
}

func (s lineSpan) contains(line int) bool {
	return line >= s.start && line <= s.end
}

// memberSpans returns the line ranges of the emitted symbols declared inside
// sym below its header line. Members sharing the header line, and members
// that were filtered out, stay in the container's body.
func memberSpans(sym parser.Symbol, all []parser.Symbol) []lineSpan {
	var spans []lineSpan
	for _, other := range all {
		if other.Location.StartLine > sym.Location.StartLine && other.Location.EndLine <= sym.Location.EndLine {
			spans = append(spans, lineSpan{name: other.Name, start: other.Location.StartLine, end: other.Location.EndLine})
		}
	}
	return spans
}

// elideLines drops the lines of body covered by spans. firstLine is the
// file line body starts on. Members are emitted as symbols of their own,
// so the container keeps only what is not already counted there.
func elideLines(body string, firstLine int, spans []lineSpan) string {
	lines := strings.Split(body, "\n")
	kept := make([]string, 0, len(lines))
	for i, line := range lines {
		covered := false
		for _, span := range spans {
			if span.contains(firstLine + i) {
				covered = true
				break
			}
		}
		if !covered {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// isHollow reports whether nothing but blank lines and brackets follow the
// first line of body.
func isHollow(body string) bool {
	lines := strings.Split(body, "\n")
	for _, line := range lines[1:] {
		if strings.Trim(line, " \t{}();,") != "" {
			return false
		}
	}
	return true
}

// Importance ranks a symbol. With everything else equal an exported symbol
// always outranks a non-exported one.
func Importance(sym parser.Symbol, relationships int) float64 {
	score := 0.0
	if sym.Exported {
		score += exportBonus
	}
	score += float64(min(relationships, relationshipCap)) * relationshipWeight
	score += float64(min(len(sym.Parameters), parameterCap)) * parameterWeight
	score += math.Min(float64(len(sym.Docstring))/docCharsPerPoint, docCap)
	if sym.Kind.IsTypeDefinition() {
		score += typeKindBonus
	}
	return score
}

// Truncate keeps the first maxLines lines of body and appends a marker line
// naming how many were cut. Bodies within budget are returned unchanged.
func Truncate(body string, maxLines int, commentPrefix string) (string, bool) {
	if maxLines <= 0 {
		return body, false
	}
	lines := strings.Split(body, "\n")
	if len(lines) <= maxLines {
		return body, false
	}
	kept := lines[:maxLines]
	indent := leadingWhitespace(lines[maxLines])
	marker := fmt.Sprintf("%s%s ... (%d more lines)", indent, commentPrefix, len(lines)-maxLines)
	return strings.Join(append(kept, marker), "\n"), true
}

// StripComments removes full-line comments. Inline trailing comments are
// left alone since they cannot be told apart from string contents without
// a tokenizer.
func StripComments(body string, lang parser.Language) string {
	lines := strings.Split(body, "\n")
	out := lines[:0]
	inBlock := false
	prefix := lang.LineComment()
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case inBlock:
			if strings.Contains(trimmed, "*/") {
				inBlock = false
			}
			continue
		case lang != parser.LangPython && strings.HasPrefix(trimmed, "/*"):
			inBlock = !strings.Contains(trimmed, "*/")
			continue
		case strings.HasPrefix(trimmed, prefix):
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func leadingWhitespace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}
