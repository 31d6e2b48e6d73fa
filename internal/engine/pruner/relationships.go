package pruner

import (
	"regexp"
	"strings"

	"ambiance/internal/engine/parser"
)

var (
	callPattern       = regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*\(`)
	identPattern      = regexp.MustCompile(`[A-Za-z_$][\w$]*`)
	extendsPattern    = regexp.MustCompile(`\bextends\s+([A-Za-z_$][\w$.]*)`)
	implementsPattern = regexp.MustCompile(`\bimplements\s+([\w$.,\s<>]+)`)
	pyBasesPattern    = regexp.MustCompile(`^class\s+\w+\s*\(([^)]*)\)`)
)

// callKeywords look like calls to the pattern but are control flow or
// declarations.
var callKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"function": true, "return": true, "typeof": true, "new": true, "super": true,
	"def": true, "class": true, "elif": true, "with": true, "assert": true,
	"func": true, "fn": true, "match": true, "await": true, "async": true,
	"sizeof": true, "in": true, "not": true, "and": true, "or": true,
	"constructor": true, "import": true, "lambda": true,
	"instanceof": true, "delete": true, "void": true, "yield": true, "throw": true,
	"try": true, "except": true, "go": true, "defer": true, "select": true,
	"synchronized": true, "impl": true, "where": true,
}

// fileScan holds per-file data shared by every symbol's relationship pass.
type fileScan struct {
	path      string
	lang      parser.Language
	names     map[string]bool
	imports   map[string]parser.Import // local name -> import
	rustImpls map[string][]string      // type -> implemented traits
}

func newFileScan(res *parser.ParseResult, names map[string]bool) *fileScan {
	s := &fileScan{
		path:    res.Path,
		lang:    res.Language,
		names:   names,
		imports: make(map[string]parser.Import),
	}
	for _, imp := range res.Imports {
		for _, name := range imp.Names() {
			s.imports[name] = imp
		}
	}
	if res.Language == parser.LangRust {
		s.rustImpls = rustTraitImpls(res.Content)
	}
	return s
}

var rustImplPattern = regexp.MustCompile(`impl(?:\s*<[^>]*>)?\s+([\w:]+)(?:<[^>]*>)?\s+for\s+(\w+)`)

func rustTraitImpls(content string) map[string][]string {
	out := make(map[string][]string)
	for _, m := range rustImplPattern.FindAllStringSubmatch(content, -1) {
		trait := m[1]
		if idx := strings.LastIndex(trait, "::"); idx >= 0 {
			trait = trait[idx+2:]
		}
		out[m[2]] = append(out[m[2]], trait)
	}
	return out
}

// relationships extracts edges from the symbol's signature and body. The
// match is textual and over-approximates the real call graph.
func (s *fileScan) relationships(sym parser.Symbol) []Relationship {
	var out []Relationship
	seen := make(map[string]bool)
	add := func(t RelationType, target, file string, line int) {
		target = strings.TrimSpace(target)
		if target == "" {
			return
		}
		key := string(t) + ":" + target
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Relationship{Type: t, Target: target, File: file, Line: line})
	}
	line := sym.Location.StartLine

	if sym.Exported {
		add(RelExports, sym.Name, s.path, line)
	}

	if sym.Kind.IsTypeDefinition() {
		if m := extendsPattern.FindStringSubmatch(sym.Signature); m != nil {
			add(RelExtends, m[1], s.path, line)
		}
		if m := implementsPattern.FindStringSubmatch(sym.Signature); m != nil {
			for _, target := range strings.Split(m[1], ",") {
				if idx := strings.IndexByte(target, '<'); idx >= 0 {
					target = target[:idx]
				}
				add(RelImplements, target, s.path, line)
			}
		}
		if s.lang == parser.LangPython {
			if m := pyBasesPattern.FindStringSubmatch(sym.Signature); m != nil {
				for _, base := range strings.Split(m[1], ",") {
					if base = strings.TrimSpace(base); base != "" && !strings.Contains(base, "=") {
						add(RelExtends, base, s.path, line)
					}
				}
			}
		}
		for _, trait := range s.rustImpls[sym.Name] {
			add(RelImplements, trait, s.path, line)
		}
	}

	body := bodyAfterSignature(sym)
	for _, m := range callPattern.FindAllStringSubmatch(body, -1) {
		name := m[1]
		if name == sym.Name || callKeywords[name] {
			continue
		}
		add(RelCalls, name, s.path, line)
	}

	for _, ident := range identPattern.FindAllString(sym.Signature+"\n"+sym.Body, -1) {
		if ident == sym.Name {
			continue
		}
		if imp, ok := s.imports[ident]; ok {
			add(RelImports, ident, imp.Source, imp.Line)
			continue
		}
		if s.names[ident] && isCapitalized(ident) {
			add(RelReferences, ident, s.path, line)
		}
	}
	return out
}

// bodyAfterSignature drops the declaration header so a function's own
// name and parameter list are not read as a call.
func bodyAfterSignature(sym parser.Symbol) string {
	body := sym.Body
	if sym.Name == "" {
		return body
	}
	if idx := strings.Index(body, sym.Name); idx >= 0 {
		rest := body[idx+len(sym.Name):]
		if open := strings.IndexByte(rest, '('); open >= 0 && strings.TrimSpace(rest[:open]) == "" {
			if close := matchingParen(rest, open); close >= 0 {
				return rest[close+1:]
			}
		}
		return rest
	}
	return body
}

func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isCapitalized(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}
