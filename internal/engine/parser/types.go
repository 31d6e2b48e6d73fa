package parser

import "fmt"

type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindType      SymbolKind = "type"
	KindVariable  SymbolKind = "variable"
	KindMethod    SymbolKind = "method"
)

// IsTypeDefinition reports kinds that declare a type rather than behaviour.
func (k SymbolKind) IsTypeDefinition() bool {
	return k == KindClass || k == KindInterface || k == KindType
}

// IsCallable reports kinds that carry parameters and a body.
func (k SymbolKind) IsCallable() bool {
	return k == KindFunction || k == KindMethod
}

type Location struct {
	File      string
	StartLine int
	EndLine   int
	Column    int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.StartLine)
}

type Parameter struct {
	Name     string
	Type     string
	Default  string
	Optional bool
}

// Symbol is one named declaration extracted from a source file.
type Symbol struct {
	ID         string
	Name       string
	Kind       SymbolKind
	Signature  string
	Parameters []Parameter
	Docstring  string
	Exported   bool
	Async      bool
	Parent     string // enclosing class/impl/type for methods
	Location   Location
	Body       string // full declaration text
}

// LineCount returns the number of lines of the raw declaration.
func (s *Symbol) LineCount() int {
	return countLines(s.Body)
}

type Import struct {
	Source     string   // module specifier as written, quotes stripped
	Specifiers []string // names bound by the import ("*" for wildcard)
	Default    string
	Namespace  string
	Line       int
}

// Names returns every local name the import binds.
func (i Import) Names() []string {
	out := make([]string, 0, len(i.Specifiers)+2)
	if i.Default != "" {
		out = append(out, i.Default)
	}
	if i.Namespace != "" {
		out = append(out, i.Namespace)
	}
	for _, s := range i.Specifiers {
		if s != "*" {
			out = append(out, s)
		}
	}
	return out
}

type Export struct {
	Name    string
	Kind    SymbolKind
	Default bool
	Line    int
}

// ParseResult is the normalized output of one parse session. It is always
// non-nil; failures are reported through Errors.
type ParseResult struct {
	Path      string
	Language  Language
	Symbols   []Symbol
	Imports   []Import
	Exports   []Export
	Errors    []string
	LineCount int
	Content   string
}

// OK reports whether the parse produced no errors.
func (r *ParseResult) OK() bool {
	return len(r.Errors) == 0
}

func symbolID(path, name string, line int) string {
	return fmt.Sprintf("%s#%s@%d", path, name, line)
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
		}
	}
	return n
}
