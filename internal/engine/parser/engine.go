package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractor turns a syntax tree into symbols, imports and exports.
type extractor interface {
	extract(ctx *ExtractionContext, root *sitter.Node)
}

// ExtractionContext carries shared state/helpers used by all extractors.
type ExtractionContext struct {
	Source []byte
	Result *ParseResult
}

func (c *ExtractionContext) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if end > uint(len(c.Source)) || start > end {
		return ""
	}
	return string(c.Source[start:end])
}

func (c *ExtractionContext) Location(node *sitter.Node) Location {
	return Location{
		File:      c.Result.Path,
		StartLine: int(node.StartPosition().Row) + 1,
		EndLine:   int(node.EndPosition().Row) + 1,
		Column:    int(node.StartPosition().Column) + 1,
	}
}

func (c *ExtractionContext) Line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// Field returns the text of the named field child of node.
func (c *ExtractionContext) Field(node *sitter.Node, field string) string {
	if node == nil {
		return ""
	}
	return c.Text(node.ChildByFieldName(field))
}

// ChildOfKind returns the first direct child of node with the given kind.
func ChildOfKind(node *sitter.Node, kinds ...string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		for _, kind := range kinds {
			if child.Kind() == kind {
				return child
			}
		}
	}
	return nil
}

// NamedChildren returns the named children of node.
func NamedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.NamedChildCount())
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if child := node.NamedChild(i); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// Signature returns the declaration header: the text from the start of decl
// up to its body, whitespace collapsed. Without a body the first line of the
// declaration is used.
func (c *ExtractionContext) Signature(decl, body *sitter.Node) string {
	text := ""
	if body != nil && body.StartByte() > decl.StartByte() {
		text = string(c.Source[decl.StartByte():body.StartByte()])
	} else {
		text = c.Text(decl)
		if idx := strings.IndexByte(text, '\n'); idx >= 0 {
			text = text[:idx]
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "=>")
	text = strings.TrimSuffix(text, ":")
	text = strings.TrimSuffix(text, "{")
	return collapseSpace(text)
}

// LeadingComment collects the comment block directly above node. Blank
// lines between the comment and the declaration break the block.
func (c *ExtractionContext) LeadingComment(node *sitter.Node) string {
	var parts []string
	expected := int(node.StartPosition().Row)
	for prev := node.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if prev.Kind() == "attribute_item" {
			expected = int(prev.StartPosition().Row)
			continue
		}
		if !isCommentKind(prev.Kind()) {
			break
		}
		if int(prev.EndPosition().Row) < expected-1 {
			break
		}
		parts = append(parts, cleanComment(c.Text(prev)))
		expected = int(prev.StartPosition().Row)
	}
	if len(parts) == 0 {
		return ""
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// AddSymbol appends sym to the result, assigning its ID and location.
func (c *ExtractionContext) AddSymbol(node *sitter.Node, sym Symbol) {
	if sym.Name == "" {
		return
	}
	sym.Location = c.Location(node)
	sym.ID = symbolID(c.Result.Path, sym.Name, sym.Location.StartLine)
	if sym.Body == "" {
		sym.Body = c.Text(node)
	}
	if !sym.Async {
		sym.Async = hasWord(sym.Signature, "async")
	}
	c.Result.Symbols = append(c.Result.Symbols, sym)
}

func (c *ExtractionContext) AddExport(name string, kind SymbolKind, isDefault bool, line int) {
	if name == "" {
		return
	}
	c.Result.Exports = append(c.Result.Exports, Export{Name: name, Kind: kind, Default: isDefault, Line: line})
}

func isCommentKind(kind string) bool {
	switch kind {
	case "comment", "line_comment", "block_comment":
		return true
	}
	return false
}

func cleanComment(raw string) string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"/**", "/*", "*/", "///", "//!", "//", "#"} {
			line = strings.TrimPrefix(line, prefix)
		}
		line = strings.TrimSuffix(line, "*/")
		line = strings.TrimPrefix(strings.TrimSpace(line), "*")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func trimQuotes(value string) string {
	value = strings.TrimSpace(value)
	for _, q := range []string{`"""`, `'''`} {
		if strings.HasPrefix(value, q) && strings.HasSuffix(value, q) && len(value) >= 6 {
			return strings.TrimSpace(value[3 : len(value)-3])
		}
	}
	return strings.Trim(value, "\"'`")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hasWord(text, word string) bool {
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	}) {
		if f == word {
			return true
		}
	}
	return false
}

func isUpperInitial(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}
