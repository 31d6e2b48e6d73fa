package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type javaExtractor struct{}

func (e *javaExtractor) extract(ctx *ExtractionContext, root *sitter.Node) {
	for _, node := range NamedChildren(root) {
		switch node.Kind() {
		case "import_declaration":
			e.extractImport(ctx, node)
		default:
			e.typeDeclaration(ctx, node, "")
		}
	}
}

func (e *javaExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) {
	text := strings.TrimSpace(ctx.Text(node))
	text = strings.TrimPrefix(text, "import")
	text = strings.TrimSuffix(strings.TrimSpace(text), ";")
	text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "static"))
	if text == "" {
		return
	}
	imp := Import{Source: text, Line: ctx.Line(node)}
	if last := lastDotted(text); last == "*" {
		imp.Specifiers = []string{"*"}
	} else {
		imp.Specifiers = []string{last}
	}
	ctx.Result.Imports = append(ctx.Result.Imports, imp)
}

func (e *javaExtractor) typeDeclaration(ctx *ExtractionContext, node *sitter.Node, parent string) {
	var kind SymbolKind
	switch node.Kind() {
	case "class_declaration", "record_declaration":
		kind = KindClass
	case "interface_declaration", "annotation_type_declaration":
		kind = KindInterface
	case "enum_declaration":
		kind = KindType
	default:
		return
	}
	name := ctx.Field(node, "name")
	body := node.ChildByFieldName("body")
	exported := e.isPublic(ctx, node)
	ctx.AddSymbol(node, Symbol{
		Name:      name,
		Kind:      kind,
		Signature: ctx.Signature(node, body),
		Docstring: ctx.LeadingComment(node),
		Exported:  exported,
		Parent:    parent,
	})
	if exported && parent == "" {
		ctx.AddExport(name, kind, false, ctx.Line(node))
	}

	members := NamedChildren(body)
	// Enum members past the constant list live in a nested declarations node.
	if decls := ChildOfKind(body, "enum_body_declarations"); decls != nil {
		members = append(members, NamedChildren(decls)...)
	}
	for _, member := range members {
		switch member.Kind() {
		case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
			memberName := ctx.Field(member, "name")
			memberBody := member.ChildByFieldName("body")
			ctx.AddSymbol(member, Symbol{
				Name:       memberName,
				Kind:       KindMethod,
				Signature:  ctx.Signature(member, memberBody),
				Parameters: e.parameters(ctx, member.ChildByFieldName("parameters")),
				Docstring:  ctx.LeadingComment(member),
				Exported:   e.isPublic(ctx, member) || kind == KindInterface,
				Parent:     name,
			})
		case "field_declaration", "constant_declaration":
			for _, declarator := range NamedChildren(member) {
				if declarator.Kind() != "variable_declarator" {
					continue
				}
				ctx.AddSymbol(member, Symbol{
					Name:      ctx.Field(declarator, "name"),
					Kind:      KindVariable,
					Signature: ctx.Signature(member, nil),
					Docstring: ctx.LeadingComment(member),
					Exported:  e.isPublic(ctx, member),
					Parent:    name,
				})
			}
		default:
			e.typeDeclaration(ctx, member, name)
		}
	}
}

func (e *javaExtractor) isPublic(ctx *ExtractionContext, node *sitter.Node) bool {
	mods := ChildOfKind(node, "modifiers")
	if mods == nil {
		return false
	}
	return hasWord(ctx.Text(mods), "public")
}

func (e *javaExtractor) parameters(ctx *ExtractionContext, params *sitter.Node) []Parameter {
	var out []Parameter
	for _, p := range NamedChildren(params) {
		switch p.Kind() {
		case "formal_parameter":
			out = append(out, Parameter{Name: ctx.Field(p, "name"), Type: ctx.Field(p, "type")})
		case "spread_parameter":
			out = append(out, Parameter{Name: collapseSpace(ctx.Text(p)), Optional: true})
		}
	}
	return out
}
