package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type rustExtractor struct{}

func (e *rustExtractor) extract(ctx *ExtractionContext, root *sitter.Node) {
	e.items(ctx, root, "")
}

// items walks a source file or a module body. mod prefixes nothing; nested
// modules flatten into the file's symbol list.
func (e *rustExtractor) items(ctx *ExtractionContext, container *sitter.Node, parent string) {
	for _, node := range NamedChildren(container) {
		switch node.Kind() {
		case "use_declaration":
			e.extractUse(ctx, node)
		case "function_item", "function_signature_item":
			e.function(ctx, node, parent, false)
		case "struct_item", "union_item":
			e.typeItem(ctx, node, KindClass, parent)
		case "enum_item", "type_item":
			e.typeItem(ctx, node, KindType, parent)
		case "trait_item":
			name := e.typeItem(ctx, node, KindInterface, parent)
			for _, member := range NamedChildren(node.ChildByFieldName("body")) {
				if member.Kind() == "function_item" || member.Kind() == "function_signature_item" {
					e.function(ctx, member, name, true)
				}
			}
		case "impl_item":
			owner := ctx.Field(node, "type")
			if idx := strings.IndexByte(owner, '<'); idx >= 0 {
				owner = owner[:idx]
			}
			// Trait impls expose methods through the trait's visibility.
			viaTrait := node.ChildByFieldName("trait") != nil
			for _, member := range NamedChildren(node.ChildByFieldName("body")) {
				if member.Kind() == "function_item" {
					e.function(ctx, member, owner, viaTrait)
				}
			}
		case "const_item", "static_item":
			name := ctx.Field(node, "name")
			ctx.AddSymbol(node, Symbol{
				Name:      name,
				Kind:      KindVariable,
				Signature: ctx.Signature(node, nil),
				Docstring: ctx.LeadingComment(node),
				Exported:  e.isPublic(node),
				Parent:    parent,
			})
			e.export(ctx, node, name, KindVariable, parent)
		case "mod_item":
			if body := node.ChildByFieldName("body"); body != nil {
				e.items(ctx, body, parent)
			}
		}
	}
}

func (e *rustExtractor) function(ctx *ExtractionContext, node *sitter.Node, parent string, inheritVisibility bool) {
	name := ctx.Field(node, "name")
	kind := KindFunction
	if parent != "" {
		kind = KindMethod
	}
	ctx.AddSymbol(node, Symbol{
		Name:       name,
		Kind:       kind,
		Signature:  ctx.Signature(node, node.ChildByFieldName("body")),
		Parameters: e.parameters(ctx, node.ChildByFieldName("parameters")),
		Docstring:  ctx.LeadingComment(node),
		Exported:   e.isPublic(node) || inheritVisibility,
		Async:      ChildOfKind(ChildOfKind(node, "function_modifiers"), "async") != nil,
		Parent:     parent,
	})
	if kind == KindFunction {
		e.export(ctx, node, name, kind, parent)
	}
}

func (e *rustExtractor) typeItem(ctx *ExtractionContext, node *sitter.Node, kind SymbolKind, parent string) string {
	name := ctx.Field(node, "name")
	ctx.AddSymbol(node, Symbol{
		Name:      name,
		Kind:      kind,
		Signature: ctx.Signature(node, node.ChildByFieldName("body")),
		Docstring: ctx.LeadingComment(node),
		Exported:  e.isPublic(node),
		Parent:    parent,
	})
	e.export(ctx, node, name, kind, parent)
	return name
}

func (e *rustExtractor) export(ctx *ExtractionContext, node *sitter.Node, name string, kind SymbolKind, parent string) {
	if parent == "" && e.isPublic(node) {
		ctx.AddExport(name, kind, false, ctx.Line(node))
	}
}

func (e *rustExtractor) isPublic(node *sitter.Node) bool {
	return ChildOfKind(node, "visibility_modifier") != nil
}

// extractUse flattens "use a::b::{c, d as e};" into one import whose source
// is the shared path prefix.
func (e *rustExtractor) extractUse(ctx *ExtractionContext, node *sitter.Node) {
	arg := collapseSpace(ctx.Field(node, "argument"))
	if arg == "" {
		return
	}
	imp := Import{Line: ctx.Line(node)}
	if open := strings.IndexByte(arg, '{'); open >= 0 {
		imp.Source = strings.TrimSuffix(arg[:open], "::")
		inner := strings.TrimSuffix(arg[open+1:], "}")
		for _, item := range strings.Split(inner, ",") {
			if name := rustUseName(item); name != "" {
				imp.Specifiers = append(imp.Specifiers, name)
			}
		}
	} else {
		imp.Source = arg
		if idx := strings.Index(arg, " as "); idx >= 0 {
			imp.Source = arg[:idx]
		}
		if name := rustUseName(arg); name != "" {
			imp.Specifiers = []string{name}
		}
	}
	ctx.Result.Imports = append(ctx.Result.Imports, imp)
}

func rustUseName(item string) string {
	item = strings.TrimSpace(item)
	if idx := strings.Index(item, " as "); idx >= 0 {
		return strings.TrimSpace(item[idx+4:])
	}
	if idx := strings.LastIndex(item, "::"); idx >= 0 {
		item = item[idx+2:]
	}
	return strings.Trim(item, "{} ")
}

func (e *rustExtractor) parameters(ctx *ExtractionContext, params *sitter.Node) []Parameter {
	var out []Parameter
	for _, p := range NamedChildren(params) {
		switch p.Kind() {
		case "parameter":
			out = append(out, Parameter{Name: ctx.Field(p, "pattern"), Type: ctx.Field(p, "type")})
		case "variadic_parameter":
			out = append(out, Parameter{Name: ctx.Text(p), Optional: true})
		}
	}
	return out
}
