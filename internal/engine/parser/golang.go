package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type goExtractor struct{}

func (e *goExtractor) extract(ctx *ExtractionContext, root *sitter.Node) {
	for _, node := range NamedChildren(root) {
		switch node.Kind() {
		case "import_declaration":
			e.walkImports(ctx, node)
		case "function_declaration":
			e.extractCallable(ctx, node, KindFunction, "")
		case "method_declaration":
			e.extractCallable(ctx, node, KindMethod, e.receiverType(ctx, node))
		case "type_declaration":
			e.extractTypes(ctx, node)
		case "var_declaration", "const_declaration":
			e.extractVars(ctx, node)
		}
	}
	for _, sym := range ctx.Result.Symbols {
		if sym.Exported && sym.Parent == "" {
			ctx.AddExport(sym.Name, sym.Kind, false, sym.Location.StartLine)
		}
	}
}

func (e *goExtractor) walkImports(ctx *ExtractionContext, node *sitter.Node) {
	for _, child := range NamedChildren(node) {
		if child.Kind() == "import_spec" {
			path := trimQuotes(ctx.Field(child, "path"))
			if path == "" {
				continue
			}
			alias := ctx.Field(child, "name")
			if alias == "" {
				alias = path[strings.LastIndex(path, "/")+1:]
			}
			ctx.Result.Imports = append(ctx.Result.Imports, Import{
				Source:    path,
				Namespace: alias,
				Line:      ctx.Line(child),
			})
			continue
		}
		e.walkImports(ctx, child)
	}
}

func (e *goExtractor) extractCallable(ctx *ExtractionContext, node *sitter.Node, kind SymbolKind, parent string) {
	name := ctx.Field(node, "name")
	ctx.AddSymbol(node, Symbol{
		Name:       name,
		Kind:       kind,
		Signature:  ctx.Signature(node, node.ChildByFieldName("body")),
		Parameters: e.parameters(ctx, node.ChildByFieldName("parameters")),
		Docstring:  ctx.LeadingComment(node),
		Exported:   isUpperInitial(name),
		Parent:     parent,
	})
}

func (e *goExtractor) receiverType(ctx *ExtractionContext, node *sitter.Node) string {
	receiver := node.ChildByFieldName("receiver")
	for _, param := range NamedChildren(receiver) {
		typ := ctx.Field(param, "type")
		typ = strings.TrimPrefix(strings.TrimSpace(typ), "*")
		if idx := strings.IndexByte(typ, '['); idx >= 0 {
			typ = typ[:idx]
		}
		return typ
	}
	return ""
}

func (e *goExtractor) extractTypes(ctx *ExtractionContext, node *sitter.Node) {
	specs := NamedChildren(node)
	for _, spec := range specs {
		if spec.Kind() != "type_spec" && spec.Kind() != "type_alias" {
			continue
		}
		name := ctx.Field(spec, "name")
		kind := KindType
		typeNode := spec.ChildByFieldName("type")
		if typeNode != nil {
			switch typeNode.Kind() {
			case "struct_type":
				kind = KindClass
			case "interface_type":
				kind = KindInterface
			}
		}
		// A single spec carries the "type" keyword and leading comment of its
		// declaration; grouped specs stand on their own.
		outer := spec
		if len(specs) == 1 {
			outer = node
		}
		ctx.AddSymbol(outer, Symbol{
			Name:      name,
			Kind:      kind,
			Signature: ctx.Signature(outer, e.typeBody(typeNode)),
			Docstring: ctx.LeadingComment(outer),
			Exported:  isUpperInitial(name),
		})
	}
}

func (e *goExtractor) typeBody(typeNode *sitter.Node) *sitter.Node {
	if typeNode == nil {
		return nil
	}
	switch typeNode.Kind() {
	case "struct_type":
		return ChildOfKind(typeNode, "field_declaration_list")
	case "interface_type":
		return typeNode
	}
	return nil
}

func (e *goExtractor) extractVars(ctx *ExtractionContext, node *sitter.Node) {
	var specs []*sitter.Node
	var collect func(n *sitter.Node)
	collect = func(n *sitter.Node) {
		for _, child := range NamedChildren(n) {
			switch child.Kind() {
			case "var_spec", "const_spec":
				specs = append(specs, child)
			case "var_spec_list":
				collect(child)
			}
		}
	}
	collect(node)

	for _, spec := range specs {
		outer := spec
		if len(specs) == 1 {
			outer = node
		}
		for _, id := range NamedChildren(spec) {
			if id.Kind() != "identifier" {
				continue
			}
			name := ctx.Text(id)
			if name == "_" {
				continue
			}
			ctx.AddSymbol(outer, Symbol{
				Name:      name,
				Kind:      KindVariable,
				Signature: ctx.Signature(outer, nil),
				Docstring: ctx.LeadingComment(outer),
				Exported:  isUpperInitial(name),
			})
		}
	}
}

func (e *goExtractor) parameters(ctx *ExtractionContext, params *sitter.Node) []Parameter {
	var out []Parameter
	for _, decl := range NamedChildren(params) {
		if decl.Kind() != "parameter_declaration" && decl.Kind() != "variadic_parameter_declaration" {
			continue
		}
		typ := ctx.Field(decl, "type")
		if decl.Kind() == "variadic_parameter_declaration" {
			typ = "..." + typ
		}
		named := false
		for _, id := range NamedChildren(decl) {
			if id.Kind() == "identifier" {
				out = append(out, Parameter{Name: ctx.Text(id), Type: typ})
				named = true
			}
		}
		if !named {
			out = append(out, Parameter{Type: typ})
		}
	}
	return out
}
