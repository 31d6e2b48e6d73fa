package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// jsExtractor handles JavaScript, TypeScript and TSX. The three grammars
// share node kinds for everything the compactor extracts.
type jsExtractor struct{}

func (e *jsExtractor) extract(ctx *ExtractionContext, root *sitter.Node) {
	for _, node := range NamedChildren(root) {
		e.topLevel(ctx, node)
	}
}

func (e *jsExtractor) topLevel(ctx *ExtractionContext, node *sitter.Node) {
	switch node.Kind() {
	case "import_statement":
		e.extractImport(ctx, node)
	case "export_statement":
		e.extractExport(ctx, node)
	case "ambient_declaration":
		for _, child := range NamedChildren(node) {
			e.declaration(ctx, child, node, false)
		}
	default:
		e.declaration(ctx, node, node, false)
	}
}

func (e *jsExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) {
	source := trimQuotes(ctx.Field(node, "source"))
	if source == "" {
		return
	}
	imp := Import{Source: source, Line: ctx.Line(node)}
	if clause := ChildOfKind(node, "import_clause"); clause != nil {
		for _, part := range NamedChildren(clause) {
			switch part.Kind() {
			case "identifier":
				imp.Default = ctx.Text(part)
			case "namespace_import":
				if id := ChildOfKind(part, "identifier"); id != nil {
					imp.Namespace = ctx.Text(id)
				}
			case "named_imports":
				for _, spec := range NamedChildren(part) {
					if spec.Kind() != "import_specifier" {
						continue
					}
					name := ctx.Field(spec, "alias")
					if name == "" {
						name = ctx.Field(spec, "name")
					}
					if name != "" {
						imp.Specifiers = append(imp.Specifiers, name)
					}
				}
			}
		}
	}
	ctx.Result.Imports = append(ctx.Result.Imports, imp)
}

func (e *jsExtractor) extractExport(ctx *ExtractionContext, node *sitter.Node) {
	isDefault := ChildOfKind(node, "default") != nil
	if decl := node.ChildByFieldName("declaration"); decl != nil {
		e.declaration(ctx, decl, node, true)
		return
	}

	// export { a, b as c } [from "./x"]; with a source the clause names
	// bind the other module's exports, not local declarations.
	source := trimQuotes(ctx.Field(node, "source"))
	var reexport *Import
	if source != "" {
		reexport = &Import{Source: source, Line: ctx.Line(node)}
	}
	if clause := ChildOfKind(node, "export_clause"); clause != nil {
		for _, spec := range NamedChildren(clause) {
			if spec.Kind() != "export_specifier" {
				continue
			}
			original := ctx.Field(spec, "name")
			name := ctx.Field(spec, "alias")
			if name == "" {
				name = original
			}
			ctx.AddExport(name, "", false, ctx.Line(spec))
			switch {
			case reexport == nil:
				e.markExported(ctx, original)
			case original == "default":
				reexport.Default = name
			default:
				reexport.Specifiers = append(reexport.Specifiers, original)
			}
		}
	} else if reexport != nil {
		// export * from "./x" and export * as ns from "./x"
		reexport.Specifiers = []string{"*"}
	}
	if reexport != nil {
		ctx.Result.Imports = append(ctx.Result.Imports, *reexport)
		return
	}

	if value := node.ChildByFieldName("value"); value != nil {
		switch value.Kind() {
		case "identifier":
			ctx.AddExport(ctx.Text(value), "", true, ctx.Line(node))
			e.markExported(ctx, ctx.Text(value))
		case "function_expression", "function", "arrow_function", "class":
			kind := KindFunction
			if value.Kind() == "class" {
				kind = KindClass
			}
			name := ctx.Field(value, "name")
			if name == "" {
				name = "default"
			}
			ctx.AddSymbol(node, Symbol{
				Name:       name,
				Kind:       kind,
				Signature:  ctx.Signature(node, value.ChildByFieldName("body")),
				Parameters: e.parameters(ctx, value),
				Docstring:  ctx.LeadingComment(node),
				Exported:   true,
			})
			ctx.AddExport(name, kind, true, ctx.Line(node))
		default:
			ctx.AddExport("default", KindVariable, isDefault, ctx.Line(node))
		}
	}
}

// markExported flags an already extracted top-level symbol as exported.
func (e *jsExtractor) markExported(ctx *ExtractionContext, name string) {
	for i := range ctx.Result.Symbols {
		sym := &ctx.Result.Symbols[i]
		if sym.Name == name && sym.Parent == "" {
			sym.Exported = true
		}
	}
}

// declaration extracts decl; outer is the node whose text and comments
// represent it (the export statement when exported).
func (e *jsExtractor) declaration(ctx *ExtractionContext, decl, outer *sitter.Node, exported bool) {
	isDefault := exported && ChildOfKind(outer, "default") != nil
	doc := ctx.LeadingComment(outer)

	switch decl.Kind() {
	case "function_declaration", "generator_function_declaration", "function_signature":
		name := ctx.Field(decl, "name")
		if name == "" && isDefault {
			name = "default"
		}
		ctx.AddSymbol(outer, Symbol{
			Name:       name,
			Kind:       KindFunction,
			Signature:  ctx.Signature(outer, decl.ChildByFieldName("body")),
			Parameters: e.parameters(ctx, decl),
			Docstring:  doc,
			Exported:   exported,
			Body:       ctx.Text(outer),
		})
		if exported {
			ctx.AddExport(name, KindFunction, isDefault, ctx.Line(outer))
		}

	case "class_declaration", "abstract_class_declaration", "class":
		name := ctx.Field(decl, "name")
		if name == "" && isDefault {
			name = "default"
		}
		body := decl.ChildByFieldName("body")
		ctx.AddSymbol(outer, Symbol{
			Name:      name,
			Kind:      KindClass,
			Signature: ctx.Signature(outer, body),
			Docstring: doc,
			Exported:  exported,
			Body:      ctx.Text(outer),
		})
		if exported {
			ctx.AddExport(name, KindClass, isDefault, ctx.Line(outer))
		}
		e.classMembers(ctx, name, body, exported)

	case "interface_declaration":
		name := ctx.Field(decl, "name")
		ctx.AddSymbol(outer, Symbol{
			Name:      name,
			Kind:      KindInterface,
			Signature: ctx.Signature(outer, decl.ChildByFieldName("body")),
			Docstring: doc,
			Exported:  exported,
			Body:      ctx.Text(outer),
		})
		if exported {
			ctx.AddExport(name, KindInterface, isDefault, ctx.Line(outer))
		}

	case "type_alias_declaration", "enum_declaration":
		name := ctx.Field(decl, "name")
		ctx.AddSymbol(outer, Symbol{
			Name:      name,
			Kind:      KindType,
			Signature: ctx.Signature(outer, decl.ChildByFieldName("body")),
			Docstring: doc,
			Exported:  exported,
			Body:      ctx.Text(outer),
		})
		if exported {
			ctx.AddExport(name, KindType, isDefault, ctx.Line(outer))
		}

	case "lexical_declaration", "variable_declaration":
		for _, declarator := range NamedChildren(decl) {
			if declarator.Kind() != "variable_declarator" {
				continue
			}
			e.variable(ctx, declarator, outer, doc, exported)
		}
	}
}

func (e *jsExtractor) variable(ctx *ExtractionContext, declarator, outer *sitter.Node, doc string, exported bool) {
	name := ctx.Field(declarator, "name")
	if name == "" {
		return
	}
	value := declarator.ChildByFieldName("value")
	sym := Symbol{
		Name:      name,
		Kind:      KindVariable,
		Docstring: doc,
		Exported:  exported,
		Body:      ctx.Text(outer),
	}
	if value != nil {
		switch value.Kind() {
		case "arrow_function", "function_expression", "function", "generator_function":
			sym.Kind = KindFunction
			sym.Parameters = e.parameters(ctx, value)
			sym.Signature = ctx.Signature(outer, value.ChildByFieldName("body"))
			sym.Async = ChildOfKind(value, "async") != nil
		case "class":
			sym.Kind = KindClass
			sym.Signature = ctx.Signature(outer, value.ChildByFieldName("body"))
		}
	}
	if sym.Signature == "" {
		sym.Signature = ctx.Signature(outer, nil)
	}
	ctx.AddSymbol(outer, sym)
	if exported {
		ctx.AddExport(name, sym.Kind, false, ctx.Line(outer))
	}
}

func (e *jsExtractor) classMembers(ctx *ExtractionContext, className string, body *sitter.Node, classExported bool) {
	for _, member := range NamedChildren(body) {
		switch member.Kind() {
		case "method_definition", "method_signature", "abstract_method_signature":
			name := ctx.Field(member, "name")
			private := strings.HasPrefix(name, "#") || strings.HasPrefix(name, "_") ||
				e.accessibility(ctx, member) == "private" || e.accessibility(ctx, member) == "protected"
			ctx.AddSymbol(member, Symbol{
				Name:       name,
				Kind:       KindMethod,
				Signature:  ctx.Signature(member, member.ChildByFieldName("body")),
				Parameters: e.parameters(ctx, member),
				Docstring:  ctx.LeadingComment(member),
				Exported:   classExported && !private,
				Async:      ChildOfKind(member, "async") != nil,
				Parent:     className,
			})
		}
	}
}

func (e *jsExtractor) accessibility(ctx *ExtractionContext, member *sitter.Node) string {
	if mod := ChildOfKind(member, "accessibility_modifier"); mod != nil {
		return strings.TrimSpace(ctx.Text(mod))
	}
	return ""
}

func (e *jsExtractor) parameters(ctx *ExtractionContext, fn *sitter.Node) []Parameter {
	if fn == nil {
		return nil
	}
	if single := fn.ChildByFieldName("parameter"); single != nil {
		return []Parameter{{Name: ctx.Text(single)}}
	}
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []Parameter
	for _, p := range NamedChildren(params) {
		switch p.Kind() {
		case "identifier":
			out = append(out, Parameter{Name: ctx.Text(p)})
		case "assignment_pattern":
			out = append(out, Parameter{Name: ctx.Field(p, "left"), Default: ctx.Field(p, "right"), Optional: true})
		case "rest_pattern":
			out = append(out, Parameter{Name: ctx.Text(p)})
		case "object_pattern", "array_pattern":
			out = append(out, Parameter{Name: collapseSpace(ctx.Text(p))})
		case "required_parameter", "optional_parameter":
			param := Parameter{
				Name:     ctx.Field(p, "pattern"),
				Type:     strings.TrimSpace(strings.TrimPrefix(ctx.Field(p, "type"), ":")),
				Default:  ctx.Field(p, "value"),
				Optional: p.Kind() == "optional_parameter",
			}
			if param.Default != "" {
				param.Optional = true
			}
			if param.Name == "" {
				param.Name = collapseSpace(ctx.Text(p))
			}
			out = append(out, param)
		}
	}
	return out
}
