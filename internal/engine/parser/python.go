package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

type pythonExtractor struct{}

func (e *pythonExtractor) extract(ctx *ExtractionContext, root *sitter.Node) {
	for _, node := range NamedChildren(root) {
		switch node.Kind() {
		case "import_statement":
			e.extractImport(ctx, node)
		case "import_from_statement":
			e.extractFromImport(ctx, node)
		case "expression_statement":
			e.extractAssignment(ctx, node)
		default:
			e.definition(ctx, node, node, "")
		}
	}
}

func (e *pythonExtractor) extractImport(ctx *ExtractionContext, node *sitter.Node) {
	for _, child := range NamedChildren(node) {
		switch child.Kind() {
		case "dotted_name":
			module := ctx.Text(child)
			ctx.Result.Imports = append(ctx.Result.Imports, Import{
				Source:    module,
				Namespace: lastDotted(module),
				Line:      ctx.Line(node),
			})
		case "aliased_import":
			module := ctx.Field(child, "name")
			ctx.Result.Imports = append(ctx.Result.Imports, Import{
				Source:    module,
				Namespace: ctx.Field(child, "alias"),
				Line:      ctx.Line(node),
			})
		}
	}
}

// extractFromImport handles "from X import a, b as c" and relative forms.
func (e *pythonExtractor) extractFromImport(ctx *ExtractionContext, node *sitter.Node) {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}
	imp := Import{Source: ctx.Text(moduleNode), Line: ctx.Line(node)}
	for _, child := range NamedChildren(node) {
		if child.StartByte() == moduleNode.StartByte() && child.EndByte() == moduleNode.EndByte() {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			imp.Specifiers = append(imp.Specifiers, ctx.Text(child))
		case "aliased_import":
			imp.Specifiers = append(imp.Specifiers, ctx.Field(child, "alias"))
		case "wildcard_import":
			imp.Specifiers = append(imp.Specifiers, "*")
		}
	}
	ctx.Result.Imports = append(ctx.Result.Imports, imp)
}

// extractAssignment records module-level "NAME = value" bindings.
func (e *pythonExtractor) extractAssignment(ctx *ExtractionContext, node *sitter.Node) {
	assign := ChildOfKind(node, "assignment")
	if assign == nil {
		return
	}
	left := assign.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	name := ctx.Text(left)
	ctx.AddSymbol(node, Symbol{
		Name:      name,
		Kind:      KindVariable,
		Signature: ctx.Signature(node, nil),
		Docstring: ctx.LeadingComment(node),
		Exported:  isPythonPublic(name),
	})
}

// definition extracts function and class definitions. outer is the
// decorated_definition wrapper when decorators are present.
func (e *pythonExtractor) definition(ctx *ExtractionContext, node, outer *sitter.Node, parent string) {
	switch node.Kind() {
	case "decorated_definition":
		if def := node.ChildByFieldName("definition"); def != nil {
			e.definition(ctx, def, node, parent)
		}

	case "function_definition":
		name := ctx.Field(node, "name")
		body := node.ChildByFieldName("body")
		kind := KindFunction
		if parent != "" {
			kind = KindMethod
		}
		ctx.AddSymbol(outer, Symbol{
			Name:       name,
			Kind:       kind,
			Signature:  ctx.Signature(node, body),
			Parameters: e.parameters(ctx, node.ChildByFieldName("parameters")),
			Docstring:  e.docstring(ctx, node, body),
			Exported:   isPythonPublic(name) || isDunder(name),
			Async:      ChildOfKind(node, "async") != nil,
			Parent:     parent,
		})

	case "class_definition":
		name := ctx.Field(node, "name")
		body := node.ChildByFieldName("body")
		ctx.AddSymbol(outer, Symbol{
			Name:      name,
			Kind:      KindClass,
			Signature: ctx.Signature(node, body),
			Docstring: e.docstring(ctx, node, body),
			Exported:  isPythonPublic(name),
			Parent:    parent,
		})
		for _, member := range NamedChildren(body) {
			e.definition(ctx, member, member, name)
		}
	}
}

// docstring prefers the PEP 257 string literal and falls back to a leading
// comment block.
func (e *pythonExtractor) docstring(ctx *ExtractionContext, def, body *sitter.Node) string {
	if body != nil && body.NamedChildCount() > 0 {
		first := body.NamedChild(0)
		if first != nil && first.Kind() == "expression_statement" {
			if str := ChildOfKind(first, "string"); str != nil {
				return strings.TrimSpace(trimQuotes(ctx.Text(str)))
			}
		}
	}
	return ctx.LeadingComment(def)
}

func (e *pythonExtractor) parameters(ctx *ExtractionContext, params *sitter.Node) []Parameter {
	var out []Parameter
	for _, p := range NamedChildren(params) {
		var param Parameter
		switch p.Kind() {
		case "identifier":
			param.Name = ctx.Text(p)
		case "typed_parameter":
			if id := ChildOfKind(p, "identifier", "list_splat_pattern", "dictionary_splat_pattern"); id != nil {
				param.Name = ctx.Text(id)
			}
			param.Type = ctx.Field(p, "type")
		case "default_parameter":
			param.Name = ctx.Field(p, "name")
			param.Default = ctx.Field(p, "value")
			param.Optional = true
		case "typed_default_parameter":
			param.Name = ctx.Field(p, "name")
			param.Type = ctx.Field(p, "type")
			param.Default = ctx.Field(p, "value")
			param.Optional = true
		case "list_splat_pattern", "dictionary_splat_pattern":
			param.Name = ctx.Text(p)
			param.Optional = true
		default:
			continue
		}
		if param.Name == "self" || param.Name == "cls" {
			continue
		}
		out = append(out, param)
	}
	return out
}

func isPythonPublic(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_")
}

func isDunder(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

func lastDotted(module string) string {
	if idx := strings.LastIndex(module, "."); idx >= 0 {
		return module[idx+1:]
	}
	return module
}
