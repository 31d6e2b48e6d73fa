package pruner

import (
	"path"
	"strings"

	"ambiance/internal/engine/parser"
	"ambiance/internal/shared/util"
)

var jsResolveExtensions = []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"}

// LinkFiles resolves project-local imports between files. Each importing
// file gains the imported file in Dependencies, and every exported symbol it
// imports by name gains a references edge whose File is the importer.
// Importance of the referenced symbols is recomputed afterwards.
func (p *Pruner) LinkFiles(files []*PrunedFile) {
	byPath := make(map[string]*PrunedFile, len(files))
	for _, f := range files {
		byPath[f.RelPath] = f
	}

	touched := make(map[*PrunedSymbol]bool)
	for _, importer := range files {
		seenDeps := make(map[string]bool, len(importer.Dependencies))
		for _, dep := range importer.Dependencies {
			seenDeps[dep] = true
		}
		for _, imp := range importer.Imports {
			target := resolveImport(importer, imp, byPath)
			if target == nil || target == importer {
				continue
			}
			if !seenDeps[target.RelPath] {
				seenDeps[target.RelPath] = true
				importer.Dependencies = append(importer.Dependencies, target.RelPath)
			}
			for _, sym := range importedSymbols(importer, imp, target) {
				if sym.HasRelationship(RelReferences, importer.RelPath) {
					continue
				}
				sym.Relationships = append(sym.Relationships, Relationship{
					Type:   RelReferences,
					Target: importer.RelPath,
					File:   importer.RelPath,
					Line:   imp.Line,
				})
				touched[sym] = true
			}
		}
	}

	for sym := range touched {
		sym.Importance = Importance(sym.Symbol, len(sym.Relationships))
	}
}

// importedSymbols lists the exported symbols of target that imp binds.
func importedSymbols(importer *PrunedFile, imp parser.Import, target *PrunedFile) []*PrunedSymbol {
	var out []*PrunedSymbol
	wildcard := false
	for _, name := range imp.Specifiers {
		if name == "*" {
			wildcard = true
			continue
		}
		if sym := target.Symbol(name); sym != nil && sym.Exported {
			out = append(out, sym)
		}
	}
	if imp.Default != "" {
		for _, exp := range target.Exports {
			if exp.Default {
				if sym := target.Symbol(exp.Name); sym != nil {
					out = append(out, sym)
				}
			}
		}
	}
	if imp.Namespace != "" || wildcard {
		// Namespace imports count only the members the importer touches.
		for _, sym := range target.Symbols {
			if !sym.Exported || sym.Parent != "" {
				continue
			}
			if wildcard || strings.Contains(importer.Content, imp.Namespace+"."+sym.Name) {
				out = append(out, sym)
			}
		}
	}
	return out
}

// resolveImport maps an import onto a project file. Relative JS/TS
// specifiers, relative and absolute Python modules and Java class imports
// are resolved; package-path imports (Go, Rust crates, npm) are not.
func resolveImport(importer *PrunedFile, imp parser.Import, byPath map[string]*PrunedFile) *PrunedFile {
	source := imp.Source
	if source == "" {
		return nil
	}
	dir := path.Dir(importer.RelPath)

	switch {
	case importer.Language.IsJSFamily():
		if !strings.HasPrefix(source, ".") {
			return nil
		}
		base := path.Join(dir, source)
		candidates := []string{base}
		for _, ext := range jsResolveExtensions {
			candidates = append(candidates, base+ext)
		}
		// "./a.js" may be written for a TypeScript source "./a.ts".
		if ext := path.Ext(base); ext != "" {
			stem := strings.TrimSuffix(base, ext)
			for _, alt := range jsResolveExtensions {
				candidates = append(candidates, stem+alt)
			}
		}
		for _, ext := range jsResolveExtensions {
			candidates = append(candidates, path.Join(base, "index"+ext))
		}
		return firstExisting(candidates, byPath)

	case importer.Language == parser.LangPython:
		modDir := ""
		rest := source
		if strings.HasPrefix(source, ".") {
			dots := len(source) - len(strings.TrimLeft(source, "."))
			modDir = dir
			for i := 1; i < dots; i++ {
				modDir = path.Dir(modDir)
			}
			rest = source[dots:]
		}
		var candidates []string
		if rest == "" {
			// "from . import x" binds sibling modules.
			for _, name := range imp.Specifiers {
				candidates = append(candidates, path.Join(modDir, name+".py"))
			}
		}
		base := path.Join(modDir, strings.ReplaceAll(rest, ".", "/"))
		candidates = append(candidates, base+".py", path.Join(base, "__init__.py"))
		return firstExisting(candidates, byPath)

	case importer.Language == parser.LangJava:
		suffix := strings.ReplaceAll(source, ".", "/") + ".java"
		for _, rel := range util.SortedStringKeys(byPath) {
			if rel == suffix || strings.HasSuffix(rel, "/"+suffix) {
				return byPath[rel]
			}
		}
	}
	return nil
}

func firstExisting(candidates []string, byPath map[string]*PrunedFile) *PrunedFile {
	for _, c := range candidates {
		if f, ok := byPath[path.Clean(c)]; ok {
			return f
		}
	}
	return nil
}
