package pruner

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"ambiance/internal/engine/parser"
	"ambiance/internal/shared/tokens"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultOptions() Options {
	return Options{MaxFunctionBodyLines: 10, IncludePrivateMethods: true, IncludeDocstrings: true}
}

func parse(t *testing.T, path, src string) *parser.ParseResult {
	t.Helper()
	p, err := parser.New(nil, 0)
	require.NoError(t, err)
	defer p.Close()
	res := p.Parse(context.Background(), path, []byte(src))
	require.Empty(t, res.Errors)
	return res
}

func TestTruncate(t *testing.T) {
	short := "function a() {\n  return 1;\n}"
	got, truncated := Truncate(short, 10, "//")
	assert.Equal(t, short, got)
	assert.False(t, truncated)
	assert.NotContains(t, got, "more lines")

	var b strings.Builder
	b.WriteString("function long() {\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "  step%d();\n", i)
	}
	b.WriteString("}")
	got, truncated = Truncate(b.String(), 10, "//")
	assert.True(t, truncated)
	assert.LessOrEqual(t, len(strings.Split(got, "\n")), 11)
	assert.Contains(t, got, "// ... (22 more lines)")

	got, _ = Truncate("def f():\n"+strings.Repeat("    x = 1\n", 12), 5, "#")
	assert.Contains(t, got, "    # ... (9 more lines)")
}

func TestTruncate_ExactBudgetUnchanged(t *testing.T) {
	body := strings.TrimSuffix(strings.Repeat("line\n", 10), "\n")
	got, truncated := Truncate(body, 10, "//")
	assert.Equal(t, body, got)
	assert.False(t, truncated)
}

func TestImportance(t *testing.T) {
	base := parser.Symbol{Name: "f", Kind: parser.KindFunction}
	exported := base
	exported.Exported = true
	assert.Greater(t, Importance(exported, 0), Importance(base, 0))
	assert.Greater(t, Importance(exported, 3), Importance(base, 3))

	tests := []struct {
		name string
		sym  parser.Symbol
		rels int
		want float64
	}{
		{"bare", base, 0, 0},
		{"exported", exported, 0, 10},
		{"relationships capped", base, 40, 5},
		{"parameters capped", parser.Symbol{Kind: parser.KindFunction, Parameters: make([]parser.Parameter, 9)}, 0, 2.5},
		{"doc capped", parser.Symbol{Kind: parser.KindFunction, Docstring: strings.Repeat("x", 1000)}, 0, 3},
		{"doc partial", parser.Symbol{Kind: parser.KindFunction, Docstring: strings.Repeat("x", 25)}, 0, 0.5},
		{"type kind", parser.Symbol{Kind: parser.KindInterface}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Importance(tt.sym, tt.rels), 1e-9)
		})
	}
}

func TestStripComments(t *testing.T) {
	body := "function a() {\n  // note\n  /* block\n   still */\n  return 1; // trailing\n}"
	got := StripComments(body, parser.LangTypeScript)
	assert.Equal(t, "function a() {\n  return 1; // trailing\n}", got)

	py := "def f():\n    # note\n    return 1"
	assert.Equal(t, "def f():\n    return 1", StripComments(py, parser.LangPython))
}

func TestPruneFile(t *testing.T) {
	src := `import { helper } from "./helper";

/** Formats a value. */
export function formatString(value: string): string {
  // normalise first
  return helper(value).trim();
}

class Internal extends Base implements Runner, Closer {
  private reset() {}
  run() { return new Internal(); }
}
`
	res := parse(t, "src/format.ts", src)

	p := New(Options{MaxFunctionBodyLines: 10, IncludePrivateMethods: false, IncludeDocstrings: true})
	file := p.PruneFile(res, "/abs/src/format.ts")

	assert.Equal(t, "src/format.ts", file.RelPath)
	assert.Equal(t, "/abs/src/format.ts", file.Path)
	assert.Greater(t, file.OriginalTokens, 0)

	names := make([]string, 0, len(file.Symbols))
	for _, s := range file.Symbols {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"formatString", "Internal"}, names, "private methods are dropped")

	fn := file.Symbol("formatString")
	require.NotNil(t, fn)
	assert.Equal(t, 1, fn.DuplicateCount)
	assert.True(t, fn.HasRelationship(RelExports, "formatString"))
	assert.True(t, fn.HasRelationship(RelCalls, "helper"))
	assert.True(t, fn.HasRelationship(RelCalls, "trim"))
	assert.True(t, fn.HasRelationship(RelImports, "helper"))
	assert.False(t, fn.HasRelationship(RelCalls, "formatString"))
	assert.NotContains(t, fn.CompactedBody, "normalise first")

	cls := file.Symbol("Internal")
	require.NotNil(t, cls)
	assert.True(t, cls.HasRelationship(RelExtends, "Base"))
	assert.True(t, cls.HasRelationship(RelImplements, "Runner"))
	assert.True(t, cls.HasRelationship(RelImplements, "Closer"))
	assert.Greater(t, fn.Importance, cls.Importance)

	sum, words := 0, 0
	for _, s := range file.Symbols {
		sum += s.TokenCount
		words += tokens.Words(s.CompactedBody) + tokens.Words(s.Docstring)
	}
	assert.Equal(t, tokens.ForWords(words), file.TokenCount)
	assert.LessOrEqual(t, file.TokenCount, sum)
}

func TestPruneFile_PythonBasesAndDocstrings(t *testing.T) {
	src := `class Repo(Base, metaclass=Meta):
    """Stores rows."""
    pass
`
	res := parse(t, "repo.py", src)

	withDocs := New(defaultOptions()).PruneFile(res, "repo.py")
	opts := defaultOptions()
	opts.IncludeDocstrings = false
	withoutDocs := New(opts).PruneFile(res, "repo.py")

	repo := withDocs.Symbol("Repo")
	require.NotNil(t, repo)
	assert.True(t, repo.HasRelationship(RelExtends, "Base"))
	assert.False(t, repo.HasRelationship(RelExtends, "metaclass=Meta"))
	assert.Greater(t, withDocs.TokenCount, withoutDocs.TokenCount)
	assert.Equal(t, repo.Importance, withoutDocs.Symbol("Repo").Importance)
}

func TestPruneFile_RustTraitImpl(t *testing.T) {
	src := `pub struct Cache {}

impl Display for Cache {
    fn fmt(&self) {}
}
`
	res := parse(t, "lib.rs", src)
	file := New(defaultOptions()).PruneFile(res, "lib.rs")
	cache := file.Symbol("Cache")
	require.NotNil(t, cache)
	assert.True(t, cache.HasRelationship(RelImplements, "Display"))
}

func TestPruneFile_TruncatesLongBodies(t *testing.T) {
	var b strings.Builder
	b.WriteString("export function big(a) {\n")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, "  a = a + %d;\n", i)
	}
	b.WriteString("  return a;\n}\n")
	res := parse(t, "big.js", b.String())

	opts := defaultOptions()
	opts.MaxFunctionBodyLines = 8
	file := New(opts).PruneFile(res, "big.js")
	sym := file.Symbol("big")
	require.NotNil(t, sym)
	assert.True(t, sym.Truncated)
	assert.LessOrEqual(t, len(strings.Split(sym.CompactedBody, "\n")), 9)
	assert.Less(t, sym.TokenCount, file.OriginalTokens)
}

func TestLinkFiles_FormatStringScenario(t *testing.T) {
	a := parse(t, "src/a.ts", "export function formatString(s: string) {\n  return s.trim();\n}\n")
	b := parse(t, "src/b.ts", `import { formatString } from "./a";

export function render(name: string) {
  return formatString(name);
}
`)
	p := New(defaultOptions())
	fa := p.PruneFile(a, "/p/src/a.ts")
	fb := p.PruneFile(b, "/p/src/b.ts")
	before := fa.Symbol("formatString").Importance

	p.LinkFiles([]*PrunedFile{fa, fb})

	assert.Equal(t, []string{"src/a.ts"}, fb.Dependencies)
	assert.Empty(t, fa.Dependencies)

	fs := fa.Symbol("formatString")
	require.NotNil(t, fs)
	var ref *Relationship
	for i := range fs.Relationships {
		if fs.Relationships[i].Type == RelReferences {
			ref = &fs.Relationships[i]
		}
	}
	require.NotNil(t, ref)
	assert.Equal(t, "src/b.ts", ref.File)
	assert.Equal(t, 1, ref.Line)
	assert.Greater(t, fs.Importance, before)

	// Linking again adds nothing.
	p.LinkFiles([]*PrunedFile{fa, fb})
	assert.Len(t, fb.Dependencies, 1)
	count := 0
	for _, r := range fs.Relationships {
		if r.Type == RelReferences {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestLinkFiles_ResolutionForms(t *testing.T) {
	mk := func(rel string, lang parser.Language, imports ...parser.Import) *PrunedFile {
		return &PrunedFile{RelPath: rel, Language: lang, Imports: imports}
	}
	tests := []struct {
		name     string
		importer *PrunedFile
		files    []*PrunedFile
		want     string
	}{
		{
			"ts index",
			mk("src/app.ts", parser.LangTypeScript, parser.Import{Source: "./utils"}),
			[]*PrunedFile{mk("src/utils/index.ts", parser.LangTypeScript)},
			"src/utils/index.ts",
		},
		{
			"js extension swap",
			mk("src/app.ts", parser.LangTypeScript, parser.Import{Source: "../lib/x.js"}),
			[]*PrunedFile{mk("lib/x.ts", parser.LangTypeScript)},
			"lib/x.ts",
		},
		{
			"python relative",
			mk("pkg/sub/a.py", parser.LangPython, parser.Import{Source: "..models"}),
			[]*PrunedFile{mk("pkg/models.py", parser.LangPython)},
			"pkg/models.py",
		},
		{
			"python sibling",
			mk("pkg/a.py", parser.LangPython, parser.Import{Source: ".", Specifiers: []string{"b"}}),
			[]*PrunedFile{mk("pkg/b.py", parser.LangPython)},
			"pkg/b.py",
		},
		{
			"python absolute package",
			mk("main.py", parser.LangPython, parser.Import{Source: "pkg.core"}),
			[]*PrunedFile{mk("pkg/core/__init__.py", parser.LangPython)},
			"pkg/core/__init__.py",
		},
		{
			"java class",
			mk("src/main/java/app/Main.java", parser.LangJava, parser.Import{Source: "app.util.Strings"}),
			[]*PrunedFile{mk("src/main/java/app/util/Strings.java", parser.LangJava)},
			"src/main/java/app/util/Strings.java",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			New(defaultOptions()).LinkFiles(append([]*PrunedFile{tt.importer}, tt.files...))
			assert.Equal(t, []string{tt.want}, tt.importer.Dependencies)
		})
	}
}

func TestLinkFiles_NamespaceImport(t *testing.T) {
	a := parse(t, "a.ts", "export function used() {}\nexport function unused() {}\n")
	b := parse(t, "b.ts", "import * as lib from \"./a\";\nexport const x = lib.used();\n")
	p := New(defaultOptions())
	fa, fb := p.PruneFile(a, "a.ts"), p.PruneFile(b, "b.ts")
	p.LinkFiles([]*PrunedFile{fa, fb})

	assert.True(t, fa.Symbol("used").HasRelationship(RelReferences, "b.ts"))
	assert.False(t, fa.Symbol("unused").HasRelationship(RelReferences, "b.ts"))
}

func TestLinkFiles_NamedReexportReferencesOnlyItsNames(t *testing.T) {
	x := parse(t, "x.ts", "export function a() {}\nexport function other() {}\n")
	idx := parse(t, "index.ts", "export { a } from \"./x\";\n")
	p := New(defaultOptions())
	fx, fidx := p.PruneFile(x, "x.ts"), p.PruneFile(idx, "index.ts")
	p.LinkFiles([]*PrunedFile{fx, fidx})

	assert.Equal(t, []string{"x.ts"}, fidx.Dependencies)
	assert.True(t, fx.Symbol("a").HasRelationship(RelReferences, "index.ts"))
	assert.False(t, fx.Symbol("other").HasRelationship(RelReferences, "index.ts"))
}

func TestLinkFiles_StarReexportReferencesEveryExport(t *testing.T) {
	x := parse(t, "x.ts", "export function a() {}\nexport function other() {}\n")
	idx := parse(t, "index.ts", "export * from \"./x\";\n")
	p := New(defaultOptions())
	fx, fidx := p.PruneFile(x, "x.ts"), p.PruneFile(idx, "index.ts")
	p.LinkFiles([]*PrunedFile{fx, fidx})

	assert.True(t, fx.Symbol("a").HasRelationship(RelReferences, "index.ts"))
	assert.True(t, fx.Symbol("other").HasRelationship(RelReferences, "index.ts"))
}

func TestTrimToBudget(t *testing.T) {
	body := strings.Repeat("word ", 30)
	file := &PrunedFile{Symbols: []*PrunedSymbol{
		{Symbol: parser.Symbol{Name: "a"}, Importance: 10, CompactedBody: body},
		{Symbol: parser.Symbol{Name: "b"}, Importance: 1, CompactedBody: body},
		{Symbol: parser.Symbol{Name: "c"}, Importance: 5, CompactedBody: body},
	}}
	for _, sym := range file.Symbols {
		sym.Recount()
	}
	file.Recount()
	require.Equal(t, 117, file.TokenCount)

	assert.Equal(t, 0, file.TrimToBudget(200))
	assert.Equal(t, 1, file.TrimToBudget(80))
	require.Len(t, file.Symbols, 2)
	assert.Equal(t, "a", file.Symbols[0].Name)
	assert.Equal(t, "c", file.Symbols[1].Name)
	assert.Equal(t, 78, file.TokenCount)
}

func TestPruneFile_ContainerElidesEmittedMembers(t *testing.T) {
	cases := []struct {
		name        string
		path        string
		src         string
		opts        Options
		container   string
		wantBody    string
		wantMembers []string
		contains    []string
		notContains []string
	}{
		{
			name: "class with only methods collapses to its header",
			path: "widget.ts",
			src: `export class Widget {
  render(x) {
    return x + 1;
  }

  update(y) {
    this.value = y;
  }
}
`,
			opts:        defaultOptions(),
			container:   "Widget",
			wantBody:    "export class Widget",
			wantMembers: []string{"render", "update"},
		},
		{
			name: "fields stay in the container",
			path: "store.ts",
			src: `class Store {
  private items = [];

  add(item) {
    this.items.push(item);
  }
}
`,
			opts:        defaultOptions(),
			container:   "Store",
			wantMembers: []string{"add"},
			contains:    []string{"private items = [];"},
			notContains: []string{"push"},
		},
		{
			name: "filtered members are not elided",
			path: "vault.ts",
			src: `export class Vault {
  #seal() {
    return 1;
  }

  open() {
    return 2;
  }
}
`,
			opts:        Options{MaxFunctionBodyLines: 10, IncludeDocstrings: true},
			container:   "Vault",
			wantMembers: []string{"open"},
			contains:    []string{"#seal()", "return 1;"},
			notContains: []string{"return 2;"},
		},
		{
			name: "python class",
			path: "repo.py",
			src: `class Repo:
    def save(self, item):
        return item
`,
			opts:        defaultOptions(),
			container:   "Repo",
			wantBody:    "class Repo",
			wantMembers: []string{"save"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			file := New(tc.opts).PruneFile(parse(t, tc.path, tc.src), tc.path)
			cls := file.Symbol(tc.container)
			require.NotNil(t, cls)
			if tc.wantBody != "" {
				assert.Equal(t, tc.wantBody, cls.CompactedBody)
			}
			assert.Equal(t, tc.wantMembers, cls.Members)
			for _, s := range tc.contains {
				assert.Contains(t, cls.CompactedBody, s)
			}
			for _, s := range tc.notContains {
				assert.NotContains(t, cls.CompactedBody, s)
			}
			// Member text is counted once, under the member.
			assert.LessOrEqual(t, file.TokenCount, file.OriginalTokens)
		})
	}
}
