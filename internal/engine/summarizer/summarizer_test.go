package summarizer

import (
	"strings"
	"testing"

	"ambiance/internal/engine/parser"
	"ambiance/internal/engine/pruner"

	"github.com/stretchr/testify/assert"
)

func sym(name string, kind parser.SymbolKind) *pruner.PrunedSymbol {
	return &pruner.PrunedSymbol{Symbol: parser.Symbol{Name: name, Kind: kind, ID: name}}
}

func TestSymbolPurpose(t *testing.T) {
	withDoc := sym("whatever", parser.KindFunction)
	withDoc.Docstring = "Computes the checksum. Uses CRC32.\nMore detail."
	method := sym("get", parser.KindMethod)
	method.Parent = "UserCache"

	tests := []struct {
		name string
		sym  *pruner.PrunedSymbol
		want string
	}{
		{"docstring wins", withDoc, "Computes the checksum."},
		{"getter", sym("getUserById", parser.KindFunction), "Retrieves user by id"},
		{"handler", sym("handleRequest", parser.KindFunction), "Handles request"},
		{"snake case", sym("parse_config_file", parser.KindFunction), "Parses config file"},
		{"predicate", sym("isValid", parser.KindFunction), "Checks whether valid"},
		{"bare verb uses parent", method, "Retrieves user cache"},
		{"service class", sym("UserService", parser.KindClass), "Service class providing user operations"},
		{"controller class", sym("OrderController", parser.KindClass), "Controller handling order requests"},
		{"error class", sym("ValidationError", parser.KindClass), "Error type for validation failures"},
		{"interface", sym("Shape", parser.KindInterface), "Contract for shape"},
		{"type", sym("UserID", parser.KindType), "Type definition for user id"},
		{"constant", sym("MAX_RETRIES", parser.KindVariable), "Constant max retries"},
		{"plain class", sym("Widget", parser.KindClass), "class definition"},
		{"unknown function", sym("frobnicate", parser.KindFunction), "function definition"},
		{"variable", sym("counter", parser.KindVariable), "variable definition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SymbolPurpose(tt.sym))
		})
	}
}

func TestSplitIdentifier(t *testing.T) {
	assert.Equal(t, []string{"get", "user", "by", "id"}, SplitIdentifier("getUserById"))
	assert.Equal(t, []string{"http", "server"}, SplitIdentifier("HTTPServer"))
	assert.Equal(t, []string{"max", "retries"}, SplitIdentifier("MAX_RETRIES"))
	assert.Equal(t, []string{"init"}, SplitIdentifier("__init__"))
	assert.Empty(t, SplitIdentifier(""))
}

func TestSymbolComplexity(t *testing.T) {
	low := sym("a", parser.KindFunction)
	low.Body = "x"

	medium := sym("b", parser.KindFunction)
	medium.Parameters = make([]parser.Parameter, 4)
	medium.Relationships = make([]pruner.Relationship, 4)
	medium.Body = strings.Repeat("line\n", 19)

	high := sym("c", parser.KindFunction)
	high.Parameters = make([]parser.Parameter, 6)
	high.Relationships = make([]pruner.Relationship, 10)
	high.Body = strings.Repeat("line\n", 40)

	assert.Equal(t, ComplexityLow, SymbolComplexity(low))
	assert.Equal(t, ComplexityMedium, SymbolComplexity(medium))
	assert.Equal(t, ComplexityHigh, SymbolComplexity(high))

	assert.Equal(t, ComplexityLow, Bucket(4.99))
	assert.Equal(t, ComplexityMedium, Bucket(5))
	assert.Equal(t, ComplexityMedium, Bucket(11.99))
	assert.Equal(t, ComplexityHigh, Bucket(12))
}

func TestFilePurpose(t *testing.T) {
	tests := []struct {
		path    string
		symbols []*pruner.PrunedSymbol
		want    string
	}{
		{"src/app.test.ts", nil, "Test suite"},
		{"src/config.ts", nil, "Configuration"},
		{"src/index.ts", nil, "Module entry point"},
		{"pkg/__init__.py", nil, "Module entry point"},
		{"src/user.service.ts", nil, "Service layer"},
		{"src/string_utils.py", nil, "Utility functions"},
		{"cmd/cli.go", nil, "Command-line interface"},
		{"src/empty.ts", nil, "Source file"},
		{"src/shapes.ts", []*pruner.PrunedSymbol{sym("Circle", parser.KindClass), sym("Square", parser.KindClass), sym("area", parser.KindFunction)}, "Class definitions"},
		{"src/api.ts", []*pruner.PrunedSymbol{sym("Req", parser.KindInterface), sym("Res", parser.KindType)}, "Type definitions"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := FilePurpose(&pruner.PrunedFile{RelPath: tt.path, Symbols: tt.symbols})
			assert.Equal(t, tt.want, got)
		})
	}

	exported := sym("render", parser.KindFunction)
	exported.Exported = true
	got := FilePurpose(&pruner.PrunedFile{RelPath: "src/view.ts", Symbols: []*pruner.PrunedSymbol{exported}})
	assert.Equal(t, "Functions (render)", got)
}

func files(paths ...string) []*pruner.PrunedFile {
	out := make([]*pruner.PrunedFile, 0, len(paths))
	for _, p := range paths {
		lang, _ := parser.LanguageForPath(p)
		out = append(out, &pruner.PrunedFile{RelPath: p, Language: lang})
	}
	return out
}

func TestProject_Architecture(t *testing.T) {
	tests := []struct {
		name  string
		files []*pruner.PrunedFile
		want  string
	}{
		{"mvc", files("app/controllers/user.py", "app/models/user.py", "app/views/home.py", "app/util.py"), ArchMVC},
		{"layered", files("src/services/billing.ts", "src/repository/invoice.ts", "src/domain/money.ts"), ArchLayered},
		{"component", files("src/Button.tsx", "src/Card.tsx", "src/components/nav.ts"), ArchComponent},
		{"cli", files("cmd/root.go", "cmd/serve.go", "internal/x.go"), ArchCLI},
		{"modular", files("a/x.go", "b/y.go"), ArchModular},
		{"library", files("lib.rs", "util.rs"), ArchLibrary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Project(tt.files).Architecture)
		})
	}
}

func TestProject_Summary(t *testing.T) {
	fs := files("src/index.ts", "src/a.ts", "src/b.ts", "tools/gen.py", "main.go")
	important := sym("formatString", parser.KindFunction)
	important.Exported = true
	important.Importance = 12
	minor := sym("pad", parser.KindFunction)
	minor.Exported = true
	minor.Importance = 10
	hidden := sym("internal", parser.KindFunction)
	fs[1].Symbols = []*pruner.PrunedSymbol{minor, important, hidden}

	sum := Project(fs)
	assert.Equal(t, 5, sum.TotalFiles)
	assert.Equal(t, 3, sum.TotalSymbols)
	assert.Equal(t, []string{"typescript", "go", "python"}, sum.MainLanguages)
	assert.Equal(t, []string{"src/index.ts", "main.go"}, sum.EntryPoints)
	assert.Equal(t, []string{"formatString (src/a.ts)", "pad (src/a.ts)"}, sum.KeySymbols)
}

func TestFileComplexity(t *testing.T) {
	assert.Equal(t, ComplexityLow, FileComplexity(&pruner.PrunedFile{}))
	var many []*pruner.PrunedSymbol
	for i := 0; i < 60; i++ {
		many = append(many, sym("f", parser.KindFunction))
	}
	assert.Equal(t, ComplexityMedium, FileComplexity(&pruner.PrunedFile{Symbols: many}))
}
