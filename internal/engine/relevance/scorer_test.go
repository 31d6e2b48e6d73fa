package relevance

import (
	"fmt"
	"strings"
	"testing"

	"ambiance/internal/engine/dedup"
	"ambiance/internal/engine/parser"
	"ambiance/internal/engine/pruner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type symSpec struct {
	name     string
	kind     parser.SymbolKind
	exported bool
	doc      string
	body     string
	params   int
	rels     []pruner.Relationship
}

func makeFile(path string, specs ...symSpec) *pruner.PrunedFile {
	f := &pruner.PrunedFile{RelPath: path, Language: parser.LangTypeScript}
	for i, s := range specs {
		kind := s.kind
		if kind == "" {
			kind = parser.KindFunction
		}
		body := s.body
		if body == "" {
			body = fmt.Sprintf("function %s() {\n  return 1;\n}", s.name)
		}
		sym := &pruner.PrunedSymbol{
			Symbol: parser.Symbol{
				ID:         fmt.Sprintf("%s#%s@%d", path, s.name, i+1),
				Name:       s.name,
				Kind:       kind,
				Signature:  fmt.Sprintf("function %s()", s.name),
				Parameters: make([]parser.Parameter, s.params),
				Docstring:  s.doc,
				Exported:   s.exported,
				Location:   parser.Location{File: path, StartLine: i + 1},
				Body:       body,
			},
			Relationships:  s.rels,
			CompactedBody:  body,
			DuplicateCount: 1,
		}
		sym.Importance = pruner.Importance(sym.Symbol, len(sym.Relationships))
		sym.Recount()
		f.Symbols = append(f.Symbols, sym)
	}
	f.Recount()
	return f
}

func sampleProject() []*pruner.PrunedFile {
	var specs []symSpec
	for i := 0; i < 30; i++ {
		specs = append(specs, symSpec{
			name:     fmt.Sprintf("helper%d", i),
			exported: i%2 == 0,
			body:     fmt.Sprintf("function helper%d(a) {\n%s}", i, strings.Repeat("  a = a + 1;\n", i%7+1)),
			params:   i % 4,
		})
	}
	return []*pruner.PrunedFile{
		makeFile("src/a.ts", specs[:15]...),
		makeFile("src/b.ts", specs[15:]...),
		makeFile("src/auth.ts",
			symSpec{name: "validateToken", exported: true, doc: "Checks a token.", body: "function validateToken(t) {\n  try {\n    verify(t);\n  } catch (e) {\n    throw e;\n  }\n}"},
			symSpec{name: "formatString", exported: true},
		),
	}
}

func TestScoreAndFilter_NeverExceedsBudget(t *testing.T) {
	files := sampleProject()
	for _, budget := range []int{1, 15, 40, 100, 250, 1000} {
		for _, task := range []TaskType{"", TaskUnderstand, TaskImplement, TaskDebug, TaskRefactor, TaskTest, TaskDocument} {
			t.Run(fmt.Sprintf("%s/%d", task, budget), func(t *testing.T) {
				sel := NewScorer().ScoreAndFilter(files, Context{Query: "helper", Task: task, MaxTokens: budget})
				total := 0
				for _, s := range sel.Selected {
					total += s.Cost
				}
				assert.LessOrEqual(t, total, budget)
				assert.Equal(t, total, sel.TotalCost)
				assert.Equal(t, 32, sel.Considered)
			})
		}
	}
}

func TestScoreAndFilter_UnlimitedKeepsEverything(t *testing.T) {
	sel := NewScorer().ScoreAndFilter(sampleProject(), Context{})
	assert.Len(t, sel.Selected, 32)
	assert.False(t, sel.Exhausted)
}

func TestScoreAndFilter_GreedyStopsAtFirstMiss(t *testing.T) {
	big := symSpec{name: "target", exported: true, doc: "the target", body: strings.Repeat("word ", 200)}
	small := symSpec{name: "tiny"}
	files := []*pruner.PrunedFile{makeFile("a.ts", big, small)}

	sel := NewScorer().ScoreAndFilter(files, Context{Query: "target", MaxTokens: 50})
	assert.Empty(t, sel.Selected, "selection stops instead of skipping to smaller symbols")
	assert.True(t, sel.Exhausted)
}

func TestScore_QueryRanksExactMatchFirst(t *testing.T) {
	scored := NewScorer().Score(sampleProject(), Context{Query: "formatString"})
	require.NotEmpty(t, scored)
	assert.Equal(t, "formatString", scored[0].Name)
	assert.Contains(t, strings.Join(scored[0].Reasoning, "; "), "exact name match")
	assert.Contains(t, scored[0].Reasoning, "exported (+5)")
}

func TestScore_DebugFavorsErrorHandling(t *testing.T) {
	scored := NewScorer().Score(sampleProject(), Context{Task: TaskDebug})
	require.NotEmpty(t, scored)
	assert.Equal(t, "validateToken", scored[0].Name)
}

func TestScore_Hints(t *testing.T) {
	files := sampleProject()
	scored := NewScorer().Score(files, Context{FileHints: []string{"auth"}, SymbolHints: []string{"format"}})
	byName := make(map[string]ScoredSymbol)
	for _, s := range scored {
		byName[s.Name] = s
	}
	assert.GreaterOrEqual(t, byName["formatString"].Context, fileHintBonus+symbolHintBonus)
	assert.GreaterOrEqual(t, byName["validateToken"].Context, fileHintBonus)
	assert.Less(t, byName["helper1"].Context, fileHintBonus)
}

func TestScore_CrossFileUsage(t *testing.T) {
	lib := makeFile("lib.ts", symSpec{name: "shared", exported: true, rels: []pruner.Relationship{
		{Type: pruner.RelReferences, Target: "app.ts", File: "app.ts"},
	}}, symSpec{name: "lonely", exported: true})
	app := makeFile("app.ts", symSpec{name: "main", rels: []pruner.Relationship{
		{Type: pruner.RelCalls, Target: "shared", File: "app.ts"},
	}})

	scored := NewScorer().Score([]*pruner.PrunedFile{lib, app}, Context{})
	byName := make(map[string]ScoredSymbol)
	for _, s := range scored {
		byName[s.Name] = s
	}
	assert.Greater(t, byName["shared"].Context, byName["lonely"].Context)
}

func TestScore_PreferredKinds(t *testing.T) {
	files := []*pruner.PrunedFile{makeFile("a.ts",
		symSpec{name: "Shape", kind: parser.KindInterface},
		symSpec{name: "draw"},
	)}
	scored := NewScorer().Score(files, Context{PreferredKinds: []parser.SymbolKind{parser.KindInterface}})
	assert.Equal(t, "Shape", scored[0].Name)
}

func TestQueryMatch(t *testing.T) {
	sym := dedup.HashedSymbol{PrunedSymbol: &pruner.PrunedSymbol{Symbol: parser.Symbol{
		Name:      "formatString",
		Signature: "function formatString(value: string, width: number)",
		Docstring: "Pads the display label.",
		Body:      "return value.padEnd(width, ' ');",
	}}}
	tests := []struct {
		query string
		want  float64
	}{
		{"formatString", 1.0},
		{"FORMAT", 0.8},
		{"please formatstring this", 0.7},
		{"width: number", 0.6},
		{"display label", 0.5},
		{"padEnd", 0.4},
		{"fmtstr", 0.3},
		{"value pads", partialMatchCap},
		{"", 0},
		{"zzz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, _ := QueryMatch(sym, tt.query)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestQueryMatch_PartialRanksBelowBodyMatch(t *testing.T) {
	sym := dedup.HashedSymbol{PrunedSymbol: &pruner.PrunedSymbol{Symbol: parser.Symbol{
		Name:      "retryRequest",
		Signature: "function retryRequest(request, attempts)",
		Docstring: "Retries a failed request with backoff.",
		Body:      "return send(request).catch(() => sleep(backoff));",
	}}}

	body, reason := QueryMatch(sym, "sleep(backoff)")
	require.Equal(t, "body matches query", reason)

	// Every term hits and the name fuzzy-matches, the strongest partial match.
	partial, reason := QueryMatch(sym, "retry request")
	require.Equal(t, "partial query match", reason)
	assert.Less(t, partial, body)
}

func TestComplexityFit(t *testing.T) {
	assert.Equal(t, 0.0, ComplexityFit(0))
	assert.Equal(t, complexityFitMax, ComplexityFit(complexityPeak))
	assert.Greater(t, ComplexityFit(8), ComplexityFit(2))
	assert.Greater(t, ComplexityFit(8), ComplexityFit(20))
	assert.Equal(t, 0.0, ComplexityFit(100))
}

func TestNamingScore(t *testing.T) {
	assert.Equal(t, 15.0, NamingScore("formatString"))
	assert.Equal(t, 15.0, NamingScore("parse_input"))
	assert.Equal(t, 5.0, NamingScore("tmp"))
	assert.Equal(t, 0.0, NamingScore("x"))
}

func TestWeightsFor(t *testing.T) {
	assert.Equal(t, DefaultWeights, WeightsFor(""))
	assert.Equal(t, DefaultWeights, WeightsFor("unknown"))
	for task, w := range taskWeights {
		assert.InDelta(t, 1.0, w.Relevance+w.Context+w.Quality+w.Importance, 1e-9, string(task))
	}
}
