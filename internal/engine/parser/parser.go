package parser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ambiance/internal/shared/observability"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Parser turns source files into normalized ParseResults. It owns one
// ParserPool per enabled language and is safe for concurrent use.
type Parser struct {
	loader     *GrammarLoader
	pools      map[Language]*ParserPool
	extractors map[Language]extractor

	closeOnce sync.Once
}

// NewParser builds a parser whose pools each keep at most maxIdle idle
// tree-sitter parsers. maxIdle <= 0 uses DefaultMaxIdle.
func NewParser(loader *GrammarLoader, maxIdle int) *Parser {
	p := &Parser{
		loader:     loader,
		pools:      make(map[Language]*ParserPool),
		extractors: make(map[Language]extractor),
	}
	for _, lang := range loader.Enabled() {
		p.pools[lang] = NewParserPool(loader.Grammar(lang), maxIdle)
		p.extractors[lang] = extractorFor(lang)
	}
	return p
}

// New builds a parser for the named languages. maxIdle sizes each
// language's free list, normally to the file concurrency limit.
func New(languages []string, maxIdle int) (*Parser, error) {
	langs, err := ParseLanguages(languages)
	if err != nil {
		return nil, err
	}
	loader, err := NewGrammarLoader(langs)
	if err != nil {
		return nil, err
	}
	return NewParser(loader, maxIdle), nil
}

func extractorFor(lang Language) extractor {
	switch lang {
	case LangTypeScript, LangTSX, LangJavaScript:
		return &jsExtractor{}
	case LangPython:
		return &pythonExtractor{}
	case LangGo:
		return &goExtractor{}
	case LangJava:
		return &javaExtractor{}
	case LangRust:
		return &rustExtractor{}
	}
	return nil
}

// Parse never fails: unsupported languages, cancelled contexts, missing
// trees and syntax errors are all reported through ParseResult.Errors.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) *ParseResult {
	result := &ParseResult{
		Path:      path,
		Content:   string(content),
		LineCount: countLines(string(content)),
	}

	lang, ok := LanguageForPath(path)
	if !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("unsupported file type: %s", path))
		return result
	}
	result.Language = lang

	pool, ext := p.pools[lang], p.extractors[lang]
	if pool == nil || ext == nil {
		result.Errors = append(result.Errors, fmt.Sprintf("language %s is not enabled", lang))
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("parse cancelled: %v", err))
		return result
	}

	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(string(lang)).Observe(time.Since(start).Seconds())
	}()

	sess := pool.Acquire()
	defer sess.Release()

	tree := sess.Parser().Parse(content, nil)
	if tree == nil {
		result.Errors = append(result.Errors, "parser returned no syntax tree")
		return result
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		result.Errors = append(result.Errors, syntaxErrors(root)...)
	}
	p.extract(ext, &ExtractionContext{Source: content, Result: result}, root)
	return result
}

// extract shields callers from extractor panics on unusual trees.
func (p *Parser) extract(ext extractor, ctx *ExtractionContext, root *sitter.Node) {
	defer func() {
		if r := recover(); r != nil {
			ctx.Result.Errors = append(ctx.Result.Errors, fmt.Sprintf("extraction failed: %v", r))
		}
	}()
	ext.extract(ctx, root)
}

// syntaxErrors reports the first few ERROR and MISSING nodes of a tree.
func syntaxErrors(root *sitter.Node) []string {
	const limit = 5
	var out []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil || len(out) >= limit {
			return
		}
		if n.IsError() || n.IsMissing() {
			pos := n.StartPosition()
			out = append(out, fmt.Sprintf("syntax error at line %d, column %d", pos.Row+1, pos.Column+1))
			return
		}
		if !n.HasError() {
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	if len(out) == 0 {
		out = append(out, "syntax error")
	}
	return out
}

// Supports reports whether path belongs to an enabled language.
func (p *Parser) Supports(path string) bool {
	return p.loader.SupportsPath(path)
}

// Languages returns the enabled languages.
func (p *Parser) Languages() []Language {
	return p.loader.Enabled()
}

// Close stops every pool and returns the number of idle tree-sitter parsers
// it freed. Leases still outstanding are freed as they are released.
// Subsequent calls return 0.
func (p *Parser) Close() int {
	total := 0
	p.closeOnce.Do(func() {
		outstanding := 0
		for _, pool := range p.pools {
			freed, leased := pool.Close()
			total += freed
			outstanding += leased
		}
		if outstanding > 0 {
			slog.Warn("parser pools closed with outstanding leases", "count", outstanding)
		}
	})
	return total
}
