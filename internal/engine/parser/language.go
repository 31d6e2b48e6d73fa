package parser

import (
	"path/filepath"
	"strings"

	"ambiance/internal/core/errors"
)

// Language is the closed set of languages the compactor understands. Adding
// a language means adding a constant, its extensions, a grammar in the
// loader and an extractor.
type Language string

const (
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangJavaScript Language = "javascript"
	LangPython     Language = "python"
	LangGo         Language = "go"
	LangJava       Language = "java"
	LangRust       Language = "rust"
)

// AllLanguages lists every supported variant in a stable order.
var AllLanguages = []Language{LangTypeScript, LangTSX, LangJavaScript, LangPython, LangGo, LangJava, LangRust}

var languageExtensions = map[Language][]string{
	LangTypeScript: {".ts", ".mts", ".cts"},
	LangTSX:        {".tsx"},
	LangJavaScript: {".js", ".jsx", ".mjs", ".cjs"},
	LangPython:     {".py", ".pyi"},
	LangGo:         {".go"},
	LangJava:       {".java"},
	LangRust:       {".rs"},
}

var extensionLanguages = func() map[string]Language {
	out := make(map[string]Language)
	for lang, exts := range languageExtensions {
		for _, ext := range exts {
			out[ext] = lang
		}
	}
	return out
}()

// ParseLanguage maps a configured language name onto a variant. "ts" and
// "js" are accepted as aliases.
func ParseLanguage(name string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "typescript", "ts":
		return LangTypeScript, nil
	case "tsx":
		return LangTSX, nil
	case "javascript", "js", "jsx":
		return LangJavaScript, nil
	case "python", "py":
		return LangPython, nil
	case "go", "golang":
		return LangGo, nil
	case "java":
		return LangJava, nil
	case "rust", "rs":
		return LangRust, nil
	}
	return "", errors.AddContext(errors.New(errors.CodeNotSupported, "unsupported language"), errors.CtxLanguage, name)
}

// ParseLanguages converts a list of names, rejecting unknown entries.
func ParseLanguages(names []string) ([]Language, error) {
	out := make([]Language, 0, len(names))
	seen := make(map[Language]bool, len(names))
	for _, name := range names {
		lang, err := ParseLanguage(name)
		if err != nil {
			return nil, err
		}
		if seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out, nil
}

// LanguageForPath detects the language from the file extension.
func LanguageForPath(path string) (Language, bool) {
	lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// Extensions returns the file extensions claimed by lang.
func (l Language) Extensions() []string {
	return append([]string(nil), languageExtensions[l]...)
}

// LineComment returns the line comment prefix used when annotating
// compacted bodies.
func (l Language) LineComment() string {
	if l == LangPython {
		return "#"
	}
	return "//"
}

// IsJSFamily reports languages sharing the JavaScript module system.
func (l Language) IsJSFamily() bool {
	return l == LangTypeScript || l == LangTSX || l == LangJavaScript
}

// TestFileMarkers are filename fragments that identify test sources.
var TestFileMarkers = []string{"_test.go", "_test.py", "test_", ".test.", ".spec.", "Test.java", "Tests.java"}

// IsTestFile reports whether the base name of path looks like a test file.
func IsTestFile(path string) bool {
	base := filepath.Base(path)
	for _, marker := range TestFileMarkers {
		if marker == "test_" {
			if strings.HasPrefix(strings.ToLower(base), marker) {
				return true
			}
			continue
		}
		if strings.Contains(base, marker) {
			return true
		}
	}
	return false
}
