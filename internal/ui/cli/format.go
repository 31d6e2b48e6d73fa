package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"ambiance/internal/core/app"
	"ambiance/internal/engine/dedup"
)

// OutputFormat selects how lookup results are printed.
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

type symbolResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	File       string         `json:"file"`
	Line       int            `json:"line"`
	Signature  string         `json:"signature"`
	Purpose    string         `json:"purpose"`
	Complexity string         `json:"complexity"`
	Body       string         `json:"body"`
	Related    []string       `json:"related"`
	Dependents []string       `json:"dependents"`
	Duplicates []string       `json:"duplicates"`
	Similar    []similarEntry `json:"similar,omitempty"`
}

type similarEntry struct {
	ID    string  `json:"id"`
	File  string  `json:"file"`
	Score float64 `json:"score"`
}

func newSymbolResponse(sc app.SymbolContext, similar []dedup.Match) *symbolResponse {
	resp := &symbolResponse{
		ID:         sc.Symbol.ID,
		Name:       sc.Symbol.Name,
		Kind:       string(sc.Symbol.Kind),
		File:       sc.File,
		Line:       sc.Symbol.Location.StartLine,
		Signature:  sc.Symbol.Signature,
		Purpose:    sc.Purpose,
		Complexity: string(sc.Complexity),
		Body:       sc.Symbol.CompactedBody,
		Related:    nonNilStrings(sc.Related),
		Dependents: nonNilStrings(sc.Dependents),
		Duplicates: nonNilStrings(sc.Duplicates),
	}
	for _, m := range similar {
		resp.Similar = append(resp.Similar, similarEntry{ID: m.Symbol.ID, File: m.Symbol.FilePath, Score: m.Score})
	}
	return resp
}

// FormatResponse renders resp in the requested format.
func FormatResponse(resp any, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp any) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp any) (string, error) {
	switch v := resp.(type) {
	case app.FileSummary:
		return formatSummaryHuman(v), nil
	case *symbolResponse:
		return formatSymbolHuman(v), nil
	default:
		return formatJSON(resp)
	}
}

func formatSummaryHuman(s app.FileSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s (%s)\n", s.Path, s.Language))
	b.WriteString(fmt.Sprintf("Purpose: %s\n", s.Purpose))
	b.WriteString(fmt.Sprintf("Complexity: %s\n", s.Complexity))
	b.WriteString(fmt.Sprintf("Symbols: %d, Tokens: %d\n", s.SymbolCount, s.TokenCount))
	writeList(&b, "Exports", s.Exports)
	writeList(&b, "Dependencies", s.Dependencies)
	writeList(&b, "Key symbols", s.KeySymbols)
	return strings.TrimRight(b.String(), "\n")
}

func formatSymbolHuman(s *symbolResponse) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s (%s:%d)\n", s.Kind, s.Name, s.File, s.Line))
	b.WriteString(fmt.Sprintf("Purpose: %s\n", s.Purpose))
	b.WriteString(fmt.Sprintf("Complexity: %s\n", s.Complexity))
	writeList(&b, "Related", s.Related)
	writeList(&b, "Dependents", s.Dependents)
	writeList(&b, "Duplicates", s.Duplicates)
	if len(s.Similar) > 0 {
		b.WriteString(fmt.Sprintf("Similar (%d)\n", len(s.Similar)))
		for _, m := range s.Similar {
			b.WriteString(fmt.Sprintf("- %s %.2f\n", m.ID, m.Score))
		}
	}
	if s.Body != "" {
		b.WriteString("\n")
		b.WriteString(s.Body)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("%s (%d)\n", title, len(items)))
	for _, item := range items {
		b.WriteString(fmt.Sprintf("- %s\n", item))
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
