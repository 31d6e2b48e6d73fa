package report

import (
	"encoding/json"
	"fmt"

	"ambiance/internal/core/app"
	"ambiance/internal/engine/pruner"
	"ambiance/internal/engine/summarizer"
)

// The JSON view leaves out raw file content and full declaration bodies;
// only the compacted text is emitted.

type jsonProject struct {
	RunID            string              `json:"run_id"`
	Root             string              `json:"root"`
	Summary          jsonSummary         `json:"summary"`
	Stats            app.ProcessingStats `json:"stats"`
	OriginalTokens   int                 `json:"original_tokens"`
	CompactedTokens  int                 `json:"compacted_tokens"`
	CompressionRatio float64             `json:"compression_ratio"`
	Selected         []jsonSelected      `json:"selected,omitempty"`
	Files            []jsonFile          `json:"files"`
}

type jsonSummary struct {
	Architecture  string   `json:"architecture"`
	MainLanguages []string `json:"main_languages"`
	EntryPoints   []string `json:"entry_points"`
	KeySymbols    []string `json:"key_symbols"`
	TotalFiles    int      `json:"total_files"`
	TotalSymbols  int      `json:"total_symbols"`
}

type jsonSelected struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	File      string   `json:"file"`
	Score     float64  `json:"score"`
	Cost      int      `json:"cost"`
	Reasoning []string `json:"reasoning,omitempty"`
}

type jsonFile struct {
	Path         string       `json:"path"`
	Language     string       `json:"language"`
	Purpose      string       `json:"purpose"`
	Complexity   string       `json:"complexity"`
	TokenCount   int          `json:"token_count"`
	Dependencies []string     `json:"dependencies,omitempty"`
	Exports      []string     `json:"exports,omitempty"`
	Symbols      []jsonSymbol `json:"symbols"`
}

type jsonSymbol struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Kind           string   `json:"kind"`
	Signature      string   `json:"signature"`
	Docstring      string   `json:"docstring,omitempty"`
	Exported       bool     `json:"exported"`
	StartLine      int      `json:"start_line"`
	EndLine        int      `json:"end_line"`
	Importance     float64  `json:"importance"`
	Body           string   `json:"body"`
	Members        []string `json:"members,omitempty"`
	Truncated      bool     `json:"truncated,omitempty"`
	DuplicateCount int      `json:"duplicate_count,omitempty"`
	Relationships  []string `json:"relationships,omitempty"`
	TokenCount     int      `json:"token_count"`
}

// RenderJSON encodes project as indented JSON.
func RenderJSON(project *app.CompactedProject) ([]byte, error) {
	if project == nil {
		return nil, fmt.Errorf("render json: nil project")
	}
	s := project.Summary
	out := jsonProject{
		RunID: project.RunID,
		Root:  project.Root,
		Summary: jsonSummary{
			Architecture:  s.Architecture,
			MainLanguages: nonNil(s.MainLanguages),
			EntryPoints:   nonNil(s.EntryPoints),
			KeySymbols:    nonNil(s.KeySymbols),
			TotalFiles:    s.TotalFiles,
			TotalSymbols:  s.TotalSymbols,
		},
		Stats:            project.Stats,
		OriginalTokens:   project.OriginalTokens,
		CompactedTokens:  project.CompactedTokens,
		CompressionRatio: project.CompressionRatio,
		Files:            make([]jsonFile, 0, len(project.Files)),
	}
	for _, sel := range project.Selected {
		out.Selected = append(out.Selected, jsonSelected{
			ID:        sel.ID,
			Name:      sel.Name,
			File:      sel.FilePath,
			Score:     sel.Total,
			Cost:      sel.Cost,
			Reasoning: sel.Reasoning,
		})
	}
	for _, f := range project.Files {
		out.Files = append(out.Files, toJSONFile(f))
	}
	return json.MarshalIndent(out, "", "  ")
}

func toJSONFile(f *pruner.PrunedFile) jsonFile {
	jf := jsonFile{
		Path:         f.RelPath,
		Language:     string(f.Language),
		Purpose:      summarizer.FilePurpose(f),
		Complexity:   string(summarizer.FileComplexity(f)),
		TokenCount:   f.TokenCount,
		Dependencies: f.Dependencies,
		Symbols:      make([]jsonSymbol, 0, len(f.Symbols)),
	}
	for _, e := range f.Exports {
		jf.Exports = append(jf.Exports, e.Name)
	}
	for _, sym := range f.Symbols {
		js := jsonSymbol{
			ID:             sym.ID,
			Name:           sym.Name,
			Kind:           string(sym.Kind),
			Signature:      sym.Signature,
			Docstring:      sym.Docstring,
			Exported:       sym.Exported,
			StartLine:      sym.Location.StartLine,
			EndLine:        sym.Location.EndLine,
			Importance:     sym.Importance,
			Body:           sym.CompactedBody,
			Members:        sym.Members,
			Truncated:      sym.Truncated,
			DuplicateCount: sym.DuplicateCount,
			TokenCount:     sym.TokenCount,
		}
		for _, rel := range sym.Relationships {
			js.Relationships = append(js.Relationships, rel.String())
		}
		jf.Symbols = append(jf.Symbols, js)
	}
	return jf
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
