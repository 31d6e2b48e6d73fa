// Package report renders compacted projects and run-history trends.
package report

import (
	"fmt"
	"strings"
	"time"

	"ambiance/internal/core/app"
	"ambiance/internal/engine/pruner"
	"ambiance/internal/engine/summarizer"
)

type DigestOptions struct {
	ProjectName string
	Version     string
	GeneratedAt time.Time
	// Verbosity is "summary" (signatures only), "standard" or "detailed"
	// (adds per-symbol purpose and complexity).
	Verbosity           string
	TableOfContents     bool
	CollapsibleSections bool
}

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

// Generate renders project as a Markdown digest suitable for an LLM prompt.
func (m *MarkdownGenerator) Generate(project *app.CompactedProject, opts DigestOptions) (string, error) {
	if project == nil {
		return "", fmt.Errorf("render digest: nil project")
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now().UTC()
	}
	verbosity := normalizeVerbosity(opts.Verbosity)

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Compacted Project Context\n")
	b.WriteString("project: " + nonEmpty(opts.ProjectName, "unknown") + "\n")
	b.WriteString("run_id: " + nonEmpty(project.RunID, "unknown") + "\n")
	b.WriteString("generated_at: " + opts.GeneratedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + nonEmpty(opts.Version, "unknown") + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Project Context\n\n")
	if opts.TableOfContents {
		b.WriteString("## Table of Contents\n")
		b.WriteString("- [Executive Summary](#executive-summary)\n")
		if len(project.Selected) > 0 {
			b.WriteString("- [Relevant Symbols](#relevant-symbols)\n")
		}
		b.WriteString("- [Files](#files)\n")
		if len(project.Stats.Errors) > 0 {
			b.WriteString("- [Processing Errors](#processing-errors)\n")
		}
		b.WriteString("\n")
	}

	m.writeSummary(&b, project)
	m.writeSelection(&b, project, opts.CollapsibleSections)
	m.writeFiles(&b, project, verbosity)
	m.writeErrors(&b, project.Stats.Errors, opts.CollapsibleSections)
	return b.String(), nil
}

func (m *MarkdownGenerator) writeSummary(b *strings.Builder, project *app.CompactedProject) {
	s := project.Summary
	b.WriteString("## Executive Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Architecture | %s |\n", nonEmpty(s.Architecture, "unknown")))
	b.WriteString(fmt.Sprintf("| Languages | %s |\n", nonEmpty(strings.Join(s.MainLanguages, ", "), "none")))
	b.WriteString(fmt.Sprintf("| Files | %d of %d |\n", project.Stats.FilesProcessed, project.Stats.TotalFiles))
	b.WriteString(fmt.Sprintf("| Symbols | %d (%d after dedup) |\n", project.Stats.TotalSymbols, project.Stats.SymbolsAfterDedup))
	b.WriteString(fmt.Sprintf("| Duplicates Removed | %d |\n", project.Stats.DuplicatesRemoved))
	if project.Stats.SecretsRedacted > 0 {
		b.WriteString(fmt.Sprintf("| Secrets Redacted | %d |\n", project.Stats.SecretsRedacted))
	}
	b.WriteString(fmt.Sprintf("| Tokens | %d -> %d |\n", project.OriginalTokens, project.CompactedTokens))
	b.WriteString(fmt.Sprintf("| Compression Ratio | %.2f |\n\n", project.CompressionRatio))

	if len(s.EntryPoints) > 0 {
		b.WriteString("Entry points: ")
		b.WriteString(codeList(s.EntryPoints))
		b.WriteString("\n\n")
	}
	if len(s.KeySymbols) > 0 {
		b.WriteString("Key symbols: ")
		b.WriteString(codeList(s.KeySymbols))
		b.WriteString("\n\n")
	}
}

func (m *MarkdownGenerator) writeSelection(b *strings.Builder, project *app.CompactedProject, collapsible bool) {
	if len(project.Selected) == 0 {
		return
	}
	b.WriteString("## Relevant Symbols\n")
	if sel := project.Selection; sel != nil {
		b.WriteString(fmt.Sprintf("Selected %d of %d symbols, %d of %d tokens.\n\n",
			len(sel.Selected), sel.Considered, sel.TotalCost, sel.Budget))
	}
	rows := make([]string, 0, len(project.Selected))
	for i, s := range project.Selected {
		rows = append(rows, fmt.Sprintf("| %d | `%s` | `%s` | %.1f | %d | %s |\n",
			i+1, s.Name, s.FilePath, s.Total, s.Cost, strings.Join(s.Reasoning, "; ")))
	}
	m.writeTableWithCollapse(
		b,
		"Selection details",
		collapsible,
		len(rows) > 15,
		[]string{"| # | Symbol | File | Score | Tokens | Reasons |\n", "| --- | --- | --- | --- | --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeFiles(b *strings.Builder, project *app.CompactedProject, verbosity string) {
	b.WriteString("## Files\n\n")
	if len(project.Files) == 0 {
		b.WriteString("No files were compacted.\n\n")
		return
	}
	for _, f := range project.Files {
		b.WriteString(fmt.Sprintf("### `%s`\n", f.RelPath))
		b.WriteString(fmt.Sprintf("%s (%s, %s complexity, %d tokens)\n\n",
			summarizer.FilePurpose(f), f.Language, summarizer.FileComplexity(f), f.TokenCount))
		if len(f.Dependencies) > 0 {
			b.WriteString("Depends on: " + codeList(f.Dependencies) + "\n\n")
		}
		if len(f.Symbols) == 0 {
			continue
		}
		b.WriteString("```" + string(f.Language) + "\n")
		for i, sym := range f.Symbols {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(symbolText(sym, verbosity))
			b.WriteString("\n")
		}
		b.WriteString("```\n\n")

		if verbosity == "detailed" {
			for _, sym := range f.Symbols {
				b.WriteString(fmt.Sprintf("- `%s`: %s (%s)\n",
					sym.Name, summarizer.SymbolPurpose(sym), summarizer.SymbolComplexity(sym)))
			}
			b.WriteString("\n")
		}
	}
}

func symbolText(sym *pruner.PrunedSymbol, verbosity string) string {
	if verbosity == "summary" || strings.TrimSpace(sym.CompactedBody) == "" {
		return strings.TrimSpace(sym.Signature)
	}
	return strings.TrimRight(sym.CompactedBody, "\n")
}

func (m *MarkdownGenerator) writeErrors(b *strings.Builder, errs []app.FileError, collapsible bool) {
	if len(errs) == 0 {
		return
	}
	b.WriteString("## Processing Errors\n")
	rows := make([]string, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, fmt.Sprintf("| `%s` | %s | %s |\n", e.Path, e.Stage, escapeCell(e.Message)))
	}
	m.writeTableWithCollapse(
		b,
		"Error details",
		collapsible,
		len(rows) > 10,
		[]string{"| File | Stage | Message |\n", "| --- | --- | --- |\n"},
		rows,
	)
}

func (m *MarkdownGenerator) writeTableWithCollapse(
	b *strings.Builder,
	summary string,
	collapsible bool,
	collapse bool,
	header []string,
	rows []string,
) {
	if collapsible && collapse {
		b.WriteString("<details>\n")
		b.WriteString("<summary>")
		b.WriteString(summary)
		b.WriteString("</summary>\n\n")
	}
	for _, line := range header {
		b.WriteString(line)
	}
	for _, line := range rows {
		b.WriteString(line)
	}
	b.WriteString("\n")
	if collapsible && collapse {
		b.WriteString("</details>\n\n")
	}
}

func normalizeVerbosity(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "summary":
		return "summary"
	case "detailed":
		return "detailed"
	default:
		return "standard"
	}
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "`" + item + "`"
	}
	return strings.Join(quoted, ", ")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
