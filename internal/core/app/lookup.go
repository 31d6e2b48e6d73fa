package app

import (
	"path/filepath"
	"sort"
	"strings"

	"ambiance/internal/core/errors"
	"ambiance/internal/engine/dedup"
	"ambiance/internal/engine/pruner"
	"ambiance/internal/engine/summarizer"
	"ambiance/internal/shared/util"
)

const maxFileKeySymbols = 5

// assembled returns the current project or a NOT_READY error.
func (c *Compactor) assembled() (*CompactedProject, map[string]symbolRef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateAssembled || c.project == nil {
		return nil, nil, errors.AddContext(
			errors.New(errors.CodeNotReady, "no compacted project available"),
			"state", string(c.state),
		)
	}
	return c.project, c.symbols, nil
}

// GetSummary describes one compacted file. path may be relative to the root
// or absolute.
func (c *Compactor) GetSummary(path string) (FileSummary, error) {
	project, _, err := c.assembled()
	if err != nil {
		return FileSummary{}, err
	}
	file := project.File(filepath.ToSlash(strings.TrimPrefix(path, "./")))
	if file == nil {
		file = project.File(path)
	}
	if file == nil {
		return FileSummary{}, errors.AddContext(
			errors.Newf(errors.CodeFileNotFound, "file %s is not part of the compacted project", path),
			errors.CtxPath, path,
		)
	}
	return summarizeFile(file), nil
}

func summarizeFile(file *pruner.PrunedFile) FileSummary {
	exports := make([]string, 0, len(file.Exports))
	for _, e := range file.Exports {
		exports = append(exports, e.Name)
	}

	ranked := append([]*pruner.PrunedSymbol(nil), file.Symbols...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Importance > ranked[j].Importance
	})
	key := make([]string, 0, maxFileKeySymbols)
	for _, sym := range ranked {
		if len(key) == maxFileKeySymbols {
			break
		}
		key = append(key, sym.Name)
	}

	return FileSummary{
		Path:         file.RelPath,
		Language:     file.Language,
		Purpose:      summarizer.FilePurpose(file),
		Complexity:   summarizer.FileComplexity(file),
		TokenCount:   file.TokenCount,
		SymbolCount:  len(file.Symbols),
		Exports:      exports,
		Dependencies: append([]string(nil), file.Dependencies...),
		KeySymbols:   key,
	}
}

// GetContextForSymbol returns a symbol with its purpose, the same-file
// symbols it relates to, the files referencing it and the duplicates
// folded into it.
func (c *Compactor) GetContextForSymbol(id string) (SymbolContext, error) {
	project, symbols, err := c.assembled()
	if err != nil {
		return SymbolContext{}, err
	}
	ref, ok := symbols[id]
	if !ok {
		return SymbolContext{}, errors.AddContext(
			errors.Newf(errors.CodeSymbolNotFound, "symbol %s not found", id),
			errors.CtxSymbol, id,
		)
	}

	sc := SymbolContext{
		Symbol:     ref.sym,
		File:       ref.file.RelPath,
		Purpose:    summarizer.SymbolPurpose(ref.sym),
		Complexity: summarizer.SymbolComplexity(ref.sym),
	}
	related := make(map[string]bool)
	dependents := make(map[string]bool)
	for _, rel := range ref.sym.Relationships {
		switch rel.Type {
		case pruner.RelCalls, pruner.RelExtends, pruner.RelImplements:
			if rel.Target != ref.sym.Name && ref.file.Symbol(rel.Target) != nil {
				related[rel.Target] = true
			}
		case pruner.RelReferences:
			if rel.File != "" && rel.File != ref.file.RelPath {
				dependents[rel.File] = true
			}
		}
	}
	sc.Related = util.SortedStringKeys(related)
	sc.Dependents = util.SortedStringKeys(dependents)

	for _, g := range project.Groups {
		if g.Survivor == id {
			sc.Duplicates = append(sc.Duplicates, g.Discarded...)
		}
	}
	return sc, nil
}

// FindSimilar lists symbols resembling id, best first. A threshold of zero
// uses the configured similarity threshold.
func (c *Compactor) FindSimilar(id string, threshold float64) ([]dedup.Match, error) {
	project, symbols, err := c.assembled()
	if err != nil {
		return nil, err
	}
	ref, ok := symbols[id]
	if !ok {
		return nil, errors.AddContext(
			errors.Newf(errors.CodeSymbolNotFound, "symbol %s not found", id),
			errors.CtxSymbol, id,
		)
	}
	if threshold <= 0 {
		threshold = c.cfg.Dedup.SimilarityThreshold
	}

	var candidates []dedup.HashedSymbol
	for _, f := range project.Files {
		for _, sym := range f.Symbols {
			candidates = append(candidates, dedup.Hash(sym, f.RelPath))
		}
	}
	w := c.cfg.Dedup.Weights
	return dedup.FindSimilar(
		dedup.Hash(ref.sym, ref.file.RelPath),
		candidates,
		threshold,
		dedup.Weights{Name: w.Name, Kind: w.Kind, Body: w.Body, Overlap: w.Overlap},
	), nil
}
