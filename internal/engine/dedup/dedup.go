// Package dedup collapses duplicated symbols across a compacted project.
//
// Two classes of duplicate are recognised. Content duplicates share kind,
// normalized signature, compacted body and outgoing relationships and are
// always collapsed. Signature duplicates share only the normalized
// signature; they are collapsed when enabled and neither symbol already
// takes part in a content group.
package dedup

import (
	"fmt"
	"sort"
	"strings"

	"ambiance/internal/engine/pruner"
)

type Options struct {
	CrossFile              bool
	SignatureDuplicates    bool
	PrioritizeExports      bool
	MaxAnnotationLocations int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{CrossFile: true, PrioritizeExports: true, MaxAnnotationLocations: 5}
}

type DuplicateKind string

const (
	ContentDuplicate   DuplicateKind = "content"
	SignatureDuplicate DuplicateKind = "signature"
)

// Group records one collapse: the survivor and the ids folded into it.
type Group struct {
	Kind      DuplicateKind
	Hash      uint64
	Survivor  string
	Discarded []string
}

type Result struct {
	Files           []*pruner.PrunedFile
	DuplicatesFound int
	SymbolsBefore   int
	SymbolsAfter    int
	Groups          []Group
}

type entry struct {
	HashedSymbol
	file *pruner.PrunedFile
}

type groupKey struct {
	file string
	hash uint64
}

// multimap keeps insertion order of keys so grouping is reproducible.
type multimap struct {
	keys   []groupKey
	values map[groupKey][]*entry
}

func newMultimap() *multimap {
	return &multimap{values: make(map[groupKey][]*entry)}
}

func (m *multimap) add(k groupKey, e *entry) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = append(m.values[k], e)
}

// Deduplicate collapses duplicate symbols in place. Discarded symbols are
// removed from their files and every file is recounted.
func Deduplicate(files []*pruner.PrunedFile, opts Options) Result {
	if opts.MaxAnnotationLocations <= 0 {
		opts.MaxAnnotationLocations = 5
	}
	res := Result{Files: files}

	var entries []*entry
	for _, f := range files {
		for _, sym := range f.Symbols {
			entries = append(entries, &entry{HashedSymbol: Hash(sym, f.RelPath), file: f})
		}
	}
	res.SymbolsBefore = len(entries)

	byContent := newMultimap()
	for _, e := range entries {
		byContent.add(opts.key(e, e.ContentHash), e)
	}
	inContent := make(map[*entry]bool)
	for _, k := range byContent.keys {
		members := byContent.values[k]
		if len(members) < 2 {
			continue
		}
		for _, e := range members {
			inContent[e] = true
		}
		res.Groups = append(res.Groups, opts.collapse(ContentDuplicate, k.hash, members))
	}

	if opts.SignatureDuplicates {
		bySignature := newMultimap()
		for _, e := range entries {
			if inContent[e] {
				continue
			}
			bySignature.add(opts.key(e, e.SignatureHash), e)
		}
		for _, k := range bySignature.keys {
			members := bySignature.values[k]
			if len(members) < 2 {
				continue
			}
			res.Groups = append(res.Groups, opts.collapse(SignatureDuplicate, k.hash, members))
		}
	}

	for _, g := range res.Groups {
		res.DuplicatesFound += len(g.Discarded)
	}

	for _, f := range files {
		kept := f.Symbols[:0]
		for _, sym := range f.Symbols {
			if !sym.IsDuplicate() {
				kept = append(kept, sym)
			}
		}
		f.Symbols = kept
		f.Recount()
		res.SymbolsAfter += len(f.Symbols)
	}
	return res
}

func (o Options) key(e *entry, hash uint64) groupKey {
	if o.CrossFile {
		return groupKey{hash: hash}
	}
	return groupKey{file: e.FilePath, hash: hash}
}

// collapse keeps the best-ranked member and folds the rest into it.
func (o Options) collapse(kind DuplicateKind, hash uint64, members []*entry) Group {
	sorted := append([]*entry(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if o.PrioritizeExports && a.Exported != b.Exported {
			return a.Exported
		}
		if a.Importance != b.Importance {
			return a.Importance > b.Importance
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.Location.StartLine < b.Location.StartLine
	})

	survivor := sorted[0]
	group := Group{Kind: kind, Hash: hash, Survivor: survivor.ID}
	locations := make([]string, 0, len(sorted)-1)
	for _, dup := range sorted[1:] {
		dup.DuplicateOf = survivor.ID
		survivor.DuplicateCount++
		group.Discarded = append(group.Discarded, dup.ID)
		locations = append(locations, fmt.Sprintf("%s:%d", dup.FilePath, dup.Location.StartLine))
	}

	survivor.CompactedBody += "\n" + annotation(survivor.file.Language.LineComment(), locations, o.MaxAnnotationLocations)
	survivor.Recount()
	return group
}

// annotation renders "// also found in: a.ts:3, b.ts:9" with at most limit
// locations followed by a "+N more" suffix.
func annotation(prefix string, locations []string, limit int) string {
	shown := locations
	extra := 0
	if len(shown) > limit {
		shown = locations[:limit]
		extra = len(locations) - limit
	}
	text := fmt.Sprintf("%s also found in: %s", prefix, strings.Join(shown, ", "))
	if extra > 0 {
		text += fmt.Sprintf(", +%d more", extra)
	}
	return text
}
