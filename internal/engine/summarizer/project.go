package summarizer

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"ambiance/internal/engine/parser"
	"ambiance/internal/engine/pruner"
)

type fileConvention struct {
	stems   []string
	purpose string
}

// Matched against the lowercase file stem, first hit wins. Test files are
// handled before this table.
var fileConventions = []fileConvention{
	{[]string{"config", "configuration", "settings", "constants"}, "Configuration"},
	{[]string{"index", "mod", "__init__"}, "Module entry point"},
	{[]string{"main", "__main__", "app", "server"}, "Application entry point"},
	{[]string{"types", "interfaces", "typings", "schema"}, "Type definitions"},
	{[]string{"utils", "util", "helpers", "helper", "common"}, "Utility functions"},
	{[]string{"routes", "router", "routing", "urls"}, "Route definitions"},
	{[]string{"model", "models", "entities"}, "Data models"},
	{[]string{"service", "services"}, "Service layer"},
	{[]string{"controller", "controllers", "handlers"}, "Request controllers"},
	{[]string{"cli", "cmd", "commands"}, "Command-line interface"},
}

// FilePurpose describes a file from its name, falling back to the mix of
// symbols it declares.
func FilePurpose(file *pruner.PrunedFile) string {
	if parser.IsTestFile(file.RelPath) {
		return "Test suite"
	}
	stem := strings.ToLower(fileStem(file.RelPath))
	for _, conv := range fileConventions {
		for _, s := range conv.stems {
			if stem == s || strings.HasSuffix(stem, "."+s) || strings.HasSuffix(stem, "_"+s) || strings.HasSuffix(stem, "-"+s) {
				return conv.purpose
			}
		}
	}

	if len(file.Symbols) == 0 {
		return "Source file"
	}
	counts := make(map[string]int)
	var names []string
	for _, sym := range file.Symbols {
		switch {
		case sym.Kind.IsTypeDefinition() && sym.Kind != parser.KindClass:
			counts["types"]++
		case sym.Kind == parser.KindClass:
			counts["classes"]++
		case sym.Kind.IsCallable():
			counts["functions"]++
		default:
			counts["variables"]++
		}
		if sym.Exported && sym.Parent == "" && len(names) < 3 {
			names = append(names, sym.Name)
		}
	}
	dominant := "functions"
	for _, k := range []string{"classes", "types", "functions", "variables"} {
		if counts[k] > counts[dominant] {
			dominant = k
		}
	}
	subject := ""
	if len(names) > 0 {
		subject = " (" + strings.Join(names, ", ") + ")"
	}
	switch dominant {
	case "classes":
		return "Class definitions" + subject
	case "types":
		return "Type definitions" + subject
	case "variables":
		return "Constants and shared values" + subject
	}
	return "Functions" + subject
}

// FileComplexity buckets the mean symbol complexity, nudged up by the
// number of symbols.
func FileComplexity(file *pruner.PrunedFile) Complexity {
	if len(file.Symbols) == 0 {
		return ComplexityLow
	}
	total := 0.0
	for _, sym := range file.Symbols {
		total += ComplexityScore(sym)
	}
	return Bucket(total/float64(len(file.Symbols)) + float64(len(file.Symbols))/10)
}

// Architecture labels.
const (
	ArchLayered   = "layered"
	ArchMVC       = "mvc"
	ArchComponent = "component-based"
	ArchModular   = "modular"
	ArchLibrary   = "library"
	ArchCLI       = "cli"
)

// archOrder breaks vote ties.
var archOrder = []string{ArchMVC, ArchLayered, ArchComponent, ArchCLI, ArchModular, ArchLibrary}

// classifyFile votes for the architecture a file suggests, or "".
func classifyFile(file *pruner.PrunedFile) string {
	rel := strings.ToLower(file.RelPath)
	stem := strings.ToLower(fileStem(rel))
	dirs := strings.Split(path.Dir(rel), "/")
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(stem, w) {
				return true
			}
			for _, d := range dirs {
				if d == w || d == w+"s" {
					return true
				}
			}
		}
		return false
	}

	switch {
	case has("controller", "view", "model"):
		return ArchMVC
	case has("service", "repository", "repo", "dao", "domain", "infrastructure"):
		return ArchLayered
	case file.Language == parser.LangTSX || strings.HasSuffix(rel, ".jsx") || has("component"):
		return ArchComponent
	case has("cli", "cmd", "command"), stem == "main" || stem == "__main__":
		return ArchCLI
	case stem == "index" || stem == "mod" || stem == "__init__":
		return ArchModular
	}
	return ""
}

type ProjectSummary struct {
	Architecture  string
	MainLanguages []string
	EntryPoints   []string
	KeySymbols    []string
	TotalFiles    int
	TotalSymbols  int
	Votes         map[string]int
}

const maxKeySymbols = 10

var entryStems = map[string]bool{"index": true, "main": true, "__main__": true, "app": true, "server": true, "cli": true}

// Project summarizes files. Architecture is the plurality of per-file
// classifications; projects with no classified files are "modular" when
// they span several top-level directories and "library" otherwise.
func Project(files []*pruner.PrunedFile) ProjectSummary {
	sum := ProjectSummary{TotalFiles: len(files), Votes: make(map[string]int)}
	langCount := make(map[string]int)
	topDirs := make(map[string]bool)
	var key []*pruner.PrunedSymbol
	keyFile := make(map[*pruner.PrunedSymbol]string)

	for _, f := range files {
		sum.TotalSymbols += len(f.Symbols)
		langCount[string(f.Language)]++
		if arch := classifyFile(f); arch != "" {
			sum.Votes[arch]++
		}
		if idx := strings.IndexByte(f.RelPath, '/'); idx >= 0 {
			topDirs[f.RelPath[:idx]] = true
		}
		if entryStems[strings.ToLower(fileStem(f.RelPath))] {
			sum.EntryPoints = append(sum.EntryPoints, f.RelPath)
		}
		for _, sym := range f.Symbols {
			if sym.Exported {
				key = append(key, sym)
				keyFile[sym] = f.RelPath
			}
		}
	}

	sum.Architecture = plurality(sum.Votes)
	if sum.Architecture == "" {
		sum.Architecture = ArchLibrary
		if len(topDirs) > 1 {
			sum.Architecture = ArchModular
		}
	}

	for lang := range langCount {
		sum.MainLanguages = append(sum.MainLanguages, lang)
	}
	sort.Slice(sum.MainLanguages, func(i, j int) bool {
		a, b := sum.MainLanguages[i], sum.MainLanguages[j]
		if langCount[a] != langCount[b] {
			return langCount[a] > langCount[b]
		}
		return a < b
	})
	if len(sum.MainLanguages) > 3 {
		sum.MainLanguages = sum.MainLanguages[:3]
	}

	sort.SliceStable(key, func(i, j int) bool {
		if key[i].Importance != key[j].Importance {
			return key[i].Importance > key[j].Importance
		}
		return key[i].ID < key[j].ID
	})
	for i, sym := range key {
		if i == maxKeySymbols {
			break
		}
		sum.KeySymbols = append(sum.KeySymbols, fmt.Sprintf("%s (%s)", sym.Name, keyFile[sym]))
	}
	return sum
}

func plurality(votes map[string]int) string {
	best, bestCount := "", 0
	for _, arch := range archOrder {
		if votes[arch] > bestCount {
			best, bestCount = arch, votes[arch]
		}
	}
	return best
}

func fileStem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
