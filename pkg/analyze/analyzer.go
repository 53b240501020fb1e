// Package analyze extracts import and file-path dependencies from Python sources
package analyze

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
)

// pathPatterns match string literals that look like file references
var pathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`['"]([^'"]+\.(py|csv|pkl|json|txt|md|yml|yaml))['"]`),
	regexp.MustCompile(`['"]([^'"]*[/\\][^'"]+)['"]`),
	regexp.MustCompile(`open\s*\(\s*['"]([^'"]+)['"]`),
	regexp.MustCompile(`Path\s*\(\s*['"]([^'"]+)['"]`),
}

// notPathPatterns reject constants, numbers and bare words
var notPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[A-Z_]+$`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`^[a-z]+$`),
}

// topModules is how many modules the report ranks
const topModules = 10

// Analyzer builds dependency graphs for a project
type Analyzer struct {
	root       string
	firstParty []string
	logger     logging.Logger
}

// New creates an analyzer
// An empty firstParty list uses the default first-party packages
func New(root string, firstParty []string, logger logging.Logger) *Analyzer {
	if len(firstParty) == 0 {
		firstParty = models.DefaultFirstPartyPackages()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	return &Analyzer{
		root:       absRoot,
		firstParty: firstParty,
		logger:     logging.OrNull(logger).WithFields(logging.Fields{"component": "analyzer"}),
	}
}

func (a *Analyzer) read(path string) ([]byte, error) {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(a.root, filepath.FromSlash(path))
	}
	return os.ReadFile(full)
}

// AnalyzeImports returns the imports of a Python file in source order
// Unreadable or unparsable files yield no dependencies and a warning
func (a *Analyzer) AnalyzeImports(ctx context.Context, path string) []models.ImportDependency {
	src, err := a.read(path)
	if err != nil {
		a.logger.Warn(ctx, "Cannot read file for import analysis", logging.Fields{"path": path, "error": err.Error()})
		return nil
	}

	refs, err := parseImports(ctx, src)
	if err != nil {
		if errors.Is(err, errSyntax) {
			a.logger.Warn(ctx, "Syntax error, skipping file", logging.Fields{"path": path})
		} else {
			a.logger.Warn(ctx, "Cannot parse imports", logging.Fields{"path": path, "error": err.Error()})
		}
		return nil
	}

	deps := make([]models.ImportDependency, 0, len(refs))
	for _, r := range refs {
		deps = append(deps, models.ImportDependency{
			SourceFile:      path,
			ImportStatement: r.Statement,
			ImportedModule:  r.Module,
			LineNumber:      r.Line,
			IsRelative:      r.Relative,
		})
	}
	return deps
}

// AnalyzeFilePaths returns string literals in a file that look like file paths
func (a *Analyzer) AnalyzeFilePaths(path string) []models.PathDependency {
	src, err := a.read(path)
	if err != nil {
		a.logger.Warn(context.Background(), "Cannot read file for path analysis", logging.Fields{"path": path, "error": err.Error()})
		return nil
	}

	var deps []models.PathDependency
	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		for _, re := range pathPatterns {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				ref := m[1]
				if !IsLikelyFilePath(ref) {
					continue
				}
				deps = append(deps, models.PathDependency{
					SourceFile:     path,
					ReferencedPath: ref,
					LineNumber:     lineNo,
					Context:        strings.TrimSpace(line),
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		a.logger.Warn(context.Background(), "Error scanning file for paths", logging.Fields{"path": path, "error": err.Error()})
	}

	return deps
}

// IsLikelyFilePath filters literal strings down to plausible file references
func IsLikelyFilePath(s string) bool {
	if len(s) < 3 {
		return false
	}

	for _, scheme := range []string{"http://", "https://", "ftp://"} {
		if strings.HasPrefix(s, scheme) {
			return false
		}
	}

	for _, re := range notPathPatterns {
		if re.MatchString(s) {
			return false
		}
	}

	hasExtension := strings.Contains(s, ".") && !strings.HasSuffix(s, ".")
	hasSeparator := strings.ContainsAny(s, `/\`)
	return hasExtension || hasSeparator
}

// BuildGraph adds every file as a node and analyzes the Python ones
func (a *Analyzer) BuildGraph(ctx context.Context, files []models.FileInfo) (*models.DependencyGraph, error) {
	graph := models.NewDependencyGraph()

	for _, f := range files {
		graph.Nodes[f.Path] = f
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, models.NewDependencyError("build_graph", f.Path, "analysis interrupted", err)
		}
		if f.Extension != ".py" {
			continue
		}
		graph.ImportEdges = append(graph.ImportEdges, a.AnalyzeImports(ctx, f.Path)...)
		graph.PathEdges = append(graph.PathEdges, a.AnalyzeFilePaths(f.Path)...)
	}

	a.logger.Info(ctx, "Dependency graph built", logging.Fields{
		"nodes":        len(graph.Nodes),
		"import_edges": len(graph.ImportEdges),
		"path_edges":   len(graph.PathEdges),
	})
	return graph, nil
}

// IsProjectModule reports whether module is a first-party import
// A module matches a package when it equals it or lies under it
func (a *Analyzer) IsProjectModule(module string) bool {
	if strings.HasPrefix(module, ".") {
		return true
	}
	for _, pkg := range a.firstParty {
		if module == pkg || strings.HasPrefix(module, pkg+".") {
			return true
		}
	}
	return false
}

// CriticalDependencies returns the import edges that need a compatibility link
func (a *Analyzer) CriticalDependencies(graph *models.DependencyGraph) []models.ImportDependency {
	var critical []models.ImportDependency
	for _, dep := range graph.ImportEdges {
		if dep.IsRelative || a.IsProjectModule(dep.ImportedModule) {
			critical = append(critical, dep)
		}
	}
	return critical
}

// FilesDependingOn returns the sorted source files that reference target
// Module names are mapped to candidate paths heuristically, so this over-approximates
func FilesDependingOn(graph *models.DependencyGraph, target string) []string {
	dependents := make(map[string]bool)

	for _, dep := range graph.ImportEdges {
		if dep.ImportedModule == "" {
			continue
		}
		modulePath := strings.ReplaceAll(dep.ImportedModule, ".", "/") + ".py"
		if strings.Contains(target, modulePath) || strings.Contains(modulePath, target) {
			dependents[dep.SourceFile] = true
		}
	}

	for _, dep := range graph.PathEdges {
		if strings.Contains(dep.ReferencedPath, target) {
			dependents[dep.SourceFile] = true
		}
	}

	result := make([]string, 0, len(dependents))
	for f := range dependents {
		result = append(result, f)
	}
	sort.Strings(result)
	return result
}

// Report renders the dependency analysis as Markdown
func (a *Analyzer) Report(graph *models.DependencyGraph) string {
	var b strings.Builder

	b.WriteString("# Dependency Analysis Report\n\n")
	fmt.Fprintf(&b, "Total files: %d\n", len(graph.Nodes))
	fmt.Fprintf(&b, "Import dependencies: %d\n", len(graph.ImportEdges))
	fmt.Fprintf(&b, "Path dependencies: %d\n\n", len(graph.PathEdges))

	critical := a.CriticalDependencies(graph)
	sort.SliceStable(critical, func(i, j int) bool { return critical[i].SourceFile < critical[j].SourceFile })

	fmt.Fprintf(&b, "## Critical Dependencies (%d)\n\n", len(critical))
	b.WriteString("These imports will require symbolic links:\n\n")
	for _, dep := range critical {
		fmt.Fprintf(&b, "  - %s:%d → %s\n", dep.SourceFile, dep.LineNumber, dep.ImportStatement)
	}

	b.WriteString("\n## Most Imported Modules\n\n")
	for _, mc := range ModuleCounts(graph, topModules) {
		fmt.Fprintf(&b, "  - %s: %d imports\n", mc.Module, mc.Count)
	}

	return b.String()
}

// ModuleCount is the number of import edges naming one module
type ModuleCount struct {
	Module string
	Count  int
}

// ModuleCounts ranks imported modules by edge count, ties broken by first appearance
func ModuleCounts(graph *models.DependencyGraph, limit int) []ModuleCount {
	index := make(map[string]int)
	var counts []ModuleCount
	for _, dep := range graph.ImportEdges {
		i, ok := index[dep.ImportedModule]
		if !ok {
			i = len(counts)
			index[dep.ImportedModule] = i
			counts = append(counts, ModuleCount{Module: dep.ImportedModule})
		}
		counts[i].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
