package analyze

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/reorgnorris/pkg/models"
)

const sampleSource = `import os, sys as system
import models.predictor
from ..utils import helpers
from . import config
from api.routes import (
    health,
    predict as p,
)
from models import *

def f():
    import json
`

var sampleWant = []struct {
	stmt     string
	module   string
	line     int
	relative bool
}{
	{"import os", "os", 1, false},
	{"import sys", "sys", 1, false},
	{"import models.predictor", "models.predictor", 2, false},
	{"from ..utils import helpers", "utils", 3, true},
	{"from . import config", "", 4, true},
	{"from api.routes import health", "api.routes", 5, false},
	{"from api.routes import predict", "api.routes", 5, false},
	{"from models import *", "models", 9, false},
	{"import json", "json", 12, false},
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return root
}

func TestAnalyzeImports(t *testing.T) {
	root := writeProject(t, map[string]string{"pkg/mod.py": sampleSource})
	a := New(root, nil, nil)

	deps := a.AnalyzeImports(context.Background(), "pkg/mod.py")
	require.Len(t, deps, len(sampleWant))
	for i, want := range sampleWant {
		assert.Equal(t, "pkg/mod.py", deps[i].SourceFile)
		assert.Equal(t, want.stmt, deps[i].ImportStatement, "edge %d", i)
		assert.Equal(t, want.module, deps[i].ImportedModule, "edge %d", i)
		assert.Equal(t, want.line, deps[i].LineNumber, "edge %d", i)
		assert.Equal(t, want.relative, deps[i].IsRelative, "edge %d", i)
	}

	assert.Empty(t, a.AnalyzeImports(context.Background(), "missing.py"))
}

func TestParseImportLines(t *testing.T) {
	refs := parseImportLines([]byte(sampleSource))
	require.Len(t, refs, len(sampleWant))
	for i, want := range sampleWant {
		assert.Equal(t, want.stmt, refs[i].Statement)
		assert.Equal(t, want.line, refs[i].Line)
	}

	t.Run("SkipsDocstringsAndComments", func(t *testing.T) {
		src := "\"\"\"\nimport fake\n\"\"\"\n# import commented\nimport real  # trailing\nx = 1 \\\n  + 2\nfrom a.b \\\n    import c\n"
		refs := parseImportLines([]byte(src))
		require.Len(t, refs, 2)
		assert.Equal(t, "import real", refs[0].Statement)
		assert.Equal(t, "from a.b import c", refs[1].Statement)
		assert.Equal(t, 8, refs[1].Line)
	})
}

func TestAnalyzeFilePaths(t *testing.T) {
	src := strings.Join([]string{
		`df = pd.read_csv("data/processed/hiv.csv")`,
		`LEVEL = "DEBUG"`,
		`url = "https://example.com/a.json"`,
		`with open('notes') as f:`,
		`p = Path("models/model.pkl")`,
		`n = "123"`,
		`name = "predictor"`,
	}, "\n")
	root := writeProject(t, map[string]string{"load.py": src})
	a := New(root, nil, nil)

	deps := a.AnalyzeFilePaths("load.py")

	refs := make(map[string][]int)
	for _, d := range deps {
		refs[d.ReferencedPath] = append(refs[d.ReferencedPath], d.LineNumber)
	}
	assert.Contains(t, refs, "data/processed/hiv.csv")
	assert.Contains(t, refs, "models/model.pkl")
	assert.Equal(t, 5, refs["models/model.pkl"][0])
	assert.NotContains(t, refs, "DEBUG")
	assert.NotContains(t, refs, "https://example.com/a.json")
	assert.NotContains(t, refs, "notes")
	assert.NotContains(t, refs, "123")
	assert.NotContains(t, refs, "predictor")

	for _, d := range deps {
		if d.ReferencedPath == "data/processed/hiv.csv" {
			assert.Equal(t, `df = pd.read_csv("data/processed/hiv.csv")`, d.Context)
		}
	}
}

func TestIsLikelyFilePath(t *testing.T) {
	tests := []struct {
		s    string
		want bool
	}{
		{"a.py", true},
		{"ab", false},
		{"dir/file", true},
		{`dir\file`, true},
		{"http://x.io/a.py", false},
		{"ftp://host/file.txt", false},
		{"MAX_SIZE", false},
		{"2024", false},
		{"hello", false},
		{"Hello", false},
		{"trailing.", false},
		{"v1.2", true},
	}

	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLikelyFilePath(tt.s))
		})
	}
}

func TestBuildGraph(t *testing.T) {
	root := writeProject(t, map[string]string{
		"app.py":              "from models.predictor import Predictor\nimport flask\nDATA = 'data/processed/hiv.csv'\n",
		"models/predictor.py": "from .priors import PRIORS\n",
		"README.md":           "import nothing\n",
	})
	files := []models.FileInfo{
		{Path: "app.py", Name: "app.py", Extension: ".py"},
		{Path: "models/predictor.py", Name: "predictor.py", Extension: ".py"},
		{Path: "README.md", Name: "README.md", Extension: ".md"},
	}
	a := New(root, nil, nil)

	graph, err := a.BuildGraph(context.Background(), files)
	require.NoError(t, err)

	assert.Len(t, graph.Nodes, 3)
	assert.Len(t, graph.ImportEdges, 3)
	require.Len(t, graph.PathEdges, 2) // first two regexes both match the literal

	t.Run("CriticalDependencies", func(t *testing.T) {
		critical := a.CriticalDependencies(graph)
		require.Len(t, critical, 2)
		assert.Equal(t, "models.predictor", critical[0].ImportedModule)
		assert.True(t, critical[1].IsRelative)
	})

	t.Run("FilesDependingOn", func(t *testing.T) {
		assert.Equal(t, []string{"app.py"}, FilesDependingOn(graph, "models/predictor.py"))
		assert.Equal(t, []string{"app.py"}, FilesDependingOn(graph, "hiv.csv"))
		assert.Empty(t, FilesDependingOn(graph, "nothing_here.txt"))
	})

	t.Run("Report", func(t *testing.T) {
		report := a.Report(graph)
		assert.Contains(t, report, "Total files: 3")
		assert.Contains(t, report, "Import dependencies: 3")
		assert.Contains(t, report, "## Critical Dependencies (2)")
		assert.Contains(t, report, "  - app.py:1 → from models.predictor import Predictor")
		assert.Contains(t, report, "  - flask: 1 imports")
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := a.BuildGraph(ctx, files)
		assert.ErrorIs(t, err, models.ErrDependency)
	})
}

func TestIsProjectModule(t *testing.T) {
	a := New(t.TempDir(), []string{"models", "api"}, nil)

	assert.True(t, a.IsProjectModule("models"))
	assert.True(t, a.IsProjectModule("models.predictor"))
	assert.True(t, a.IsProjectModule(".sibling"))
	assert.False(t, a.IsProjectModule("modelscope"), "prefix must end at a package boundary")
	assert.False(t, a.IsProjectModule("numpy"))
}

func TestModuleCounts(t *testing.T) {
	graph := models.NewDependencyGraph()
	for _, m := range []string{"os", "numpy", "os", "pandas", "numpy", "os"} {
		graph.ImportEdges = append(graph.ImportEdges, models.ImportDependency{ImportedModule: m})
	}

	counts := ModuleCounts(graph, 2)
	assert.Equal(t, []ModuleCount{{"os", 3}, {"numpy", 2}}, counts)
}
