package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/reorgnorris/pkg/models"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 5, 0, time.UTC)

func newReporter(t *testing.T, files map[string]string) (string, *Reporter) {
	t.Helper()

	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}

	r, err := New(root, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return root, r
}

func sampleResult() *models.ReorgResult {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := models.NewReorgResult("reorg_20240301_100000", start)
	r.EndTime = start.Add(2 * time.Second)
	r.Success = true
	r.FilesMoved = 2
	r.LinksCreated = 2
	r.BackupPath = "/tmp/proj_backup_20240301_100000"
	r.TransactionLogPath = "/tmp/proj/.reorg_transaction_log.json"
	for _, p := range models.Phases() {
		r.CompletePhase(p)
	}
	return r
}

func sampleMappings() []models.FileMapping {
	return []models.FileMapping{
		{OldPath: "app.py", NewPath: "core/api/app.py", Category: models.CategoryCoreAPI, LinkPath: "app.py"},
		{OldPath: "README.md", NewPath: "docs/user/README.md", Category: models.CategoryDocUser, LinkPath: "README.md"},
	}
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSummaryReport(t *testing.T) {
	_, r := newReporter(t, nil)

	result := sampleResult()
	result.AddWarning("Move failed: x.py: boom")
	out := r.SummaryReport(result)

	assert.Contains(t, out, "**Status**: ✅ SUCCESS")
	assert.Contains(t, out, "**Duration**: 2.00 seconds")
	assert.Contains(t, out, "- Files Moved: 2")
	assert.Contains(t, out, "- ✅ move_core")
	assert.Contains(t, out, "## Warnings")
	assert.Contains(t, out, "Move failed: x.py: boom")
	assert.NotContains(t, out, "## Errors")
}

func TestDetailedReport(t *testing.T) {
	_, r := newReporter(t, nil)

	checks := models.NewValidationChecks()
	checks.AllLinksValid = false
	checks.BrokenLinks = []string{"old.py"}

	out := r.DetailedReport(sampleResult(), sampleMappings(), checks)
	assert.Contains(t, out, "Generated: 2024-03-01 10:00:05")
	assert.Contains(t, out, "- `app.py` → `core/api/app.py` (core-api)")
	assert.Contains(t, out, "old.py")
	assert.Contains(t, out, "Backup created at: `/tmp/proj_backup_20240301_100000`")
}

func TestDirectoryTree(t *testing.T) {
	root, r := newReporter(t, map[string]string{
		"core/api/app.py":         "x",
		"docs/user/README.md":     "x",
		"zeta.txt":                "x",
		"__pycache__/app.cpython": "x",
	})
	require.NoError(t, os.Symlink("core/api/app.py", filepath.Join(root, "app.py")))

	out := r.DirectoryTree("", 3)
	want := strings.Join([]string{
		filepath.Base(root) + "/",
		"├── core/",
		"│   └── api/",
		"│       └── app.py",
		"├── docs/",
		"│   └── user/",
		"│       └── README.md",
		"├── app.py -> core/api/app.py",
		"└── zeta.txt",
	}, "\n")
	assert.Equal(t, want, out)

	shallow := r.DirectoryTree("", 1)
	assert.NotContains(t, shallow, "│   └── api/")
	assert.Equal(t, strings.Join([]string{
		filepath.Base(root) + "/",
		"├── core/",
		"├── docs/",
		"├── app.py -> core/api/app.py",
		"└── zeta.txt",
	}, "\n"), shallow)

	assert.Contains(t, r.DirectoryTree("missing", 2), "Directory does not exist")
}

func TestMarkdown(t *testing.T) {
	root, r := newReporter(t, map[string]string{
		"core/api/app.py":     "x",
		"docs/user/README.md": "x",
	})

	checks := models.NewValidationChecks()
	checks.ImportsSkipped = true

	result := sampleResult()
	out := r.Markdown(result, sampleMappings(), checks)

	sections := []string{
		"# Project Reorganization Report",
		"## Executive Summary",
		"## Detailed Statistics",
		"## New Directory Structure",
		"## File Relocations",
		"## Validation Results",
		"## Next Steps",
		"## Backup and Rollback",
	}
	last := -1
	for _, s := range sections {
		i := strings.Index(out, s)
		require.GreaterOrEqual(t, i, 0, "missing section %q", s)
		assert.Greater(t, i, last, "section %q out of order", s)
		last = i
	}

	assert.Contains(t, out, "**Project**: "+filepath.Base(root))
	assert.Contains(t, out, "✅ **Reorganization completed successfully!**")
	assert.Contains(t, out, "| Files Moved | 2 |")
	assert.Contains(t, out, "### core-api")
	assert.Contains(t, out, "- `README.md` → `docs/user/README.md`")
	assert.Contains(t, out, "Import checks skipped")
	assert.Contains(t, out, "reorgnorris rollback --project-root "+root)
	assert.Contains(t, out, "--backup /tmp/proj_backup_20240301_100000")
	assert.NotContains(t, out, "app.py\n```", "directory tree lists directories only")
}

func TestMarkdown_Failed(t *testing.T) {
	_, r := newReporter(t, nil)

	result := sampleResult()
	result.Success = false
	result.AddError("Phase backup failed: disk full")

	out := r.Markdown(result, nil, nil)
	assert.Contains(t, out, "❌ **Reorganization failed or completed with errors.**")
	assert.Contains(t, out, "- ❌ Phase backup failed: disk full")
	assert.Contains(t, out, "Review the errors listed above")
	assert.NotContains(t, out, "## Validation Results")
	assert.NotContains(t, out, "## File Relocations")
}

func TestWriteMarkdown(t *testing.T) {
	root, r := newReporter(t, nil)

	require.NoError(t, r.WriteMarkdown("", sampleResult(), sampleMappings(), nil))
	data, err := os.ReadFile(filepath.Join(root, models.DefaultReportName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Project Reorganization Report")

	custom := filepath.Join(root, "reports", "run.md")
	require.NoError(t, r.WriteMarkdown(custom, sampleResult(), nil, nil))
	assert.FileExists(t, custom)
}

func TestStatistics(t *testing.T) {
	result := sampleResult()
	result.AddWarning("w")

	mappings := append(sampleMappings(), models.FileMapping{OldPath: "api.py", NewPath: "core/api/api.py", Category: models.CategoryCoreAPI})
	stats := Statistics(result, mappings)

	assert.Equal(t, models.StatusSuccess, stats.Status)
	assert.Equal(t, 2.0, stats.DurationSeconds)
	assert.Equal(t, 1, stats.WarningCount)
	assert.Equal(t, 2, stats.ByCategory[models.CategoryCoreAPI])
	assert.Equal(t, 1, stats.ByCategory[models.CategoryDocUser])
	assert.Len(t, stats.PhasesCompleted, 12)

	rows := stats.Rows()
	assert.Equal(t, []string{"Category core-api", "2"}, rows[len(rows)-2])
	assert.Equal(t, []string{"Category doc-user", "1"}, rows[len(rows)-1])
}

func TestWriteStatisticsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatisticsTable(&buf, Statistics(sampleResult(), sampleMappings())))

	out := buf.String()
	assert.Contains(t, strings.ToUpper(out), "METRIC")
	assert.Contains(t, out, "Files Moved")
	assert.Contains(t, out, "Category doc-user")
}
