// Package report renders run summaries, directory trees and the Markdown report
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/scan"
	"github.com/sdejongh/reorgnorris/pkg/validate"
)

// timeLayout is used for every human-facing timestamp
const timeLayout = "2006-01-02 15:04:05"

// Option configures a Reporter
type Option func(*Reporter)

// WithClock overrides the time source used for "Generated" stamps
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

// Reporter renders reports for one project root
type Reporter struct {
	root    string
	scanner *scan.Scanner
	now     func() time.Time
}

// New creates a reporter for root
func New(root string, opts ...Option) (*Reporter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, models.NewValidationError("report", abs, "Project root does not exist", err)
	}

	scanner, err := scan.New(abs, nil, nil)
	if err != nil {
		return nil, err
	}

	r := &Reporter{root: abs, scanner: scanner, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Root returns the absolute project root
func (r *Reporter) Root() string {
	return r.root
}

func statusLine(success bool) string {
	if success {
		return "✅ SUCCESS"
	}
	return "❌ FAILED"
}

// SummaryReport renders the short run summary
func (r *Reporter) SummaryReport(result *models.ReorgResult) string {
	var b strings.Builder

	b.WriteString("# Reorganization Summary\n\n")
	fmt.Fprintf(&b, "**Status**: %s\n", statusLine(result.Success))
	fmt.Fprintf(&b, "**Duration**: %.2f seconds\n", result.Duration().Seconds())
	fmt.Fprintf(&b, "**Start Time**: %s\n", result.StartTime.Format(timeLayout))
	if !result.EndTime.IsZero() {
		fmt.Fprintf(&b, "**End Time**: %s\n", result.EndTime.Format(timeLayout))
	}
	if result.DryRun {
		b.WriteString("**Mode**: dry run\n")
	}

	b.WriteString("\n## Statistics\n")
	fmt.Fprintf(&b, "- Files Moved: %d\n", result.FilesMoved)
	fmt.Fprintf(&b, "- Symbolic Links Created: %d\n", result.LinksCreated)
	fmt.Fprintf(&b, "- Files Deleted: %d\n", result.FilesDeleted)

	b.WriteString("\n## Phases Completed\n")
	for _, p := range result.PhasesCompleted {
		fmt.Fprintf(&b, "- ✅ %s\n", p)
	}

	writeMessages(&b, result)
	return b.String()
}

func writeMessages(b *strings.Builder, result *models.ReorgResult) {
	if len(result.Errors) > 0 {
		b.WriteString("\n## Errors\n\n")
		for _, e := range result.Errors {
			fmt.Fprintf(b, "- ❌ %s\n", e)
		}
	}
	if len(result.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(b, "- ⚠️ %s\n", w)
		}
	}
}

// DetailedReport renders the summary followed by every mapping and the validation outcome
// checks may be nil
func (r *Reporter) DetailedReport(result *models.ReorgResult, mappings []models.FileMapping, checks *models.ValidationChecks) string {
	var b strings.Builder

	b.WriteString("# Detailed Reorganization Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.now().Format(timeLayout))
	b.WriteString("## Summary\n")
	b.WriteString(r.SummaryReport(result))
	b.WriteString("\n")

	if len(mappings) > 0 {
		b.WriteString("## File Mappings\n\n")
		for _, m := range mappings {
			fmt.Fprintf(&b, "- `%s` → `%s` (%s)\n", m.OldPath, m.NewPath, m.Category)
		}
		b.WriteString("\n")
	}

	if checks != nil {
		b.WriteString(validate.Report(checks))
		b.WriteString("\n")
	}

	if result.BackupPath != "" {
		fmt.Fprintf(&b, "## Backup\nBackup created at: `%s`\n\n", result.BackupPath)
	}
	if result.TransactionLogPath != "" {
		fmt.Fprintf(&b, "## Transaction Log\nTransaction log saved to: `%s`\n\n", result.TransactionLogPath)
	}

	return b.String()
}

// DirectoryTree draws dir (relative to the root, empty for the root itself) to maxDepth levels
// Directories come first, excluded entries are skipped and symlinks show their stored target.
func (r *Reporter) DirectoryTree(dir string, maxDepth int) string {
	return r.tree(dir, maxDepth, true)
}

func (r *Reporter) tree(dir string, maxDepth int, showFiles bool) string {
	start := r.root
	if dir != "" {
		start = filepath.Join(r.root, filepath.FromSlash(dir))
	}
	if _, err := os.Stat(start); err != nil {
		return "Directory does not exist: " + start
	}

	lines := []string{filepath.Base(start) + "/"}
	var walk func(path, prefix string, depth int)
	walk = func(path, prefix string, depth int) {
		if depth >= maxDepth {
			return
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return
		}

		type item struct {
			name  string
			isDir bool
			link  bool
		}
		var items []item
		for _, e := range entries {
			full := filepath.Join(path, e.Name())
			rel, _ := filepath.Rel(r.root, full)
			if r.scanner.Excluded(filepath.ToSlash(rel)) {
				continue
			}
			it := item{name: e.Name(), isDir: e.IsDir(), link: e.Type()&os.ModeSymlink != 0}
			if !it.isDir && !showFiles {
				continue
			}
			items = append(items, it)
		}
		sort.Slice(items, func(i, j int) bool {
			if items[i].isDir != items[j].isDir {
				return items[i].isDir
			}
			return items[i].name < items[j].name
		})

		for i, it := range items {
			branch, next := "├── ", "│   "
			if i == len(items)-1 {
				branch, next = "└── ", "    "
			}

			full := filepath.Join(path, it.name)
			switch {
			case it.isDir:
				lines = append(lines, prefix+branch+it.name+"/")
				walk(full, prefix+next, depth+1)
			case it.link:
				target, err := os.Readlink(full)
				if err != nil {
					target = "[broken]"
				}
				lines = append(lines, prefix+branch+it.name+" -> "+filepath.ToSlash(target))
			default:
				lines = append(lines, prefix+branch+it.name)
			}
		}
	}
	walk(start, "", 0)

	return strings.Join(lines, "\n")
}

// Markdown renders the full operator-facing report
// checks may be nil when validation did not run
func (r *Reporter) Markdown(result *models.ReorgResult, mappings []models.FileMapping, checks *models.ValidationChecks) string {
	var b strings.Builder
	now := r.now()

	b.WriteString("# Project Reorganization Report\n\n")
	fmt.Fprintf(&b, "**Generated**: %s\n", now.Format(timeLayout))
	fmt.Fprintf(&b, "**Project**: %s\n", filepath.Base(r.root))
	if result.RunID != "" {
		fmt.Fprintf(&b, "**Run**: %s\n", result.RunID)
	}
	b.WriteString("\n---\n\n")

	b.WriteString("## Executive Summary\n\n")
	switch {
	case result.DryRun:
		b.WriteString("🔍 **Dry run: no files were changed.**\n\n")
	case result.Success && len(result.Errors) == 0:
		b.WriteString("✅ **Reorganization completed successfully!**\n\n")
	default:
		b.WriteString("❌ **Reorganization failed or completed with errors.**\n\n")
	}
	fmt.Fprintf(&b, "The project reorganization took %.2f seconds and processed:\n", result.Duration().Seconds())
	fmt.Fprintf(&b, "- **%d** files moved to new locations\n", result.FilesMoved)
	fmt.Fprintf(&b, "- **%d** symbolic links created for backward compatibility\n", result.LinksCreated)
	fmt.Fprintf(&b, "- **%d** obsolete files removed\n", result.FilesDeleted)
	b.WriteString("\n---\n\n")

	stats := Statistics(result, mappings)
	b.WriteString("## Detailed Statistics\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	for _, row := range stats.Rows() {
		fmt.Fprintf(&b, "| %s | %s |\n", row[0], row[1])
	}
	b.WriteString("\n")

	b.WriteString("## New Directory Structure\n\n```\n")
	b.WriteString(r.tree("", 3, false))
	b.WriteString("\n```\n\n")

	if len(mappings) > 0 {
		b.WriteString("## File Relocations\n\n")
		if result.DryRun {
			b.WriteString("The following files would be moved to new locations:\n\n")
		} else {
			b.WriteString("The following files were moved to new locations:\n\n")
		}
		for _, group := range groupByCategory(mappings) {
			fmt.Fprintf(&b, "### %s\n\n", group.category)
			for _, m := range group.mappings {
				fmt.Fprintf(&b, "- `%s` → `%s`\n", m.OldPath, m.NewPath)
			}
			b.WriteString("\n")
		}
	}

	if checks != nil {
		writeValidation(&b, checks)
	}

	writeMessages(&b, result)
	if len(result.Errors) > 0 || len(result.Warnings) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Next Steps\n\n")
	if result.Success && len(result.Errors) == 0 {
		b.WriteString("1. Review the validation results above\n")
		b.WriteString("2. Test your application to ensure everything works correctly\n")
		b.WriteString("3. Update any documentation that references old file paths\n")
		b.WriteString("4. Consider removing symbolic links once all code is updated\n")
		b.WriteString("5. Keep the backup for at least 7 days before deleting\n")
	} else {
		b.WriteString("1. Review the errors listed above\n")
		b.WriteString("2. Check the transaction log for detailed operation history\n")
		b.WriteString("3. Consider rolling back using the transaction log or the backup\n")
		b.WriteString("4. Fix any issues and retry the reorganization\n")
	}
	b.WriteString("\n")

	b.WriteString("## Backup and Rollback\n\n")
	if result.TransactionLogPath != "" {
		fmt.Fprintf(&b, "**Transaction Log**: `%s`\n\n", result.TransactionLogPath)
		b.WriteString("To undo the reorganization from the transaction log:\n")
		b.WriteString("```bash\n")
		fmt.Fprintf(&b, "reorgnorris rollback --project-root %s --log %s", r.root, result.TransactionLogPath)
		if result.BackupPath != "" {
			fmt.Fprintf(&b, " --backup %s", result.BackupPath)
		}
		b.WriteString(" --verify\n```\n\n")
	}
	if result.BackupPath != "" {
		fmt.Fprintf(&b, "**Backup Location**: `%s`\n\n", result.BackupPath)
		b.WriteString("To restore the whole tree from the backup into an empty directory:\n")
		b.WriteString("```bash\n")
		fmt.Fprintf(&b, "reorgnorris backups restore %s <empty-target-dir>\n", result.BackupPath)
		b.WriteString("```\n\n")
	}

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "*Report generated by reorgnorris on %s*\n", now.Format("2006-01-02 at 15:04:05"))

	return b.String()
}

func writeValidation(b *strings.Builder, checks *models.ValidationChecks) {
	b.WriteString("## Validation Results\n\n")
	overall := "❌ FAILED"
	if checks.AllPassed() {
		overall = "✅ PASSED"
	}
	fmt.Fprintf(b, "**Overall Status**: %s\n\n", overall)

	b.WriteString("### Symbolic Links\n")
	if checks.AllLinksValid {
		b.WriteString("✅ All symbolic links are valid and accessible\n\n")
	} else {
		fmt.Fprintf(b, "❌ Found %d broken symbolic links\n\n", len(checks.BrokenLinks))
	}

	b.WriteString("### Python Imports\n")
	switch {
	case checks.ImportsSkipped:
		b.WriteString("⏭️ Import checks skipped (no Python interpreter available)\n\n")
	case checks.ImportTestsPassed:
		b.WriteString("✅ All Python imports are working correctly\n\n")
	default:
		fmt.Fprintf(b, "❌ Found %d failed imports\n\n", len(checks.FailedImports))
	}

	b.WriteString("### File Integrity\n")
	if checks.NoMissingFiles {
		b.WriteString("✅ All expected files are present\n\n")
	} else {
		fmt.Fprintf(b, "❌ Found %d missing files\n\n", len(checks.MissingFiles))
	}
}

type categoryGroup struct {
	category models.FileCategory
	mappings []models.FileMapping
}

func groupByCategory(mappings []models.FileMapping) []categoryGroup {
	index := make(map[models.FileCategory]int)
	var groups []categoryGroup
	for _, m := range mappings {
		i, ok := index[m.Category]
		if !ok {
			i = len(groups)
			index[m.Category] = i
			groups = append(groups, categoryGroup{category: m.Category})
		}
		groups[i].mappings = append(groups[i].mappings, m)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].category < groups[j].category })
	return groups
}

// WriteMarkdown renders the Markdown report to path, creating parent directories
func (r *Reporter) WriteMarkdown(path string, result *models.ReorgResult, mappings []models.FileMapping, checks *models.ValidationChecks) error {
	if path == "" {
		path = filepath.Join(r.root, models.DefaultReportName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(r.Markdown(result, mappings, checks)), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
