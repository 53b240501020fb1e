package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/sdejongh/reorgnorris/pkg/models"
)

// Stats is the flat statistics view of a run
type Stats struct {
	Status          models.Status
	DryRun          bool
	DurationSeconds float64
	StartTime       string
	EndTime         string
	PhasesCompleted []string
	FilesMoved      int
	LinksCreated    int
	FilesDeleted    int
	ErrorCount      int
	WarningCount    int
	ByCategory      map[models.FileCategory]int

	BackupPath         string
	TransactionLogPath string
}

// Statistics derives Stats from a result and its mappings
func Statistics(result *models.ReorgResult, mappings []models.FileMapping) Stats {
	s := Stats{
		Status:             result.Status(),
		DryRun:             result.DryRun,
		DurationSeconds:    result.Duration().Seconds(),
		StartTime:          models.FormatTimestamp(result.StartTime),
		FilesMoved:         result.FilesMoved,
		LinksCreated:       result.LinksCreated,
		FilesDeleted:       result.FilesDeleted,
		ErrorCount:         len(result.Errors),
		WarningCount:       len(result.Warnings),
		ByCategory:         make(map[models.FileCategory]int),
		BackupPath:         result.BackupPath,
		TransactionLogPath: result.TransactionLogPath,
	}
	if !result.EndTime.IsZero() {
		s.EndTime = models.FormatTimestamp(result.EndTime)
	}
	for _, p := range result.PhasesCompleted {
		s.PhasesCompleted = append(s.PhasesCompleted, string(p))
	}
	for _, m := range mappings {
		s.ByCategory[m.Category]++
	}
	return s
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusSuccess:
		return "✅ Success"
	case models.StatusPartial:
		return "⚠️ Partial"
	default:
		return "❌ Failed"
	}
}

// Rows returns the statistics as metric/value pairs
// Per-category counts follow the fixed rows in category order.
func (s Stats) Rows() [][]string {
	rows := [][]string{
		{"Status", statusLabel(s.Status)},
		{"Duration", fmt.Sprintf("%.2fs", s.DurationSeconds)},
		{"Phases Completed", fmt.Sprintf("%d/%d", len(s.PhasesCompleted), len(models.Phases()))},
		{"Files Moved", strconv.Itoa(s.FilesMoved)},
		{"Links Created", strconv.Itoa(s.LinksCreated)},
		{"Files Deleted", strconv.Itoa(s.FilesDeleted)},
		{"Errors", strconv.Itoa(s.ErrorCount)},
		{"Warnings", strconv.Itoa(s.WarningCount)},
	}
	if s.DryRun {
		rows = append(rows, []string{"Mode", "dry run"})
	}

	categories := make([]models.FileCategory, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		categories = append(categories, c)
	}
	order := make(map[models.FileCategory]int)
	for i, c := range models.AllCategories() {
		order[c] = i
	}
	sort.Slice(categories, func(i, j int) bool { return order[categories[i]] < order[categories[j]] })
	for _, c := range categories {
		rows = append(rows, []string{"Category " + string(c), strconv.Itoa(s.ByCategory[c])})
	}
	return rows
}

// WriteStatisticsTable renders stats as a two-column table
func WriteStatisticsTable(w io.Writer, stats Stats) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Value"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	if err := table.Bulk(stats.Rows()); err != nil {
		return err
	}
	return table.Render()
}
