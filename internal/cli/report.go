package cli

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"github.com/sdejongh/reorgnorris/pkg/classify"
	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/report"
	"github.com/sdejongh/reorgnorris/pkg/txlog"
	"github.com/sdejongh/reorgnorris/pkg/validate"
)

// ReportFlags holds report command flags
type ReportFlags struct {
	projectFlags
	Log    string
	Output string
	Tree   int
}

var reportFlags ReportFlags

// NewReportCommand creates the report command
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Regenerate the Markdown report from a transaction log",
		RunE:  runReport,
	}

	reportFlags.register(cmd)
	cmd.Flags().StringVar(&reportFlags.Log, "log", "", "transaction log to report on (default from config)")
	cmd.Flags().StringVarP(&reportFlags.Output, "output", "o", "", "report file (default from config)")
	cmd.Flags().IntVar(&reportFlags.Tree, "tree", 0, "print the directory tree to this depth instead of writing a report")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, rc, err := loadReorgConfig(reportFlags.projectFlags)
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg, rc.ProjectRoot)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	reporter, err := report.New(rc.ProjectRoot)
	if err != nil {
		return err
	}

	if reportFlags.Tree > 0 {
		fmt.Fprintln(stdout(), reporter.DirectoryTree("", reportFlags.Tree))
		return nil
	}

	logPath := reportFlags.Log
	if logPath == "" {
		logPath = rc.TransactionLogPath
	}
	log, err := txlog.Load(logPath, logger)
	if err != nil {
		return err
	}

	result, mappings := resultFromLog(log)
	result.TransactionLogPath = logPath

	validator, err := validate.New(rc.ProjectRoot, validate.WithLogger(logger), validate.WithExcludes(rc.ExcludePatterns))
	if err != nil {
		return err
	}
	expected := make([]string, 0, len(mappings))
	for _, m := range mappings {
		expected = append(expected, m.NewPath)
	}
	checks := validator.ValidateAll(ctx, validate.Options{ExpectedFiles: expected})

	out := reportFlags.Output
	if out == "" {
		out = rc.ReportPath
	}
	result.ReportPath = out
	if err := reporter.WriteMarkdown(out, result, mappings, checks); err != nil {
		return err
	}

	if err := report.WriteStatisticsTable(stdout(), report.Statistics(result, mappings)); err != nil {
		return err
	}
	fmt.Fprintf(stdout(), "Report written to: %s\n", out)
	return nil
}

// resultFromLog rebuilds the outcome of a past run from its ledger
func resultFromLog(log *txlog.Log) (*models.ReorgResult, []models.FileMapping) {
	result := models.NewReorgResult(log.ID(), log.StartTime())
	result.EndTime = log.StartTime()

	linked := make(map[string]bool)
	for _, e := range log.Operations(models.OpLink, true) {
		linked[e.Source] = true
	}

	var mappings []models.FileMapping
	for _, e := range log.Entries() {
		if e.Timestamp.After(result.EndTime) {
			result.EndTime = e.Timestamp
		}
		if !e.Success {
			result.AddWarning(fmt.Sprintf("%s failed: %s: %s", e.Operation, e.Source, e.ErrorMessage))
			continue
		}

		switch e.Operation {
		case models.OpMove:
			result.FilesMoved++
			m := models.FileMapping{OldPath: e.Source, NewPath: e.Destination, Category: categoryForDir(path.Dir(e.Destination))}
			if linked[e.Source] {
				m.LinkPath = e.Source
			}
			mappings = append(mappings, m)
		case models.OpLink:
			result.LinksCreated++
		case models.OpDelete:
			result.FilesDeleted++
		}
	}

	for _, p := range models.Phases() {
		result.CompletePhase(p)
	}
	result.Success = len(log.Failed()) == 0
	return result, mappings
}

// categoryForDir maps a target directory back to its category
func categoryForDir(dir string) models.FileCategory {
	for _, c := range models.AllCategories() {
		if classify.CategoryDir(c) == dir {
			return c
		}
	}
	return models.CategoryUnknown
}
