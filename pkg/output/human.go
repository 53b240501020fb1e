package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/sdejongh/reorgnorris/pkg/models"
)

var (
	okColor    = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgRed)
	phaseColor = color.New(color.FgCyan, color.Bold)
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer     io.Writer
	totalSteps int
	step       int
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, totalSteps int) error {
	f.writer = writer
	f.totalSteps = totalSteps
	f.step = 0
	return nil
}

// Progress reports progress during the run
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	if f.writer == nil {
		return nil
	}

	switch update.Type {
	case EventPhaseStart:
		f.step++
		phaseColor.Fprintf(f.writer, "[%d/%d] %s\n", f.step, f.totalSteps, update.Phase)

	case EventFileMoved:
		okColor.Fprint(f.writer, "  ✓ ")
		fmt.Fprintf(f.writer, "%s → %s\n", update.Path, update.Destination)

	case EventLinkCreated:
		okColor.Fprint(f.writer, "  ↪ ")
		fmt.Fprintf(f.writer, "%s → %s\n", update.Path, update.Destination)

	case EventFileFailed, EventLinkFailed:
		errColor.Fprint(f.writer, "  ✗ ")
		fmt.Fprintf(f.writer, "%s: %v\n", update.Path, update.Error)

	case EventRollbackStep:
		if update.Error != nil {
			errColor.Fprint(f.writer, "  ✗ ")
			fmt.Fprintf(f.writer, "[%d/%d] %s: %v\n", update.Current, update.Total, update.Path, update.Error)
			return nil
		}
		okColor.Fprint(f.writer, "  ↺ ")
		fmt.Fprintf(f.writer, "[%d/%d] %s\n", update.Current, update.Total, update.Path)
	}

	return nil
}

// Complete finalizes output and displays the summary
func (f *HumanFormatter) Complete(result *models.ReorgResult) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	w := f.writer

	fmt.Fprintf(w, "\n")
	if result.DryRun {
		warnColor.Fprintf(w, "Dry run: no files were changed\n")
	}
	fmt.Fprintf(w, "Reorganization finished in %s\n\n", formatDuration(result.Duration()))
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Phases completed: %d/%d\n", len(result.PhasesCompleted), len(models.Phases()))
	fmt.Fprintf(w, "  Files moved:      %d\n", result.FilesMoved)
	fmt.Fprintf(w, "  Links created:    %d\n", result.LinksCreated)
	fmt.Fprintf(w, "  Files deleted:    %d\n", result.FilesDeleted)
	if result.BackupPath != "" {
		fmt.Fprintf(w, "  Backup:           %s\n", result.BackupPath)
	}
	if result.TransactionLogPath != "" {
		fmt.Fprintf(w, "  Transaction log:  %s\n", result.TransactionLogPath)
	}
	if result.ReportPath != "" {
		fmt.Fprintf(w, "  Report:           %s\n", result.ReportPath)
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings:\n")
		for _, warning := range result.Warnings {
			warnColor.Fprintf(w, "  ⚠ %s\n", warning)
		}
	}
	if len(result.Errors) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, e := range result.Errors {
			errColor.Fprintf(w, "  ✗ %s\n", e)
		}
	}

	fmt.Fprintf(w, "\nStatus: ")
	switch status := result.Status(); status {
	case models.StatusSuccess:
		okColor.Fprintf(w, "%s\n", status)
	case models.StatusPartial:
		warnColor.Fprintf(w, "%s\n", status)
	default:
		errColor.Fprintf(w, "%s\n", status)
	}

	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		errColor.Fprintf(f.writer, "Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}
