package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/reorgnorris/pkg/models"
)

// progressTemplate renders the current phase name ahead of the bar
const progressTemplate = `{{string . "phase"}} {{counters .}} {{bar .}} {{percent .}}`

// ProgressFormatter draws a single bar advancing once per completed phase
// Failures are buffered while the bar is drawn and printed on completion.
// When the writer is not a terminal it behaves like HumanFormatter.
type ProgressFormatter struct {
	writer   io.Writer
	fallback *HumanFormatter

	mu       sync.Mutex
	bar      *pb.ProgressBar
	failures []ProgressUpdate
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{}
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start initializes the bar, or the human fallback when w is not a terminal
func (f *ProgressFormatter) Start(writer io.Writer, totalSteps int) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer

	if !isTerminal(writer) {
		f.fallback = NewHumanFormatter()
		return f.fallback.Start(writer, totalSteps)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.bar = f.newBar(totalSteps)
	f.bar.Start()
	return nil
}

func (f *ProgressFormatter) newBar(total int) *pb.ProgressBar {
	bar := pb.New(total)
	bar.SetWriter(f.writer)
	bar.SetTemplateString(progressTemplate)
	bar.Set("phase", "starting")
	return bar
}

// Progress advances the bar
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	if f.fallback != nil {
		return f.fallback.Progress(update)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil {
		return nil
	}

	switch update.Type {
	case EventPhaseStart:
		f.bar.Set("phase", string(update.Phase))

	case EventPhaseComplete:
		f.bar.Increment()

	case EventFileFailed, EventLinkFailed:
		f.failures = append(f.failures, update)

	case EventRollbackStep:
		if update.Total > 0 && f.bar.Total() != int64(update.Total) {
			f.bar.SetTotal(int64(update.Total))
			f.bar.Set("phase", "rollback")
		}
		f.bar.SetCurrent(int64(update.Current))
		if update.Error != nil {
			f.failures = append(f.failures, update)
		}
	}

	return nil
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(result *models.ReorgResult) error {
	if f.fallback != nil {
		return f.fallback.Complete(result)
	}

	f.mu.Lock()
	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	failures := f.failures
	f.failures = nil
	f.mu.Unlock()

	w := f.writer
	if w == nil {
		w = io.Discard
	}
	for _, u := range failures {
		errColor.Fprint(w, "  ✗ ")
		fmt.Fprintf(w, "%s: %v\n", u.Path, u.Error)
	}

	summary := NewHumanFormatter()
	summary.writer = w
	return summary.Complete(result)
}

// Error reports an error below the bar
func (f *ProgressFormatter) Error(err error) error {
	if f.fallback != nil {
		return f.fallback.Error(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
	if f.writer != nil {
		errColor.Fprintf(f.writer, "Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
