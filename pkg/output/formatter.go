package output

import (
	"fmt"
	"io"
	"time"

	"github.com/sdejongh/reorgnorris/pkg/models"
)

// Progress event types
const (
	EventPhaseStart    = "phase_start"
	EventPhaseComplete = "phase_complete"
	EventFileMoved     = "file_moved"
	EventFileFailed    = "file_failed"
	EventLinkCreated   = "link_created"
	EventLinkFailed    = "link_failed"
	EventRollbackStep  = "rollback_step"
)

// ProgressUpdate represents a progress notification during a run
type ProgressUpdate struct {
	Type        string
	Phase       models.ReorgPhase
	Path        string
	Destination string
	Current     int // 1-based step within Total
	Total       int
	Error       error
}

// Formatter defines the interface for output formatting
// Implementations include human-readable, JSON and progress-bar formatters
type Formatter interface {
	// Start initializes the formatter for a run of totalSteps phases
	Start(writer io.Writer, totalSteps int) error

	// Progress reports progress during the run
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays the summary
	Complete(result *models.ReorgResult) error

	// Error reports an error during the run
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter for name: "human", "json" or "progress"
func New(name string) (Formatter, error) {
	switch name {
	case "", "human":
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "progress":
		return NewProgressFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use: human, json, progress)", name)
	}
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
