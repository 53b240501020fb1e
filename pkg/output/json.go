package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/reorgnorris/pkg/models"
)

// JSONFormatter writes one JSON event per line for automation and scripting
type JSONFormatter struct {
	writer  io.Writer
	encoder *json.Encoder
}

// JSONEvent represents a single event in the JSON output stream
type JSONEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// JSONStartData represents the data for a start event
type JSONStartData struct {
	TotalSteps int `json:"total_steps"`
}

// JSONProgressData represents phase, file and rollback event data
type JSONProgressData struct {
	Phase       string `json:"phase,omitempty"`
	Path        string `json:"path,omitempty"`
	Destination string `json:"destination,omitempty"`
	Current     int    `json:"current,omitempty"`
	Total       int    `json:"total,omitempty"`
	Error       string `json:"error,omitempty"`
}

// JSONReportData represents the final report data
type JSONReportData struct {
	RunID              string   `json:"run_id,omitempty"`
	Status             string   `json:"status"`
	DryRun             bool     `json:"dry_run"`
	Duration           string   `json:"duration"`
	DurationMs         int64    `json:"duration_ms"`
	PhasesCompleted    []string `json:"phases_completed"`
	FilesMoved         int      `json:"files_moved"`
	LinksCreated       int      `json:"links_created"`
	FilesDeleted       int      `json:"files_deleted"`
	BackupPath         string   `json:"backup_path,omitempty"`
	TransactionLogPath string   `json:"transaction_log_path,omitempty"`
	ReportPath         string   `json:"report_path,omitempty"`
	Errors             []string `json:"errors,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter and emits the start event
func (f *JSONFormatter) Start(writer io.Writer, totalSteps int) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.encoder = json.NewEncoder(writer)

	return f.emit("start", JSONStartData{TotalSteps: totalSteps})
}

// Progress emits one event per update
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	if f.encoder == nil {
		return nil
	}

	data := JSONProgressData{
		Phase:       string(update.Phase),
		Path:        update.Path,
		Destination: update.Destination,
		Current:     update.Current,
		Total:       update.Total,
	}
	if update.Error != nil {
		data.Error = update.Error.Error()
	}
	return f.emit(update.Type, data)
}

// Complete emits the final report event
func (f *JSONFormatter) Complete(result *models.ReorgResult) error {
	if f.encoder == nil {
		f.writer = io.Discard
		f.encoder = json.NewEncoder(f.writer)
	}

	phases := make([]string, 0, len(result.PhasesCompleted))
	for _, p := range result.PhasesCompleted {
		phases = append(phases, string(p))
	}

	duration := result.Duration()
	return f.emit("complete", JSONReportData{
		RunID:              result.RunID,
		Status:             string(result.Status()),
		DryRun:             result.DryRun,
		Duration:           duration.Round(time.Millisecond).String(),
		DurationMs:         duration.Milliseconds(),
		PhasesCompleted:    phases,
		FilesMoved:         result.FilesMoved,
		LinksCreated:       result.LinksCreated,
		FilesDeleted:       result.FilesDeleted,
		BackupPath:         result.BackupPath,
		TransactionLogPath: result.TransactionLogPath,
		ReportPath:         result.ReportPath,
		Errors:             result.Errors,
		Warnings:           result.Warnings,
	})
}

// Error emits an error event
func (f *JSONFormatter) Error(err error) error {
	if f.encoder == nil {
		return nil
	}
	return f.emit("error", map[string]string{"error": err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func (f *JSONFormatter) emit(eventType string, data any) error {
	return f.encoder.Encode(JSONEvent{
		Timestamp: time.Now(),
		Type:      eventType,
		Data:      data,
	})
}
