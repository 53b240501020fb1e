package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// OperationType is the kind of mutation recorded in the transaction log
type OperationType string

const (
	// OpMove relocates a file
	OpMove OperationType = "move"
	// OpLink creates a symbolic link
	OpLink OperationType = "link"
	// OpDelete removes a file
	OpDelete OperationType = "delete"
	// OpMkdir creates a directory that did not exist before the run
	OpMkdir OperationType = "mkdir"
)

// TransactionEntry is one durable record of an attempted mutation
type TransactionEntry struct {
	Timestamp      time.Time
	Operation      OperationType
	Source         string
	Destination    string // empty for delete
	Success        bool
	ErrorMessage   string
	ChecksumBefore string
	ChecksumAfter  string
}

// transactionEntryJSON is the on-disk shape; optional fields serialize as null
type transactionEntryJSON struct {
	Timestamp      string        `json:"timestamp"`
	Operation      OperationType `json:"operation"`
	Source         string        `json:"source"`
	Destination    *string       `json:"destination"`
	Success        bool          `json:"success"`
	ErrorMessage   *string       `json:"error_message"`
	ChecksumBefore *string       `json:"checksum_before"`
	ChecksumAfter  *string       `json:"checksum_after"`
}

// naiveISOLayout accepts ISO-8601 timestamps written without a zone offset
const naiveISOLayout = "2006-01-02T15:04:05.999999999"

// MarshalJSON implements json.Marshaler
func (e TransactionEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionEntryJSON{
		Timestamp:      FormatTimestamp(e.Timestamp),
		Operation:      e.Operation,
		Source:         e.Source,
		Destination:    optional(e.Destination),
		Success:        e.Success,
		ErrorMessage:   optional(e.ErrorMessage),
		ChecksumBefore: optional(e.ChecksumBefore),
		ChecksumAfter:  optional(e.ChecksumAfter),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (e *TransactionEntry) UnmarshalJSON(data []byte) error {
	var raw transactionEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", raw.Timestamp, err)
	}

	*e = TransactionEntry{
		Timestamp:      ts,
		Operation:      raw.Operation,
		Source:         raw.Source,
		Destination:    deref(raw.Destination),
		Success:        raw.Success,
		ErrorMessage:   deref(raw.ErrorMessage),
		ChecksumBefore: deref(raw.ChecksumBefore),
		ChecksumAfter:  deref(raw.ChecksumAfter),
	}
	return nil
}

// FormatTimestamp renders t as ISO-8601
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// ParseTimestamp parses ISO-8601 with or without a zone offset
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(naiveISOLayout, s, time.Local)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ReorgConfig captures operator intent for one run
type ReorgConfig struct {
	ProjectRoot         string
	BackupEnabled       bool
	DryRun              bool
	AutoConfirmDeletes  bool
	PreserveTimestamps  bool
	CreateSymbolicLinks bool
	BackupPath          string
	LogLevel            string

	// TransactionLogPath defaults to <root>/.reorg_transaction_log.json
	TransactionLogPath string
	// ReportPath defaults to <root>/REORGANIZATION_SUMMARY.md
	ReportPath string
	// MetricsTextfile is written after the run when set
	MetricsTextfile string

	SimilarityThreshold float64
	FirstPartyPackages  []string
	ExcludePatterns     []string
}

const (
	// DefaultTransactionLogName is the ledger file name inside the project root
	DefaultTransactionLogName = ".reorg_transaction_log.json"
	// DefaultReportName is the Markdown report file name inside the project root
	DefaultReportName = "REORGANIZATION_SUMMARY.md"
	// DefaultSimilarityThreshold groups filenames as duplicates above this ratio
	DefaultSimilarityThreshold = 0.8
)

// DefaultFirstPartyPackages are top-level packages treated as in-project imports
func DefaultFirstPartyPackages() []string {
	return []string{"models", "api", "utils", "data", "tests", "reorg_tool"}
}

// Validate checks the configuration and fills derived defaults
func (c *ReorgConfig) Validate() error {
	if c.ProjectRoot == "" {
		return &ValidationError{Field: "project_root", Message: "project root is required"}
	}

	abs, err := filepath.Abs(c.ProjectRoot)
	if err != nil {
		return &ValidationError{Field: "project_root", Message: err.Error()}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return &ValidationError{Field: "project_root", Message: "project root does not exist: " + abs}
	}
	if !info.IsDir() {
		return &ValidationError{Field: "project_root", Message: "project root is not a directory: " + abs}
	}
	c.ProjectRoot = abs

	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return &ValidationError{Field: "similarity_threshold", Message: "must be in (0, 1]"}
	}

	validLevels := map[string]bool{"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.LogLevel] {
		return &ValidationError{Field: "log_level", Message: "must be 'debug', 'info', 'warn', or 'error'"}
	}

	if c.TransactionLogPath == "" {
		c.TransactionLogPath = filepath.Join(c.ProjectRoot, DefaultTransactionLogName)
	}
	if c.ReportPath == "" {
		c.ReportPath = filepath.Join(c.ProjectRoot, DefaultReportName)
	}
	if c.BackupEnabled && c.BackupPath == "" {
		c.BackupPath = DefaultBackupPath(c.ProjectRoot, time.Now())
	}
	if len(c.FirstPartyPackages) == 0 {
		c.FirstPartyPackages = DefaultFirstPartyPackages()
	}

	return nil
}

// DefaultBackupPath returns the timestamped sibling backup directory for root
func DefaultBackupPath(root string, now time.Time) string {
	name := filepath.Base(root) + "_backup_" + now.Format("20060102_150405")
	return filepath.Join(filepath.Dir(root), name)
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Is lets errors.Is(err, ErrValidation) match field errors
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
