// Package txlog records every file mutation of a run so it can be reversed
package txlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
)

// JournalSuffix is appended to the log path for the append-only journal
const JournalSuffix = ".journal"

// Counts summarizes a log by operation type and outcome
type Counts struct {
	Total   int
	Move    int
	Link    int
	Delete  int
	Mkdir   int
	Success int
	Failed  int
}

// document is the JSON shape of a persisted log
type document struct {
	ReorganizationID string                    `json:"reorganization_id"`
	StartTime        string                    `json:"start_time"`
	Operations       []models.TransactionEntry `json:"operations"`
}

// header is the first line of a journal
type header struct {
	ReorganizationID string `json:"reorganization_id"`
	StartTime        string `json:"start_time"`
}

// Log is the ordered ledger of one run
// Each appended entry is fsynced to a journal before LogOperation returns;
// Flush rewrites the JSON document atomically
type Log struct {
	mu      sync.Mutex
	path    string
	id      string
	start   time.Time
	entries []models.TransactionEntry
	journal *os.File
	written bool
	logger  logging.Logger
}

// New creates an empty log that persists to path
func New(path string, logger logging.Logger) *Log {
	now := time.Now()
	l := &Log{
		path:   path,
		id:     "reorg_" + now.Format("20060102_150405"),
		start:  now,
		logger: logging.OrNull(logger).WithFields(logging.Fields{"component": "txlog"}),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		l.logger.Warn(context.Background(), "Failed to create transaction log directory", logging.Fields{
			"path":  path,
			"error": err.Error(),
		})
	}
	return l
}

// ID returns the reorganization id
func (l *Log) ID() string {
	return l.id
}

// StartTime returns when the log was started
func (l *Log) StartTime() time.Time {
	return l.start
}

// Path returns the JSON document path
func (l *Log) Path() string {
	return l.path
}

// JournalPath returns the journal path
func (l *Log) JournalPath() string {
	return l.path + JournalSuffix
}

// LogOperation appends an entry and makes it durable
// Persistence failures are logged as warnings and never returned
func (l *Log) LogOperation(op models.OperationType, source, destination string, success bool, errMsg, checksumBefore, checksumAfter string) models.TransactionEntry {
	entry := models.TransactionEntry{
		Timestamp:      time.Now(),
		Operation:      op,
		Source:         source,
		Destination:    destination,
		Success:        success,
		ErrorMessage:   errMsg,
		ChecksumBefore: checksumBefore,
		ChecksumAfter:  checksumAfter,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if err := l.appendJournal(entry); err != nil {
		l.logger.Warn(context.Background(), "Failed to save transaction log", logging.Fields{
			"path":  l.JournalPath(),
			"error": err.Error(),
		})
	}

	return entry
}

// appendJournal writes one entry line, opening the journal on first use
func (l *Log) appendJournal(entry models.TransactionEntry) error {
	if l.journal == nil {
		if err := l.openJournal(); err != nil {
			return err
		}
		// openJournal already wrote every entry, including this one
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	if _, err := l.journal.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return l.journal.Sync()
}

// openJournal truncates the journal and writes the header and all entries
func (l *Log) openJournal() error {
	if err := l.archivePrevious(); err != nil {
		return err
	}

	f, err := os.OpenFile(l.JournalPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(header{ReorganizationID: l.id, StartTime: models.FormatTimestamp(l.start)}); err != nil {
		f.Close()
		return err
	}
	for _, e := range l.entries {
		if err := enc.Encode(e); err != nil {
			f.Close()
			return err
		}
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync journal: %w", err)
	}

	l.journal = f
	return nil
}

// Flush atomically rewrites the JSON document
func (l *Log) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.flush()
}

func (l *Log) flush() error {
	if err := l.archivePrevious(); err != nil {
		return err
	}

	doc := document{
		ReorganizationID: l.id,
		StartTime:        models.FormatTimestamp(l.start),
		Operations:       l.entries,
	}
	if doc.Operations == nil {
		doc.Operations = []models.TransactionEntry{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to marshal transaction log: %w", err)
	}

	// Write atomically using temp file
	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write transaction log: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize transaction log: %w", err)
	}

	return nil
}

// Close flushes the document and removes the journal once it is redundant
// A log that recorded nothing leaves no file behind.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == 0 && !l.written {
		return nil
	}

	if err := l.flush(); err != nil {
		l.logger.Warn(context.Background(), "Failed to save transaction log", logging.Fields{
			"path":  l.path,
			"error": err.Error(),
		})
		if l.journal != nil {
			l.journal.Close()
			l.journal = nil
		}
		return err
	}

	if l.journal != nil {
		l.journal.Close()
		l.journal = nil
		os.Remove(l.JournalPath())
	}
	return nil
}

// ArchivePath is where a ledger of run id is kept once a later run reuses its path
func ArchivePath(path, id string) string {
	return path + "." + id
}

// archivePrevious moves an earlier ledger at the same path out of the way
// before this log first writes, so no ledger is ever overwritten
func (l *Log) archivePrevious() error {
	if l.written {
		return nil
	}

	_, docErr := os.Lstat(l.path)
	_, journalErr := os.Lstat(l.JournalPath())
	if os.IsNotExist(docErr) && os.IsNotExist(journalErr) {
		l.written = true
		return nil
	}

	prev, err := Load(l.path, l.logger)
	if err != nil {
		return fmt.Errorf("refusing to replace unreadable transaction log %s: %w", l.path, err)
	}

	if len(prev.entries) > 0 {
		archive := ArchivePath(l.path, prev.id)
		for n := 1; ; n++ {
			if _, err := os.Lstat(archive); os.IsNotExist(err) {
				break
			}
			archive = fmt.Sprintf("%s_%d", ArchivePath(l.path, prev.id), n)
		}

		prev.path = archive
		if err := prev.flush(); err != nil {
			return fmt.Errorf("failed to archive transaction log: %w", err)
		}
		l.logger.Info(context.Background(), "Archived previous transaction log", logging.Fields{
			"id":      prev.id,
			"archive": archive,
		})
	}

	os.Remove(l.JournalPath())
	os.Remove(l.path)
	l.written = true
	return nil
}

// Load reads a persisted log
// When a journal holds more entries than the document, the journal wins
func Load(path string, logger logging.Logger) (*Log, error) {
	l := &Log{
		path:    path,
		written: true,
		logger:  logging.OrNull(logger).WithFields(logging.Fields{"component": "txlog"}),
	}

	doc, docErr := readDocument(path)
	journal, journalErr := readJournal(path + JournalSuffix)

	switch {
	case docErr != nil && journalErr != nil:
		if os.IsNotExist(docErr) {
			return nil, models.NewFileOperationError("load_log", path, "log file does not exist", docErr)
		}
		return nil, models.NewFileOperationError("load_log", path, "failed to load transaction log", docErr)

	case docErr == nil && (journalErr != nil || len(journal.Operations) <= len(doc.Operations)):
		if err := l.apply(doc); err != nil {
			return nil, models.NewFileOperationError("load_log", path, "failed to load transaction log", err)
		}

	default:
		l.logger.Info(context.Background(), "Recovering transaction log from journal", logging.Fields{
			"path":    path,
			"entries": len(journal.Operations),
		})
		if err := l.apply(journal); err != nil {
			return nil, models.NewFileOperationError("load_log", path, "failed to load transaction journal", err)
		}
	}

	return l, nil
}

func (l *Log) apply(doc *document) error {
	start, err := models.ParseTimestamp(doc.StartTime)
	if err != nil {
		return fmt.Errorf("invalid start_time %q: %w", doc.StartTime, err)
	}
	l.id = doc.ReorganizationID
	l.start = start
	l.entries = doc.Operations
	return nil
}

func readDocument(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse transaction log: %w", err)
	}
	return &doc, nil
}

// readJournal parses a journal, ignoring a torn final line
func readJournal(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, fmt.Errorf("empty journal")
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		return nil, fmt.Errorf("failed to parse journal header: %w", err)
	}

	doc := &document{ReorganizationID: h.ReorganizationID, StartTime: h.StartTime}
	for i, line := range lines[1:] {
		var e models.TransactionEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			if i == len(lines)-2 {
				break
			}
			return nil, fmt.Errorf("failed to parse journal line %d: %w", i+2, err)
		}
		doc.Operations = append(doc.Operations, e)
	}
	return doc, nil
}

// Entries returns a copy of all entries in append order
func (l *Log) Entries() []models.TransactionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]models.TransactionEntry(nil), l.entries...)
}

// Operations filters entries by type (empty for all) and optionally by success
func (l *Log) Operations(op models.OperationType, successOnly bool) []models.TransactionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []models.TransactionEntry
	for _, e := range l.entries {
		if op != "" && e.Operation != op {
			continue
		}
		if successOnly && !e.Success {
			continue
		}
		result = append(result, e)
	}
	return result
}

// Failed returns every unsuccessful entry
func (l *Log) Failed() []models.TransactionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []models.TransactionEntry
	for _, e := range l.entries {
		if !e.Success {
			result = append(result, e)
		}
	}
	return result
}

// ForFile returns entries whose source or destination is path
func (l *Log) ForFile(path string) []models.TransactionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result []models.TransactionEntry
	for _, e := range l.entries {
		if e.Source == path || e.Destination == path {
			result = append(result, e)
		}
	}
	return result
}

// Reverse returns entries newest first, the order rollback must apply them
func (l *Log) Reverse() []models.TransactionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]models.TransactionEntry, len(l.entries))
	for i, e := range l.entries {
		result[len(l.entries)-1-i] = e
	}
	return result
}

// Count tallies entries by type and outcome
func (l *Log) Count() Counts {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := Counts{Total: len(l.entries)}
	for _, e := range l.entries {
		switch e.Operation {
		case models.OpMove:
			c.Move++
		case models.OpLink:
			c.Link++
		case models.OpDelete:
			c.Delete++
		case models.OpMkdir:
			c.Mkdir++
		}
		if e.Success {
			c.Success++
		} else {
			c.Failed++
		}
	}
	return c
}

// Summary renders a human-readable overview
func (l *Log) Summary() string {
	c := l.Count()

	var b strings.Builder
	b.WriteString("# Transaction Log Summary\n\n")
	fmt.Fprintf(&b, "Reorganization ID: %s\n", l.id)
	fmt.Fprintf(&b, "Start Time: %s\n\n", l.start.Format("2006-01-02 15:04:05"))
	b.WriteString("## Operation Counts\n")
	fmt.Fprintf(&b, "Total operations: %d\n", c.Total)
	fmt.Fprintf(&b, "  - Move: %d\n", c.Move)
	fmt.Fprintf(&b, "  - Link: %d\n", c.Link)
	fmt.Fprintf(&b, "  - Delete: %d\n", c.Delete)
	fmt.Fprintf(&b, "  - Mkdir: %d\n\n", c.Mkdir)
	fmt.Fprintf(&b, "Success: %d\n", c.Success)
	fmt.Fprintf(&b, "Failed: %d\n", c.Failed)

	if failed := l.Failed(); len(failed) > 0 {
		b.WriteString("\n## Failed Operations\n")
		for _, e := range failed {
			fmt.Fprintf(&b, "  - %s: %s (%s)\n", e.Operation, e.Source, e.ErrorMessage)
		}
	}

	return b.String()
}

// Clear drops all entries and persists the empty log
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = nil
	if l.journal != nil {
		l.journal.Close()
		l.journal = nil
	}
	if err := l.openJournal(); err != nil {
		l.logger.Warn(context.Background(), "Failed to reset transaction journal", logging.Fields{"error": err.Error()})
	}
	if err := l.flush(); err != nil {
		l.logger.Warn(context.Background(), "Failed to save transaction log", logging.Fields{"error": err.Error()})
	}
}
