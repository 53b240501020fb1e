// Package rollback reverses a run from its persisted transaction log
package rollback

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sdejongh/reorgnorris/pkg/backup"
	"github.com/sdejongh/reorgnorris/pkg/classify"
	"github.com/sdejongh/reorgnorris/pkg/linker"
	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/mover"
	"github.com/sdejongh/reorgnorris/pkg/storage"
	"github.com/sdejongh/reorgnorris/pkg/txlog"
)

// LogSuffix is appended to the reversed log's path to name the rollback's own log
const LogSuffix = ".rollback.json"

// Step is the outcome of reversing one entry
type Step struct {
	Operation   models.OperationType
	Source      string
	Destination string
	Success     bool
	Skipped     bool
	Error       string
}

// Result summarizes a rollback
type Result struct {
	Success         bool
	TotalOperations int
	Reversed        int
	Skipped         int
	Failed          int
	Errors          []string
	Steps           []Step
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
	LogPath         string
	RemovedDirs     []string
}

// VerifyResult compares the live tree against a backup
type VerifyResult struct {
	Success        bool
	FilesChecked   int
	FilesMatch     int
	FilesDiffer    int
	MissingFiles   []string
	DifferingFiles []string
}

// Preflight reports whether a log can be rolled back
type Preflight struct {
	OK               bool
	Reason           string
	OperationCount   int
	OperationsByType txlog.Counts
}

// Option configures a Service
type Option func(*Service)

// WithStepHook is called after every reversed, skipped or failed entry
func WithStepHook(hook func(Step)) Option {
	return func(s *Service) {
		s.onStep = hook
	}
}

// Service reverses logged operations below a project root
type Service struct {
	root    string
	backend *storage.Local
	mover   *mover.Mover
	linker  *linker.Linker
	backups *backup.Service
	onStep  func(Step)
	logger  logging.Logger
}

// New creates a rollback service for root
func New(root string, logger logging.Logger, opts ...Option) (*Service, error) {
	logger = logging.OrNull(logger).WithFields(logging.Fields{"component": "rollback"})

	backend, err := storage.NewLocal(root)
	if err != nil {
		return nil, models.NewRollbackError("rollback", root, "Project root does not exist", err)
	}
	lk, err := linker.New(backend.Root(), nil, logger)
	if err != nil {
		return nil, models.NewRollbackError("rollback", root, "Project root does not exist", err)
	}
	backups, err := backup.New(backend.Root(), logger)
	if err != nil {
		return nil, models.NewRollbackError("rollback", root, "Project root does not exist", err)
	}

	s := &Service{
		root:    backend.Root(),
		backend: backend,
		mover:   mover.New(backend, nil, logger),
		linker:  lk,
		backups: backups,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LogPathFor returns where the rollback of logPath records its own operations
func LogPathFor(logPath string) string {
	return logPath + LogSuffix
}

// Execute reverses every successful entry of the log at logPath, newest first
// Failed entries never changed the tree and are skipped; a failing reversal does
// not stop the others. The original log is never modified.
func (s *Service) Execute(ctx context.Context, logPath, backupPath string) (*Result, error) {
	source, err := txlog.Load(logPath, s.logger)
	if err != nil {
		return nil, models.NewRollbackError("rollback", logPath, "Failed to load transaction log", err)
	}

	entries := source.Reverse()
	result := &Result{
		Success:         true,
		TotalOperations: len(entries),
		Errors:          []string{},
		StartTime:       time.Now(),
		LogPath:         LogPathFor(logPath),
	}

	record := txlog.New(result.LogPath, s.logger)
	defer func() {
		if err := record.Close(); err != nil {
			s.logger.Warn(ctx, "Failed to save rollback log", logging.Fields{"path": result.LogPath, "error": err.Error()})
		}
	}()

	s.logger.Info(ctx, "Starting rollback", logging.Fields{
		"run_id":     source.ID(),
		"operations": len(entries),
		"path":       logPath,
	})

	for _, entry := range entries {
		step := Step{Operation: entry.Operation, Source: entry.Source, Destination: entry.Destination}

		switch {
		case !entry.Success:
			step.Skipped = true
			result.Skipped++

		default:
			if err := s.reverse(ctx, record, entry, backupPath); err != nil {
				step.Error = err.Error()
				result.Failed++
				result.Success = false
				result.Errors = append(result.Errors, fmt.Sprintf("Failed to reverse %s: %s - %v", entry.Operation, entry.Source, err))
				s.logger.Warn(ctx, "Reversal failed", logging.Fields{
					"operation": string(entry.Operation),
					"path":      entry.Source,
					"error":     err.Error(),
				})
			} else {
				step.Success = true
				result.Reversed++
			}
		}

		result.Steps = append(result.Steps, step)
		if s.onStep != nil {
			s.onStep(step)
		}
	}

	for _, step := range result.Steps {
		if step.Operation == models.OpMkdir && step.Success {
			result.RemovedDirs = append(result.RemovedDirs, step.Source)
		}
	}
	if len(source.Operations(models.OpMkdir, false)) == 0 {
		// Logs without directory entries leave only emptiness to go by
		result.RemovedDirs = append(result.RemovedDirs, s.removeEmptyCategoryDirs(ctx, backupPath)...)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	s.logger.Info(ctx, "Rollback finished", logging.Fields{
		"reversed": result.Reversed,
		"skipped":  result.Skipped,
		"failed":   result.Failed,
		"duration": result.Duration.String(),
	})
	return result, nil
}

// reverse undoes one entry and records the reversing mutation
func (s *Service) reverse(ctx context.Context, record *txlog.Log, entry models.TransactionEntry, backupPath string) error {
	switch entry.Operation {
	case models.OpMove:
		if err := s.mover.RollbackMove(ctx, entry.Source, entry.Destination); err != nil {
			record.LogOperation(models.OpMove, entry.Destination, entry.Source, false, err.Error(), "", "")
			return err
		}
		record.LogOperation(models.OpMove, entry.Destination, entry.Source, true, "", entry.ChecksumAfter, entry.ChecksumBefore)
		return nil

	case models.OpLink:
		info, err := s.backend.Stat(ctx, entry.Source)
		if err != nil {
			// Already gone or never created
			return nil
		}
		if !info.IsSymlink {
			err := models.NewRollbackError("reverse_link", entry.Source, "path is not a symbolic link: "+entry.Source, nil)
			record.LogOperation(models.OpDelete, entry.Source, "", false, err.Error(), "", "")
			return err
		}
		if err := s.linker.RemoveLink(ctx, entry.Source); err != nil {
			record.LogOperation(models.OpDelete, entry.Source, "", false, err.Error(), "", "")
			return models.NewRollbackError("reverse_link", entry.Source, "failed to remove link", err)
		}
		record.LogOperation(models.OpDelete, entry.Source, "", true, "", "", "")
		return nil

	case models.OpDelete:
		if backupPath == "" {
			return models.NewRollbackError("reverse_delete", entry.Source, "no backup path provided", nil)
		}
		restored := filepath.Join(backupPath, filepath.FromSlash(entry.Source))
		if err := s.backups.RestoreFile(ctx, backupPath, entry.Source); err != nil {
			record.LogOperation(models.OpMove, restored, entry.Source, false, err.Error(), "", "")
			return models.NewRollbackError("reverse_delete", entry.Source, "cannot restore from backup", err)
		}
		record.LogOperation(models.OpMove, restored, entry.Source, true, "", entry.ChecksumBefore, "")
		return nil

	case models.OpMkdir:
		entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(entry.Source)))
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return models.NewRollbackError("reverse_mkdir", entry.Source, "cannot read directory", err)
		}
		if len(entries) > 0 {
			err := models.NewRollbackError("reverse_mkdir", entry.Source, "directory is not empty: "+entry.Source, nil)
			record.LogOperation(models.OpDelete, entry.Source, "", false, err.Error(), "", "")
			return err
		}
		if err := s.backend.Delete(ctx, entry.Source); err != nil {
			record.LogOperation(models.OpDelete, entry.Source, "", false, err.Error(), "", "")
			return models.NewRollbackError("reverse_mkdir", entry.Source, "failed to remove directory", err)
		}
		record.LogOperation(models.OpDelete, entry.Source, "", true, "", "", "")
		return nil

	default:
		return models.NewRollbackError("rollback", entry.Source, "unknown operation: "+string(entry.Operation), nil)
	}
}

// removeEmptyCategoryDirs deletes category directories left empty, deepest first
// Directories present in the backup existed before the run and are kept.
func (s *Service) removeEmptyCategoryDirs(ctx context.Context, backupPath string) []string {
	candidates := map[string]bool{}
	for _, dir := range classify.CategoryDirs() {
		for d := dir; d != "." && d != "/"; d = filepath.ToSlash(filepath.Dir(d)) {
			candidates[d] = true
		}
	}

	dirs := make([]string, 0, len(candidates))
	for d := range candidates {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		if di, dj := strings.Count(dirs[i], "/"), strings.Count(dirs[j], "/"); di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})

	var removed []string
	for _, d := range dirs {
		if backupPath != "" {
			if info, err := os.Stat(filepath.Join(backupPath, filepath.FromSlash(d))); err == nil && info.IsDir() {
				continue
			}
		}
		entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(d)))
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := s.backend.Delete(ctx, d); err == nil {
			removed = append(removed, d)
		}
	}
	return removed
}

// VerifyRollback compares every file of a backup with the live tree by existence and size
func (s *Service) VerifyRollback(backupPath string) (*VerifyResult, error) {
	if _, err := os.Stat(backupPath); err != nil {
		return nil, models.NewRollbackError("verify_rollback", backupPath, "Backup directory does not exist", err)
	}

	result := &VerifyResult{Success: true, MissingFiles: []string{}, DifferingFiles: []string{}}
	err := filepath.WalkDir(backupPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(backupPath, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		result.FilesChecked++

		want, err := d.Info()
		if err != nil {
			return err
		}
		got, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(rel)))
		switch {
		case err != nil:
			result.MissingFiles = append(result.MissingFiles, rel)
			result.FilesDiffer++
			result.Success = false
		case got.Size() != want.Size():
			result.DifferingFiles = append(result.DifferingFiles, rel)
			result.FilesDiffer++
			result.Success = false
		default:
			result.FilesMatch++
		}
		return nil
	})
	if err != nil {
		return nil, models.NewRollbackError("verify_rollback", backupPath, "failed to walk backup", err)
	}

	return result, nil
}

// CanRollback is a cheap preflight: the log loads and holds operations
func (s *Service) CanRollback(logPath string) Preflight {
	log, err := txlog.Load(logPath, s.logger)
	if err != nil {
		return Preflight{Reason: fmt.Sprintf("Cannot load transaction log: %v", err)}
	}

	counts := log.Count()
	if counts.Total == 0 {
		return Preflight{Reason: "No operations found in transaction log"}
	}

	return Preflight{OK: true, OperationCount: counts.Total, OperationsByType: counts}
}

// Report renders a rollback result, and the verification when given, as Markdown
func Report(r *Result, v *VerifyResult) string {
	var b strings.Builder

	status := "✅ SUCCESS"
	if !r.Success {
		status = "❌ FAILED"
	}
	fmt.Fprintf(&b, "# Rollback Report\n\n**Status**: %s\n**Duration**: %.2f seconds\n\n", status, r.Duration.Seconds())

	b.WriteString("## Rollback Statistics\n")
	fmt.Fprintf(&b, "- Total Operations: %d\n", r.TotalOperations)
	fmt.Fprintf(&b, "- Successfully Reversed: %d\n", r.Reversed)
	fmt.Fprintf(&b, "- Skipped (never applied): %d\n", r.Skipped)
	fmt.Fprintf(&b, "- Failed: %d\n\n", r.Failed)

	if len(r.Errors) > 0 {
		b.WriteString("## Errors\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "- ❌ %s\n", e)
		}
		b.WriteString("\n")
	}

	if v != nil {
		b.WriteString("## Verification Results\n")
		if v.Success {
			b.WriteString("✅ All files match backup\n\n")
		} else {
			b.WriteString("❌ Some files do not match backup\n\n")
		}
		fmt.Fprintf(&b, "- Files Checked: %d\n- Files Match: %d\n- Files Differ: %d\n\n", v.FilesChecked, v.FilesMatch, v.FilesDiffer)
		list(&b, "Missing Files", v.MissingFiles)
		list(&b, "Differing Files", v.DifferingFiles)
	}

	if len(r.Steps) > 0 {
		b.WriteString("## Rollback Operations\n")
		for _, step := range r.Steps {
			switch {
			case step.Skipped:
				fmt.Fprintf(&b, "- ⏭️ %s: %s\n", step.Operation, step.Source)
			case step.Success:
				fmt.Fprintf(&b, "- ✅ %s: %s\n", step.Operation, step.Source)
			default:
				fmt.Fprintf(&b, "- ❌ %s: %s\n  Error: %s\n", step.Operation, step.Source, step.Error)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
