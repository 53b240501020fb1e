// Package backup snapshots a project tree before it is reorganized
package backup

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sdejongh/reorgnorris/internal/platform"
	"github.com/sdejongh/reorgnorris/pkg/checksum"
	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/scan"
	"github.com/sdejongh/reorgnorris/pkg/storage"
)

// countTolerance is the allowed relative file-count difference in Verify
const countTolerance = 0.10

// IgnorePatterns returns the patterns never copied into a backup
func IgnorePatterns() []string {
	return []string{
		"__pycache__",
		"*.pyc",
		"*.pyo",
		"*.pyd",
		".pytest_cache",
		".git",
		".venv",
		"venv",
		"env",
		".idea",
		".vscode",
		"node_modules",
		"*.log",
	}
}

// CriticalFiles must exist with identical sizes in a valid backup
func CriticalFiles() []string {
	return []string{"requirements.txt", "README.md"}
}

// Info describes an existing backup directory
type Info struct {
	Path    string
	Name    string
	Created time.Time
	Size    int64
}

// Service creates, verifies and restores sibling backups of a project
type Service struct {
	root      string
	backupDir string
	ignore    *scan.Matcher
	logger    logging.Logger
}

// New creates a backup service for projectRoot
// Backups are placed next to the project root
func New(projectRoot string, logger logging.Logger) (*Service, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, models.NewFileOperationError("backup", projectRoot, "failed to resolve project root", err)
	}
	if _, err := os.Stat(root); err != nil {
		return nil, models.NewFileOperationError("backup", root, "project root does not exist", err)
	}

	return &Service{
		root:      root,
		backupDir: filepath.Dir(root),
		ignore:    scan.NewMatcher(append(IgnorePatterns(), scan.LockFileName)),
		logger:    logging.OrNull(logger).WithFields(logging.Fields{"component": "backup"}),
	}, nil
}

// Prefix is the name prefix shared by this project's backups
func (s *Service) Prefix() string {
	return filepath.Base(s.root) + "_backup_"
}

// Path resolves a backup name to its directory
// An empty name yields a timestamped name, relative names resolve next to the project
func (s *Service) Path(name string) string {
	if name == "" {
		return models.DefaultBackupPath(s.root, time.Now())
	}
	if filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(s.backupDir, name)
}

// Create copies the project into a new backup directory and returns its path
// An existing target is an error and a failed copy leaves nothing behind
func (s *Service) Create(ctx context.Context, name string) (string, error) {
	target := s.Path(name)

	if platform.IsWithin(s.root, target) {
		return "", models.NewFileOperationError("backup", target, "backup cannot be placed inside the project", nil)
	}
	if _, err := os.Lstat(target); err == nil {
		return "", models.NewFileOperationError("backup", target, "backup already exists", nil)
	}

	s.logger.Info(ctx, "Creating backup", logging.Fields{"path": target})
	start := time.Now()

	if err := os.MkdirAll(target, 0755); err != nil {
		return "", models.NewFileOperationError("backup", target, "failed to create backup directory", err)
	}

	copied, err := s.copyTree(ctx, s.root, target, s.skipIgnored)
	if err != nil {
		if rmErr := os.RemoveAll(target); rmErr != nil {
			s.logger.Error(ctx, "Failed to remove partial backup", rmErr, logging.Fields{"path": target})
		}
		return "", models.NewFileOperationError("backup", target, "failed to create backup", err)
	}

	s.logger.Info(ctx, "Backup created", logging.Fields{
		"path":     target,
		"files":    copied,
		"duration": time.Since(start).String(),
	})
	return target, nil
}

func (s *Service) skipIgnored(rel string, isDir bool) bool {
	return s.ignore.Match(rel)
}

// copyTree copies every entry below src into dst
// Symbolic links are recreated with the same stored target
func (s *Service) copyTree(ctx context.Context, src, dst string, skip storage.SkipFunc) (int, error) {
	source, err := storage.NewLocal(src)
	if err != nil {
		return 0, err
	}
	defer source.Close()

	dest, err := storage.NewLocal(dst)
	if err != nil {
		return 0, err
	}
	defer dest.Close()

	entries, err := source.List(ctx, "", skip)
	if err != nil {
		return 0, err
	}

	copied := 0
	for _, entry := range entries {
		switch {
		case entry.IsSymlink:
			if err := dest.MkdirAll(ctx, filepath.Dir(filepath.FromSlash(entry.RelativePath))); err != nil {
				return copied, err
			}
			if err := dest.Symlink(ctx, entry.LinkTarget, entry.RelativePath); err != nil {
				return copied, err
			}
			copied++

		case entry.IsDir:
			if err := dest.MkdirAll(ctx, entry.RelativePath); err != nil {
				return copied, err
			}

		default:
			if err := copyFile(ctx, source, dest, entry); err != nil {
				return copied, err
			}
			copied++
		}
	}

	return copied, nil
}

func copyFile(ctx context.Context, source, dest storage.Backend, entry storage.FileInfo) error {
	reader, err := source.Read(ctx, entry.RelativePath)
	if err != nil {
		return err
	}
	defer reader.Close()

	meta := entry
	return dest.Write(ctx, entry.RelativePath, reader, entry.Size, &meta)
}

// Verify compares a backup against the project
// File counts must agree within 10% and critical files must match in size
func (s *Service) Verify(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		return false, models.NewFileOperationError("verify_backup", path, "backup does not exist", err)
	}

	original, err := s.countFiles(s.root)
	if err != nil {
		return false, models.NewFileOperationError("verify_backup", s.root, "failed to count project files", err)
	}
	backed, err := s.countFiles(path)
	if err != nil {
		return false, models.NewFileOperationError("verify_backup", path, "failed to count backup files", err)
	}

	diff := original - backed
	if diff < 0 {
		diff = -diff
	}
	if float64(diff) > float64(original)*countTolerance {
		s.logger.Warn(context.Background(), "Backup file count mismatch", logging.Fields{
			"original": original,
			"backup":   backed,
		})
		return false, nil
	}

	for _, rel := range CriticalFiles() {
		orig, err := os.Stat(filepath.Join(s.root, rel))
		if err != nil {
			continue
		}
		copied, err := os.Stat(filepath.Join(path, rel))
		if err != nil {
			s.logger.Warn(context.Background(), "Critical file missing in backup", logging.Fields{"path": rel})
			return false, nil
		}
		if orig.Size() != copied.Size() {
			s.logger.Warn(context.Background(), "Critical file size mismatch", logging.Fields{"path": rel})
			return false, nil
		}
	}

	s.logger.Info(context.Background(), "Backup verified", logging.Fields{"path": path, "files": backed})
	return true, nil
}

// countFiles counts non-directory entries below dir that a backup would copy
func (s *Service) countFiles(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if s.ignore.Match(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			count++
		}
		return nil
	})
	return count, err
}

// Checksum returns the MD5 of a file
func (s *Service) Checksum(path string) (string, error) {
	sum, err := checksum.File(path)
	if err != nil {
		return "", models.NewFileOperationError("checksum", path, "failed to calculate checksum", err)
	}
	return sum, nil
}

// Cleanup removes this project's backups older than retentionDays
// It returns the removed paths, including those removed before an error
func (s *Service) Cleanup(retentionDays int) ([]string, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil, models.NewFileOperationError("cleanup_backups", s.backupDir, "failed to list backups", err)
	}

	var removed []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), s.Prefix()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(s.backupDir, e.Name())
		s.logger.Info(context.Background(), "Removing old backup", logging.Fields{"path": path})
		if err := os.RemoveAll(path); err != nil {
			return removed, models.NewFileOperationError("cleanup_backups", path, "failed to remove backup", err)
		}
		removed = append(removed, path)
	}

	return removed, nil
}

// List returns this project's backups, newest first
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil, models.NewFileOperationError("list_backups", s.backupDir, "failed to list backups", err)
	}

	var backups []Info
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), s.Prefix()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(s.backupDir, e.Name())
		backups = append(backups, Info{
			Path:    path,
			Name:    e.Name(),
			Created: info.ModTime(),
			Size:    dirSize(path),
		})
	}

	sort.SliceStable(backups, func(i, j int) bool { return backups[i].Created.After(backups[j].Created) })
	return backups, nil
}

func dirSize(dir string) int64 {
	var total int64
	filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// Restore copies a backup into target, or into the project root when target is empty
// A non-empty target is never overwritten
func (s *Service) Restore(ctx context.Context, backupPath, target string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return models.NewFileOperationError("restore_backup", backupPath, "backup does not exist", err)
	}

	if target == "" {
		target = s.root
	}

	if entries, err := os.ReadDir(target); err == nil && len(entries) > 0 {
		return models.NewFileOperationError("restore_backup", target,
			"target directory is not empty, remove it first or choose a different location", nil)
	}

	if err := os.MkdirAll(target, 0755); err != nil {
		return models.NewFileOperationError("restore_backup", target, "failed to create target directory", err)
	}

	s.logger.Info(ctx, "Restoring backup", logging.Fields{"backup": backupPath, "target": target})
	if _, err := s.copyTree(ctx, backupPath, target, nil); err != nil {
		return models.NewFileOperationError("restore_backup", target, "failed to restore backup", err)
	}

	return nil
}

// RestoreFile copies one project-relative file from a backup into the project
// The file must be present in the backup and absent from the project
func (s *Service) RestoreFile(ctx context.Context, backupPath, rel string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return models.NewFileOperationError("restore_file", backupPath, "Backup directory does not exist: "+backupPath, err)
	}

	source, err := storage.NewLocal(backupPath)
	if err != nil {
		return models.NewFileOperationError("restore_file", backupPath, "failed to open backup", err)
	}
	defer source.Close()

	dest, err := storage.NewLocal(s.root)
	if err != nil {
		return models.NewFileOperationError("restore_file", s.root, "failed to open project root", err)
	}
	defer dest.Close()

	entry, err := source.Stat(ctx, rel)
	if err != nil || entry.IsDir {
		return models.NewFileOperationError("restore_file", rel, "File not found in backup: "+rel, err)
	}
	if exists, err := dest.Exists(ctx, rel); err != nil || exists {
		return models.NewFileOperationError("restore_file", rel, "File already exists: "+rel, err)
	}

	if entry.IsSymlink {
		if err := dest.MkdirAll(ctx, filepath.Dir(filepath.FromSlash(rel))); err != nil {
			return models.NewFileOperationError("restore_file", rel, "failed to restore file", err)
		}
		if err := dest.Symlink(ctx, entry.LinkTarget, rel); err != nil {
			return models.NewFileOperationError("restore_file", rel, "failed to restore file", err)
		}
		return nil
	}

	if err := copyFile(ctx, source, dest, *entry); err != nil {
		return models.NewFileOperationError("restore_file", rel, "failed to restore file", err)
	}

	s.logger.Debug(ctx, "File restored from backup", logging.Fields{"path": rel, "backup": backupPath})
	return nil
}

// String describes an Info for listings
func (i Info) String() string {
	return fmt.Sprintf("%s (%s, %.1f MB)", i.Name, i.Created.Format("2006-01-02 15:04:05"), float64(i.Size)/(1024*1024))
}
