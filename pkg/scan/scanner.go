// Package scan walks a project tree and collects file metadata
package scan

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sdejongh/reorgnorris/internal/platform"
	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
)

// Scanner collects FileInfo records below a project root
type Scanner struct {
	root    string
	matcher *Matcher
	logger  logging.Logger
}

// New creates a scanner for root
// extraExcludes are added to the default and engine-artifact patterns
func New(root string, extraExcludes []string, logger logging.Logger) (*Scanner, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, models.NewFileOperationError("scan", root, "failed to resolve project root", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, models.NewFileOperationError("scan", absRoot, "project root does not exist", err)
	}
	if !info.IsDir() {
		return nil, models.NewFileOperationError("scan", absRoot, "project root is not a directory", nil)
	}

	patterns := append(DefaultExcludes(), EngineArtifacts()...)
	patterns = append(patterns, extraExcludes...)

	return &Scanner{
		root:    absRoot,
		matcher: NewMatcher(patterns),
		logger:  logging.OrNull(logger).WithFields(logging.Fields{"component": "scanner"}),
	}, nil
}

// Root returns the absolute project root
func (s *Scanner) Root() string {
	return s.root
}

// Excluded reports whether a root-relative path is excluded from scans
func (s *Scanner) Excluded(relativePath string) bool {
	return s.matcher.Match(relativePath)
}

// Scan walks dir recursively and returns every non-excluded file sorted by path
// An empty dir scans the whole project root
// Symbolic links are reported as files and never descended into
func (s *Scanner) Scan(ctx context.Context, dir string) ([]models.FileInfo, error) {
	start := s.root
	if dir != "" {
		start = s.abs(dir)
	}

	var files []models.FileInfo
	err := filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p != start && errors.Is(err, fs.ErrPermission) {
				s.logger.Warn(ctx, "Permission denied, skipping", logging.Fields{"path": p})
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p == start {
			return nil
		}

		rel := platform.RelativeTo(s.root, p)
		if s.matcher.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if info, ok := s.FileInfo(p); ok {
			files = append(files, info)
		}
		return nil
	})
	if err != nil {
		return nil, models.NewFileOperationError("scan", start, "failed to scan directory", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	s.logger.Debug(ctx, "Scan complete", logging.Fields{"path": start, "files": len(files)})
	return files, nil
}

// FileInfo describes a single file
// It returns false when the file cannot be accessed
func (s *Scanner) FileInfo(path string) (models.FileInfo, bool) {
	full := s.abs(path)

	isSymlink := false
	if li, err := os.Lstat(full); err == nil {
		isSymlink = li.Mode()&os.ModeSymlink != 0
	}

	info, err := os.Stat(full)
	if err != nil {
		// Dangling symlinks still describe themselves
		info, err = os.Lstat(full)
	}
	if err != nil {
		s.logger.Warn(context.Background(), "Cannot access file", logging.Fields{"path": path, "error": err.Error()})
		return models.FileInfo{}, false
	}

	name := filepath.Base(full)
	return models.FileInfo{
		Path:            platform.RelativeTo(s.root, full),
		Name:            name,
		Size:            info.Size(),
		Extension:       extension(name),
		ModifiedTime:    info.ModTime(),
		HasNonASCIIName: !isASCII(name),
		IsExecutable:    info.Mode().Perm()&0100 != 0,
		IsSymlink:       isSymlink,
	}, true
}

// WithoutSymlinks returns the files that are not symbolic links
func WithoutSymlinks(files []models.FileInfo) []models.FileInfo {
	regular := make([]models.FileInfo, 0, len(files))
	for _, f := range files {
		if !f.IsSymlink {
			regular = append(regular, f)
		}
	}
	return regular
}

// FileCount returns the number of files below dir
func (s *Scanner) FileCount(ctx context.Context, dir string) (int, error) {
	files, err := s.Scan(ctx, dir)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// TotalSize returns the summed size of all files below dir
func (s *Scanner) TotalSize(ctx context.Context, dir string) (int64, error) {
	files, err := s.Scan(ctx, dir)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total, nil
}

// FindNonASCIIFiles returns files whose names contain non-ASCII characters
func (s *Scanner) FindNonASCIIFiles(ctx context.Context) ([]models.FileInfo, error) {
	files, err := s.Scan(ctx, "")
	if err != nil {
		return nil, err
	}

	var result []models.FileInfo
	for _, f := range files {
		if f.HasNonASCIIName {
			result = append(result, f)
		}
	}
	return result, nil
}

func (s *Scanner) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.root, filepath.FromSlash(path))
}

// extension returns the lowercased suffix including the dot
// Dotfiles such as .dockerignore have no extension
func extension(name string) string {
	ext := filepath.Ext(name)
	if ext == name {
		return ""
	}
	return strings.ToLower(ext)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
