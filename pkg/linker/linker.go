// Package linker creates and audits the relative symbolic links left at old paths
package linker

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/sdejongh/reorgnorris/internal/platform"
	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/storage"
	"github.com/sdejongh/reorgnorris/pkg/txlog"
)

// Pair is one requested link
type Pair struct {
	Link   string
	Target string
}

// BatchError records one failed pair of a batch
type BatchError struct {
	Link   string
	Target string
	Error  string
}

// BatchResult aggregates a batch; every pair is attempted
type BatchResult struct {
	Total   int
	Success int
	Failed  int
	Errors  []BatchError
}

// LinkInfo describes one symbolic link found in the tree
type LinkInfo struct {
	Path   string // root-relative link path
	Target string // root-relative resolved target, absolute when outside the root
	Valid  bool
}

// LinkReport aggregates link validity below a directory
type LinkReport struct {
	Total       int
	Valid       int
	Broken      int
	BrokenLinks []string
}

// Option configures a Linker
type Option func(*Linker)

// WithSkip prunes directories from ListLinks and VerifyAll
func WithSkip(skip func(relativePath string) bool) Option {
	return func(l *Linker) {
		l.skip = skip
	}
}

// Linker manages symbolic links below a project root
type Linker struct {
	root    string
	backend *storage.Local
	log     *txlog.Log
	skip    func(string) bool
	logger  logging.Logger
}

// New creates a linker for root; log may be nil
func New(root string, log *txlog.Log, logger logging.Logger, opts ...Option) (*Linker, error) {
	backend, err := storage.NewLocal(root)
	if err != nil {
		return nil, models.NewFileOperationError("link", root, "Project root does not exist", err)
	}

	l := &Linker{
		root:    backend.Root(),
		backend: backend,
		log:     log,
		logger:  logging.OrNull(logger).WithFields(logging.Fields{"component": "linker"}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Linker) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(l.root, filepath.FromSlash(path))
}

// fail logs a failed link and returns the matching error
func (l *Linker) fail(ctx context.Context, link, target, msg string, cause error) error {
	errMsg := msg
	if cause != nil {
		errMsg = fmt.Sprintf("%s: %v", msg, cause)
	}
	if l.log != nil {
		l.log.LogOperation(models.OpLink, link, target, false, errMsg, "", "")
	}
	l.logger.Warn(ctx, "Link failed", logging.Fields{
		"operation": "link",
		"path":      link,
		"target":    target,
		"error":     errMsg,
	})
	return models.NewFileOperationError("link", link, msg, cause)
}

// RelativeTarget returns the path of target as seen from the directory of link
func (l *Linker) RelativeTarget(link, target string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(l.abs(link)), l.abs(target))
	if err != nil {
		return "", fmt.Errorf("cannot express %s relative to %s: %w", target, link, err)
	}
	return rel, nil
}

// CreateLink creates a relative symbolic link at link pointing to target
// It never overwrites and removes the link again when it does not resolve
func (l *Linker) CreateLink(ctx context.Context, link, target string) error {
	if _, err := os.Stat(l.abs(target)); err != nil {
		return l.fail(ctx, link, target, "Target does not exist: "+target, nil)
	}

	exists, err := l.backend.Exists(ctx, link)
	if err != nil {
		return l.fail(ctx, link, target, "Failed to create symbolic link", err)
	}
	if exists {
		return l.fail(ctx, link, target, "Link path already exists: "+link, nil)
	}

	rel, err := l.RelativeTarget(link, target)
	if err != nil {
		return l.fail(ctx, link, target, "Failed to create symbolic link", err)
	}

	if err := l.backend.MkdirAll(ctx, filepath.Dir(l.abs(link))); err != nil {
		return l.fail(ctx, link, target, "Failed to create symbolic link", err)
	}

	if err := l.backend.Symlink(ctx, rel, link); err != nil {
		msg := "Failed to create symbolic link"
		if platform.IsSymlinkPrivilegeError(err) {
			msg += " (" + platform.SymlinkHint() + ")"
		}
		return l.fail(ctx, link, target, msg, err)
	}

	if !l.VerifyLink(link) {
		if err := l.backend.Delete(ctx, link); err != nil {
			l.logger.Error(ctx, "Failed to remove unverified link", err, logging.Fields{"path": link})
		}
		return l.fail(ctx, link, target, "Link verification failed after creation", nil)
	}

	if l.log != nil {
		l.log.LogOperation(models.OpLink, link, target, true, "", "", "")
	}
	l.logger.Debug(ctx, "Link created", logging.Fields{
		"operation": "link",
		"path":      link,
		"target":    rel,
	})
	return nil
}

// CreateBatchLinks creates every pair, collecting failures instead of stopping
func (l *Linker) CreateBatchLinks(ctx context.Context, pairs []Pair) BatchResult {
	result := BatchResult{Total: len(pairs)}

	for _, p := range pairs {
		if err := l.CreateLink(ctx, p.Link, p.Target); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BatchError{
				Link:   p.Link,
				Target: p.Target,
				Error:  err.Error(),
			})
			continue
		}
		result.Success++
	}

	return result
}

// VerifyLink reports whether link is a symbolic link whose target is readable
// Regular-file targets must yield their first byte
func (l *Linker) VerifyLink(link string) bool {
	path := l.abs(link)

	info, err := os.Lstat(path)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return false
	}

	target, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !target.Mode().IsRegular() {
		return true
	}

	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 1)
	if _, err := f.Read(buf); err != nil && err != io.EOF {
		return false
	}
	return true
}

// LinkTarget returns the resolved target of link relative to the project root
// Targets outside the root are returned absolute; ok is false for non-links
func (l *Linker) LinkTarget(link string) (target string, ok bool) {
	path := l.abs(link)

	stored, err := os.Readlink(path)
	if err != nil {
		return "", false
	}
	if !filepath.IsAbs(stored) {
		stored = filepath.Join(filepath.Dir(path), stored)
	}
	return platform.RelativeTo(l.root, stored), true
}

// RemoveLink deletes link, refusing anything that is not a symbolic link
func (l *Linker) RemoveLink(ctx context.Context, link string) error {
	info, err := l.backend.Stat(ctx, link)
	if err != nil {
		return models.NewFileOperationError("unlink", link, "Link does not exist: "+link, err)
	}
	if !info.IsSymlink {
		return models.NewFileOperationError("unlink", link, "Not a symbolic link: "+link, nil)
	}

	if err := l.backend.Delete(ctx, link); err != nil {
		return models.NewFileOperationError("unlink", link, "Failed to remove link", err)
	}
	return nil
}

// ListLinks returns every symbolic link below dir, sorted by path
// An empty dir lists the whole project
func (l *Linker) ListLinks(dir string) []LinkInfo {
	start := l.root
	if dir != "" {
		start = l.abs(dir)
	}
	if _, err := os.Stat(start); err != nil {
		return nil
	}

	var links []LinkInfo
	filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		rel := platform.RelativeTo(l.root, p)
		if d.IsDir() {
			if p != start && l.skip != nil && l.skip(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink == 0 || filepath.IsAbs(rel) {
			return nil
		}

		target, _ := l.LinkTarget(rel)
		links = append(links, LinkInfo{Path: rel, Target: target, Valid: l.VerifyLink(rel)})
		return nil
	})

	sort.Slice(links, func(i, j int) bool { return links[i].Path < links[j].Path })
	return links
}

// VerifyAll aggregates link validity below dir
func (l *Linker) VerifyAll(dir string) LinkReport {
	links := l.ListLinks(dir)
	report := LinkReport{Total: len(links), BrokenLinks: []string{}}

	for _, link := range links {
		if link.Valid {
			report.Valid++
			continue
		}
		report.Broken++
		report.BrokenLinks = append(report.BrokenLinks, link.Path)
	}
	return report
}
