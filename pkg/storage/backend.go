package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo represents metadata about a file
// Symbolic links are described, never followed
type FileInfo struct {
	Path         string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	IsSymlink    bool
	LinkTarget   string // raw stored target when IsSymlink
	Permissions  uint32
	RelativePath string // forward slashes, relative to the backend root
}

// SkipFunc reports whether a path should be left out of a listing
// Returning true for a directory prunes the whole subtree
type SkipFunc func(relativePath string, isDir bool) bool

// Backend defines the filesystem operations the engine performs
// All paths are relative to the backend root
type Backend interface {
	// Root returns the absolute root directory
	Root() string

	// List returns every entry under path recursively, without following symlinks
	List(ctx context.Context, path string, skip SkipFunc) ([]FileInfo, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or truncates a file with the given content
	// If metadata is provided, timestamps and permissions are preserved
	Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

	// SetMetadata applies permissions and modification time from metadata
	SetMetadata(ctx context.Context, path string, metadata *FileInfo) error

	// Delete removes a single file, symlink or empty directory
	Delete(ctx context.Context, path string) error

	// Exists reports whether anything, including a dangling symlink, is at path
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns metadata for path without following a final symlink
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error

	// Rename moves path to newPath
	Rename(ctx context.Context, path, newPath string) error

	// Symlink creates a symbolic link at path storing target verbatim
	Symlink(ctx context.Context, target, path string) error

	// Readlink returns the stored target of the symlink at path
	Readlink(ctx context.Context, path string) (string, error)

	// Close releases any resources held by the backend
	Close() error
}
