package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local is a filesystem-based storage backend
type Local struct {
	rootPath string
}

// NewLocal creates a new local filesystem backend
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return &Local{rootPath: absPath}, nil
}

// Root returns the absolute root directory
func (l *Local) Root() string {
	return l.rootPath
}

func (l *Local) full(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(l.rootPath, filepath.FromSlash(path))
}

// List returns all entries below path recursively
// The starting directory itself is not included
func (l *Local) List(ctx context.Context, path string, skip SkipFunc) ([]FileInfo, error) {
	fullPath := l.full(path)
	var files []FileInfo

	err := filepath.WalkDir(fullPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p == fullPath {
			return nil
		}

		relPath, err := filepath.Rel(l.rootPath, p)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if skip != nil && skip(relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		entry := describe(p, relPath, info)
		if entry.IsSymlink {
			entry.LinkTarget, _ = os.Readlink(p)
		}
		files = append(files, entry)

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(l.full(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Write creates or truncates a file
func (l *Local) Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error {
	fullPath := l.full(path)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(file, reader)
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	if size >= 0 && written != size {
		return fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}

	if metadata != nil {
		return l.SetMetadata(ctx, path, metadata)
	}

	return nil
}

// SetMetadata applies permissions and modification time from metadata
func (l *Local) SetMetadata(ctx context.Context, path string, metadata *FileInfo) error {
	fullPath := l.full(path)

	if metadata.Permissions != 0 {
		if err := os.Chmod(fullPath, os.FileMode(metadata.Permissions)); err != nil {
			return fmt.Errorf("failed to set permissions: %w", err)
		}
	}

	if !metadata.ModTime.IsZero() {
		if err := os.Chtimes(fullPath, metadata.ModTime, metadata.ModTime); err != nil {
			return fmt.Errorf("failed to set modification time: %w", err)
		}
	}

	return nil
}

// Delete removes a single file, symlink or empty directory
func (l *Local) Delete(ctx context.Context, path string) error {
	if err := os.Remove(l.full(path)); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	return nil
}

// Exists checks if anything exists at path, including a dangling symlink
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Lstat(l.full(path))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Stat returns file metadata without following a final symlink
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	fullPath := l.full(path)

	info, err := os.Lstat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	relPath, err := filepath.Rel(l.rootPath, fullPath)
	if err != nil {
		return nil, err
	}

	entry := describe(fullPath, filepath.ToSlash(relPath), info)
	if entry.IsSymlink {
		entry.LinkTarget, _ = os.Readlink(fullPath)
	}
	return &entry, nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	if err := os.MkdirAll(l.full(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// Rename moves path to newPath, creating newPath's parent
func (l *Local) Rename(ctx context.Context, path, newPath string) error {
	dst := l.full(newPath)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.Rename(l.full(path), dst); err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}

// Symlink creates a symbolic link at path pointing to target as given
func (l *Local) Symlink(ctx context.Context, target, path string) error {
	if err := os.Symlink(target, l.full(path)); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	return nil
}

// Readlink returns the stored target of the symlink at path
func (l *Local) Readlink(ctx context.Context, path string) (string, error) {
	target, err := os.Readlink(l.full(path))
	if err != nil {
		return "", fmt.Errorf("failed to read symlink: %w", err)
	}
	return target, nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}

func describe(fullPath, relPath string, info fs.FileInfo) FileInfo {
	return FileInfo{
		Path:         fullPath,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
		IsSymlink:    info.Mode()&fs.ModeSymlink != 0,
		Permissions:  uint32(info.Mode().Perm()),
		RelativePath: relPath,
	}
}
