package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/reorgnorris/pkg/lock"
	"github.com/sdejongh/reorgnorris/pkg/models"
)

// newProject creates <tmp>/proj with files and returns the service and root
func newProject(t *testing.T, files map[string]string) (*Service, string) {
	t.Helper()

	root := filepath.Join(t.TempDir(), "proj")
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	require.NoError(t, os.MkdirAll(root, 0755))

	s, err := New(root, nil)
	require.NoError(t, err)
	return s, root
}

func TestCreate(t *testing.T) {
	s, root := newProject(t, map[string]string{
		"README.md":            "# readme",
		"requirements.txt":     "flask\n",
		"api/app.py":           "app = 1",
		"__pycache__/x.pyc":    "bytecode",
		"models/m.pyc":         "bytecode",
		".git/HEAD":            "ref",
		"run.log":              "log line",
		"scripts/deploy.sh":    "#!/bin/sh",
	})
	require.NoError(t, os.Chmod(filepath.Join(root, "scripts", "deploy.sh"), 0755))
	mtime := time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(root, "api", "app.py"), mtime, mtime))
	require.NoError(t, os.Symlink("api/app.py", filepath.Join(root, "app.py")))

	ctx := context.Background()
	path, err := s.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(root), filepath.Dir(path))
	assert.Contains(t, filepath.Base(path), "proj_backup_")

	t.Run("CopiesFiles", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(path, "api", "app.py"))
		require.NoError(t, err)
		assert.Equal(t, "app = 1", string(data))
	})

	t.Run("SkipsIgnored", func(t *testing.T) {
		for _, rel := range []string{"__pycache__", "models/m.pyc", ".git", "run.log"} {
			_, err := os.Lstat(filepath.Join(path, filepath.FromSlash(rel)))
			assert.True(t, os.IsNotExist(err), "%s should not be backed up", rel)
		}
	})

	t.Run("PreservesMetadata", func(t *testing.T) {
		info, err := os.Stat(filepath.Join(path, "api", "app.py"))
		require.NoError(t, err)
		assert.True(t, info.ModTime().Equal(mtime))

		info, err = os.Stat(filepath.Join(path, "scripts", "deploy.sh"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
	})

	t.Run("KeepsSymlinks", func(t *testing.T) {
		target, err := os.Readlink(filepath.Join(path, "app.py"))
		require.NoError(t, err)
		assert.Equal(t, "api/app.py", target)
	})

	t.Run("ExistingTargetFails", func(t *testing.T) {
		_, err := s.Create(ctx, filepath.Base(path))
		assert.ErrorIs(t, err, models.ErrFileOperation)
	})

	t.Run("InsideProjectFails", func(t *testing.T) {
		_, err := s.Create(ctx, filepath.Join(root, "nested_backup"))
		assert.ErrorIs(t, err, models.ErrFileOperation)
	})
}

func TestCreateNamed(t *testing.T) {
	s, root := newProject(t, map[string]string{"a.py": "x"})

	path, err := s.Create(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(root), "manual"), path)
}

func TestCreateCancelledLeavesNothing(t *testing.T) {
	s, root := newProject(t, map[string]string{"a.py": "x", "b.py": "y"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Create(ctx, "partial")
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(filepath.Dir(root), "partial"))
	assert.True(t, os.IsNotExist(statErr), "partial backup must be removed")
}

func TestVerify(t *testing.T) {
	s, root := newProject(t, map[string]string{
		"README.md":        "# readme",
		"requirements.txt": "flask\n",
		"a.py":             "1",
		"b.py":             "2",
	})
	ctx := context.Background()

	t.Run("MissingBackup", func(t *testing.T) {
		ok, err := s.Verify(filepath.Join(filepath.Dir(root), "nope"))
		assert.False(t, ok)
		assert.Error(t, err)
	})

	t.Run("Valid", func(t *testing.T) {
		path, err := s.Create(ctx, "valid")
		require.NoError(t, err)

		ok, err := s.Verify(path)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("LockHeldAndIgnoredFiles", func(t *testing.T) {
		path, err := s.Create(ctx, "locked")
		require.NoError(t, err)

		l, err := lock.Acquire(root)
		require.NoError(t, err)
		defer l.Release()
		require.NoError(t, os.WriteFile(filepath.Join(root, "debug.log"), []byte("x"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.pyc"), []byte("x"), 0644))
		defer os.Remove(filepath.Join(root, "debug.log"))
		defer os.Remove(filepath.Join(root, "a.pyc"))

		ok, err := s.Verify(path)
		require.NoError(t, err)
		assert.True(t, ok, "files a backup never copies must not count against it")
	})

	t.Run("CountMismatch", func(t *testing.T) {
		path, err := s.Create(ctx, "count")
		require.NoError(t, err)
		require.NoError(t, os.Remove(filepath.Join(path, "a.py")))

		ok, err := s.Verify(path)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("CriticalSizeMismatch", func(t *testing.T) {
		path, err := s.Create(ctx, "size")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(path, "README.md"), []byte("changed content"), 0644))

		ok, err := s.Verify(path)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestChecksum(t *testing.T) {
	s, root := newProject(t, map[string]string{"hello.txt": "hello"})

	sum, err := s.Checksum(filepath.Join(root, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", sum)

	_, err = s.Checksum(filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, models.ErrFileOperation)
}

func TestListAndCleanup(t *testing.T) {
	s, root := newProject(t, map[string]string{"a.py": "x"})
	parent := filepath.Dir(root)

	old := filepath.Join(parent, "proj_backup_20200101_000000")
	recent := filepath.Join(parent, "proj_backup_20300101_000000")
	other := filepath.Join(parent, "other_backup_20200101_000000")
	for _, dir := range []string{old, recent, other} {
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("1234"), 0644))
	}
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(other, past, past))

	backups, err := s.List()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, recent, backups[0].Path)
	assert.Equal(t, int64(4), backups[0].Size)
	assert.Contains(t, backups[1].String(), "proj_backup_20200101_000000")

	removed, err := s.Cleanup(7)
	require.NoError(t, err)
	assert.Equal(t, []string{old}, removed)

	_, err = os.Stat(other)
	assert.NoError(t, err, "other projects' backups are left alone")
	_, err = os.Stat(recent)
	assert.NoError(t, err)
}

func TestRestore(t *testing.T) {
	s, root := newProject(t, map[string]string{"a.py": "x", "pkg/b.py": "y"})
	ctx := context.Background()

	path, err := s.Create(ctx, "snap")
	require.NoError(t, err)

	t.Run("NonEmptyTargetRefused", func(t *testing.T) {
		err := s.Restore(ctx, path, "")
		assert.ErrorIs(t, err, models.ErrFileOperation)
	})

	t.Run("EmptyTarget", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "restored")
		require.NoError(t, s.Restore(ctx, path, target))

		data, err := os.ReadFile(filepath.Join(target, "pkg", "b.py"))
		require.NoError(t, err)
		assert.Equal(t, "y", string(data))
	})

	t.Run("MissingBackup", func(t *testing.T) {
		err := s.Restore(ctx, filepath.Join(root, "none"), t.TempDir())
		assert.ErrorIs(t, err, models.ErrFileOperation)
	})
}

func TestRestoreFile(t *testing.T) {
	s, root := newProject(t, map[string]string{"data/raw.csv": "1,2", "keep.txt": "k"})
	ctx := context.Background()

	path, err := s.Create(ctx, "")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(root, "data", "raw.csv")))
	require.NoError(t, os.Remove(filepath.Join(root, "data")))

	require.NoError(t, s.RestoreFile(ctx, path, "data/raw.csv"))
	data, err := os.ReadFile(filepath.Join(root, "data", "raw.csv"))
	require.NoError(t, err)
	assert.Equal(t, "1,2", string(data))

	assert.ErrorIs(t, s.RestoreFile(ctx, path, "keep.txt"), models.ErrFileOperation, "existing file")
	assert.ErrorIs(t, s.RestoreFile(ctx, path, "nope.txt"), models.ErrFileOperation, "not in backup")
	assert.ErrorIs(t, s.RestoreFile(ctx, filepath.Join(path, "missing"), "keep.txt"), models.ErrFileOperation)
}
