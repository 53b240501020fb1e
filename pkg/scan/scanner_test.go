package scan

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return root
}

func TestNew(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), nil, nil)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = New(file, nil, nil)
	assert.Error(t, err)
}

func TestScan(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.py":                         "print('hi')",
		"README.md":                      "# readme",
		"models/predictor.py":            "x = 1",
		"models/__pycache__/p.cpython":   "bytecode",
		"models/predictor.pyc":           "bytecode",
		".git/HEAD":                      "ref",
		"data/raw/input.csv":             "a,b",
		"说明.md":                          "中文",
		".reorg_transaction_log.json":    "{}",
		".reorg.lock":                    "token",
	})
	require.NoError(t, os.Symlink("app.py", filepath.Join(root, "link.py")))

	s, err := New(root, []string{"data/raw/"}, nil)
	require.NoError(t, err)

	files, err := s.Scan(context.Background(), "")
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"README.md", "app.py", "link.py", "models/predictor.py", "说明.md"}, paths)

	t.Run("FileFields", func(t *testing.T) {
		for _, f := range files {
			switch f.Path {
			case "models/predictor.py":
				assert.Equal(t, "predictor.py", f.Name)
				assert.Equal(t, ".py", f.Extension)
				assert.Equal(t, int64(5), f.Size)
				assert.False(t, f.HasNonASCIIName)
			case "说明.md":
				assert.True(t, f.HasNonASCIIName)
			case "link.py":
				assert.True(t, f.IsSymlink)
			case "app.py":
				assert.False(t, f.IsSymlink)
			}
		}
	})

	t.Run("WithoutSymlinks", func(t *testing.T) {
		var regular []string
		for _, f := range WithoutSymlinks(files) {
			regular = append(regular, f.Path)
		}
		assert.Equal(t, []string{"README.md", "app.py", "models/predictor.py", "说明.md"}, regular)
	})

	t.Run("Subdirectory", func(t *testing.T) {
		sub, err := s.Scan(context.Background(), "models")
		require.NoError(t, err)
		require.Len(t, sub, 1)
		assert.Equal(t, "models/predictor.py", sub[0].Path)
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Scan(ctx, "")
		assert.Error(t, err)
	})
}

func TestScanPermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}

	root := writeTree(t, map[string]string{
		"ok.py":          "x",
		"locked/hide.py": "y",
	})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	s, err := New(root, nil, nil)
	require.NoError(t, err)

	files, err := s.Scan(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "ok.py", files[0].Path)
}

func TestFileInfo(t *testing.T) {
	root := writeTree(t, map[string]string{"run.sh": "#!/bin/sh", ".dockerignore": "*", "Data.CSV": "1"})
	require.NoError(t, os.Chmod(filepath.Join(root, "run.sh"), 0755))

	s, err := New(root, nil, nil)
	require.NoError(t, err)

	info, ok := s.FileInfo("run.sh")
	require.True(t, ok)
	assert.True(t, info.IsExecutable)
	assert.Equal(t, ".sh", info.Extension)

	info, ok = s.FileInfo(filepath.Join(root, ".dockerignore"))
	require.True(t, ok)
	assert.Equal(t, ".dockerignore", info.Path)
	assert.Empty(t, info.Extension)

	info, ok = s.FileInfo("Data.CSV")
	require.True(t, ok)
	assert.Equal(t, ".csv", info.Extension)

	_, ok = s.FileInfo("missing.py")
	assert.False(t, ok)

	outside := filepath.Join(t.TempDir(), "elsewhere.py")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))
	info, ok = s.FileInfo(outside)
	require.True(t, ok)
	assert.True(t, filepath.IsAbs(info.Path), "paths outside the root stay absolute")
}

func TestAggregates(t *testing.T) {
	root := writeTree(t, map[string]string{"a.py": "12345", "b/c.md": "123", "修复.py": "1"})
	s, err := New(root, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	count, err := s.FileCount(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	size, err := s.TotalSize(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(9), size)

	nonASCII, err := s.FindNonASCIIFiles(ctx)
	require.NoError(t, err)
	require.Len(t, nonASCII, 1)
	assert.Equal(t, "修复.py", nonASCII[0].Path)
}

func TestDetectEncoding(t *testing.T) {
	root := writeTree(t, map[string]string{
		"empty.txt": "",
		"zh.md":     "这是一个中文文档，用于测试字符编码检测。这是一个中文文档，用于测试字符编码检测。",
	})
	s, err := New(root, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "utf-8", s.DetectEncoding("empty.txt"))
	assert.Equal(t, "utf-8", s.DetectEncoding("missing.txt"))
	assert.Equal(t, "utf-8", s.DetectEncoding("zh.md"))
	assert.Equal(t, "utf-8", detectCharset(nil))
}
