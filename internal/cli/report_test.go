package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/txlog"
)

func TestCategoryForDir(t *testing.T) {
	tests := []struct {
		dir  string
		want models.FileCategory
	}{
		{"core/api", models.CategoryCoreAPI},
		{"docs/user", models.CategoryDocUser},
		{"dev/temp/duplicates", models.CategoryDuplicate},
		{"somewhere/else", models.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			assert.Equal(t, tt.want, categoryForDir(tt.dir))
		})
	}
}

func TestResultFromLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tx.json")
	log := txlog.New(path, nil)
	log.LogOperation(models.OpMove, "app.py", "core/api/app.py", true, "", "aa", "aa")
	log.LogOperation(models.OpLink, "app.py", "core/api/app.py", true, "", "", "")
	log.LogOperation(models.OpMove, "README.md", "docs/user/README.md", true, "", "bb", "bb")
	log.LogOperation(models.OpMove, "notes.txt", "dev/temp/unknown/notes.txt", false, "disk full", "", "")
	require.NoError(t, log.Close())

	loaded, err := txlog.Load(path, nil)
	require.NoError(t, err)

	result, mappings := resultFromLog(loaded)

	assert.Equal(t, loaded.ID(), result.RunID)
	assert.Equal(t, 2, result.FilesMoved)
	assert.Equal(t, 1, result.LinksCreated)
	assert.False(t, result.Success, "a failed entry marks the run unsuccessful")
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "disk full")
	assert.False(t, result.EndTime.Before(result.StartTime))

	require.Len(t, mappings, 2)
	assert.Equal(t, models.FileMapping{
		OldPath:  "app.py",
		NewPath:  "core/api/app.py",
		Category: models.CategoryCoreAPI,
		LinkPath: "app.py",
	}, mappings[0])
	assert.Equal(t, models.CategoryDocUser, mappings[1].Category)
	assert.Empty(t, mappings[1].LinkPath)
}
