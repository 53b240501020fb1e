package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/reorgnorris/pkg/models"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Reorganization.Backup.Enabled)
	assert.Equal(t, 7, cfg.Reorganization.Backup.RetentionDays)
	assert.True(t, cfg.Reorganization.SymbolicLinks.UseRelativePaths)
	assert.Equal(t, 0.8, cfg.Reorganization.Classification.SimilarityThreshold)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"EmptyRoot", func(c *Config) { c.Reorganization.ProjectRoot = "" }, "reorganization.project_root"},
		{"NegativeRetention", func(c *Config) { c.Reorganization.Backup.RetentionDays = -1 }, "reorganization.backup.retention_days"},
		{"ZeroThreshold", func(c *Config) { c.Reorganization.Classification.SimilarityThreshold = 0 }, "reorganization.classification.similarity_threshold"},
		{"BadLevel", func(c *Config) { c.Reorganization.Logging.Level = "trace" }, "reorganization.logging.level"},
		{"BadFormat", func(c *Config) { c.Reorganization.Logging.Format = "xml" }, "reorganization.logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var ve *models.ValidationError
			require.True(t, errors.As(err, &ve), "Validate() error = %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", DefaultConfigName)

	cfg := Default()
	cfg.Reorganization.DryRun = true
	cfg.Reorganization.Backup.RetentionDays = 3
	cfg.Reorganization.Scan.Exclude = []string{"*.csv"}
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFromFile_PartialDocumentKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	doc := "reorganization:\n  dry_run: true\n  backup:\n    enabled: false\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Reorganization.DryRun)
	assert.False(t, cfg.Reorganization.Backup.Enabled)
	assert.Equal(t, 7, cfg.Reorganization.Backup.RetentionDays)
	assert.Equal(t, "info", cfg.Reorganization.Logging.Level)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reorganization:\n  logging:\n    level: loud\n"), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestReorgConfig(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Reorganization.ProjectRoot = root
	cfg.Reorganization.TransactionLog.Path = "logs/tx.json"

	rc, err := cfg.ReorgConfig()
	require.NoError(t, err)
	assert.Equal(t, root, rc.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "logs", "tx.json"), rc.TransactionLogPath)
	assert.Equal(t, filepath.Join(root, models.DefaultReportName), rc.ReportPath)
	assert.NotEmpty(t, rc.BackupPath)
	assert.True(t, rc.CreateSymbolicLinks)

	cfg.Reorganization.ProjectRoot = filepath.Join(root, "missing")
	_, err = cfg.ReorgConfig()
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestLogFilePath(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.LogFilePath("/proj"))

	cfg.Reorganization.Logging.File = true
	assert.Equal(t, filepath.Join("/proj", "reorganization.log"), cfg.LogFilePath("/proj"))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("REORG_DRY_RUN", "true")
	t.Setenv("REORG_BACKUP_ENABLED", "false")
	t.Setenv("REORG_LOG_LEVEL", "DEBUG")
	t.Setenv("REORG_PROJECT_ROOT", "/srv/project")

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg))

	assert.True(t, cfg.Reorganization.DryRun)
	assert.False(t, cfg.Reorganization.Backup.Enabled)
	assert.Equal(t, "debug", cfg.Reorganization.Logging.Level)
	assert.Equal(t, "/srv/project", cfg.Reorganization.ProjectRoot)
	assert.True(t, cfg.Reorganization.SymbolicLinks.Enabled, "unset variables keep their value")
}

func TestApplyEnv_InvalidValue(t *testing.T) {
	t.Setenv("REORG_LOG_LEVEL", "chatty")

	err := ApplyEnv(Default())
	assert.ErrorIs(t, err, models.ErrValidation)
}
