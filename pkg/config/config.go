package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sdejongh/reorgnorris/internal/platform"
	"github.com/sdejongh/reorgnorris/pkg/models"
)

// Config is the on-disk configuration document
type Config struct {
	Reorganization ReorganizationConfig `yaml:"reorganization"`
}

// ReorganizationConfig holds all settings under the reorganization key
type ReorganizationConfig struct {
	ProjectRoot        string               `yaml:"project_root"`
	Backup             BackupConfig         `yaml:"backup"`
	SymbolicLinks      SymbolicLinksConfig  `yaml:"symbolic_links"`
	DryRun             bool                 `yaml:"dry_run"`
	AutoConfirmDeletes bool                 `yaml:"auto_confirm_deletes"`
	PreserveTimestamps bool                 `yaml:"preserve_timestamps"`
	Classification     ClassificationConfig `yaml:"classification"`
	Scan               ScanConfig           `yaml:"scan"`
	TransactionLog     PathConfig           `yaml:"transaction_log"`
	Report             PathConfig           `yaml:"report"`
	Metrics            MetricsConfig        `yaml:"metrics"`
	Logging            LoggingConfig        `yaml:"logging"`
}

// BackupConfig holds backup settings
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"` // empty = timestamped sibling of the project root
	RetentionDays int    `yaml:"retention_days"`
}

// SymbolicLinksConfig holds backward-compatibility link settings
type SymbolicLinksConfig struct {
	Enabled          bool `yaml:"enabled"`
	UseRelativePaths bool `yaml:"use_relative_paths"`
}

// ClassificationConfig holds the tunable classification heuristics
type ClassificationConfig struct {
	SimilarityThreshold float64  `yaml:"similarity_threshold"`
	FirstPartyPackages  []string `yaml:"first_party_packages"`
}

// ScanConfig holds scanner settings
type ScanConfig struct {
	Exclude []string `yaml:"exclude"` // added to the built-in excludes
}

// PathConfig holds a single optional output path
type PathConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig holds metrics export settings
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // Prometheus textfile-collector output, empty = disabled
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Level    string `yaml:"level"`     // "debug", "info", "warn", "error"
	Console  bool   `yaml:"console"`   // log to stderr
	File     bool   `yaml:"file"`      // log to FilePath
	FilePath string `yaml:"file_path"` // relative paths resolve under the project root
	Format   string `yaml:"format"`    // "json" or "text"
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Reorganization: ReorganizationConfig{
			ProjectRoot: ".",
			Backup: BackupConfig{
				Enabled:       true,
				RetentionDays: 7,
			},
			SymbolicLinks: SymbolicLinksConfig{
				Enabled:          true,
				UseRelativePaths: true,
			},
			DryRun:             false,
			AutoConfirmDeletes: false,
			PreserveTimestamps: true,
			Classification: ClassificationConfig{
				SimilarityThreshold: models.DefaultSimilarityThreshold,
				FirstPartyPackages:  models.DefaultFirstPartyPackages(),
			},
			Logging: LoggingConfig{
				Level:    "info",
				Console:  true,
				File:     false,
				FilePath: "reorganization.log",
				Format:   "text",
			},
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	r := c.Reorganization

	if r.ProjectRoot == "" {
		return &models.ValidationError{
			Field:   "reorganization.project_root",
			Message: "must not be empty",
		}
	}

	if r.Backup.RetentionDays < 0 {
		return &models.ValidationError{
			Field:   "reorganization.backup.retention_days",
			Message: "must not be negative",
		}
	}

	if t := r.Classification.SimilarityThreshold; t <= 0 || t > 1 {
		return &models.ValidationError{
			Field:   "reorganization.classification.similarity_threshold",
			Message: "must be greater than 0 and at most 1",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLogLevels[r.Logging.Level] {
		return &models.ValidationError{
			Field:   "reorganization.logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[r.Logging.Format] {
		return &models.ValidationError{
			Field:   "reorganization.logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	return nil
}

// ReorgConfig converts the document into a validated engine configuration
func (c *Config) ReorgConfig() (models.ReorgConfig, error) {
	r := c.Reorganization

	if err := platform.ValidatePath(r.ProjectRoot); err != nil {
		return models.ReorgConfig{}, &models.ValidationError{Field: "reorganization.project_root", Message: err.Error()}
	}
	if r.Backup.Path != "" {
		if err := platform.ValidatePath(r.Backup.Path); err != nil {
			return models.ReorgConfig{}, &models.ValidationError{Field: "reorganization.backup.path", Message: err.Error()}
		}
	}

	root, err := filepath.Abs(r.ProjectRoot)
	if err != nil {
		return models.ReorgConfig{}, fmt.Errorf("failed to resolve project root: %w", err)
	}

	rc := models.ReorgConfig{
		ProjectRoot:         root,
		BackupEnabled:       r.Backup.Enabled,
		DryRun:              r.DryRun,
		AutoConfirmDeletes:  r.AutoConfirmDeletes,
		PreserveTimestamps:  r.PreserveTimestamps,
		CreateSymbolicLinks: r.SymbolicLinks.Enabled,
		BackupPath:          r.Backup.Path,
		LogLevel:            r.Logging.Level,
		TransactionLogPath:  resolveUnder(root, r.TransactionLog.Path),
		ReportPath:          resolveUnder(root, r.Report.Path),
		MetricsTextfile:     r.Metrics.Textfile,
		SimilarityThreshold: r.Classification.SimilarityThreshold,
		FirstPartyPackages:  append([]string(nil), r.Classification.FirstPartyPackages...),
		ExcludePatterns:     append([]string(nil), r.Scan.Exclude...),
	}
	if rc.BackupEnabled && rc.BackupPath == "" {
		rc.BackupPath = models.DefaultBackupPath(root, time.Now())
	}

	if err := rc.Validate(); err != nil {
		return models.ReorgConfig{}, err
	}
	return rc, nil
}

// LogFilePath returns the absolute log file path, or empty when file logging is off
func (c *Config) LogFilePath(projectRoot string) string {
	l := c.Reorganization.Logging
	if !l.File || l.FilePath == "" {
		return ""
	}
	return resolveUnder(projectRoot, l.FilePath)
}

func resolveUnder(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
