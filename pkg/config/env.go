package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override (REORG_DRY_RUN, ...)
const EnvPrefix = "REORG"

// ApplyEnv overrides scalar settings from REORG_* environment variables
// Keys use dots for nesting; REORG_BACKUP_ENABLED maps to backup.enabled.
func ApplyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	r := &cfg.Reorganization

	if v.IsSet("project_root") {
		r.ProjectRoot = v.GetString("project_root")
	}
	if v.IsSet("dry_run") {
		r.DryRun = v.GetBool("dry_run")
	}
	if v.IsSet("backup.enabled") {
		r.Backup.Enabled = v.GetBool("backup.enabled")
	}
	if v.IsSet("backup.path") {
		r.Backup.Path = v.GetString("backup.path")
	}
	if v.IsSet("symbolic_links.enabled") {
		r.SymbolicLinks.Enabled = v.GetBool("symbolic_links.enabled")
	}
	if v.IsSet("log_level") {
		r.Logging.Level = strings.ToLower(v.GetString("log_level"))
	}

	return cfg.Validate()
}
