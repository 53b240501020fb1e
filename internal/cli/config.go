package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sdejongh/reorgnorris/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or create reorgnorris configuration.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long:  `Show the configuration after the config file and REORG_* environment overrides are applied.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if asYAML {
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(cfg)
			}

			r := cfg.Reorganization
			fmt.Printf("Project Root: %s\n", r.ProjectRoot)
			fmt.Printf("Dry Run: %t\n", r.DryRun)
			fmt.Printf("Backup: %t (retention %d days)\n", r.Backup.Enabled, r.Backup.RetentionDays)
			if r.Backup.Path != "" {
				fmt.Printf("Backup Path: %s\n", r.Backup.Path)
			}
			fmt.Printf("Symbolic Links: %t\n", r.SymbolicLinks.Enabled)
			fmt.Printf("Preserve Timestamps: %t\n", r.PreserveTimestamps)
			fmt.Printf("Similarity Threshold: %.2f\n", r.Classification.SimilarityThreshold)
			fmt.Printf("First-Party Packages: %v\n", r.Classification.FirstPartyPackages)
			if len(r.Scan.Exclude) > 0 {
				fmt.Printf("Extra Excludes: %v\n", r.Scan.Exclude)
			}
			fmt.Printf("Log Format: %s\n", r.Logging.Format)
			fmt.Printf("Log Level: %s\n", r.Logging.Level)

			return nil
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the configuration as YAML")

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	cmd := NewInitCommand()
	cmd.Short = "Create default configuration file (same as the top-level init)"
	return cmd
}

// NewInitCommand creates the init command writing a default configuration file
func NewInitCommand() *cobra.Command {
	var (
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
			}

			if err := config.SaveToFile(config.Default(), path); err != nil {
				return err
			}

			fmt.Fprintf(stdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "output", "o", "", "configuration file to write (default ./.reorg_config.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}
