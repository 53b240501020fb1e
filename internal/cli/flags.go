package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is ./.reorg_config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"verbose output",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}

// projectFlags holds the flags shared by every command working on a project
type projectFlags struct {
	ProjectRoot string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	f.registerOn(cmd.Flags())
}

// registerPersistent adds --project-root to cmd and all of its subcommands
func (f *projectFlags) registerPersistent(cmd *cobra.Command) {
	f.registerOn(cmd.PersistentFlags())
}

func (f *projectFlags) registerOn(flags *pflag.FlagSet) {
	flags.StringVarP(&f.ProjectRoot, "project-root", "r", "", "project root (default from config, then current directory)")
}
