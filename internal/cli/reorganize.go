package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sdejongh/reorgnorris/internal/metrics"
	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/orchestrator"
	"github.com/sdejongh/reorgnorris/pkg/output"
	"github.com/sdejongh/reorgnorris/pkg/validate"
)

// ReorganizeFlags holds reorganize command flags
type ReorganizeFlags struct {
	projectFlags
	DryRun       bool
	NoBackup     bool
	NoLinks      bool
	Yes          bool
	Output       string
	ProbeImports bool
	Exclude      []string
}

var reorganizeFlags ReorganizeFlags

// NewReorganizeCommand creates the reorganize command
func NewReorganizeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reorganize",
		Short: "Reorganize the project into category directories",
		Long: `Move every classified file into its category directory, leaving a relative
symbolic link at each old path. Every operation is recorded in a transaction
log so the run can be undone with "reorgnorris rollback".`,
		RunE: runReorganize,
	}

	reorganizeFlags.register(cmd)
	cmd.Flags().BoolVar(&reorganizeFlags.DryRun, "dry-run", false, "plan the reorganization without changing anything")
	cmd.Flags().BoolVar(&reorganizeFlags.NoBackup, "no-backup", false, "skip the backup phase")
	cmd.Flags().BoolVar(&reorganizeFlags.NoLinks, "no-links", false, "do not leave symbolic links at old paths")
	cmd.Flags().BoolVarP(&reorganizeFlags.Yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().StringVarP(&reorganizeFlags.Output, "output", "o", "progress", "output format: human, json, progress")
	cmd.Flags().BoolVar(&reorganizeFlags.ProbeImports, "probe-imports", false, "validate imports with python3 after moving")
	cmd.Flags().StringSliceVar(&reorganizeFlags.Exclude, "exclude", []string{}, "additional exclude patterns")

	return cmd
}

func runReorganize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	r := &cfg.Reorganization
	if reorganizeFlags.ProjectRoot != "" {
		r.ProjectRoot = reorganizeFlags.ProjectRoot
	}
	if reorganizeFlags.DryRun {
		r.DryRun = true
	}
	if reorganizeFlags.NoBackup {
		r.Backup.Enabled = false
	}
	if reorganizeFlags.NoLinks {
		r.SymbolicLinks.Enabled = false
	}
	r.Scan.Exclude = append(r.Scan.Exclude, reorganizeFlags.Exclude...)

	rc, err := cfg.ReorgConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	formatter, err := output.New(reorganizeFlags.Output)
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg, rc.ProjectRoot)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	if !rc.DryRun && !reorganizeFlags.Yes {
		fmt.Fprintf(stdout(), "Project root: %s\n", rc.ProjectRoot)
		if rc.BackupEnabled {
			fmt.Fprintf(stdout(), "Backup:       %s\n", rc.BackupPath)
		} else {
			color.New(color.FgYellow).Fprintln(stdout(), "Backup:       disabled")
		}
		if !confirm("Reorganize this project?") {
			fmt.Fprintln(stdout(), "Reorganization cancelled")
			exitWith(models.StatusCancelled)
			return nil
		}
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithFormatter(formatter, stdout()),
		orchestrator.WithMetrics(metrics.New()),
	}
	if reorganizeFlags.ProbeImports {
		prober, err := validate.NewPythonProber(rc.ProjectRoot)
		if err != nil {
			return err
		}
		opts = append(opts, orchestrator.WithProber(prober))
	}

	o, err := orchestrator.New(rc, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := o.Execute(ctx)

	if rc.DryRun && formatter.Name() != "json" {
		printPlan(o)
	}

	if ctx.Err() != nil {
		exitWith(models.StatusCancelled)
		return nil
	}
	exitWith(result.Status())
	return nil
}

// printPlan lists the planned relocations of a dry run
func printPlan(o *orchestrator.Orchestrator) {
	w := stdout()
	mappings := o.Mappings()
	if len(mappings) == 0 {
		fmt.Fprintln(w, "\nNothing to move")
		return
	}

	fmt.Fprintf(w, "\nPlanned relocations (%d):\n", len(mappings))
	for _, m := range mappings {
		fmt.Fprintf(w, "  %s → %s (%s)\n", m.OldPath, m.NewPath, m.Category)
	}
}
