package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/sdejongh/reorgnorris/pkg/backup"
	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
)

// BackupsFlags holds flags shared by the backups subcommands
type BackupsFlags struct {
	projectFlags
	RetentionDays int
	Yes           bool
}

var backupsFlags BackupsFlags

// NewBackupsCommand creates the backups command and its subcommands
func NewBackupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Manage project backups",
	}
	backupsFlags.registerPersistent(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List this project's backups, newest first",
		Args:  cobra.NoArgs,
		RunE:  runBackupsList,
	})

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove backups older than the retention period",
		Args:  cobra.NoArgs,
		RunE:  runBackupsCleanup,
	}
	cleanupCmd.Flags().IntVar(&backupsFlags.RetentionDays, "retention-days", -1, "age in days after which backups are removed (default from config)")
	cmd.AddCommand(cleanupCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "verify <backup>",
		Short: "Check that a backup holds every file and the critical project files",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackupsVerify,
	})

	restoreCmd := &cobra.Command{
		Use:   "restore <backup> [target]",
		Short: "Copy a backup into an empty target directory",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runBackupsRestore,
	}
	restoreCmd.Flags().BoolVarP(&backupsFlags.Yes, "yes", "y", false, "do not ask for confirmation")
	cmd.AddCommand(restoreCmd)

	return cmd
}

// openBackups resolves configuration and opens the backup service for the project
func openBackups() (*backup.Service, models.ReorgConfig, logging.Logger, error) {
	cfg, rc, err := loadReorgConfig(backupsFlags.projectFlags)
	if err != nil {
		return nil, rc, nil, err
	}

	logger, err := createLogger(cfg, rc.ProjectRoot)
	if err != nil {
		return nil, rc, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	svc, err := backup.New(rc.ProjectRoot, logger)
	if err != nil {
		logger.Close()
		return nil, rc, nil, err
	}
	return svc, rc, logger, nil
}

func runBackupsList(cmd *cobra.Command, args []string) error {
	svc, _, logger, err := openBackups()
	if err != nil {
		return err
	}
	defer logger.Close()

	backups, err := svc.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Fprintln(stdout(), "No backups found")
		return nil
	}

	table := tablewriter.NewWriter(stdout())
	table.Header([]string{"Name", "Created", "Size", "Path"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	data := make([][]string, 0, len(backups))
	for _, b := range backups {
		data = append(data, []string{
			b.Name,
			b.Created.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.1f MB", float64(b.Size)/(1024*1024)),
			b.Path,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func runBackupsCleanup(cmd *cobra.Command, args []string) error {
	svc, _, logger, err := openBackups()
	if err != nil {
		return err
	}
	defer logger.Close()

	days := backupsFlags.RetentionDays
	if days < 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		days = cfg.Reorganization.Backup.RetentionDays
	}

	removed, err := svc.Cleanup(days)
	for _, path := range removed {
		fmt.Fprintf(stdout(), "Removed %s\n", path)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout(), "%d backup(s) older than %d days removed\n", len(removed), days)
	return nil
}

func runBackupsVerify(cmd *cobra.Command, args []string) error {
	svc, _, logger, err := openBackups()
	if err != nil {
		return err
	}
	defer logger.Close()

	ok, err := svc.Verify(args[0])
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(stdout(), "%s Backup is incomplete: %s\n", warnMark(), args[0])
		exitWith(models.StatusFailed)
		return nil
	}

	sum, err := svc.Checksum(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout(), "%s Backup verified: %s\n", okMark(), args[0])
	fmt.Fprintf(stdout(), "  Checksum: %s\n", sum)
	return nil
}

func runBackupsRestore(cmd *cobra.Command, args []string) error {
	svc, rc, logger, err := openBackups()
	if err != nil {
		return err
	}
	defer logger.Close()

	target := rc.ProjectRoot
	if len(args) > 1 {
		target = args[1]
	}

	if !backupsFlags.Yes && !confirm(fmt.Sprintf("Restore %s into %s?", args[0], target)) {
		exitWith(models.StatusCancelled)
		return nil
	}

	if err := svc.Restore(cmd.Context(), args[0], target); err != nil {
		return err
	}
	fmt.Fprintf(stdout(), "%s Restored %s into %s\n", okMark(), args[0], target)
	return nil
}
