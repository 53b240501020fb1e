package cli

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sdejongh/reorgnorris/internal/metrics"
	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/output"
	"github.com/sdejongh/reorgnorris/pkg/rollback"
)

// RollbackFlags holds rollback command flags
type RollbackFlags struct {
	projectFlags
	Log    string
	Backup string
	Verify bool
	Yes    bool
}

var rollbackFlags RollbackFlags

// NewRollbackCommand creates the rollback command
func NewRollbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Undo a reorganization from its transaction log",
		Long: `Reverse every successful operation of a transaction log, newest first.
Deleted files are restored from --backup. The rollback records its own log
next to the original, which is never modified.`,
		RunE: runRollback,
	}

	rollbackFlags.register(cmd)
	cmd.Flags().StringVar(&rollbackFlags.Log, "log", "", "transaction log to reverse (default from config)")
	cmd.Flags().StringVar(&rollbackFlags.Backup, "backup", "", "backup used to restore deleted files and to verify")
	cmd.Flags().BoolVar(&rollbackFlags.Verify, "verify", false, "compare the restored tree against --backup")
	cmd.Flags().BoolVarP(&rollbackFlags.Yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

func runRollback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, rc, err := loadReorgConfig(rollbackFlags.projectFlags)
	if err != nil {
		return err
	}
	if rollbackFlags.Verify && rollbackFlags.Backup == "" {
		return errors.New("--verify requires --backup")
	}

	logPath := rollbackFlags.Log
	if logPath == "" {
		logPath = rc.TransactionLogPath
	}

	logger, err := createLogger(cfg, rc.ProjectRoot)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	recorder := metrics.New()
	formatter := output.NewHumanFormatter()
	w := stdout()

	var step int
	var total int
	svc, err := rollback.New(rc.ProjectRoot, logger, rollback.WithStepHook(func(s rollback.Step) {
		step++
		result := "reversed"
		var stepErr error
		switch {
		case s.Skipped:
			result = "skipped"
		case !s.Success:
			result = "failed"
			stepErr = errors.New(s.Error)
		}
		recorder.RollbackStep(result)
		formatter.Progress(output.ProgressUpdate{
			Type:    output.EventRollbackStep,
			Path:    fmt.Sprintf("%s %s", s.Operation, s.Source),
			Current: step,
			Total:   total,
			Error:   stepErr,
		})
	}))
	if err != nil {
		return err
	}

	preflight := svc.CanRollback(logPath)
	if !preflight.OK {
		return fmt.Errorf("cannot roll back: %s", preflight.Reason)
	}
	total = preflight.OperationCount

	fmt.Fprintf(w, "Transaction log: %s\n", logPath)
	fmt.Fprintf(w, "Operations: %d (%d moves, %d links, %d deletes, %d directories)\n",
		preflight.OperationCount,
		preflight.OperationsByType.Move,
		preflight.OperationsByType.Link,
		preflight.OperationsByType.Delete,
		preflight.OperationsByType.Mkdir)

	if !rollbackFlags.Yes && !confirm("Reverse these operations?") {
		fmt.Fprintln(w, "Rollback cancelled")
		exitWith(models.StatusCancelled)
		return nil
	}

	formatter.Start(w, total)
	result, err := svc.Execute(ctx, logPath, rollbackFlags.Backup)
	if err != nil {
		return err
	}

	var verify *rollback.VerifyResult
	if rollbackFlags.Verify {
		if verify, err = svc.VerifyRollback(rollbackFlags.Backup); err != nil {
			return err
		}
	}

	fmt.Fprintln(w)
	fmt.Fprint(w, rollback.Report(result, verify))

	if path := rc.MetricsTextfile; path != "" {
		if err := recorder.WriteTextfile(path); err != nil {
			logger.Warn(ctx, "Metrics export failed", logging.Fields{"path": path, "error": err.Error()})
		}
	}

	status := rollbackStatus(result, verify)
	switch status {
	case models.StatusSuccess:
		color.New(color.FgGreen).Fprintln(w, "Rollback complete")
	default:
		color.New(color.FgRed).Fprintf(w, "Rollback finished with status %s\n", status)
	}
	exitWith(status)
	return nil
}

// rollbackStatus maps a rollback onto the command exit status
func rollbackStatus(result *rollback.Result, verify *rollback.VerifyResult) models.Status {
	switch {
	case result.Success && (verify == nil || verify.Success):
		return models.StatusSuccess
	case result.Reversed > 0:
		return models.StatusPartial
	default:
		return models.StatusFailed
	}
}
