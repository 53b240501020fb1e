package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sdejongh/reorgnorris/pkg/analyze"
	"github.com/sdejongh/reorgnorris/pkg/scan"
)

// AnalyzeFlags holds analyze command flags
type AnalyzeFlags struct {
	projectFlags
	Output    string
	DependsOn string
}

var analyzeFlags AnalyzeFlags

// NewAnalyzeCommand creates the analyze command
func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Write the import and file-path dependency report",
		RunE:  runAnalyze,
	}

	analyzeFlags.register(cmd)
	cmd.Flags().StringVarP(&analyzeFlags.Output, "output", "o", "", "write the Markdown report to this file instead of stdout")
	cmd.Flags().StringVar(&analyzeFlags.DependsOn, "depends-on", "", "only list the files that depend on this path")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, rc, err := loadReorgConfig(analyzeFlags.projectFlags)
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg, rc.ProjectRoot)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	scanner, err := scan.New(rc.ProjectRoot, rc.ExcludePatterns, logger)
	if err != nil {
		return err
	}
	files, err := scanner.Scan(ctx, "")
	if err != nil {
		return err
	}

	analyzer := analyze.New(rc.ProjectRoot, rc.FirstPartyPackages, logger)
	graph, err := analyzer.BuildGraph(ctx, files)
	if err != nil {
		return err
	}

	if analyzeFlags.DependsOn != "" {
		target := filepath.ToSlash(analyzeFlags.DependsOn)
		dependents := analyze.FilesDependingOn(graph, target)
		if len(dependents) == 0 {
			fmt.Fprintf(stdout(), "No files depend on %s\n", target)
			return nil
		}
		fmt.Fprintf(stdout(), "Files depending on %s:\n", target)
		for _, f := range dependents {
			fmt.Fprintf(stdout(), "  %s\n", f)
		}
		return nil
	}

	report := analyzer.Report(graph)
	if analyzeFlags.Output == "" {
		fmt.Fprint(stdout(), report)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(analyzeFlags.Output), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(analyzeFlags.Output, []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(stdout(), "Dependency report written to: %s\n", analyzeFlags.Output)
	return nil
}
