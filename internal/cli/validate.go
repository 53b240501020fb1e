package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/validate"
)

// ValidateFlags holds validate command flags
type ValidateFlags struct {
	projectFlags
	ProbeImports bool
	Modules      []string
	Expect       []string
	JSON         bool
}

var validateFlags ValidateFlags

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check links, imports and expected files after a reorganization",
		RunE:  runValidate,
	}

	validateFlags.register(cmd)
	cmd.Flags().BoolVar(&validateFlags.ProbeImports, "probe-imports", false, "import every project module with python3")
	cmd.Flags().StringSliceVar(&validateFlags.Modules, "module", []string{}, "modules to import (default: discovered)")
	cmd.Flags().StringSliceVar(&validateFlags.Expect, "expect", []string{}, "files that must exist, relative to the project root")
	cmd.Flags().BoolVar(&validateFlags.JSON, "json", false, "print the summary as JSON")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, rc, err := loadReorgConfig(validateFlags.projectFlags)
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg, rc.ProjectRoot)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	opts := []validate.Option{
		validate.WithLogger(logger),
		validate.WithExcludes(rc.ExcludePatterns),
	}
	if validateFlags.ProbeImports || len(validateFlags.Modules) > 0 {
		prober, err := validate.NewPythonProber(rc.ProjectRoot)
		if err != nil {
			return err
		}
		opts = append(opts, validate.WithProber(prober))
	}

	validator, err := validate.New(rc.ProjectRoot, opts...)
	if err != nil {
		return err
	}

	checks := validator.ValidateAll(ctx, validate.Options{
		Modules:       validateFlags.Modules,
		ProbeImports:  validateFlags.ProbeImports,
		ExpectedFiles: validateFlags.Expect,
	})

	if validateFlags.JSON {
		enc := json.NewEncoder(stdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(validator.Summary()); err != nil {
			return err
		}
	} else {
		fmt.Fprint(stdout(), validate.Report(checks))
	}

	if !checks.AllPassed() {
		exitWith(models.StatusFailed)
	}
	return nil
}
