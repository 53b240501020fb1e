package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/sdejongh/reorgnorris/pkg/config"
	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
)

// loadConfig loads the --config file or the default location, then applies REORG_* overrides
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if globalFlags.ConfigFile != "" {
		cfg, err = config.LoadFromFile(globalFlags.ConfigFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadReorgConfig loads configuration and resolves it against an optional --project-root
func loadReorgConfig(flags projectFlags) (*config.Config, models.ReorgConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, models.ReorgConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.ProjectRoot != "" {
		cfg.Reorganization.ProjectRoot = flags.ProjectRoot
	}

	rc, err := cfg.ReorgConfig()
	if err != nil {
		return nil, models.ReorgConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, rc, nil
}

// createLogger builds the logger described by the configuration
// Console output stays at warnings unless --verbose is given, and --quiet silences it.
func createLogger(cfg *config.Config, projectRoot string) (logging.Logger, error) {
	l := cfg.Reorganization.Logging
	level := logging.ParseLevel(l.Level)

	var loggers []logging.Logger

	if l.Console && !globalFlags.Quiet {
		consoleLevel := level
		if globalFlags.Verbose {
			consoleLevel = logging.DebugLevel
		} else if consoleLevel < logging.WarnLevel {
			consoleLevel = logging.WarnLevel
		}

		console, err := logging.NewConsoleLogger(logging.ConsoleLoggerConfig{
			Level: consoleLevel,
			JSON:  l.Format == "json",
		})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, console)
	}

	if path := cfg.LogFilePath(projectRoot); path != "" {
		format := logging.FormatText
		if l.Format == "json" {
			format = logging.FormatJSON
		}

		file, err := logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       path,
			Format:     format,
			Level:      level,
			MaxSize:    10 * 1024 * 1024, // 10 MB
			MaxBackups: 5,
		})
		if err != nil {
			return nil, err
		}
		loggers = append(loggers, file)
	}

	if len(loggers) == 0 {
		return logging.NewNullLogger(), nil
	}
	return logging.Multi(loggers...), nil
}

// stdout returns the writer for normal output, discarding it under --quiet
func stdout() io.Writer {
	if globalFlags.Quiet {
		return io.Discard
	}
	return os.Stdout
}

// stdinIsTerminal reports whether an operator can answer prompts
func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// confirm asks a yes/no question on the terminal
// Without a terminal there is nobody to ask and the answer is yes.
func confirm(prompt string) bool {
	if !stdinIsTerminal() {
		return true
	}

	color.New(color.FgYellow).Fprintf(os.Stdout, "%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// exitWith terminates the process with the exit code of status
func exitWith(status models.Status) {
	if code := status.ExitCode(); code != 0 {
		os.Exit(code)
	}
}

func okMark() string {
	return color.GreenString("✓")
}

func warnMark() string {
	return color.YellowString("⚠")
}
