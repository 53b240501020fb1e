// Package validate checks a reorganized tree: links, imports, files and caller probes
package validate

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sdejongh/reorgnorris/pkg/linker"
	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/scan"
)

// Probe is a caller-supplied functionality check
type Probe func(ctx context.Context) (bool, error)

// Well-known probe names mirrored into dedicated ValidationChecks fields
const (
	ProbeAPIStartable       = "api_startable"
	ProbeModelLoadable      = "model_loadable"
	ProbePredictionsWorking = "predictions_working"
)

// Options selects the checks ValidateAll runs; links are always checked
type Options struct {
	// Modules to import; empty with ProbeImports set discovers them
	Modules      []string
	ProbeImports bool

	ExpectedFiles []string
	Functionality map[string]Probe
}

// Option configures a Validator
type Option func(*Validator)

// WithProber enables import probing
func WithProber(p ImportProber) Option {
	return func(v *Validator) {
		v.prober = p
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(v *Validator) {
		v.logger = logging.OrNull(logger).WithFields(logging.Fields{"component": "validator"})
	}
}

// WithExcludes adds scanner exclude patterns used for link walks and module discovery
func WithExcludes(patterns []string) Option {
	return func(v *Validator) {
		v.excludes = append(v.excludes, patterns...)
	}
}

// Validator accumulates ValidationChecks for one project root
type Validator struct {
	root     string
	excludes []string
	scanner  *scan.Scanner
	linker   *linker.Linker
	prober   ImportProber
	checks   *models.ValidationChecks
	logger   logging.Logger
}

// New creates a validator for root
func New(root string, opts ...Option) (*Validator, error) {
	v := &Validator{
		checks: models.NewValidationChecks(),
		logger: logging.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}

	scanner, err := scan.New(root, v.excludes, v.logger)
	if err != nil {
		return nil, models.NewValidationError("validate", root, "Project root does not exist", err)
	}
	v.scanner = scanner
	v.root = scanner.Root()

	v.linker, err = linker.New(v.root, nil, v.logger, linker.WithSkip(scanner.Excluded))
	if err != nil {
		return nil, models.NewValidationError("validate", root, "Project root does not exist", err)
	}
	return v, nil
}

// Checks returns the accumulated results
func (v *Validator) Checks() *models.ValidationChecks {
	return v.checks
}

// CanProbeImports reports whether an import prober is configured
func (v *Validator) CanProbeImports() bool {
	return v.prober != nil
}

// ValidateLinks records every broken symbolic link below dir
func (v *Validator) ValidateLinks(dir string) *models.ValidationChecks {
	report := v.linker.VerifyAll(dir)
	v.checks.AllLinksValid = report.Broken == 0
	v.checks.BrokenLinks = report.BrokenLinks
	return v.checks
}

// ValidateImports imports each module through the prober
// An empty list discovers modules; without a prober the check is skipped and passes
func (v *Validator) ValidateImports(ctx context.Context, modules []string) *models.ValidationChecks {
	if v.prober == nil {
		v.checks.ImportsSkipped = true
		v.checks.ImportTestsPassed = true
		v.checks.FailedImports = []string{}
		v.logger.Info(ctx, "Import probing unavailable, skipping import validation", nil)
		return v.checks
	}

	if len(modules) == 0 {
		discovered, err := v.DiscoverModules(ctx)
		if err != nil {
			v.logger.Warn(ctx, "Module discovery failed", logging.Fields{"error": err.Error()})
		}
		modules = discovered
	}

	failed := []string{}
	for _, module := range modules {
		if err := v.prober.ProbeImport(ctx, module); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", module, err))
			v.logger.Debug(ctx, "Import failed", logging.Fields{"module": module, "error": err.Error()})
		}
	}

	v.checks.ImportsSkipped = false
	v.checks.ImportTestsPassed = len(failed) == 0
	v.checks.FailedImports = failed
	return v.checks
}

// DiscoverModules returns dotted module names for the project's Python files
// Test files and package initializers are left out
func (v *Validator) DiscoverModules(ctx context.Context) ([]string, error) {
	files, err := v.scanner.Scan(ctx, "")
	if err != nil {
		return nil, err
	}

	var modules []string
	for _, f := range files {
		if f.Extension != ".py" || strings.HasPrefix(f.Name, "test_") || f.Name == "__init__.py" {
			continue
		}
		if filepath.IsAbs(f.Path) {
			continue
		}
		module := strings.TrimSuffix(f.Path, path.Ext(f.Path))
		modules = append(modules, strings.ReplaceAll(module, "/", "."))
	}
	return modules, nil
}

// ValidateFileIntegrity records every expected root-relative path that is missing
func (v *Validator) ValidateFileIntegrity(expected []string) *models.ValidationChecks {
	missing := []string{}
	for _, p := range expected {
		if _, err := os.Stat(filepath.Join(v.root, filepath.FromSlash(p))); err != nil {
			missing = append(missing, p)
		}
	}

	v.checks.NoMissingFiles = len(missing) == 0
	v.checks.MissingFiles = missing
	return v.checks
}

// ValidateFunctionality runs every probe; errors and panics count as failures
func (v *Validator) ValidateFunctionality(ctx context.Context, probes map[string]Probe) *models.ValidationChecks {
	names := make([]string, 0, len(probes))
	for name := range probes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ok := v.runProbe(ctx, name, probes[name])
		v.checks.Functionality[name] = ok

		switch name {
		case ProbeAPIStartable:
			v.checks.APIStartable = ok
		case ProbeModelLoadable:
			v.checks.ModelLoadable = ok
		case ProbePredictionsWorking:
			v.checks.PredictionsWorking = ok
		}
	}
	return v.checks
}

func (v *Validator) runProbe(ctx context.Context, name string, probe Probe) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Warn(ctx, "Functionality probe panicked", logging.Fields{"probe": name, "panic": fmt.Sprint(r)})
			ok = false
		}
	}()

	passed, err := probe(ctx)
	if err != nil {
		v.logger.Warn(ctx, "Functionality probe failed", logging.Fields{"probe": name, "error": err.Error()})
		return false
	}
	return passed
}

// ValidateAll runs link validation plus every check opts selects
func (v *Validator) ValidateAll(ctx context.Context, opts Options) *models.ValidationChecks {
	v.ValidateLinks("")

	if len(opts.Modules) > 0 || opts.ProbeImports {
		v.ValidateImports(ctx, opts.Modules)
	}
	if len(opts.ExpectedFiles) > 0 {
		v.ValidateFileIntegrity(opts.ExpectedFiles)
	}
	if len(opts.Functionality) > 0 {
		v.ValidateFunctionality(ctx, opts.Functionality)
	}

	return v.checks
}

// Summary renders the checks as the nested map consumed by reports and JSON output
func (v *Validator) Summary() map[string]interface{} {
	return Summary(v.checks)
}

// Summary renders checks as a nested map
func Summary(c *models.ValidationChecks) map[string]interface{} {
	functionality := map[string]interface{}{
		ProbeAPIStartable:       c.APIStartable,
		ProbeModelLoadable:      c.ModelLoadable,
		ProbePredictionsWorking: c.PredictionsWorking,
	}
	for name, ok := range c.Functionality {
		functionality[name] = ok
	}

	return map[string]interface{}{
		"all_passed": c.AllPassed(),
		"links": map[string]interface{}{
			"valid":        c.AllLinksValid,
			"broken_count": len(c.BrokenLinks),
			"broken_links": c.BrokenLinks,
		},
		"imports": map[string]interface{}{
			"passed":         c.ImportTestsPassed,
			"skipped":        c.ImportsSkipped,
			"failed_count":   len(c.FailedImports),
			"failed_imports": c.FailedImports,
		},
		"files": map[string]interface{}{
			"all_present":   c.NoMissingFiles,
			"missing_count": len(c.MissingFiles),
			"missing_files": c.MissingFiles,
		},
		"functionality": functionality,
	}
}

// Report renders the checks as Markdown
func Report(c *models.ValidationChecks) string {
	var b strings.Builder

	status := "✅ PASSED"
	if !c.AllPassed() {
		status = "❌ FAILED"
	}
	fmt.Fprintf(&b, "# Validation Report\n\n## Summary\nOverall Status: %s\n\n", status)

	section(&b, "Symbolic Links", c.AllLinksValid, "All symbolic links are valid", "broken links", c.BrokenLinks)

	switch {
	case c.ImportsSkipped:
		b.WriteString("## Python Imports\n⏭️ Import probing not enabled\n\n")
	default:
		section(&b, "Python Imports", c.ImportTestsPassed, "All imports successful", "failed imports", c.FailedImports)
	}

	section(&b, "File Integrity", c.NoMissingFiles, "All expected files present", "missing files", c.MissingFiles)

	b.WriteString("## Functionality Checks\n")
	names := make([]string, 0, len(c.Functionality))
	for name := range c.Functionality {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		b.WriteString("No probes configured\n")
	}
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, mark(c.Functionality[name]))
	}

	return b.String()
}

func section(b *strings.Builder, title string, ok bool, okMsg, noun string, items []string) {
	fmt.Fprintf(b, "## %s\n", title)
	if ok {
		fmt.Fprintf(b, "✅ %s\n\n", okMsg)
		return
	}
	fmt.Fprintf(b, "❌ Found %d %s:\n", len(items), noun)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
	b.WriteString("\n")
}

func mark(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}
