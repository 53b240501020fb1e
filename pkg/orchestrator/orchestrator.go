// Package orchestrator drives the fixed reorganization pipeline
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"time"

	"github.com/sdejongh/reorgnorris/internal/metrics"
	"github.com/sdejongh/reorgnorris/pkg/analyze"
	"github.com/sdejongh/reorgnorris/pkg/backup"
	"github.com/sdejongh/reorgnorris/pkg/classify"
	"github.com/sdejongh/reorgnorris/pkg/linker"
	"github.com/sdejongh/reorgnorris/pkg/lock"
	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/mover"
	"github.com/sdejongh/reorgnorris/pkg/output"
	"github.com/sdejongh/reorgnorris/pkg/report"
	"github.com/sdejongh/reorgnorris/pkg/scan"
	"github.com/sdejongh/reorgnorris/pkg/storage"
	"github.com/sdejongh/reorgnorris/pkg/txlog"
	"github.com/sdejongh/reorgnorris/pkg/validate"
)

// Categories moved by each MOVE_* phase; unknown files stay in place
var (
	coreCategories = []models.FileCategory{
		models.CategoryCoreAPI,
		models.CategoryCoreModel,
		models.CategoryCoreData,
		models.CategoryConfig,
	}
	docCategories = []models.FileCategory{
		models.CategoryDocUser,
		models.CategoryDocDeployment,
		models.CategoryDocTechnical,
		models.CategoryDocProject,
	}
	devCategories = []models.FileCategory{
		models.CategoryDevTest,
		models.CategoryDevScript,
		models.CategoryDevUtil,
		models.CategoryDevTemp,
		models.CategoryDuplicate,
		models.CategoryObsolete,
	}
)

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logging.OrNull(logger)
	}
}

// WithFormatter sets the progress formatter and the writer it renders to
func WithFormatter(f output.Formatter, w io.Writer) Option {
	return func(o *Orchestrator) {
		o.formatter = f
		o.writer = w
	}
}

// WithProber enables import validation through p
func WithProber(p validate.ImportProber) Option {
	return func(o *Orchestrator) {
		o.prober = p
	}
}

// WithMetrics records run counters into r
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.metrics = r
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// Orchestrator runs SCAN through REPORT over one project root
// An Orchestrator executes once; it is not safe for concurrent use.
type Orchestrator struct {
	cfg       models.ReorgConfig
	logger    logging.Logger
	formatter output.Formatter
	writer    io.Writer
	prober    validate.ImportProber
	metrics   *metrics.Recorder
	now       func() time.Time

	result     *models.ReorgResult
	files      []models.FileInfo
	classified map[models.FileCategory][]models.FileInfo
	graph      *models.DependencyGraph
	mappings   []models.FileMapping
	checks     *models.ValidationChecks

	scanner  *scan.Scanner
	analyzer *analyze.Analyzer
	log      *txlog.Log
	backend  *storage.Local
	mover    *mover.Mover
	linker   *linker.Linker
}

// New validates cfg and creates an orchestrator
func New(cfg models.ReorgConfig, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:       cfg,
		logger:    logging.NewNullLogger(),
		formatter: output.NewHumanFormatter(),
		writer:    io.Discard,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Config returns the validated configuration
func (o *Orchestrator) Config() models.ReorgConfig {
	return o.cfg
}

// Progress reports completed phases out of the pipeline length
func (o *Orchestrator) Progress() (completed, total int, percent float64) {
	total = len(models.Phases())
	if o.result != nil {
		completed = len(o.result.PhasesCompleted)
	}
	return completed, total, float64(completed) / float64(total) * 100
}

// Mappings returns the relocations performed, or planned in a dry run
func (o *Orchestrator) Mappings() []models.FileMapping {
	return append([]models.FileMapping(nil), o.mappings...)
}

// Classified returns the CLASSIFY phase output
func (o *Orchestrator) Classified() map[models.FileCategory][]models.FileInfo {
	return o.classified
}

// Graph returns the ANALYZE phase output
func (o *Orchestrator) Graph() *models.DependencyGraph {
	return o.graph
}

// Checks returns the VALIDATE phase output, nil when it did not run
func (o *Orchestrator) Checks() *models.ValidationChecks {
	return o.checks
}

// Execute runs every phase in order and halts on the first phase failure
// Per-file failures inside a phase become warnings.
func (o *Orchestrator) Execute(ctx context.Context) *models.ReorgResult {
	start := o.now()
	runID := "reorg_" + start.Format("20060102_150405")
	o.result = models.NewReorgResult(runID, start)
	o.result.DryRun = o.cfg.DryRun
	o.logger = o.logger.WithFields(logging.Fields{"component": "orchestrator", "run_id": runID})

	phases := models.Phases()
	o.formatter.Start(o.writer, len(phases))

	o.logger.Info(ctx, "Starting reorganization", logging.Fields{
		"path":    o.cfg.ProjectRoot,
		"dry_run": o.cfg.DryRun,
	})

	release, err := o.prepare(ctx)
	if err != nil {
		o.result.AddError(err.Error())
		o.formatter.Error(err)
		return o.finish(ctx)
	}
	defer release()

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			o.result.AddError(fmt.Sprintf("Reorganization interrupted before %s: %v", phase, err))
			break
		}

		o.formatter.Progress(output.ProgressUpdate{Type: output.EventPhaseStart, Phase: phase})
		o.logger.Info(ctx, "Phase started", logging.Fields{"phase": string(phase)})

		if err := o.runPhase(ctx, phase); err != nil {
			msg := fmt.Sprintf("Phase %s failed: %v", phase, err)
			o.result.AddError(msg)
			o.metrics.OperationFailed("phase")
			o.logger.Error(ctx, "Phase failed", err, logging.Fields{"phase": string(phase)})
			o.formatter.Error(errors.New(msg))
			break
		}

		o.result.CompletePhase(phase)
		o.metrics.PhaseCompleted()
		o.formatter.Progress(output.ProgressUpdate{Type: output.EventPhaseComplete, Phase: phase})
	}

	return o.finish(ctx)
}

// prepare takes the run lock and opens the ledger, mover and linker
// A dry run touches nothing and gets a no-op release.
func (o *Orchestrator) prepare(ctx context.Context) (func(), error) {
	if o.cfg.DryRun {
		return func() {}, nil
	}

	lk, err := lock.Acquire(o.cfg.ProjectRoot)
	if err != nil {
		return nil, err
	}

	backend, err := storage.NewLocal(o.cfg.ProjectRoot)
	if err != nil {
		lk.Release()
		return nil, err
	}

	o.log = txlog.New(o.cfg.TransactionLogPath, o.logger)
	o.result.TransactionLogPath = o.cfg.TransactionLogPath
	o.backend = backend
	o.mover = mover.New(backend, o.log, o.logger, mover.WithPreserveTimestamps(o.cfg.PreserveTimestamps))

	o.linker, err = linker.New(o.cfg.ProjectRoot, o.log, o.logger)
	if err != nil {
		lk.Release()
		return nil, err
	}

	return func() {
		if err := o.log.Close(); err != nil {
			o.logger.Error(ctx, "Failed to save transaction log", err, logging.Fields{"path": o.log.Path()})
		}
		if err := lk.Release(); err != nil {
			o.logger.Error(ctx, "Failed to release lock", err, logging.Fields{"path": lock.Path(o.cfg.ProjectRoot)})
		}
	}, nil
}

func (o *Orchestrator) finish(ctx context.Context) *models.ReorgResult {
	o.result.EndTime = o.now()
	o.result.Success = len(o.result.PhasesCompleted) == len(models.Phases()) && len(o.result.Errors) == 0

	o.metrics.RunFinished(o.result.Duration(), o.result.Success)
	if o.cfg.MetricsTextfile != "" {
		if err := o.metrics.WriteTextfile(o.cfg.MetricsTextfile); err != nil {
			o.result.AddWarning(fmt.Sprintf("Metrics export failed: %v", err))
		}
	}

	o.logger.Info(ctx, "Reorganization finished", logging.Fields{
		"status":        string(o.result.Status()),
		"files_moved":   o.result.FilesMoved,
		"links_created": o.result.LinksCreated,
		"errors":        len(o.result.Errors),
		"warnings":      len(o.result.Warnings),
		"duration":      o.result.Duration().String(),
	})

	o.formatter.Complete(o.result)
	return o.result
}

func (o *Orchestrator) runPhase(ctx context.Context, phase models.ReorgPhase) error {
	switch phase {
	case models.PhaseScan:
		return o.phaseScan(ctx)
	case models.PhaseClassify:
		return o.phaseClassify(ctx)
	case models.PhaseAnalyze:
		return o.phaseAnalyze(ctx)
	case models.PhaseBackup:
		return o.phaseBackup(ctx)
	case models.PhaseCreateStructure:
		return o.phaseCreateStructure(ctx)
	case models.PhaseMoveCore:
		return o.moveCategories(ctx, coreCategories)
	case models.PhaseMoveDocs:
		return o.moveCategories(ctx, docCategories)
	case models.PhaseMoveDev:
		return o.moveCategories(ctx, devCategories)
	case models.PhaseCreateLinks:
		return o.phaseCreateLinks(ctx)
	case models.PhaseValidate:
		return o.phaseValidate(ctx)
	case models.PhaseCleanup:
		return nil
	case models.PhaseReport:
		return o.phaseReport(ctx)
	default:
		return fmt.Errorf("unknown phase: %s", phase)
	}
}

func (o *Orchestrator) phaseScan(ctx context.Context) error {
	scanner, err := scan.New(o.cfg.ProjectRoot, o.cfg.ExcludePatterns, o.logger)
	if err != nil {
		return err
	}
	o.scanner = scanner

	files, err := scanner.Scan(ctx, "")
	if err != nil {
		return err
	}
	o.files = files

	o.logger.Info(ctx, "Scan complete", logging.Fields{"phase": string(models.PhaseScan), "files": len(files)})
	return nil
}

func (o *Orchestrator) phaseClassify(ctx context.Context) error {
	classifier := classify.New(o.cfg.SimilarityThreshold, o.logger)
	// links at old paths stand in for files that already moved
	o.classified = classifier.ClassifyBatch(scan.WithoutSymlinks(o.files))

	fields := logging.Fields{"phase": string(models.PhaseClassify)}
	for category, files := range o.classified {
		fields[string(category)] = len(files)
	}
	o.logger.Info(ctx, "Classification complete", fields)
	return nil
}

func (o *Orchestrator) phaseAnalyze(ctx context.Context) error {
	o.analyzer = analyze.New(o.cfg.ProjectRoot, o.cfg.FirstPartyPackages, o.logger)

	graph, err := o.analyzer.BuildGraph(ctx, o.files)
	if err != nil {
		return err
	}
	o.graph = graph

	o.logger.Info(ctx, "Dependency analysis complete", logging.Fields{
		"phase":    string(models.PhaseAnalyze),
		"imports":  len(graph.ImportEdges),
		"paths":    len(graph.PathEdges),
		"critical": len(o.analyzer.CriticalDependencies(graph)),
	})
	return nil
}

func (o *Orchestrator) phaseBackup(ctx context.Context) error {
	if !o.cfg.BackupEnabled {
		o.result.AddWarning("Backup disabled: reorganization runs without a safety net")
		return nil
	}
	if o.cfg.DryRun {
		return nil
	}

	service, err := backup.New(o.cfg.ProjectRoot, o.logger)
	if err != nil {
		return err
	}

	backupPath, err := service.Create(ctx, o.cfg.BackupPath)
	if err != nil {
		return err
	}
	o.result.BackupPath = backupPath

	ok, err := service.Verify(backupPath)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewValidationError("backup", backupPath, "backup verification failed", nil)
	}
	return nil
}

// phaseCreateStructure makes every category directory, parents first
// Only directories that did not exist are created and logged, so rollback
// removes exactly what this run added.
func (o *Orchestrator) phaseCreateStructure(ctx context.Context) error {
	if o.cfg.DryRun {
		return nil
	}

	seen := make(map[string]bool)
	for _, dir := range classify.CategoryDirs() {
		for _, d := range parentsFirst(dir) {
			if seen[d] {
				continue
			}
			seen[d] = true

			exists, err := o.backend.Exists(ctx, d)
			if err != nil {
				return models.NewFileOperationError("create_structure", d, "failed to check directory", err)
			}
			if exists {
				continue
			}

			if err := o.backend.MkdirAll(ctx, d); err != nil {
				o.log.LogOperation(models.OpMkdir, d, "", false, err.Error(), "", "")
				return models.NewFileOperationError("create_structure", d, "failed to create directory", err)
			}
			o.log.LogOperation(models.OpMkdir, d, "", true, "", "", "")
		}
	}
	return nil
}

// parentsFirst returns every ancestor of a slash-separated dir, then dir itself
func parentsFirst(dir string) []string {
	var chain []string
	for d := dir; d != "." && d != "/" && d != ""; d = path.Dir(d) {
		chain = append([]string{d}, chain...)
	}
	return chain
}

func (o *Orchestrator) moveCategories(ctx context.Context, categories []models.FileCategory) error {
	for _, category := range categories {
		for _, f := range o.classified[category] {
			if err := ctx.Err(); err != nil {
				return err
			}
			o.moveFile(ctx, f, category)
		}
	}
	return nil
}

// moveFile relocates one file into its category directory and records the mapping
// Failures are warnings; the phase continues.
func (o *Orchestrator) moveFile(ctx context.Context, f models.FileInfo, category models.FileCategory) {
	if filepath.IsAbs(f.Path) {
		return
	}

	oldPath := f.Path
	newPath := path.Join(classify.CategoryDir(category), path.Base(oldPath))
	if oldPath == newPath {
		return
	}

	mapping := models.FileMapping{OldPath: oldPath, NewPath: newPath, Category: category}

	if o.cfg.DryRun {
		o.mappings = append(o.mappings, mapping)
		return
	}

	info, err := o.backend.Stat(ctx, oldPath)
	if err != nil {
		o.logger.Debug(ctx, "Source vanished, skipping", logging.Fields{"path": oldPath})
		return
	}
	if info.IsSymlink {
		o.logger.Debug(ctx, "Source is a symbolic link, skipping", logging.Fields{"path": oldPath})
		return
	}

	if _, err := o.mover.Move(ctx, oldPath, newPath); err != nil {
		o.result.AddWarning(fmt.Sprintf("Move failed: %s: %v", oldPath, err))
		o.metrics.OperationFailed(string(models.OpMove))
		o.formatter.Progress(output.ProgressUpdate{Type: output.EventFileFailed, Path: oldPath, Destination: newPath, Error: err})
		return
	}

	o.result.FilesMoved++
	o.mappings = append(o.mappings, mapping)
	o.metrics.FileMoved()
	o.formatter.Progress(output.ProgressUpdate{Type: output.EventFileMoved, Path: oldPath, Destination: newPath})
}

func (o *Orchestrator) phaseCreateLinks(ctx context.Context) error {
	if !o.cfg.CreateSymbolicLinks {
		return nil
	}

	for i := range o.mappings {
		m := &o.mappings[i]
		if err := ctx.Err(); err != nil {
			return err
		}

		if o.cfg.DryRun {
			m.LinkPath = m.OldPath
			continue
		}

		if err := o.linker.CreateLink(ctx, m.OldPath, m.NewPath); err != nil {
			o.result.AddWarning(fmt.Sprintf("Link creation failed: %s: %v", m.OldPath, err))
			o.metrics.OperationFailed(string(models.OpLink))
			o.formatter.Progress(output.ProgressUpdate{Type: output.EventLinkFailed, Path: m.OldPath, Destination: m.NewPath, Error: err})
			continue
		}

		m.LinkPath = m.OldPath
		o.result.LinksCreated++
		o.metrics.LinkCreated()
		o.formatter.Progress(output.ProgressUpdate{Type: output.EventLinkCreated, Path: m.OldPath, Destination: m.NewPath})
	}
	return nil
}

func (o *Orchestrator) phaseValidate(ctx context.Context) error {
	if o.cfg.DryRun {
		return nil
	}

	opts := []validate.Option{
		validate.WithLogger(o.logger),
		validate.WithExcludes(o.cfg.ExcludePatterns),
	}
	if o.prober != nil {
		opts = append(opts, validate.WithProber(o.prober))
	}

	validator, err := validate.New(o.cfg.ProjectRoot, opts...)
	if err != nil {
		return err
	}

	expected := make([]string, 0, len(o.mappings))
	for _, m := range o.mappings {
		expected = append(expected, m.NewPath)
	}

	o.checks = validator.ValidateAll(ctx, validate.Options{
		ExpectedFiles: expected,
		ProbeImports:  o.prober != nil,
	})
	if !o.checks.AllPassed() {
		o.result.AddWarning("Validation checks failed")
	}
	return nil
}

// phaseReport writes the Markdown report; a write failure is only a warning
func (o *Orchestrator) phaseReport(ctx context.Context) error {
	if o.cfg.DryRun {
		return nil
	}

	reporter, err := report.New(o.cfg.ProjectRoot, report.WithClock(o.now))
	if err != nil {
		o.result.AddWarning(fmt.Sprintf("Report generation failed: %v", err))
		return nil
	}

	// The report is rendered before finish, so stamp the outcome it describes
	o.result.EndTime = o.now()
	o.result.Success = len(o.result.Errors) == 0

	if err := reporter.WriteMarkdown(o.cfg.ReportPath, o.result, o.mappings, o.checks); err != nil {
		o.result.AddWarning(fmt.Sprintf("Report generation failed: %v", err))
		return nil
	}
	o.result.ReportPath = o.cfg.ReportPath

	o.logger.Info(ctx, "Report written", logging.Fields{"path": o.cfg.ReportPath})
	return nil
}
