package models

import (
	"time"
)

// ReorgPhase is one step of the orchestrator pipeline
type ReorgPhase string

const (
	PhaseScan            ReorgPhase = "scan"
	PhaseClassify        ReorgPhase = "classify"
	PhaseAnalyze         ReorgPhase = "analyze"
	PhaseBackup          ReorgPhase = "backup"
	PhaseCreateStructure ReorgPhase = "create_structure"
	PhaseMoveCore        ReorgPhase = "move_core"
	PhaseMoveDocs        ReorgPhase = "move_docs"
	PhaseMoveDev         ReorgPhase = "move_dev"
	PhaseCreateLinks     ReorgPhase = "create_links"
	PhaseValidate        ReorgPhase = "validate"
	PhaseCleanup         ReorgPhase = "cleanup"
	PhaseReport          ReorgPhase = "report"
)

// Phases returns the pipeline in execution order
func Phases() []ReorgPhase {
	return []ReorgPhase{
		PhaseScan,
		PhaseClassify,
		PhaseAnalyze,
		PhaseBackup,
		PhaseCreateStructure,
		PhaseMoveCore,
		PhaseMoveDocs,
		PhaseMoveDev,
		PhaseCreateLinks,
		PhaseValidate,
		PhaseCleanup,
		PhaseReport,
	}
}

// ReorgResult accumulates the outcome of one orchestrator run
type ReorgResult struct {
	RunID   string
	Success bool
	DryRun  bool

	// Timing
	StartTime time.Time
	EndTime   time.Time

	// PhasesCompleted records how far execution got
	PhasesCompleted []ReorgPhase

	// Counters
	FilesMoved   int
	LinksCreated int
	FilesDeleted int

	Errors   []string
	Warnings []string

	BackupPath         string
	TransactionLogPath string
	ReportPath         string
}

// NewReorgResult creates a result stamped with the start time
func NewReorgResult(runID string, start time.Time) *ReorgResult {
	return &ReorgResult{
		RunID:     runID,
		StartTime: start,
	}
}

// AddError records an error message
func (r *ReorgResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddWarning records a warning message
func (r *ReorgResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// CompletePhase appends phase to the completed list
func (r *ReorgResult) CompletePhase(phase ReorgPhase) {
	r.PhasesCompleted = append(r.PhasesCompleted, phase)
}

// HasCompleted reports whether phase finished
func (r *ReorgResult) HasCompleted(phase ReorgPhase) bool {
	for _, p := range r.PhasesCompleted {
		if p == phase {
			return true
		}
	}
	return false
}

// Duration returns the elapsed run time, or zero while running
func (r *ReorgResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Status maps the result onto an overall status
func (r *ReorgResult) Status() Status {
	switch {
	case r.Success && len(r.Errors) == 0:
		return StatusSuccess
	case len(r.PhasesCompleted) > 0 && (r.FilesMoved > 0 || r.LinksCreated > 0):
		return StatusPartial
	default:
		return StatusFailed
	}
}

// Status represents the overall result of a command
type Status string

const (
	// StatusSuccess indicates all phases completed without errors
	StatusSuccess Status = "success"
	// StatusPartial indicates the run aborted after mutating the tree
	StatusPartial Status = "partial"
	// StatusFailed indicates the run failed
	StatusFailed Status = "failed"
	// StatusCancelled indicates the operator declined or interrupted the run
	StatusCancelled Status = "cancelled"
)

// ExitCode returns the process exit code for the status
func (s Status) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusPartial:
		return 1
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}
