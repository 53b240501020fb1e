// Package metrics records run counters in Prometheus textfile-collector format
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the metrics of one process on a private registry
// All methods are no-ops on a nil *Recorder
type Recorder struct {
	registry *prometheus.Registry

	phasesCompleted   prometheus.Counter
	filesMoved        prometheus.Counter
	linksCreated      prometheus.Counter
	operationFailures *prometheus.CounterVec
	rollbackOps       *prometheus.CounterVec
	runDuration       prometheus.Gauge
	lastRunSuccess    prometheus.Gauge
}

// New creates a Recorder with every metric registered
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		phasesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reorg_phases_completed_total",
			Help: "Total number of reorganization phases completed",
		}),
		filesMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reorg_files_moved_total",
			Help: "Total number of files moved",
		}),
		linksCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reorg_links_created_total",
			Help: "Total number of compatibility links created",
		}),
		operationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reorg_operation_failures_total",
				Help: "Total number of failed file operations",
			},
			[]string{"operation"},
		),
		rollbackOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reorg_rollback_operations_total",
				Help: "Total number of rollback steps by result",
			},
			[]string{"result"},
		),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reorg_run_duration_seconds",
			Help: "Duration of the last run in seconds",
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reorg_last_run_success",
			Help: "1 if the last run succeeded, 0 otherwise",
		}),
	}

	r.registry.MustRegister(
		r.phasesCompleted,
		r.filesMoved,
		r.linksCreated,
		r.operationFailures,
		r.rollbackOps,
		r.runDuration,
		r.lastRunSuccess,
	)
	return r
}

// Registry exposes the private registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// PhaseCompleted counts a finished phase
func (r *Recorder) PhaseCompleted() {
	if r == nil {
		return
	}
	r.phasesCompleted.Inc()
}

// FileMoved counts a successful move
func (r *Recorder) FileMoved() {
	if r == nil {
		return
	}
	r.filesMoved.Inc()
}

// LinkCreated counts a successful link
func (r *Recorder) LinkCreated() {
	if r == nil {
		return
	}
	r.linksCreated.Inc()
}

// OperationFailed counts a failed operation ("move", "link", "backup", ...)
func (r *Recorder) OperationFailed(operation string) {
	if r == nil {
		return
	}
	r.operationFailures.WithLabelValues(operation).Inc()
}

// RollbackStep counts a rollback step by result ("reversed", "skipped", "failed")
func (r *Recorder) RollbackStep(result string) {
	if r == nil {
		return
	}
	r.rollbackOps.WithLabelValues(result).Inc()
}

// RunFinished records the duration and outcome of a run
func (r *Recorder) RunFinished(d time.Duration, success bool) {
	if r == nil {
		return
	}
	r.runDuration.Set(d.Seconds())
	if success {
		r.lastRunSuccess.Set(1)
	} else {
		r.lastRunSuccess.Set(0)
	}
}

// WriteTextfile writes every metric to path for the node exporter textfile collector
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
