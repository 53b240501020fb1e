// Package mover relocates files by copy, checksum verification and delete
package mover

import (
	"context"
	"fmt"
	"path"

	"github.com/sdejongh/reorgnorris/pkg/checksum"
	"github.com/sdejongh/reorgnorris/pkg/logging"
	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/storage"
	"github.com/sdejongh/reorgnorris/pkg/txlog"
)

// MoveResult describes a completed move
type MoveResult struct {
	Source      string
	Destination string
	Checksum    string
}

// Pair is one requested relocation
type Pair struct {
	Source      string
	Destination string
}

// BatchError records one failed pair of a batch
type BatchError struct {
	Source      string
	Destination string
	Error       string
}

// BatchResult aggregates a batch; every pair is attempted
type BatchResult struct {
	Total   int
	Success int
	Failed  int
	Errors  []BatchError
}

// Option configures a Mover
type Option func(*Mover)

// WithPreserveTimestamps controls whether modification times are copied
func WithPreserveTimestamps(preserve bool) Option {
	return func(m *Mover) {
		m.preserveTimestamps = preserve
	}
}

// Mover moves files inside a backend, recording every outcome in a transaction log
type Mover struct {
	backend            storage.Backend
	log                *txlog.Log
	hasher             *checksum.MD5Hasher
	preserveTimestamps bool
	logger             logging.Logger
}

// New creates a mover; log may be nil
func New(backend storage.Backend, log *txlog.Log, logger logging.Logger, opts ...Option) *Mover {
	m := &Mover{
		backend:            backend,
		log:                log,
		hasher:             checksum.NewMD5Hasher(checksum.ChunkSize),
		preserveTimestamps: true,
		logger:             logging.OrNull(logger).WithFields(logging.Fields{"component": "mover"}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mover) record(src, dst string, success bool, errMsg, before, after string) {
	if m.log == nil {
		return
	}
	m.log.LogOperation(models.OpMove, src, dst, success, errMsg, before, after)
}

// fail logs a failed move and returns the matching error
func (m *Mover) fail(ctx context.Context, src, dst, msg string, cause error, before, after string) error {
	logMsg := msg
	if cause != nil {
		logMsg = fmt.Sprintf("%s: %v", msg, cause)
	}
	m.record(src, dst, false, logMsg, before, after)
	m.logger.Warn(ctx, "Move failed", logging.Fields{
		"operation":   "move",
		"path":        src,
		"destination": dst,
		"error":       logMsg,
	})
	return models.NewFileOperationError("move", src, msg, cause)
}

// Move relocates src to dst
// The source is deleted only after a checksum-verified copy exists
func (m *Mover) Move(ctx context.Context, src, dst string) (MoveResult, error) {
	exists, err := m.backend.Exists(ctx, src)
	if err != nil || !exists {
		return MoveResult{}, m.fail(ctx, src, dst, "Source file does not exist: "+src, err, "", "")
	}

	exists, err = m.backend.Exists(ctx, dst)
	if err != nil {
		return MoveResult{}, m.fail(ctx, src, dst, "Failed to move file", err, "", "")
	}
	if exists {
		return MoveResult{}, m.fail(ctx, src, dst, "Destination already exists: "+dst, nil, "", "")
	}

	before, err := m.hasher.Backend(ctx, m.backend, src)
	if err != nil {
		return MoveResult{}, m.fail(ctx, src, dst, "Failed to calculate checksum", err, "", "")
	}

	if err := m.backend.MkdirAll(ctx, path.Dir(dst)); err != nil {
		return MoveResult{}, m.fail(ctx, src, dst, "Failed to move file", err, before, "")
	}

	if err := m.copy(ctx, src, dst); err != nil {
		m.heal(ctx, src, dst)
		return MoveResult{}, m.fail(ctx, src, dst, "Failed to move file", err, before, "")
	}

	after, err := m.hasher.Backend(ctx, m.backend, dst)
	if err != nil {
		m.heal(ctx, src, dst)
		return MoveResult{}, m.fail(ctx, src, dst, "Failed to move file", err, before, "")
	}

	if before != after {
		if err := m.backend.Delete(ctx, dst); err != nil {
			m.logger.Error(ctx, "Failed to remove corrupt copy", err, logging.Fields{"path": dst})
		}
		return MoveResult{}, m.fail(ctx, src, dst, "Checksum mismatch after copy", nil, before, after)
	}

	if err := m.backend.Delete(ctx, src); err != nil {
		m.heal(ctx, src, dst)
		return MoveResult{}, m.fail(ctx, src, dst, "Failed to move file", err, before, after)
	}

	m.record(src, dst, true, "", before, after)
	m.logger.Debug(ctx, "File moved", logging.Fields{
		"operation":   "move",
		"path":        src,
		"destination": dst,
		"checksum":    after,
	})

	return MoveResult{Source: src, Destination: dst, Checksum: after}, nil
}

// copy duplicates src at dst with permissions and optionally timestamps
func (m *Mover) copy(ctx context.Context, src, dst string) error {
	info, err := m.backend.Stat(ctx, src)
	if err != nil {
		return err
	}

	reader, err := m.backend.Read(ctx, src)
	if err != nil {
		return err
	}
	defer reader.Close()

	// A symlinked source is read through; its own size and mode describe the link
	if info.IsSymlink {
		return m.backend.Write(ctx, dst, reader, -1, nil)
	}

	meta := &storage.FileInfo{Permissions: info.Permissions}
	if m.preserveTimestamps {
		meta.ModTime = info.ModTime
	}
	return m.backend.Write(ctx, dst, reader, info.Size, meta)
}

// heal restores the pre-move state after a failure past the copy step
// A surviving source means the copy is discarded; a lost source is copied back
func (m *Mover) heal(ctx context.Context, src, dst string) {
	srcExists, _ := m.backend.Exists(ctx, src)
	dstExists, _ := m.backend.Exists(ctx, dst)

	switch {
	case srcExists && dstExists:
		if err := m.backend.Delete(ctx, dst); err != nil {
			m.logger.Error(ctx, "Failed to remove partial copy", err, logging.Fields{"path": dst})
		}
	case !srcExists && dstExists:
		if err := m.copy(ctx, dst, src); err != nil {
			m.logger.Error(ctx, "Failed to restore source", err, logging.Fields{"path": src})
			return
		}
		if err := m.backend.Delete(ctx, dst); err != nil {
			m.logger.Error(ctx, "Failed to remove copy after restore", err, logging.Fields{"path": dst})
		}
	}
}

// MoveBatch moves every pair, collecting failures instead of stopping
func (m *Mover) MoveBatch(ctx context.Context, pairs []Pair) BatchResult {
	result := BatchResult{Total: len(pairs)}

	for _, p := range pairs {
		if _, err := m.Move(ctx, p.Source, p.Destination); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BatchError{
				Source:      p.Source,
				Destination: p.Destination,
				Error:       err.Error(),
			})
			continue
		}
		result.Success++
	}

	return result
}

// VerifyMove reports whether src is gone and dst exists
// A non-empty expected checksum must also match the destination content
func (m *Mover) VerifyMove(ctx context.Context, src, dst, expected string) bool {
	if exists, err := m.backend.Exists(ctx, src); err != nil || exists {
		return false
	}
	if exists, err := m.backend.Exists(ctx, dst); err != nil || !exists {
		return false
	}
	if expected == "" {
		return true
	}

	sum, err := m.hasher.Backend(ctx, m.backend, dst)
	return err == nil && sum == expected
}

// RollbackMove moves dst back to src
// It requires the post-move state: dst present and src absent
func (m *Mover) RollbackMove(ctx context.Context, src, dst string) error {
	exists, err := m.backend.Exists(ctx, dst)
	if err != nil || !exists {
		return models.NewRollbackError("rollback_move", dst, "Destination does not exist: "+dst, err)
	}

	exists, err = m.backend.Exists(ctx, src)
	if err != nil {
		return models.NewRollbackError("rollback_move", src, "Failed to check source", err)
	}
	if exists {
		return models.NewRollbackError("rollback_move", src, "Source already exists: "+src, nil)
	}

	if err := m.backend.Rename(ctx, dst, src); err != nil {
		return models.NewRollbackError("rollback_move", src, "Failed to move file back", err)
	}

	m.logger.Debug(ctx, "Move reversed", logging.Fields{"operation": "move", "path": src, "destination": dst})
	return nil
}

// PreservePermissions copies permissions and modification time from src to dst
func (m *Mover) PreservePermissions(ctx context.Context, src, dst string) error {
	info, err := m.backend.Stat(ctx, src)
	if err != nil {
		return models.NewFileOperationError("preserve_permissions", src, "Source file does not exist: "+src, err)
	}
	if exists, err := m.backend.Exists(ctx, dst); err != nil || !exists {
		return models.NewFileOperationError("preserve_permissions", dst, "Destination file does not exist: "+dst, err)
	}

	if err := m.backend.SetMetadata(ctx, dst, info); err != nil {
		return models.NewFileOperationError("preserve_permissions", dst, "Failed to preserve permissions", err)
	}
	return nil
}
