package models

import (
	"errors"
)

// ErrorKind distinguishes the families of engine errors
type ErrorKind string

const (
	// KindFileOperation covers move, copy, link and backup failures
	KindFileOperation ErrorKind = "file_operation"
	// KindDependency is reserved for analysis failures
	KindDependency ErrorKind = "dependency"
	// KindValidation covers validator and configuration failures
	KindValidation ErrorKind = "validation"
	// KindRollback covers precondition violations and I/O failures during reversal
	KindRollback ErrorKind = "rollback"
)

// Sentinel errors for errors.Is matching on kind
var (
	ErrFileOperation = errors.New("file operation error")
	ErrDependency    = errors.New("dependency error")
	ErrValidation    = errors.New("validation error")
	ErrRollback      = errors.New("rollback error")
)

// ReorgError is the common base for all engine errors
type ReorgError struct {
	Kind ErrorKind
	// Op names the operation that failed (e.g. "move", "create_link")
	Op string
	// Path is the file the error refers to, if any
	Path string
	// Msg is the human-readable reason
	Msg string
	// Err is the underlying cause, if any
	Err error
}

func (e *ReorgError) Error() string {
	s := e.Msg
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Path != "" {
		s += " (" + e.Path + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ReorgError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind
func (e *ReorgError) Is(target error) bool {
	return target == kindSentinel(e.Kind)
}

func kindSentinel(kind ErrorKind) error {
	switch kind {
	case KindFileOperation:
		return ErrFileOperation
	case KindDependency:
		return ErrDependency
	case KindValidation:
		return ErrValidation
	case KindRollback:
		return ErrRollback
	default:
		return nil
	}
}

// NewFileOperationError creates a file operation error
func NewFileOperationError(op, path, msg string, err error) *ReorgError {
	return &ReorgError{Kind: KindFileOperation, Op: op, Path: path, Msg: msg, Err: err}
}

// NewDependencyError creates a dependency analysis error
func NewDependencyError(op, path, msg string, err error) *ReorgError {
	return &ReorgError{Kind: KindDependency, Op: op, Path: path, Msg: msg, Err: err}
}

// NewValidationError creates a validation error
func NewValidationError(op, path, msg string, err error) *ReorgError {
	return &ReorgError{Kind: KindValidation, Op: op, Path: path, Msg: msg, Err: err}
}

// NewRollbackError creates a rollback error
func NewRollbackError(op, path, msg string, err error) *ReorgError {
	return &ReorgError{Kind: KindRollback, Op: op, Path: path, Msg: msg, Err: err}
}

// KindOf returns the kind of the first ReorgError in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var re *ReorgError
	if errors.As(err, &re) {
		return re.Kind, true
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation, true
	}
	return "", false
}
