package compilation

import (
	"errors"
	"fmt"

	"github.com/crytic/sollab/compilation/types"
)

// ErrorKind classifies a failed compilation.
type ErrorKind int

const (
	// ExtractionFailed means the contract name or version could not be read from the source. Nothing was sent to
	// the compiler.
	ExtractionFailed ErrorKind = iota + 1
	// BoundaryFailed means the compiler could not be reached or reported that it failed to run.
	BoundaryFailed
	// DiagnosticFailed means the compiler ran and reported at least one error diagnostic.
	DiagnosticFailed
	// ArtifactNotFound means the compiler produced no output for the named contract in the root source.
	ArtifactNotFound
	// ArtifactIncomplete means the named contract's output lacks its ABI or bytecode.
	ArtifactIncomplete
	// Busy means another compile or deploy operation was in progress.
	Busy
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case ExtractionFailed:
		return "extraction failed"
	case BoundaryFailed:
		return "compiler boundary failed"
	case DiagnosticFailed:
		return "compiler reported errors"
	case ArtifactNotFound:
		return "artifact not found"
	case ArtifactIncomplete:
		return "artifact incomplete"
	case Busy:
		return "busy"
	default:
		return "unknown"
	}
}

// ErrBusy is wrapped by a CompileError of kind Busy.
var ErrBusy = errors.New("another operation is in progress")

// CompileError is returned for every failed compilation.
type CompileError struct {
	Kind ErrorKind

	// Diagnostics holds the compiler's error diagnostics for DiagnosticFailed.
	Diagnostics []types.CompilerDiagnostic

	Err error
}

// Error implements error.
func (e *CompileError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// IsCompileErrorKind reports whether err is a CompileError of the given kind.
func IsCompileErrorKind(err error, kind ErrorKind) bool {
	var compileErr *CompileError
	return errors.As(err, &compileErr) && compileErr.Kind == kind
}
