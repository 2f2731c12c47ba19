package deployment

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a deployment failed.
type ErrorKind int

const (
	// Busy indicates another compile or deploy operation was in progress.
	Busy ErrorKind = iota + 1
	// CompileFailed indicates no artifact was available and compiling one failed.
	CompileFailed
	// InvalidArguments indicates the constructor arguments could not be parsed against the ABI.
	InvalidArguments
	// ArtifactInvalid indicates the artifact could not be turned into deployment data.
	ArtifactInvalid
	// TransactionFailed indicates a live transaction could not be submitted, observed or executed.
	TransactionFailed
	// ReceiptMissingAddress indicates a live receipt carried no created contract address.
	ReceiptMissingAddress
	// LocalExecutionFailed indicates the simulated chain reported an error for the deployment.
	LocalExecutionFailed
	// MissingCreatedAddress indicates the simulated chain reported no error but no address either.
	MissingCreatedAddress
	// PersistenceFailed indicates the deployed contract could not be recorded.
	PersistenceFailed
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case Busy:
		return "busy"
	case CompileFailed:
		return "compile failed"
	case InvalidArguments:
		return "invalid arguments"
	case ArtifactInvalid:
		return "artifact invalid"
	case TransactionFailed:
		return "transaction failed"
	case ReceiptMissingAddress:
		return "receipt missing address"
	case LocalExecutionFailed:
		return "local execution failed"
	case MissingCreatedAddress:
		return "missing created address"
	case PersistenceFailed:
		return "persistence failed"
	default:
		return "unknown"
	}
}

// ErrReceiptMissingAddress is the cause of a ReceiptMissingAddress DeployError.
var ErrReceiptMissingAddress = errors.New("transaction receipt did not include a contract address")

// ErrArtifactUnavailable is the cause of a CompileFailed DeployError raised without a compiler error.
var ErrArtifactUnavailable = errors.New("no compiled artifact is available")

// ErrNoAddressReturned is the cause of a MissingCreatedAddress DeployError.
var ErrNoAddressReturned = errors.New("deployment failed, no address returned")

// DeployError is returned by Deployer.Deploy for every failure.
type DeployError struct {
	Kind ErrorKind

	// Status is the status string recorded in the editor state for this failure. It is empty when the status was left
	// to another component, e.g. a failed compilation.
	Status string

	Err error
}

// Error implements error.
func (e *DeployError) Error() string {
	return fmt.Sprintf("deployment failed (%v): %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeployError) Unwrap() error {
	return e.Err
}

// IsDeployErrorKind indicates whether err is a DeployError of the given kind.
func IsDeployErrorKind(err error, kind ErrorKind) bool {
	var deployErr *DeployError
	return errors.As(err, &deployErr) && deployErr.Kind == kind
}
