package platforms

import "context"

// Backend compiles a standard JSON input document and returns the standard JSON output document. Compile errors
// are reported inside the output; an error return means the compiler could not be run or produced no output.
type Backend interface {
	// Platform returns the identifier of the compiler platform.
	Platform() string

	// CompileStandardJSON compiles the provided standard JSON input.
	CompileStandardJSON(ctx context.Context, input []byte) ([]byte, error)
}
