package platforms

import (
	"context"
	"os/exec"
)

// SolcJSBackend compiles with the solcjs command line wrapper around the emscripten build of solc.
type SolcJSBackend struct {
	// Path is the solcjs executable, resolved through PATH if it is not absolute.
	Path string `json:"path"`
}

// NewSolcJSBackend returns a SolcJSBackend for the given executable, defaulting to "solcjs".
func NewSolcJSBackend(path string) *SolcJSBackend {
	if path == "" {
		path = "solcjs"
	}
	return &SolcJSBackend{Path: path}
}

// Platform implements Backend.
func (s *SolcJSBackend) Platform() string {
	return "solcjs"
}

// CompileStandardJSON implements Backend by piping the input to solcjs --standard-json.
func (s *SolcJSBackend) CompileStandardJSON(ctx context.Context, input []byte) ([]byte, error) {
	return runStandardJSON(ctx, exec.CommandContext(ctx, s.Path, "--standard-json"), input)
}
