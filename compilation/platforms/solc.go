package platforms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/Masterminds/semver"
	"github.com/crytic/sollab/utils"
)

// versionPattern extracts a version number from compiler --version output.
var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

// SolcBackend compiles with a native solc binary in standard JSON mode.
type SolcBackend struct {
	// Path is the solc executable, resolved through PATH if it is not absolute.
	Path string `json:"path"`
}

// NewSolcBackend returns a SolcBackend for the given executable, defaulting to "solc".
func NewSolcBackend(path string) *SolcBackend {
	if path == "" {
		path = "solc"
	}
	return &SolcBackend{Path: path}
}

// Platform implements Backend.
func (s *SolcBackend) Platform() string {
	return "solc"
}

// Version runs solc --version and parses the compiler version.
func (s *SolcBackend) Version(ctx context.Context) (*semver.Version, error) {
	return getCompilerVersion(ctx, s.Path)
}

// CompileStandardJSON implements Backend by piping the input to solc --standard-json.
func (s *SolcBackend) CompileStandardJSON(ctx context.Context, input []byte) ([]byte, error) {
	return runStandardJSON(ctx, exec.CommandContext(ctx, s.Path, "--standard-json"), input)
}

// GetSystemSolcVersion obtains the version of the solc binary on PATH.
func GetSystemSolcVersion() (*semver.Version, error) {
	return getCompilerVersion(context.Background(), "solc")
}

// getCompilerVersion runs "<path> --version" and parses the first version number in its output.
func getCompilerVersion(ctx context.Context, path string) (*semver.Version, error) {
	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("error while executing %v:\nOUTPUT:\n%s\nERROR: %v", path, string(out), err)
	}

	versionStr := versionPattern.FindString(string(out))
	if versionStr == "" {
		return nil, fmt.Errorf("could not parse compiler version using '%v --version'", path)
	}
	return semver.NewVersion(versionStr)
}

// runStandardJSON runs a standard JSON compiler command with input on stdin and returns its stdout.
func runStandardJSON(ctx context.Context, cmd *exec.Cmd, input []byte) ([]byte, error) {
	cmd.Stdin = bytes.NewReader(input)
	stdout, combined, err := utils.RunCommand(cmd)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("error while executing %v:\n%v\n\nCommand Output:\n%s", cmd.Path, err, string(combined))
	}
	if len(bytes.TrimSpace(stdout)) == 0 {
		return nil, errors.New("compiler produced no output")
	}
	return stdout, nil
}
