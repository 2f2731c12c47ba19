package compilation

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/crytic/sollab/compilation/sources"
	"github.com/crytic/sollab/compilation/types"
	"github.com/crytic/sollab/events"
	"github.com/crytic/sollab/logging"
	"github.com/crytic/sollab/logging/colors"
	"github.com/crytic/sollab/workspace"
)

// DefaultRootPath is the path the compiled source is stored under. Artifacts are looked up at this path.
const DefaultRootPath = "contract.sol"

// Status strings written to the editor state.
const (
	StatusCompiling          = "Compiling..."
	StatusCompiled           = "Compilation successful"
	StatusMissingName        = "Error: Could not find contract name in code"
	StatusMissingVersion     = "Error: Could not determine Solidity version from pragma"
	StatusArtifactNotFound   = "Error: Compiled contract artifact not found"
	StatusArtifactIncomplete = "Error: Missing ABI or bytecode in compilation result"
	StatusBusy               = "Error: Another operation is in progress"
)

// CompilerChannel sends a source closure to the compiler and returns its response.
type CompilerChannel interface {
	Compile(ctx context.Context, sources types.SourceMap, settings types.CompilerSettings) (*types.CompileResponse, error)
}

// SourceResolver builds the import closure of a root source.
type SourceResolver interface {
	Resolve(ctx context.Context, rootPath string, rootContent string) (*sources.ResolveResult, error)
}

// CompileOutcome describes a successful compilation.
type CompileOutcome struct {
	Info     *ContractInfo
	Artifact *types.ContractArtifact

	// Sources lists the paths sent to the compiler.
	Sources []string

	// Warnings lists the imports that were left out of the closure.
	Warnings []sources.ResolutionWarning

	// Diagnostics holds the compiler's non-error diagnostics.
	Diagnostics []types.CompilerDiagnostic
}

// CompilationStartedEvent is published before a source is sent to the compiler.
type CompilationStartedEvent struct {
	Info    *ContractInfo
	Sources []string
}

// CompilationFinishedEvent is published after every compilation that reached the compiler, successful or not.
type CompilationFinishedEvent struct {
	Outcome *CompileOutcome
	Err     error
}

// CompilerEvents are the events a Compiler publishes.
type CompilerEvents struct {
	CompilationStarted  events.EventEmitter[CompilationStartedEvent]
	CompilationFinished events.EventEmitter[CompilationFinishedEvent]
}

// Compiler turns source text into a ContractArtifact and records the result in the editor state.
type Compiler struct {
	channel  CompilerChannel
	resolver SourceResolver
	editor   *workspace.Editor
	settings types.CompilerSettings
	rootPath string

	// compilerVersion, if known, is checked against the source's version pragma.
	compilerVersion *semver.Version

	Events CompilerEvents
	logger *logging.Logger
}

// NewCompiler creates a Compiler. An empty output selection is replaced with types.DefaultOutputSelection.
func NewCompiler(channel CompilerChannel, resolver SourceResolver, editor *workspace.Editor, settings types.CompilerSettings) *Compiler {
	if len(settings.OutputSelection) == 0 {
		settings.OutputSelection = types.DefaultOutputSelection()
	}
	return &Compiler{
		channel:  channel,
		resolver: resolver,
		editor:   editor,
		settings: settings,
		rootPath: DefaultRootPath,
		logger:   logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE),
	}
}

// SetRootPath overrides the path the compiled source is stored under.
func (c *Compiler) SetRootPath(rootPath string) {
	c.rootPath = rootPath
}

// SetCompilerVersion records the compiler's version so mismatching pragmas can be reported early.
func (c *Compiler) SetCompilerVersion(version *semver.Version) {
	c.compilerVersion = version
}

// Compile compiles source while holding the editor's busy flag. It fails with a Busy CompileError if another
// operation holds the flag.
func (c *Compiler) Compile(ctx context.Context, source string) (*CompileOutcome, error) {
	if !c.editor.TryBeginBusy() {
		c.editor.SetStatus(StatusBusy)
		return nil, &CompileError{Kind: Busy, Err: ErrBusy}
	}
	defer c.editor.EndBusy()
	return c.CompileLocked(ctx, source)
}

// CompileLocked compiles source. The caller must hold the editor's busy flag.
//
// The contract name and version pragma are extracted first, so a source missing either fails before anything is sent
// to the compiler. Otherwise the import closure is resolved and sent as one request, and the response is classified:
// a failed response, an error diagnostic, a missing artifact and an incomplete artifact each produce a CompileError
// of their own kind. On success the artifact is stored in the editor state. A status is written on every path.
func (c *Compiler) CompileLocked(ctx context.Context, source string) (*CompileOutcome, error) {
	info, err := ExtractContractInfo(source)
	if err != nil {
		status := StatusMissingName
		if errors.Is(err, ErrVersionNotFound) {
			status = StatusMissingVersion
		}
		c.editor.SetCompileFailed(status, err.Error())
		return nil, &CompileError{Kind: ExtractionFailed, Err: err}
	}
	if c.compilerVersion != nil && !info.Constraint.Check(c.compilerVersion) {
		c.logger.Warn("Compiler version ", c.compilerVersion, " does not satisfy pragma ", colors.Bold, info.Pragma)
	}

	c.editor.SetStatus(StatusCompiling)

	resolved, err := c.resolver.Resolve(ctx, c.rootPath, source)
	if err != nil {
		c.editor.SetCompileFailed("Error: "+err.Error(), err.Error())
		return nil, &CompileError{Kind: BoundaryFailed, Err: err}
	}
	outcome := &CompileOutcome{
		Info:     info,
		Sources:  resolved.Sources.Paths(),
		Warnings: resolved.Warnings,
	}

	if err := c.Events.CompilationStarted.Publish(CompilationStartedEvent{Info: info, Sources: outcome.Sources}); err != nil {
		c.logger.Debug("Compilation started event handler failed", err)
	}
	c.logger.Info("Compiling ", colors.Bold, info.Name, colors.Reset, " (", len(outcome.Sources), " source(s))")

	artifact, err := c.submit(ctx, info, resolved.Sources, outcome)
	if err != nil {
		c.publishFinished(nil, err)
		return nil, err
	}
	outcome.Artifact = artifact

	c.editor.SetCompiled(artifact, StatusCompiled)
	c.logger.Info(colors.Green, "Compiled ", colors.Bold, info.Name)
	c.publishFinished(outcome, nil)
	return outcome, nil
}

// submit sends the closure to the compiler and classifies the response, recording failures in the editor state.
func (c *Compiler) submit(ctx context.Context, info *ContractInfo, closure types.SourceMap, outcome *CompileOutcome) (*types.ContractArtifact, error) {
	response, err := c.channel.Compile(ctx, closure, c.settings)
	if err != nil {
		c.editor.SetCompileFailed("Error: "+err.Error(), err.Error())
		return nil, &CompileError{Kind: BoundaryFailed, Err: err}
	}
	if !response.Success || response.Output == nil {
		message := response.Error
		if message == "" {
			message = "Unknown error"
		}
		c.editor.SetCompileFailed("Compilation Error: "+message, message)
		return nil, &CompileError{Kind: BoundaryFailed, Err: errors.New(message)}
	}

	output := response.Output
	if output.HasErrors() {
		diagnostics := output.Diagnostics(types.SeverityError)
		first := diagnostics[0]
		c.editor.SetCompileFailed("Compilation Error: "+first.Message, first.String())
		for _, diagnostic := range diagnostics {
			c.logger.Error(diagnostic.String())
		}
		return nil, &CompileError{Kind: DiagnosticFailed, Diagnostics: diagnostics, Err: errors.New(first.Message)}
	}
	outcome.Diagnostics = output.Diagnostics("")
	for _, diagnostic := range outcome.Diagnostics {
		c.logger.Warn(diagnostic.String())
	}

	contractOutput, ok := output.Contract(c.rootPath, info.Name)
	if !ok {
		c.editor.SetCompileFailed(StatusArtifactNotFound, "Compiled contract artifact not found")
		return nil, &CompileError{Kind: ArtifactNotFound, Err: fmt.Errorf("no output for contract %v in %v", info.Name, c.rootPath)}
	}

	artifact, err := types.NewContractArtifact(c.rootPath, info.Name, contractOutput)
	if err != nil {
		if errors.Is(err, types.ErrArtifactIncomplete) {
			c.editor.SetCompileFailed(StatusArtifactIncomplete, "Missing ABI or bytecode in compilation result")
		} else {
			c.editor.SetCompileFailed("Error: "+err.Error(), err.Error())
		}
		return nil, &CompileError{Kind: ArtifactIncomplete, Err: err}
	}
	return artifact, nil
}

// publishFinished publishes a CompilationFinishedEvent, logging handler failures.
func (c *Compiler) publishFinished(outcome *CompileOutcome, err error) {
	if pubErr := c.Events.CompilationFinished.Publish(CompilationFinishedEvent{Outcome: outcome, Err: err}); pubErr != nil {
		c.logger.Debug("Compilation finished event handler failed", pubErr)
	}
}
