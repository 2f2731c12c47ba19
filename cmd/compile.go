package cmd

import (
	"context"
	"os"
	"os/signal"
	"sort"

	"github.com/Masterminds/semver"
	"github.com/crytic/medusa-geth/common/hexutil"
	"github.com/crytic/sollab/cmd/exitcodes"
	"github.com/crytic/sollab/compilation"
	"github.com/crytic/sollab/compilation/abiutils"
	"github.com/crytic/sollab/compilation/channel"
	"github.com/crytic/sollab/configs"
	"github.com/crytic/sollab/logging/colors"
	"github.com/spf13/cobra"
)

// compileCmd represents the command provider for compile
var compileCmd = &cobra.Command{
	Use:               "compile [file]",
	Short:             "Compiles the workspace contract",
	Long:              `Compiles the workspace contract, or the contract in the given file, and reports its interface`,
	Args:              cmdValidateCompileArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunCompile,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the compile command
	err := addCompileFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the compile command", err)
	}

	// Add the compile command and its associated flags to the root command
	rootCmd.AddCommand(compileCmd)
}

// cmdValidateCompileArgs makes sure that there are no more than one positional argument provided to the compile command
func cmdValidateCompileArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
		err = exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		cmdLogger.Error("Failed to validate args to the compile command", err)
		return err
	}
	return nil
}

// versionedBackend is implemented by backends that can report their compiler version.
type versionedBackend interface {
	Version(ctx context.Context) (*semver.Version, error)
}

// newProjectCompiler creates a compiler over the workspace editor and reports the compiler version, if the backend
// can tell it, so mismatching pragmas are flagged before compiling.
func newProjectCompiler(ctx context.Context, projectConfig *configs.ProjectConfig, ws *projectWorkspace) (*compilation.Compiler, *channel.Channel, error) {
	compiler, compilerChannel, err := projectConfig.Compilation.NewCompiler(ws.editor)
	if err != nil {
		return nil, nil, err
	}
	backend, err := projectConfig.Compilation.NewBackend()
	if err == nil {
		if versioned, ok := backend.(versionedBackend); ok {
			if version, err := versioned.Version(ctx); err == nil {
				compiler.SetCompilerVersion(version)
			} else {
				cmdLogger.Debug("Unable to determine the compiler version", err)
			}
		}
	}
	return compiler, compilerChannel, nil
}

// cmdRunCompile executes the CLI compile command
func cmdRunCompile(cmd *cobra.Command, args []string) error {
	projectConfig, err := readProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}
	closeLog, err := setupLogging(projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}
	defer closeLog()

	options, err := getCompileOutputOptions(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}

	ws, err := openWorkspace(projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}
	defer ws.Close()

	if err = loadSourceArgument(ws.editor, args); err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	compiler, compilerChannel, err := newProjectCompiler(ctx, projectConfig, ws)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}
	defer compilerChannel.Close()

	outcome, err := compiler.Compile(ctx, ws.editor.Snapshot().Code)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeCompilationFailed)
	}

	printCompileOutcome(outcome, options)
	return nil
}

// printCompileOutcome prints the result of a successful compilation to the command logger.
func printCompileOutcome(outcome *compilation.CompileOutcome, options compileOutputOptions) {
	artifact := outcome.Artifact
	cmdLogger.Info(colors.Bold, artifact.Name, colors.Reset, " (", artifact.SourcePath, ", pragma ", outcome.Info.Pragma, ")")

	for _, warning := range outcome.Warnings {
		cmdLogger.Warn(warning.String())
	}

	if artifact.Abi.Constructor.Inputs != nil {
		cmdLogger.Info("  constructor", colors.Reset, " ", abiutils.GetAbiItemSignature(artifact.Abi.Constructor))
	}
	methodNames := make([]string, 0, len(artifact.Abi.Methods))
	for name := range artifact.Abi.Methods {
		methodNames = append(methodNames, name)
	}
	sort.Strings(methodNames)
	for _, name := range methodNames {
		method := artifact.Abi.Methods[name]
		cmdLogger.Info("  ", abiutils.GetAbiItemSignature(method), " ", colors.DarkGray, hexutil.Encode(method.ID), colors.Reset)
	}

	if version, ok := artifact.Metadata.CompilerVersion(); ok {
		cmdLogger.Info("Compiled with solc ", version)
	}
	if options.abi {
		cmdLogger.Info(string(artifact.AbiJSON))
	}
	if options.bytecode {
		cmdLogger.Info("0x", artifact.Bytecode)
	}
}
