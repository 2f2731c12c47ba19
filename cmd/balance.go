package cmd

import (
	"context"
	"math/big"
	"os"
	"os/signal"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/sollab/balances"
	"github.com/crytic/sollab/chain"
	"github.com/crytic/sollab/cmd/exitcodes"
	"github.com/crytic/sollab/compilation/abiutils"
	"github.com/crytic/sollab/logging/colors"
	"github.com/crytic/sollab/utils"
	"github.com/crytic/sollab/workspace"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// balanceCmd represents the command provider for balance
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Inspects and overrides token balances on the local chain",
	Long: `Deploys the workspace token contract, or the token in the given file, to a fresh local chain and locates its
balance mapping so balances can be read and written directly.`,
}

// balanceSlotCmd represents the command provider for balance slot
var balanceSlotCmd = &cobra.Command{
	Use:               "slot [file]",
	Short:             "Finds the storage slot of the token's balance mapping",
	Args:              cmdValidateBalanceArgs(0),
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunBalanceSlot,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// balanceGetCmd represents the command provider for balance get
var balanceGetCmd = &cobra.Command{
	Use:               "get <holder> [file]",
	Short:             "Reads a holder's balance through the token's balanceOf",
	Args:              cmdValidateBalanceArgs(1),
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunBalanceGet,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// balanceSetCmd represents the command provider for balance set
var balanceSetCmd = &cobra.Command{
	Use:               "set <holder> <amount> [file]",
	Short:             "Writes a holder's balance into the token's balance mapping",
	Args:              cmdValidateBalanceArgs(2),
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunBalanceSet,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	for _, cmd := range []*cobra.Command{balanceSlotCmd, balanceGetCmd, balanceSetCmd} {
		addBalanceFlags(cmd)
		balanceCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(balanceCmd)
}

// cmdValidateBalanceArgs returns a validator accepting the required positional arguments of a balance subcommand,
// followed by an optional file.
func cmdValidateBalanceArgs(required int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.RangeArgs(required, required+1)(cmd, args); err != nil {
			err = exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
			cmdLogger.Error("Failed to validate args to the balance "+cmd.Name()+" command", err)
			return err
		}
		return nil
	}
}

// tokenEnvironment is a token deployed to a fresh local chain, along with a prober over that chain.
type tokenEnvironment struct {
	chain    *chain.TestChain
	prober   *balances.Prober
	token    common.Address
	decimals uint8
	raw      bool
}

// newTokenEnvironment compiles the token source, deploys it to a fresh local chain and returns the environment along
// with a function releasing it. The workspace's deployed contract is not touched.
func newTokenEnvironment(ctx context.Context, cmd *cobra.Command, fileArgs []string) (*tokenEnvironment, func(), error) {
	projectConfig, err := readProjectConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	closeLog, err := setupLogging(projectConfig)
	if err != nil {
		return nil, nil, err
	}
	rawArgs, err := cmd.Flags().GetStringArray("arg")
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	raw, err := cmd.Flags().GetBool("raw")
	if err != nil {
		closeLog()
		return nil, nil, err
	}

	// Read the token source from the workspace, then compile it in an editor of its own.
	ws, err := openWorkspace(projectConfig)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	tokenEditor, err := workspace.NewEditor(nil)
	if err != nil {
		ws.Close()
		closeLog()
		return nil, nil, err
	}
	tokenEditor.SetCode(ws.editor.Snapshot().Code)
	ws.Close()
	if err = loadSourceArgument(tokenEditor, fileArgs); err != nil {
		closeLog()
		return nil, nil, err
	}
	tokenWorkspace := &projectWorkspace{editor: tokenEditor}

	compiler, compilerChannel, err := newProjectCompiler(ctx, projectConfig, tokenWorkspace)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	outcome, err := compiler.Compile(ctx, tokenEditor.Snapshot().Code)
	compilerChannel.Close()
	if err != nil {
		closeLog()
		return nil, nil, exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeCompilationFailed)
	}
	artifact := outcome.Artifact
	args, err := abiutils.ParseConstructorArgs(&artifact.Abi, rawArgs)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	initBytecode, err := artifact.InitBytecode()
	if err != nil {
		closeLog()
		return nil, nil, err
	}

	testChain, err := chain.NewTestChain(ctx, nil, &projectConfig.Chain)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	release := func() {
		testChain.Close()
		closeLog()
	}
	result, err := testChain.DeployContract(chain.DeployRequest{Abi: &artifact.Abi, Bytecode: initBytecode, Args: args, Commit: true})
	if err == nil && len(result.Errors) > 0 {
		err = errors.New(result.Errors[0].Message)
	} else if err == nil && result.CreatedAddress == nil {
		err = errors.New("token deployment did not create a contract")
	}
	if err != nil {
		release()
		return nil, nil, exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeDeploymentFailed)
	}

	env := &tokenEnvironment{
		chain:  testChain,
		prober: balances.NewProber(testChain),
		token:  *result.CreatedAddress,
		raw:    raw,
	}
	if !raw {
		env.decimals, err = env.prober.Decimals(ctx, env.token)
		if err != nil {
			cmdLogger.Warn("Token does not report its decimals, amounts are in base units", err)
			env.raw = true
		}
	}
	cmdLogger.Info("Deployed ", colors.Bold, artifact.Name, colors.Reset, " to the local chain at ", env.token.Hex())
	return env, release, nil
}

// formatAmount formats an amount of base units for output.
func (e *tokenEnvironment) formatAmount(amount *big.Int) string {
	if e.raw {
		return amount.String()
	}
	return balances.FormatTokenAmount(amount, e.decimals)
}

// parseAmount parses an amount given on the command line into base units.
func (e *tokenEnvironment) parseAmount(amount string) (*big.Int, error) {
	if e.raw {
		return balances.ParseTokenAmount(amount, 0)
	}
	return balances.ParseTokenAmount(amount, e.decimals)
}

// cmdRunBalanceSlot executes the CLI balance slot command
func cmdRunBalanceSlot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, release, err := newTokenEnvironment(ctx, cmd, args)
	if err != nil {
		cmdLogger.Error("Failed to run the balance slot command", err)
		return err
	}
	defer release()

	slot, err := env.prober.FindBalanceSlot(ctx, env.token)
	if err != nil {
		cmdLogger.Error("Failed to run the balance slot command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	cmdLogger.Info("Balance mapping slot: ", colors.Bold, slot)
	return nil
}

// cmdRunBalanceGet executes the CLI balance get command
func cmdRunBalanceGet(cmd *cobra.Command, args []string) error {
	holder, err := utils.HexStringToAddress(args[0])
	if err != nil {
		cmdLogger.Error("Failed to run the balance get command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, release, err := newTokenEnvironment(ctx, cmd, args[1:])
	if err != nil {
		cmdLogger.Error("Failed to run the balance get command", err)
		return err
	}
	defer release()

	balance, err := env.prober.GetBalance(ctx, env.token, holder)
	if err != nil {
		cmdLogger.Error("Failed to run the balance get command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	cmdLogger.Info("Balance of ", holder.Hex(), ": ", colors.Bold, env.formatAmount(balance))
	return nil
}

// cmdRunBalanceSet executes the CLI balance set command
func cmdRunBalanceSet(cmd *cobra.Command, args []string) error {
	holder, err := utils.HexStringToAddress(args[0])
	if err != nil {
		cmdLogger.Error("Failed to run the balance set command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	env, release, err := newTokenEnvironment(ctx, cmd, args[2:])
	if err != nil {
		cmdLogger.Error("Failed to run the balance set command", err)
		return err
	}
	defer release()

	amount, err := env.parseAmount(args[1])
	if err != nil {
		cmdLogger.Error("Failed to run the balance set command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	if err = env.prober.SetBalance(ctx, env.token, holder, amount); err != nil {
		cmdLogger.Error("Failed to run the balance set command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Read the balance back through the token itself.
	balance, err := env.prober.GetBalance(ctx, env.token, holder)
	if err != nil {
		cmdLogger.Error("Failed to run the balance set command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	cmdLogger.Info("Balance of ", holder.Hex(), " set to ", colors.Bold, env.formatAmount(balance))
	return nil
}
