package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/crytic/sollab/chain"
	"github.com/crytic/sollab/cmd/exitcodes"
	"github.com/crytic/sollab/configs"
	"github.com/crytic/sollab/deployment"
	"github.com/crytic/sollab/logging/colors"
	"github.com/crytic/sollab/wallet"
	"github.com/spf13/cobra"
)

// deployCmd represents the command provider for deploy
var deployCmd = &cobra.Command{
	Use:   "deploy [file]",
	Short: "Compiles and deploys the workspace contract",
	Long: `Compiles the workspace contract, or the contract in the given file, and deploys it.
Contracts are deployed to an in-process chain unless --live is set, in which case the deployment transaction is
signed with the configured private key and sent to the configured RPC endpoint.`,
	Args:              cmdValidateDeployArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunDeploy,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the deploy command
	err := addDeployFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the deploy command", err)
	}

	// Add the deploy command and its associated flags to the root command
	rootCmd.AddCommand(deployCmd)
}

// cmdValidateDeployArgs makes sure that there are no more than one positional argument provided to the deploy command
func cmdValidateDeployArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
		err = exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		cmdLogger.Error("Failed to validate args to the deploy command", err)
		return err
	}
	return nil
}

// connectWallet connects manager to the configured RPC endpoint, reading the private key from the configured
// environment variable.
func connectWallet(ctx context.Context, manager *wallet.Manager, projectConfig *configs.ProjectConfig) error {
	keyVariable := projectConfig.Wallet.PrivateKeyEnvironmentVariable
	privateKey, ok := os.LookupEnv(keyVariable)
	if !ok || privateKey == "" {
		return fmt.Errorf("environment variable %v does not hold a private key", keyVariable)
	}
	session, err := manager.Connect(ctx, projectConfig.Wallet, privateKey)
	if err != nil {
		return err
	}
	cmdLogger.Info("Connected to ", colors.Bold, session.Chain, colors.Reset, " as ", session.Address)
	return nil
}

// cmdRunDeploy executes the CLI deploy command
func cmdRunDeploy(cmd *cobra.Command, args []string) error {
	projectConfig, err := readProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the deploy command", err)
		return err
	}
	if err = updateProjectConfigWithDeployFlags(cmd, projectConfig); err != nil {
		cmdLogger.Error("Failed to run the deploy command", err)
		return err
	}
	closeLog, err := setupLogging(projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the deploy command", err)
		return err
	}
	defer closeLog()

	rawArgs, err := cmd.Flags().GetStringArray("arg")
	if err != nil {
		cmdLogger.Error("Failed to run the deploy command", err)
		return err
	}
	live, err := cmd.Flags().GetBool("live")
	if err != nil {
		cmdLogger.Error("Failed to run the deploy command", err)
		return err
	}

	ws, err := openWorkspace(projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the deploy command", err)
		return err
	}
	defer ws.Close()

	if err = loadSourceArgument(ws.editor, args); err != nil {
		cmdLogger.Error("Failed to run the deploy command", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	compiler, compilerChannel, err := newProjectCompiler(ctx, projectConfig, ws)
	if err != nil {
		cmdLogger.Error("Failed to run the deploy command", err)
		return err
	}
	defer compilerChannel.Close()

	localChain, err := chain.NewTestChain(ctx, nil, &projectConfig.Chain)
	if err != nil {
		cmdLogger.Error("Failed to run the deploy command", err)
		return err
	}
	defer localChain.Close()

	manager := wallet.NewManager()
	defer manager.Disconnect()
	if live {
		if err = connectWallet(ctx, manager, projectConfig); err != nil {
			cmdLogger.Error("Failed to run the deploy command", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeDeploymentFailed)
		}
	}

	deployer := deployment.NewDeployer(compiler, localChain, ws.editor, ws.contracts, manager)
	outcome, err := deployer.DeployWithRawArgs(ctx, rawArgs)
	if err != nil {
		cmdLogger.Error("Failed to run the deploy command", err)
		if deployment.IsDeployErrorKind(err, deployment.CompileFailed) {
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeCompilationFailed)
		}
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeDeploymentFailed)
	}

	contract := outcome.Contract
	cmdLogger.Info(colors.Green, ws.editor.Snapshot().Status)
	cmdLogger.Info("Contract: ", colors.Bold, contract.Name, colors.Reset, " on ", contract.Network)
	if contract.TransactionHash != nil {
		cmdLogger.Info("Transaction: ", contract.TransactionHash.Hex())
	}
	return nil
}
