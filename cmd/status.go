package cmd

import (
	"github.com/crytic/sollab/cmd/exitcodes"
	"github.com/crytic/sollab/logging/colors"
	"github.com/spf13/cobra"
)

// statusCmd represents the command provider for status
var statusCmd = &cobra.Command{
	Use:               "status",
	Short:             "Shows the persisted workspace state",
	Long:              `Shows the status of the last operation, the last compilation error and the last deployed contract`,
	Args:              cmdValidateNoArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunStatus,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	addProjectFlags(statusCmd)
	statusCmd.Flags().Bool("code", false, "print the workspace source code")
	statusCmd.Flags().Bool("abi", false, "print the ABI of the deployed contract")
	rootCmd.AddCommand(statusCmd)
}

// cmdValidateNoArgs makes sure that no positional arguments are provided
func cmdValidateNoArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		err = exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
		cmdLogger.Error("Failed to validate args to the "+cmd.Name()+" command", err)
		return err
	}
	return nil
}

// cmdRunStatus executes the CLI status command
func cmdRunStatus(cmd *cobra.Command, args []string) error {
	projectConfig, err := readProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the status command", err)
		return err
	}
	printCode, err := cmd.Flags().GetBool("code")
	if err != nil {
		cmdLogger.Error("Failed to run the status command", err)
		return err
	}
	printAbi, err := cmd.Flags().GetBool("abi")
	if err != nil {
		cmdLogger.Error("Failed to run the status command", err)
		return err
	}

	ws, err := openWorkspace(projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the status command", err)
		return err
	}
	defer ws.Close()

	state := ws.editor.Snapshot()
	if state.Status == "" {
		cmdLogger.Info("Status: ", colors.DarkGray, "none")
	} else {
		cmdLogger.Info("Status: ", colors.Bold, state.Status)
	}
	if state.CompilationError != "" {
		cmdLogger.Info("Last compilation error: ", colors.Red, state.CompilationError)
	}
	if printCode {
		cmdLogger.Info(state.Code)
	}

	contract, ok := ws.contracts.Get()
	if !ok {
		cmdLogger.Info("No contract has been deployed")
		return nil
	}
	cmdLogger.Info("Deployed contract: ", colors.Bold, contract.Name, colors.Reset, " at ", contract.Address.Hex(), " on ", contract.Network)
	cmdLogger.Info("Deployed at: ", contract.DeployedAt.Local().Format("2006-01-02 15:04:05"))
	if contract.TransactionHash != nil {
		cmdLogger.Info("Transaction: ", contract.TransactionHash.Hex())
	}
	if printAbi {
		cmdLogger.Info(string(contract.Abi))
	}
	return nil
}
