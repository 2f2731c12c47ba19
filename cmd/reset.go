package cmd

import (
	"github.com/spf13/cobra"
)

// resetCmd represents the command provider for reset
var resetCmd = &cobra.Command{
	Use:               "reset",
	Short:             "Restores the workspace to its initial state",
	Long:              `Restores the default source code and forgets the status and the last deployed contract`,
	Args:              cmdValidateNoArgs,
	ValidArgsFunction: cmdValidFlagArgs,
	RunE:              cmdRunReset,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	addProjectFlags(resetCmd)
	rootCmd.AddCommand(resetCmd)
}

// cmdRunReset executes the CLI reset command
func cmdRunReset(cmd *cobra.Command, args []string) error {
	projectConfig, err := readProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the reset command", err)
		return err
	}

	ws, err := openWorkspace(projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the reset command", err)
		return err
	}
	defer ws.Close()

	ws.editor.Reset()
	if err = ws.contracts.Clear(); err != nil {
		cmdLogger.Error("Failed to run the reset command", err)
		return err
	}
	cmdLogger.Info("Workspace reset")
	return nil
}
