package cmd

import (
	"github.com/crytic/sollab/configs"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() error {
	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file")

	// Compiler path
	initCmd.Flags().String("compiler", "", "path of the compiler executable")

	// Live deployment endpoint
	initCmd.Flags().String("rpc-url", "", "RPC endpoint used for live deployments")
	initCmd.Flags().Uint64("chain-id", 0, "chain id the RPC endpoint is expected to serve")

	// Overwrite without prompting
	initCmd.Flags().Bool("force", false, "overwrite an existing configuration file without prompting")
	return nil
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to
// the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *configs.ProjectConfig) error {
	var err error

	// Update compiler path
	if cmd.Flags().Changed("compiler") {
		projectConfig.Compilation.CompilerPath, err = cmd.Flags().GetString("compiler")
		if err != nil {
			return err
		}
	}

	// Update RPC endpoint
	if cmd.Flags().Changed("rpc-url") {
		projectConfig.Wallet.RPCUrl, err = cmd.Flags().GetString("rpc-url")
		if err != nil {
			return err
		}
	}

	// Update expected chain id
	if cmd.Flags().Changed("chain-id") {
		projectConfig.Wallet.ChainID, err = cmd.Flags().GetUint64("chain-id")
		if err != nil {
			return err
		}
	}
	return projectConfig.Validate()
}
