package cmd

import (
	"github.com/crytic/sollab/configs"
	"github.com/spf13/cobra"
)

// addDeployFlags adds the various flags for the deploy command
func addDeployFlags() error {
	addProjectFlags(deployCmd)

	// Constructor arguments
	deployCmd.Flags().StringArray("arg", []string{}, "constructor argument, in declaration order (may be repeated)")

	// Live deployment
	deployCmd.Flags().Bool("live", false, "deploy through the configured RPC endpoint instead of the local chain")
	deployCmd.Flags().String("rpc-url", "", "RPC endpoint used for live deployments")
	deployCmd.Flags().Uint64("chain-id", 0, "chain id the RPC endpoint is expected to serve")
	deployCmd.Flags().String("key-env", "", "environment variable holding the deployer private key")
	return nil
}

// updateProjectConfigWithDeployFlags will update the given projectConfig with any CLI arguments that were provided
// to the deploy command
func updateProjectConfigWithDeployFlags(cmd *cobra.Command, projectConfig *configs.ProjectConfig) error {
	var err error

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

	// Update private key environment variable
	if cmd.Flags().Changed("key-env") {
		projectConfig.Wallet.PrivateKeyEnvironmentVariable, err = cmd.Flags().GetString("key-env")
		if err != nil {
			return err
		}
	}
	return projectConfig.Wallet.Validate()
}
