package cmd

import (
	"os"

	"github.com/crytic/sollab/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cmdLogger is the logger used by the commands before, and in addition to, the configured global logger.
var cmdLogger = logging.NewLogger(zerolog.InfoLevel)

// rootCmd represents the root CLI command object which all other commands stem from.
var rootCmd = &cobra.Command{
	Use:   "sollab",
	Short: "A Solidity scratchpad that compiles and deploys single contracts",
	Long:  "sollab compiles a Solidity source together with its imports and deploys it to a local simulated chain or a live network",
}

func init() {
	cmdLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, true)
}

// Execute provides an exportable function to invoke the CLI. Returns an error if one was encountered.
func Execute() error {
	return rootCmd.Execute()
}
