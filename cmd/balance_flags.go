package cmd

import (
	"github.com/spf13/cobra"
)

// addBalanceFlags adds the flags shared by the balance subcommands to cmd
func addBalanceFlags(cmd *cobra.Command) {
	addProjectFlags(cmd)

	// Constructor arguments of the token
	cmd.Flags().StringArray("arg", []string{}, "token constructor argument, in declaration order (may be repeated)")

	// Amount scaling
	cmd.Flags().Bool("raw", false, "read and write amounts in base units instead of scaling by the token's decimals")
}
