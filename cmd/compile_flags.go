package cmd

import (
	"github.com/spf13/cobra"
)

// addCompileFlags adds the various flags for the compile command
func addCompileFlags() error {
	addProjectFlags(compileCmd)

	// Output
	compileCmd.Flags().Bool("abi", false, "print the contract ABI as emitted by the compiler")
	compileCmd.Flags().Bool("bytecode", false, "print the init bytecode of the contract")
	return nil
}

// compileOutputOptions lists what the compile command prints in addition to its summary.
type compileOutputOptions struct {
	abi      bool
	bytecode bool
}

// getCompileOutputOptions reads the output flags of the compile command.
func getCompileOutputOptions(cmd *cobra.Command) (compileOutputOptions, error) {
	var options compileOutputOptions
	var err error
	if options.abi, err = cmd.Flags().GetBool("abi"); err != nil {
		return options, err
	}
	if options.bytecode, err = cmd.Flags().GetBool("bytecode"); err != nil {
		return options, err
	}
	return options, nil
}
