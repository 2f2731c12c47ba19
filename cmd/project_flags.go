package cmd

import (
	"github.com/crytic/sollab/configs"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// addProjectFlags adds the flags shared by every command that reads the project configuration.
func addProjectFlags(cmd *cobra.Command) {
	// Config file
	cmd.Flags().String("config", "", "path to config file")

	// Compiler path
	cmd.Flags().String("compiler", "", "path of the compiler executable (unless a config file is provided, the platform default is used)")

	// Workspace state
	cmd.Flags().String("state-db", "", "path of the workspace state database")
	cmd.Flags().Bool("ephemeral", false, "keep workspace state in memory only")

	// Logging
	cmd.Flags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	cmd.Flags().Bool("no-color", false, "disable colored output")
}

// updateProjectConfigWithProjectFlags will update the given projectConfig with any shared CLI arguments that were
// provided.
func updateProjectConfigWithProjectFlags(cmd *cobra.Command, projectConfig *configs.ProjectConfig) error {
	var err error

	// Update compiler path
	if cmd.Flags().Changed("compiler") {
		projectConfig.Compilation.CompilerPath, err = cmd.Flags().GetString("compiler")
		if err != nil {
			return err
		}
	}

	// Update workspace state database
	if cmd.Flags().Changed("state-db") {
		projectConfig.Workspace.StateDatabase, err = cmd.Flags().GetString("state-db")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("ephemeral") {
		ephemeral, err := cmd.Flags().GetBool("ephemeral")
		if err != nil {
			return err
		}
		if ephemeral {
			projectConfig.Workspace.StateDatabase = ""
		}
	}

	// Update logging
	if cmd.Flags().Changed("log-level") {
		levelName, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		projectConfig.Logging.Level, err = zerolog.ParseLevel(levelName)
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("no-color") {
		projectConfig.Logging.NoColor, err = cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
	}
	return nil
}
