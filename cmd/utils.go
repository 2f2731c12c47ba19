package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crytic/sollab/configs"
	"github.com/crytic/sollab/logging"
	"github.com/crytic/sollab/logging/colors"
	"github.com/crytic/sollab/utils"
	"github.com/crytic/sollab/workspace"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cmdValidFlagArgs returns the flags of cmd that have not been used yet, for dynamic completion.
func cmdValidFlagArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Gather a list of flags that are available to be used in the current command but have not been used yet
	var unusedFlags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveDefault
}

// readProjectConfig resolves the project configuration for a command:
// #1: If a config file was found (the --config path, or sollab.json in the working directory), read it.
// #2: If --config was used and the file could not be found, throw an error.
// #3: Otherwise, use the default project configuration.
// Flags shared by every command are applied on top, and the result is validated.
func readProjectConfig(cmd *cobra.Command) (*configs.ProjectConfig, error) {
	var projectConfig *configs.ProjectConfig

	// Check to see if --config flag was used and store the value of --config flag
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If --config was not used, look for `sollab.json` in the current work directory
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	// Check to see if the file exists at configPath
	_, existenceError := os.Stat(configPath)

	if existenceError == nil {
		// Possibility #1: File was found
		cmdLogger.Debug("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		projectConfig, err = configs.ReadProjectConfigFromFile(configPath)
		if err != nil {
			return nil, err
		}

		// Relative directories in the config are relative to the config file.
		if !filepath.IsAbs(projectConfig.Compilation.BaseDirectory) {
			projectConfig.Compilation.BaseDirectory = filepath.Join(filepath.Dir(configPath), projectConfig.Compilation.BaseDirectory)
		}
		if projectConfig.Workspace.StateDatabase != "" && !filepath.IsAbs(projectConfig.Workspace.StateDatabase) {
			projectConfig.Workspace.StateDatabase = filepath.Join(filepath.Dir(configPath), projectConfig.Workspace.StateDatabase)
		}
	} else if configFlagUsed {
		// Possibility #2: If the --config flag was used, and we couldn't find the file, we'll throw an error
		return nil, errors.WithStack(existenceError)
	} else {
		// Possibility #3: --config flag was not used and sollab.json was not found, so use the default project config
		cmdLogger.Debug("Unable to find the config file at ", configPath, ", using the default project configuration")
		projectConfig, err = configs.GetDefaultProjectConfig(DefaultCompilationPlatform)
		if err != nil {
			return nil, err
		}
	}

	// Update the project configuration given whatever flags were set using the CLI
	if err = updateProjectConfigWithProjectFlags(cmd, projectConfig); err != nil {
		return nil, err
	}
	if err = projectConfig.Validate(); err != nil {
		return nil, err
	}
	return projectConfig, nil
}

// setupLogging configures the global logger from the project configuration. It must be called before any component
// is created, since components derive their loggers at creation. Returns a function closing the log file, if any.
func setupLogging(projectConfig *configs.ProjectConfig) (func(), error) {
	logging.GlobalLogger = logging.NewLogger(projectConfig.Logging.Level)
	if projectConfig.Logging.NoColor {
		colors.DisableColor()
	}
	if projectConfig.Logging.EnableConsoleLogging {
		logging.GlobalLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, !projectConfig.Logging.NoColor)
	}
	if projectConfig.Logging.LogDirectory == "" {
		return func() {}, nil
	}

	logFile, err := utils.CreateFile(projectConfig.Logging.LogDirectory, fmt.Sprintf("sollab-%d.log", time.Now().Unix()))
	if err != nil {
		return nil, err
	}
	logging.GlobalLogger.AddWriter(logFile, logging.STRUCTURED, false)
	return func() {
		logFile.Close()
	}, nil
}

// projectWorkspace holds the persisted workspace state a command operates on.
type projectWorkspace struct {
	store     workspace.Store
	editor    *workspace.Editor
	contracts *workspace.Contracts
}

// openWorkspace opens the workspace state database named in the project configuration, or an in-memory store if
// none is configured.
func openWorkspace(projectConfig *configs.ProjectConfig) (*projectWorkspace, error) {
	var store workspace.Store = workspace.NewMemoryStore()
	if path := projectConfig.Workspace.StateDatabase; path != "" {
		if err := utils.MakeDirectory(filepath.Dir(path)); err != nil {
			return nil, errors.WithStack(err)
		}
		boltStore, err := workspace.OpenBoltStore(path)
		if err != nil {
			return nil, err
		}
		store = boltStore
	}

	editor, err := workspace.NewEditor(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	contracts, err := workspace.NewContracts(store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &projectWorkspace{store: store, editor: editor, contracts: contracts}, nil
}

// Close closes the workspace's store.
func (w *projectWorkspace) Close() {
	if err := w.store.Close(); err != nil {
		cmdLogger.Warn("Failed to close the workspace state database", err)
	}
}

// loadSourceArgument replaces the editor's code with the contents of the file named by the first positional argument,
// if there is one.
func loadSourceArgument(editor *workspace.Editor, args []string) error {
	if len(args) == 0 {
		return nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return errors.WithStack(err)
	}
	editor.SetCode(string(b))
	return nil
}
