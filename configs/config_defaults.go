package configs

import (
	"github.com/crytic/sollab/chain/config"
	"github.com/crytic/sollab/compilation"
	"github.com/crytic/sollab/wallet"
	"github.com/rs/zerolog"
)

// DefaultPlatform is the compiler platform used when none is specified.
const DefaultPlatform = "solc"

// GetDefaultProjectConfig obtains a default configuration for a project. It populates a default compilation config
// for the provided platform, or for DefaultPlatform if an empty string is provided.
func GetDefaultProjectConfig(platform string) (*ProjectConfig, error) {
	if platform == "" {
		platform = DefaultPlatform
	}
	compilationConfig, err := compilation.NewCompilationConfig(platform)
	if err != nil {
		return nil, err
	}

	// Create a project configuration
	projectConfig := &ProjectConfig{
		Compilation: compilationConfig,
		Chain:       *config.DefaultTestChainConfig(),
		Wallet:      wallet.DefaultConfig(),
		Workspace: WorkspaceConfig{
			StateDatabase: ".sollab/workspace.db",
		},
		Logging: LoggingConfig{
			Level:                zerolog.InfoLevel,
			EnableConsoleLogging: true,
		},
	}

	// Return the project configuration
	return projectConfig, nil
}
