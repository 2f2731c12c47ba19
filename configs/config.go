package configs

import (
	"encoding/json"
	"os"

	"github.com/crytic/sollab/chain/config"
	"github.com/crytic/sollab/compilation"
	"github.com/crytic/sollab/wallet"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultConfigFileName is the project configuration file the CLI looks for in the working directory.
const DefaultConfigFileName = "sollab.json"

type ProjectConfig struct {
	// Compilation describes how sources are resolved and compiled.
	Compilation *compilation.CompilationConfig `json:"compilation"`

	// Chain describes the local simulated chain deployments go to when no wallet is connected.
	Chain config.TestChainConfig `json:"chain"`

	// Wallet describes how a live session is established.
	Wallet wallet.Config `json:"wallet"`

	// Workspace describes where workspace state is kept between runs.
	Workspace WorkspaceConfig `json:"workspace"`

	// Logging describes the configuration used for logging
	Logging LoggingConfig `json:"logging"`
}

// WorkspaceConfig describes the configuration options used for workspace state.
type WorkspaceConfig struct {
	// StateDatabase is the path of the database the editor state and deployed contract are kept in. If empty, state
	// is kept in memory and lost when the process exits.
	StateDatabase string `json:"stateDatabase"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level"`

	// EnableConsoleLogging describes whether console logging is enabled
	EnableConsoleLogging bool `json:"enableConsoleLogging"`

	// NoColor disables colored console output
	NoColor bool `json:"noColor"`

	// LogDirectory describes the directory where structured log _files_ will be outputted. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory"`
}

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the project configuration over the defaults, so omitted fields keep their default values
	projectConfig, err := GetDefaultProjectConfig("")
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	// A compilation config is required to compile anything
	if p.Compilation == nil {
		return errors.Errorf("project configuration must specify a compilation config")
	}
	if err := p.Compilation.Validate(); err != nil {
		return errors.WithStack(err)
	}

	// Verify the chain and wallet configs
	if err := p.Chain.Validate(); err != nil {
		return errors.Wrap(err, "invalid chain config")
	}
	if err := p.Wallet.Validate(); err != nil {
		return errors.Wrap(err, "invalid wallet config")
	}

	// Verify the logging level is one zerolog knows
	if p.Logging.Level < zerolog.TraceLevel || p.Logging.Level > zerolog.Disabled {
		return errors.Errorf("invalid log level %d", p.Logging.Level)
	}
	return nil
}
