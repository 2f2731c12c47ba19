package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/sollab/cmd/exitcodes"
	"github.com/crytic/sollab/configs"
	"github.com/crytic/sollab/utils/testutils"
	"github.com/crytic/sollab/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args in directory and returns its error.
func executeCommand(t *testing.T, directory string, args ...string) error {
	var err error
	testutils.ExecuteInDirectory(t, directory, func() {
		rootCmd.SetArgs(args)
		err = rootCmd.Execute()
	})
	return err
}

// TestInitCommand ensures init writes a valid default configuration for the requested platform.
func TestInitCommand(t *testing.T) {
	directory := t.TempDir()
	outputPath := filepath.Join(directory, DefaultProjectConfigFilename)

	require.NoError(t, executeCommand(t, directory, "init", "--out", outputPath))
	projectConfig, err := configs.ReadProjectConfigFromFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, "solc", projectConfig.Compilation.Platform)
	assert.NoError(t, projectConfig.Validate())

	// Overwriting without a prompt requires --force.
	require.NoError(t, executeCommand(t, directory, "init", "solcjs", "--out", outputPath, "--force", "--rpc-url", "http://localhost:9545"))
	projectConfig, err = configs.ReadProjectConfigFromFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, "solcjs", projectConfig.Compilation.Platform)
	assert.Equal(t, "http://localhost:9545", projectConfig.Wallet.RPCUrl)
}

// TestInitCommandInvalidPlatform ensures unsupported platforms are rejected as handled errors.
func TestInitCommandInvalidPlatform(t *testing.T) {
	directory := t.TempDir()
	err := executeCommand(t, directory, "init", "truffle", "--out", filepath.Join(directory, "config.json"))
	require.Error(t, err)

	_, exitCode := exitcodes.GetInnerErrorAndExitCode(err)
	assert.Equal(t, exitcodes.ExitCodeHandledError, exitCode)
	assert.NoFileExists(t, filepath.Join(directory, "config.json"))
}

// TestResetCommand ensures reset restores the default source and forgets the deployed contract.
func TestResetCommand(t *testing.T) {
	directory := t.TempDir()
	databasePath := filepath.Join(directory, "state", "workspace.db")

	// Seed the workspace with custom code, a status and a deployed contract.
	ws, err := openWorkspace(&configs.ProjectConfig{Workspace: configs.WorkspaceConfig{StateDatabase: databasePath}})
	require.NoError(t, err)
	ws.editor.SetCode("contract A {}")
	ws.editor.SetStatus("Deployed successfully at: 0x01")
	require.NoError(t, ws.contracts.Set(workspace.DeployedContract{
		Address:    common.HexToAddress("0x01"),
		Abi:        json.RawMessage(`[]`),
		Name:       "A",
		Network:    "local",
		DeployedAt: time.Now(),
	}))
	ws.Close()

	require.NoError(t, executeCommand(t, directory, "status", "--state-db", databasePath))
	require.NoError(t, executeCommand(t, directory, "reset", "--state-db", databasePath))

	store, err := workspace.OpenBoltStore(databasePath)
	require.NoError(t, err)
	defer store.Close()
	editor, err := workspace.NewEditor(store)
	require.NoError(t, err)
	assert.Equal(t, workspace.DefaultCode, editor.Snapshot().Code)
	assert.Empty(t, editor.Snapshot().Status)

	contracts, err := workspace.NewContracts(store)
	require.NoError(t, err)
	_, ok := contracts.Get()
	assert.False(t, ok)
}

// TestCompileCommandArgs ensures the compile command rejects more than one file.
func TestCompileCommandArgs(t *testing.T) {
	err := executeCommand(t, t.TempDir(), "compile", "a.sol", "b.sol")
	require.Error(t, err)
	_, exitCode := exitcodes.GetInnerErrorAndExitCode(err)
	assert.Equal(t, exitcodes.ExitCodeHandledError, exitCode)
}
