package workspace

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/sollab/compilation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterAbi = `[{"type":"function","name":"count","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}]`

// testArtifact returns a valid artifact for tests.
func testArtifact(t *testing.T) *types.ContractArtifact {
	artifact, err := types.NewContractArtifact("contract.sol", "Counter", types.ContractOutput{
		Abi: json.RawMessage(counterAbi),
		Evm: types.EVMOutput{Bytecode: types.BytecodeOutput{Object: "6000"}},
	})
	require.NoError(t, err)
	return artifact
}

// TestEditorPersistence ensures code and status survive reopening the store while the artifact does not.
func TestEditorPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "workspace.db")
	store, err := OpenBoltStore(path)
	require.NoError(t, err)

	editor, err := NewEditor(store)
	require.NoError(t, err)
	assert.Equal(t, DefaultCode, editor.Snapshot().Code)

	editor.SetCode("contract Foo {}")
	editor.SetCompiled(testArtifact(t), "Compilation successful")
	assert.True(t, editor.Snapshot().Compiled())
	require.NoError(t, store.Close())

	store, err = OpenBoltStore(path)
	require.NoError(t, err)
	defer store.Close()
	reopened, err := NewEditor(store)
	require.NoError(t, err)

	state := reopened.Snapshot()
	assert.Equal(t, "contract Foo {}", state.Code)
	assert.Equal(t, "Compilation successful", state.Status)
	assert.Nil(t, state.Artifact)
	assert.False(t, state.Compiled())
}

// TestEditorArtifactLifecycle ensures the artifact is replaced or dropped as a unit.
func TestEditorArtifactLifecycle(t *testing.T) {
	editor, err := NewEditor(nil)
	require.NoError(t, err)

	artifact := testArtifact(t)
	editor.SetCompiled(artifact, "ok")
	assert.Same(t, artifact, editor.Snapshot().Artifact)

	// Setting identical code keeps the artifact; changing it drops it
	editor.SetCode(editor.Snapshot().Code)
	assert.NotNil(t, editor.Snapshot().Artifact)
	editor.SetCode("contract Other {}")
	assert.Nil(t, editor.Snapshot().Artifact)

	editor.SetCompiled(artifact, "ok")
	editor.SetCompileFailed("Compilation Error: boom", "boom")
	state := editor.Snapshot()
	assert.Nil(t, state.Artifact)
	assert.Equal(t, "boom", state.CompilationError)
	assert.Equal(t, "Compilation Error: boom", state.Status)

	editor.Reset()
	assert.Equal(t, EditorState{Code: DefaultCode}, editor.Snapshot())
}

// TestEditorBusyFlag ensures only one of many concurrent callers acquires the busy flag.
func TestEditorBusyFlag(t *testing.T) {
	editor, err := NewEditor(nil)
	require.NoError(t, err)

	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if editor.TryBeginBusy() {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, acquired.Load())
	assert.True(t, editor.Snapshot().Busy)

	editor.EndBusy()
	assert.False(t, editor.Snapshot().Busy)
	assert.True(t, editor.TryBeginBusy())
}

// TestContracts ensures references are validated, replaced wholesale, persisted and cleared.
func TestContracts(t *testing.T) {
	store := NewMemoryStore()
	contracts, err := NewContracts(store)
	require.NoError(t, err)

	_, ok := contracts.Get()
	assert.False(t, ok)

	assert.ErrorIs(t, contracts.Set(DeployedContract{Abi: json.RawMessage(counterAbi)}), ErrInvalidContract)
	assert.ErrorIs(t, contracts.Set(DeployedContract{Address: common.HexToAddress("0x1")}), ErrInvalidContract)

	first := DeployedContract{Address: common.HexToAddress("0x1"), Abi: json.RawMessage(counterAbi), Name: "Counter"}
	require.NoError(t, contracts.Set(first))
	second := DeployedContract{Address: common.HexToAddress("0x2"), Abi: json.RawMessage(counterAbi)}
	require.NoError(t, contracts.Set(second))

	current, ok := contracts.Get()
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0x2"), current.Address)
	assert.Empty(t, current.Name)

	// A new Contracts over the same store sees the persisted reference
	restored, err := NewContracts(store)
	require.NoError(t, err)
	current, ok = restored.Get()
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0x2"), current.Address)

	require.NoError(t, restored.Clear())
	_, ok = restored.Get()
	assert.False(t, ok)
	found, err := store.Get(contractKey, &DeployedContract{})
	require.NoError(t, err)
	assert.False(t, found)
}
