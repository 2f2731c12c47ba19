package deployment

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/crytic/medusa-geth/common"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/sollab/chain"
	"github.com/crytic/sollab/compilation"
	"github.com/crytic/sollab/compilation/sources"
	"github.com/crytic/sollab/compilation/types"
	"github.com/crytic/sollab/utils/testutils"
	"github.com/crytic/sollab/wallet"
	"github.com/crytic/sollab/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenSource = `// SPDX-License-Identifier: MIT
pragma solidity ^0.8.20;

contract Token {
    mapping(address => uint256) public balanceOf;

    constructor(uint256 supply) {}
}
`

// tokenAbi extends the mapping token's ABI with a constructor taking the initial supply.
var tokenAbi = strings.Replace(testutils.MappingTokenABI, "[", `[{"type":"constructor","inputs":[{"name":"supply","type":"uint256"}]},`, 1)

// fakeChannel answers every compile request with a Token artifact built from initCode.
type fakeChannel struct {
	lock     sync.Mutex
	initCode []byte
	requests int
}

// Compile implements compilation.CompilerChannel.
func (f *fakeChannel) Compile(ctx context.Context, closure types.SourceMap, settings types.CompilerSettings) (*types.CompileResponse, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.requests++
	output := &types.CompilerOutput{
		Contracts: map[string]map[string]types.ContractOutput{
			compilation.DefaultRootPath: {
				"Token": {
					Abi: json.RawMessage(tokenAbi),
					Evm: types.EVMOutput{Bytecode: types.BytecodeOutput{Object: hex.EncodeToString(f.initCode)}},
				},
			},
		},
	}
	return &types.CompileResponse{Success: true, Output: output}, nil
}

// fakeSession is a wallet capability pair with scripted results.
type fakeSession struct {
	sent     [][]byte
	sendErr  error
	receipt  *gethTypes.Receipt
	waitErr  error
	waitedOn []common.Hash
}

// SendDeployment implements wallet.Signer.
func (f *fakeSession) SendDeployment(ctx context.Context, data []byte) (common.Hash, error) {
	f.sent = append(f.sent, data)
	return common.HexToHash("0xabc"), f.sendErr
}

// WaitForReceipt implements wallet.Reader.
func (f *fakeSession) WaitForReceipt(ctx context.Context, txHash common.Hash) (*gethTypes.Receipt, error) {
	f.waitedOn = append(f.waitedOn, txHash)
	return f.receipt, f.waitErr
}

// testEnvironment bundles a Deployer with its collaborators.
type testEnvironment struct {
	deployer  *Deployer
	channel   *fakeChannel
	editor    *workspace.Editor
	contracts *workspace.Contracts
	chain     *chain.TestChain
	wallet    *wallet.Manager
}

func newTestEnvironment(t *testing.T) *testEnvironment {
	editor, err := workspace.NewEditor(nil)
	require.NoError(t, err)
	editor.SetCode(tokenSource)
	contracts, err := workspace.NewContracts(nil)
	require.NoError(t, err)
	testChain, err := chain.NewTestChain(context.Background(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(testChain.Close)

	channel := &fakeChannel{initCode: testutils.MappingTokenInitCode(0)}
	resolver := sources.NewResolver(sources.NewLocator(sources.DefaultPackages(), false), sources.MapLoader{})
	compiler := compilation.NewCompiler(channel, resolver, editor, types.CompilerSettings{})
	manager := wallet.NewManager()

	return &testEnvironment{
		deployer:  NewDeployer(compiler, testChain, editor, contracts, manager),
		channel:   channel,
		editor:    editor,
		contracts: contracts,
		chain:     testChain,
		wallet:    manager,
	}
}

// connect installs a live session over fake capabilities.
func (e *testEnvironment) connect(fake *fakeSession) {
	hardhat, _ := wallet.ChainByID(31337)
	e.wallet.Use(wallet.Session{Address: common.HexToAddress("0x01"), Chain: hardhat, Connected: true, Signer: fake, Reader: fake}, nil)
}

// TestDeployLocal ensures a local deployment compiles once, deploys and records the contract.
func TestDeployLocal(t *testing.T) {
	env := newTestEnvironment(t)

	var started []DeploymentStartedEvent
	env.deployer.Events.DeploymentStarted.Subscribe(func(event DeploymentStartedEvent) error {
		started = append(started, event)
		return nil
	})
	var finished []DeploymentFinishedEvent
	env.deployer.Events.DeploymentFinished.Subscribe(func(event DeploymentFinishedEvent) error {
		finished = append(finished, event)
		return nil
	})

	outcome, err := env.deployer.DeployWithRawArgs(context.Background(), []string{"1000"})
	require.NoError(t, err)
	assert.True(t, outcome.Compiled)
	assert.Equal(t, "local", outcome.Strategy)
	assert.Equal(t, LocalNetwork, outcome.Contract.Network)
	assert.Equal(t, "Token", outcome.Contract.Name)
	assert.Equal(t, testutils.MappingTokenRuntimeCode(0), env.chain.GetCode(outcome.Contract.Address))

	state := env.editor.Snapshot()
	assert.Equal(t, "Deployed successfully at: "+outcome.Contract.Address.Hex(), state.Status)
	assert.False(t, state.Busy)

	stored, ok := env.contracts.Get()
	require.True(t, ok)
	assert.Equal(t, outcome.Contract.Address, stored.Address)
	assert.JSONEq(t, tokenAbi, string(stored.Abi))

	require.Len(t, started, 1)
	assert.Equal(t, "Token", started[0].Artifact.Name)
	require.Len(t, finished, 1)
	assert.NoError(t, finished[0].Err)

	// The cached artifact is reused.
	second, err := env.deployer.DeployWithRawArgs(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.False(t, second.Compiled)
	assert.Equal(t, 1, env.channel.requests)
	assert.NotEqual(t, outcome.Contract.Address, second.Contract.Address)
}

// TestFailedRedeployKeepsContract ensures a failed deployment leaves the last good contract reference in place.
func TestFailedRedeployKeepsContract(t *testing.T) {
	env := newTestEnvironment(t)
	first, err := env.deployer.DeployWithRawArgs(context.Background(), []string{"1"})
	require.NoError(t, err)

	env.channel.initCode = testutils.RevertingInitCode
	env.editor.SetCode(tokenSource + "\n// changed\n")
	_, err = env.deployer.DeployWithRawArgs(context.Background(), []string{"1"})
	require.Error(t, err)
	assert.True(t, IsDeployErrorKind(err, LocalExecutionFailed))
	assert.True(t, strings.HasPrefix(env.editor.Snapshot().Status, "Deployment Error: execution reverted"))

	stored, ok := env.contracts.Get()
	require.True(t, ok)
	assert.Equal(t, first.Contract.Address, stored.Address)
	assert.False(t, env.editor.Snapshot().Busy)
}

// TestDeployCompileFailure ensures a compile failure aborts the deployment and keeps the compiler's status.
func TestDeployCompileFailure(t *testing.T) {
	env := newTestEnvironment(t)
	env.editor.SetCode("pragma solidity ^0.8.0;\n")

	_, err := env.deployer.Deploy(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsDeployErrorKind(err, CompileFailed))
	assert.True(t, compilation.IsCompileErrorKind(err, compilation.ExtractionFailed))
	assert.Equal(t, compilation.StatusMissingName, env.editor.Snapshot().Status)
	assert.Equal(t, 0, env.channel.requests)
	_, ok := env.contracts.Get()
	assert.False(t, ok)
}

// TestDeployBusy ensures overlapping operations observe the busy state instead of interleaving.
func TestDeployBusy(t *testing.T) {
	env := newTestEnvironment(t)
	require.True(t, env.editor.TryBeginBusy())

	_, err := env.deployer.Deploy(context.Background(), []any{})
	assert.True(t, IsDeployErrorKind(err, Busy))
	assert.Equal(t, 0, env.channel.requests)

	env.editor.EndBusy()
	_, err = env.deployer.DeployWithRawArgs(context.Background(), []string{"5"})
	assert.NoError(t, err)
}

// TestDeployInvalidArguments ensures unparsable constructor arguments fail before anything is submitted.
func TestDeployInvalidArguments(t *testing.T) {
	env := newTestEnvironment(t)
	_, err := env.deployer.DeployWithRawArgs(context.Background(), []string{"not a number"})
	assert.True(t, IsDeployErrorKind(err, InvalidArguments))
	assert.True(t, strings.HasPrefix(env.editor.Snapshot().Status, "Error: "))
	assert.EqualValues(t, 0, env.chain.HeadBlockNumber())
}

// TestDeployLive ensures a deployable session takes the live path and records the receipt's address.
func TestDeployLive(t *testing.T) {
	env := newTestEnvironment(t)
	created := common.HexToAddress("0x00000000000000000000000000000000000c0de")
	fake := &fakeSession{receipt: &gethTypes.Receipt{Status: gethTypes.ReceiptStatusSuccessful, ContractAddress: created}}
	env.connect(fake)

	outcome, err := env.deployer.DeployWithRawArgs(context.Background(), []string{"7"})
	require.NoError(t, err)
	assert.Equal(t, created, outcome.Contract.Address)
	assert.Equal(t, "hardhat", outcome.Contract.Network)
	require.NotNil(t, outcome.Contract.TransactionHash)
	assert.Equal(t, common.HexToHash("0xabc"), *outcome.Contract.TransactionHash)
	assert.Equal(t, []common.Hash{common.HexToHash("0xabc")}, fake.waitedOn)

	// The deployment data carries the init code followed by the encoded supply.
	require.Len(t, fake.sent, 1)
	initCode := testutils.MappingTokenInitCode(0)
	assert.Equal(t, initCode, fake.sent[0][:len(initCode)])
	assert.Equal(t, common.LeftPadBytes([]byte{7}, 32), fake.sent[0][len(initCode):])
	assert.EqualValues(t, 0, env.chain.HeadBlockNumber())
}

// TestDeployLiveFailures ensures live failures are classified and never replace the stored contract.
func TestDeployLiveFailures(t *testing.T) {
	env := newTestEnvironment(t)
	first, err := env.deployer.DeployWithRawArgs(context.Background(), []string{"1"})
	require.NoError(t, err)

	fake := &fakeSession{receipt: &gethTypes.Receipt{Status: gethTypes.ReceiptStatusSuccessful}}
	env.connect(fake)
	_, err = env.deployer.DeployWithRawArgs(context.Background(), []string{"1"})
	assert.True(t, IsDeployErrorKind(err, ReceiptMissingAddress))
	assert.Equal(t, StatusReceiptMissingAddress, env.editor.Snapshot().Status)

	fake.sendErr = errors.New("insufficient funds for gas")
	_, err = env.deployer.DeployWithRawArgs(context.Background(), []string{"1"})
	assert.True(t, IsDeployErrorKind(err, TransactionFailed))
	assert.Equal(t, "Error: insufficient funds for gas", env.editor.Snapshot().Status)

	fake.sendErr = nil
	fake.receipt = &gethTypes.Receipt{Status: gethTypes.ReceiptStatusFailed, ContractAddress: common.HexToAddress("0x02")}
	_, err = env.deployer.DeployWithRawArgs(context.Background(), []string{"1"})
	assert.True(t, IsDeployErrorKind(err, TransactionFailed))

	fake.receipt = nil
	fake.waitErr = wallet.ErrReceiptTimeout
	_, err = env.deployer.DeployWithRawArgs(context.Background(), []string{"1"})
	assert.True(t, IsDeployErrorKind(err, TransactionFailed))
	assert.ErrorIs(t, err, wallet.ErrReceiptTimeout)

	stored, ok := env.contracts.Get()
	require.True(t, ok)
	assert.Equal(t, first.Contract.Address, stored.Address)
	assert.Equal(t, LocalNetwork, stored.Network)
}

// TestDeployFallsBackToLocal ensures a session lacking a capability deploys locally.
func TestDeployFallsBackToLocal(t *testing.T) {
	env := newTestEnvironment(t)
	fake := &fakeSession{}
	env.wallet.Use(wallet.Session{Connected: true, Signer: fake}, nil)

	outcome, err := env.deployer.DeployWithRawArgs(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, LocalNetwork, outcome.Contract.Network)
	assert.Empty(t, fake.sent)
}
