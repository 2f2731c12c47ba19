package chain

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/sollab/chain/config"
	"github.com/crytic/sollab/utils/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createChain creates a TestChain with the default config.
func createChain(t *testing.T) *TestChain {
	chain, err := NewTestChain(context.Background(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(chain.Close)
	return chain
}

// tokenAbi parses the ABI of the hand-assembled mapping token.
func tokenAbi(t *testing.T) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(testutils.MappingTokenABI))
	require.NoError(t, err)
	return &parsed
}

// TestNewTestChainFundsDeployer ensures the configured deployer is funded at genesis and extra allocations are kept.
func TestNewTestChainFundsDeployer(t *testing.T) {
	funded := common.HexToAddress("0x1234")
	alloc := gethTypes.GenesisAlloc{funded: {Balance: big.NewInt(99)}}
	chainConfig := config.DefaultTestChainConfig()
	chainConfig.ChainID = 31337

	chain, err := NewTestChain(context.Background(), alloc, chainConfig)
	require.NoError(t, err)
	defer chain.Close()

	_, expectedBalance, err := chainConfig.Deployer()
	require.NoError(t, err)
	assert.Equal(t, expectedBalance.String(), chain.GetBalance(chain.DeployerAddress()).String())
	assert.Equal(t, "99", chain.GetBalance(funded).String())
	assert.Equal(t, "31337", chain.ChainID().String())
	assert.EqualValues(t, 0, chain.HeadBlockNumber())
	assert.Len(t, alloc, 1, "the caller's allocation must not be modified")
}

// TestNewTestChainInvalidConfig ensures invalid configurations are rejected.
func TestNewTestChainInvalidConfig(t *testing.T) {
	chainConfig := config.DefaultTestChainConfig()
	chainConfig.DeployerAddress = "not an address"
	_, err := NewTestChain(context.Background(), nil, chainConfig)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewTestChain(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestDeployContractCommitted ensures a committed deployment creates code at the predicted address in a new block.
func TestDeployContractCommitted(t *testing.T) {
	chain := createChain(t)
	expected := crypto.CreateAddress(chain.DeployerAddress(), 0)

	var deployed []ContractDeployedEvent
	chain.Events.ContractDeployed.Subscribe(func(event ContractDeployedEvent) error {
		deployed = append(deployed, event)
		return nil
	})
	var committed []BlockCommittedEvent
	chain.Events.BlockCommitted.Subscribe(func(event BlockCommittedEvent) error {
		committed = append(committed, event)
		return nil
	})

	result, err := chain.DeployContract(DeployRequest{
		Abi:      tokenAbi(t),
		Bytecode: testutils.MappingTokenInitCode(3),
		Commit:   true,
	})
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.NotNil(t, result.CreatedAddress)
	assert.Equal(t, expected, *result.CreatedAddress)
	assert.Equal(t, testutils.MappingTokenRuntimeCode(3), chain.GetCode(expected))
	assert.EqualValues(t, 1, chain.HeadBlockNumber())
	assert.EqualValues(t, 1, result.BlockNumber)
	assert.EqualValues(t, 1, chain.GetNonce(chain.DeployerAddress()))

	require.Len(t, deployed, 1)
	assert.Equal(t, expected, deployed[0].Address)
	require.Len(t, committed, 1)
	assert.Equal(t, chain.Head().Hash, committed[0].Block.Hash)

	// A second deployment uses the next nonce.
	result, err = chain.DeployContract(DeployRequest{Bytecode: testutils.MappingTokenInitCode(3), Commit: true})
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(chain.DeployerAddress(), 1), *result.CreatedAddress)
}

// TestDeployContractSimulated ensures an uncommitted deployment reports an address without changing the chain.
func TestDeployContractSimulated(t *testing.T) {
	chain := createChain(t)

	result, err := chain.DeployContract(DeployRequest{Bytecode: testutils.MappingTokenInitCode(0)})
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.NotNil(t, result.CreatedAddress)
	assert.Empty(t, chain.GetCode(*result.CreatedAddress))
	assert.EqualValues(t, 0, chain.HeadBlockNumber())
	assert.EqualValues(t, 0, chain.GetNonce(chain.DeployerAddress()))
}

// TestDeployContractFailures ensures failed deployments are reported as structured errors without a created address.
func TestDeployContractFailures(t *testing.T) {
	chain := createChain(t)

	result, err := chain.DeployContract(DeployRequest{Bytecode: testutils.RevertingInitCode, Commit: true})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "execution reverted")
	assert.Nil(t, result.CreatedAddress)

	result, err = chain.DeployContract(DeployRequest{Bytecode: nil, Commit: true})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Nil(t, result.CreatedAddress)

	result, err = chain.DeployContract(DeployRequest{Bytecode: testutils.MappingTokenInitCode(0), Args: []any{big.NewInt(1)}})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "without an ABI")

	poor := common.HexToAddress("0xdead")
	result, err = chain.DeployContract(DeployRequest{
		Bytecode: testutils.MappingTokenInitCode(0),
		From:     &poor,
		Value:    big.NewInt(1),
		Commit:   true,
	})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Nil(t, result.CreatedAddress)
}

// TestStorageAndCalls ensures raw storage writes are visible to calls immediately and survive later commits.
func TestStorageAndCalls(t *testing.T) {
	chain := createChain(t)
	const slot = 5
	result, err := chain.DeployContract(DeployRequest{Bytecode: testutils.MappingTokenInitCode(slot), Commit: true})
	require.NoError(t, err)
	token := *result.CreatedAddress

	holder := common.HexToAddress("0xbeef")
	key := crypto.Keccak256Hash(common.LeftPadBytes(holder.Bytes(), 32), common.LeftPadBytes([]byte{slot}, 32))
	chain.SetStorageAt(token, key, common.BigToHash(big.NewInt(777)))
	assert.Equal(t, common.BigToHash(big.NewInt(777)), chain.GetStorageAt(token, key))

	calldata, err := tokenAbi(t).Pack("balanceOf", holder)
	require.NoError(t, err)
	executionResult, err := chain.CallContract(holder, token, calldata)
	require.NoError(t, err)
	require.NoError(t, executionResult.Err)
	assert.Equal(t, common.BigToHash(big.NewInt(777)).Bytes(), executionResult.ReturnData)

	// Calls do not change state.
	assert.EqualValues(t, 0, chain.GetNonce(holder))
	assert.Zero(t, chain.GetBalance(holder).Sign())

	// The write is committed with the next block.
	_, err = chain.DeployContract(DeployRequest{Bytecode: testutils.MappingTokenInitCode(0), Commit: true})
	require.NoError(t, err)
	assert.Equal(t, common.BigToHash(big.NewInt(777)), chain.GetStorageAt(token, key))
}

// TestRejectedDeployKeepsStorageWrites ensures a deployment rejected before execution leaves earlier uncommitted
// storage writes and the head block untouched.
func TestRejectedDeployKeepsStorageWrites(t *testing.T) {
	chain := createChain(t)
	result, err := chain.DeployContract(DeployRequest{Bytecode: testutils.MappingTokenInitCode(0), Commit: true})
	require.NoError(t, err)
	token := *result.CreatedAddress
	headBefore := chain.HeadBlockNumber()

	key := common.BigToHash(big.NewInt(1))
	value := common.HexToHash("0xbeef")
	chain.SetStorageAt(token, key, value)

	poor := common.HexToAddress("0xdead")
	result, err = chain.DeployContract(DeployRequest{
		Bytecode: testutils.MappingTokenInitCode(0),
		From:     &poor,
		Value:    big.NewInt(1),
		Commit:   true,
	})
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "insufficient funds")
	assert.Equal(t, headBefore, chain.HeadBlockNumber())
	assert.Equal(t, value, chain.GetStorageAt(token, key))

	// The write is still committed with the next block.
	_, err = chain.DeployContract(DeployRequest{Bytecode: testutils.MappingTokenInitCode(0), Commit: true})
	require.NoError(t, err)
	assert.Equal(t, value, chain.GetStorageAt(token, key))
}

// TestSetBalance ensures account balances can be set directly and oversized balances are rejected.
func TestSetBalance(t *testing.T) {
	chain := createChain(t)
	account := common.HexToAddress("0x42")

	require.NoError(t, chain.SetBalance(account, big.NewInt(1000)))
	assert.Equal(t, "1000", chain.GetBalance(account).String())

	tooLarge := new(big.Int).Lsh(big.NewInt(1), 256)
	assert.Error(t, chain.SetBalance(account, tooLarge))
	assert.Error(t, chain.SetBalance(account, big.NewInt(-1)))
}

// TestChainConfigIsolated ensures each chain gets its own copy of the chain config.
func TestChainConfigIsolated(t *testing.T) {
	first := createChain(t)
	second := createChain(t)
	require.NotSame(t, first.chainConfig, second.chainConfig)
	assert.Equal(t, first.chainConfig.ChainID, second.chainConfig.ChainID)

	copied, err := copyChainConfig(first.chainConfig)
	require.NoError(t, err)
	copied.ChainID = big.NewInt(999)
	assert.NotEqual(t, copied.ChainID, first.chainConfig.ChainID)
}
