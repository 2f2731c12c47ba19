package balances

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/sollab/chain"
	"github.com/crytic/sollab/utils/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deployToken deploys a mapping token keeping balances at slot and returns the chain and token address.
func deployToken(t *testing.T, slot byte) (*chain.TestChain, common.Address) {
	testChain, err := chain.NewTestChain(context.Background(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(testChain.Close)

	result, err := testChain.DeployContract(chain.DeployRequest{Bytecode: testutils.MappingTokenInitCode(slot), Commit: true})
	require.NoError(t, err)
	require.Empty(t, result.Errors)
	require.NotNil(t, result.CreatedAddress)
	return testChain, *result.CreatedAddress
}

// TestMappingSlotKey ensures keys match the Solidity mapping layout.
func TestMappingSlotKey(t *testing.T) {
	holder := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	expected := crypto.Keccak256Hash(common.LeftPadBytes(holder.Bytes(), 32), common.LeftPadBytes([]byte{7}, 32))
	assert.Equal(t, expected, MappingSlotKey(holder, 7))
	assert.NotEqual(t, MappingSlotKey(holder, 7), MappingSlotKey(holder, 8))
}

// TestFindBalanceSlot ensures the mapping index is found for layouts within the probed range.
func TestFindBalanceSlot(t *testing.T) {
	for _, slot := range []byte{0, 1, 9, 51, MaxProbedSlots - 1} {
		testChain, token := deployToken(t, slot)
		prober := NewProber(testChain)

		found, err := prober.FindBalanceSlot(context.Background(), token)
		require.NoError(t, err)
		assert.EqualValues(t, slot, found)
	}
}

// TestFindBalanceSlotNotFound ensures layouts outside the probed range fail and leave storage untouched.
func TestFindBalanceSlotNotFound(t *testing.T) {
	testChain, token := deployToken(t, 150)
	prober := NewProber(testChain)

	_, err := prober.FindBalanceSlot(context.Background(), token)
	assert.ErrorIs(t, err, ErrSlotNotFound)
	for slot := uint64(0); slot < MaxProbedSlots; slot++ {
		assert.Equal(t, common.Hash{}, testChain.GetStorageAt(token, MappingSlotKey(common.Address{}, slot)))
	}

	// Accounts without code never match.
	_, err = prober.FindBalanceSlot(context.Background(), common.HexToAddress("0x1234"))
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

// TestProbeRestoresExistingValue ensures a probe restores a pre-existing value at the probed key.
func TestProbeRestoresExistingValue(t *testing.T) {
	testChain, token := deployToken(t, 3)
	key := MappingSlotKey(common.Address{}, 3)
	existing := common.BigToHash(big.NewInt(12345))
	testChain.SetStorageAt(token, key, existing)

	prober := NewProber(testChain)
	found, err := prober.FindBalanceSlot(context.Background(), token)
	require.NoError(t, err)
	assert.EqualValues(t, 3, found)
	assert.Equal(t, existing, testChain.GetStorageAt(token, key))
}

// TestSentinelDiffersFromOriginal ensures the injected sentinel never equals the value it replaces.
func TestSentinelDiffersFromOriginal(t *testing.T) {
	sentinel := sentinelFor(common.Hash{})
	assert.NotEqual(t, common.Hash{}, sentinel)
	assert.NotEqual(t, sentinel, sentinelFor(sentinel))
}

// TestSetAndGetBalance ensures a set balance is read back exactly through the token's balanceOf.
func TestSetAndGetBalance(t *testing.T) {
	testChain, token := deployToken(t, 2)
	prober := NewProber(testChain)
	holder := common.HexToAddress("0xbeef")

	amount, ok := new(big.Int).SetString("1000000000000000000000000", 10)
	require.True(t, ok)
	require.NoError(t, prober.SetBalance(context.Background(), token, holder, amount))

	balance, err := prober.GetBalance(context.Background(), token, holder)
	require.NoError(t, err)
	assert.Zero(t, amount.Cmp(balance))

	other, err := prober.GetBalance(context.Background(), token, common.HexToAddress("0xcafe"))
	require.NoError(t, err)
	assert.Zero(t, other.Sign())

	assert.Error(t, prober.SetBalance(context.Background(), token, holder, nil))
	assert.Error(t, prober.SetBalance(context.Background(), token, holder, big.NewInt(-1)))
	assert.Error(t, prober.SetBalance(context.Background(), token, holder, new(big.Int).Lsh(big.NewInt(1), 256)))
}

// TestSetBalanceNotFound ensures setting a balance on an unsupported layout fails without writing.
func TestSetBalanceNotFound(t *testing.T) {
	testChain, token := deployToken(t, 150)
	prober := NewProber(testChain)
	holder := common.HexToAddress("0xbeef")

	err := prober.SetBalance(context.Background(), token, holder, big.NewInt(1))
	assert.ErrorIs(t, err, ErrSlotNotFound)
	assert.Equal(t, common.Hash{}, testChain.GetStorageAt(token, MappingSlotKey(holder, 150)))
}

// TestProberConcurrentTokens ensures concurrent operations on the same and different tokens stay consistent.
func TestProberConcurrentTokens(t *testing.T) {
	testChain, tokenA := deployToken(t, 4)
	result, err := testChain.DeployContract(chain.DeployRequest{Bytecode: testutils.MappingTokenInitCode(8), Commit: true})
	require.NoError(t, err)
	tokenB := *result.CreatedAddress
	prober := NewProber(testChain)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := tokenA
			if i%2 == 1 {
				token = tokenB
			}
			holder := common.BigToAddress(big.NewInt(int64(i + 1)))
			assert.NoError(t, prober.SetBalance(context.Background(), token, holder, big.NewInt(int64(100*i))))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		token := tokenA
		if i%2 == 1 {
			token = tokenB
		}
		balance, err := prober.GetBalance(context.Background(), token, common.BigToAddress(big.NewInt(int64(i+1))))
		require.NoError(t, err)
		assert.EqualValues(t, 100*i, balance.Int64())
	}
}

// TestFindBalanceSlotCancelled ensures a cancelled context stops probing.
func TestFindBalanceSlotCancelled(t *testing.T) {
	testChain, token := deployToken(t, 60)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProber(testChain).FindBalanceSlot(ctx, token)
	assert.ErrorIs(t, err, context.Canceled)
}
