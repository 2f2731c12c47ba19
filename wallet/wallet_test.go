package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/hexutil"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/medusa-geth/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEthService serves the subset of the eth namespace an RPCSession uses.
type fakeEthService struct {
	lock sync.Mutex

	chainID uint64
	noTip   bool

	// pendingPolls is the number of receipt lookups answered with "not found" before a receipt is returned.
	pendingPolls int
	polls        int

	// omitAddress removes the contract address from returned receipts.
	omitAddress bool

	sent     []*gethTypes.Transaction
	receipts map[common.Hash]*gethTypes.Receipt
}

func (s *fakeEthService) ChainId() *hexutil.Big {
	return (*hexutil.Big)(new(big.Int).SetUint64(s.chainID))
}

func (s *fakeEthService) GetTransactionCount(address common.Address, block string) hexutil.Uint64 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return hexutil.Uint64(len(s.sent))
}

func (s *fakeEthService) EstimateGas(args map[string]any, block *string) hexutil.Uint64 {
	return 500_000
}

func (s *fakeEthService) GasPrice() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(1_000_000_000))
}

func (s *fakeEthService) MaxPriorityFeePerGas() (*hexutil.Big, error) {
	if s.noTip {
		return nil, errors.New("method not supported")
	}
	return (*hexutil.Big)(big.NewInt(100)), nil
}

func (s *fakeEthService) SendRawTransaction(input hexutil.Bytes) (common.Hash, error) {
	tx := new(gethTypes.Transaction)
	if err := tx.UnmarshalBinary(input); err != nil {
		return common.Hash{}, err
	}
	sender, err := gethTypes.Sender(gethTypes.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return common.Hash{}, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	receipt := &gethTypes.Receipt{
		Type:        tx.Type(),
		Status:      gethTypes.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     21_000,
		Logs:        []*gethTypes.Log{},
		BlockNumber: big.NewInt(int64(len(s.sent) + 1)),
	}
	if !s.omitAddress {
		receipt.ContractAddress = crypto.CreateAddress(sender, tx.Nonce())
	}
	s.sent = append(s.sent, tx)
	s.receipts[tx.Hash()] = receipt
	return tx.Hash(), nil
}

func (s *fakeEthService) GetTransactionReceipt(hash common.Hash) (*gethTypes.Receipt, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.polls++
	if s.polls <= s.pendingPolls {
		return nil, nil
	}
	return s.receipts[hash], nil
}

// newFakeNetwork starts an in-process rpc server around service and returns a client connected to it.
func newFakeNetwork(t *testing.T, service *fakeEthService) *rpc.Client {
	service.receipts = make(map[common.Hash]*gethTypes.Receipt)
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", service))
	t.Cleanup(server.Stop)
	return rpc.DialInProc(server)
}

// testConfig returns a config that polls quickly.
func testConfig() Config {
	config := DefaultConfig()
	config.ReceiptPollInterval = 5
	config.ReceiptTimeout = 5
	return config
}

// newTestKey returns a fresh private key and its hex encoding.
func newTestKey(t *testing.T) (string, common.Address) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return hexutil.Encode(crypto.FromECDSA(key)), crypto.PubkeyToAddress(key.PublicKey)
}

// TestChainRegistry ensures the supported networks can be looked up by id.
func TestChainRegistry(t *testing.T) {
	assert.Len(t, SupportedChains(), 8)
	for _, id := range []uint64{1, 10, 137, 8453, 1337, 31337, 42161, 11155111} {
		chain, ok := ChainByID(id)
		assert.True(t, ok, "chain %d", id)
		assert.Equal(t, id, chain.ID)
	}
	_, ok := ChainByID(5)
	assert.False(t, ok)

	chain, _ := ChainByID(8453)
	assert.Equal(t, "base", chain.Name)
	assert.Equal(t, "8453", chain.BigID().String())
}

// TestSessionCanDeploy ensures only connected sessions with both capabilities can deploy.
func TestSessionCanDeploy(t *testing.T) {
	rpcSession := &RPCSession{}
	assert.False(t, Session{}.CanDeploy())
	assert.False(t, Session{Connected: true, Signer: rpcSession}.CanDeploy())
	assert.False(t, Session{Connected: true, Reader: rpcSession}.CanDeploy())
	assert.False(t, Session{Signer: rpcSession, Reader: rpcSession}.CanDeploy())
	assert.True(t, Session{Connected: true, Signer: rpcSession, Reader: rpcSession}.CanDeploy())
}

// TestConfigValidate ensures invalid live session configs are rejected.
func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	assert.NoError(t, config.Validate())

	config.ChainID = 5
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.ReceiptPollInterval = 0
	assert.Error(t, config.Validate())
}

// TestRPCSessionDeploy ensures a deployment is signed, submitted and its receipt awaited across pending polls.
func TestRPCSessionDeploy(t *testing.T) {
	for _, noTip := range []bool{false, true} {
		service := &fakeEthService{chainID: 31337, noTip: noTip, pendingPolls: 2}
		client := newFakeNetwork(t, service)
		privateKey, address := newTestKey(t)

		session, err := NewRPCSession(context.Background(), client, testConfig(), privateKey)
		require.NoError(t, err)
		assert.Equal(t, address, session.Address())
		assert.Equal(t, "hardhat", session.Chain().Name)

		txHash, err := session.SendDeployment(context.Background(), []byte{0x60, 0x00})
		require.NoError(t, err)
		require.Len(t, service.sent, 1)
		assert.Equal(t, []byte{0x60, 0x00}, service.sent[0].Data())
		assert.Nil(t, service.sent[0].To())
		if noTip {
			assert.EqualValues(t, gethTypes.LegacyTxType, service.sent[0].Type())
		} else {
			assert.EqualValues(t, gethTypes.DynamicFeeTxType, service.sent[0].Type())
		}

		receipt, err := session.WaitForReceipt(context.Background(), txHash)
		require.NoError(t, err)
		assert.Equal(t, crypto.CreateAddress(address, 0), receipt.ContractAddress)
		assert.Equal(t, 3, service.polls)
		session.Close()
	}
}

// TestRPCSessionRejectsChains ensures unsupported or mismatched chains and bad keys are rejected.
func TestRPCSessionRejectsChains(t *testing.T) {
	privateKey, _ := newTestKey(t)

	_, err := NewRPCSession(context.Background(), newFakeNetwork(t, &fakeEthService{chainID: 5}), testConfig(), privateKey)
	assert.ErrorContains(t, err, "not supported")

	config := testConfig()
	config.ChainID = 1
	_, err = NewRPCSession(context.Background(), newFakeNetwork(t, &fakeEthService{chainID: 31337}), config, privateKey)
	assert.ErrorContains(t, err, "configured")

	_, err = NewRPCSession(context.Background(), newFakeNetwork(t, &fakeEthService{chainID: 31337}), testConfig(), "")
	assert.Error(t, err)
	_, err = NewRPCSession(context.Background(), newFakeNetwork(t, &fakeEthService{chainID: 31337}), testConfig(), "zz")
	assert.Error(t, err)
}

// TestWaitForReceiptCancelled ensures waiting stops when the context is done.
func TestWaitForReceiptCancelled(t *testing.T) {
	service := &fakeEthService{chainID: 1, pendingPolls: 1 << 30}
	privateKey, _ := newTestKey(t)
	session, err := NewRPCSession(context.Background(), newFakeNetwork(t, service), testConfig(), privateKey)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = session.WaitForReceipt(ctx, common.HexToHash("0x01"))
	assert.Error(t, err)

	session.timeout = 20 * time.Millisecond
	_, err = session.WaitForReceipt(context.Background(), common.HexToHash("0x01"))
	assert.ErrorIs(t, err, ErrReceiptTimeout)
}

// TestManagerConnectDisconnect ensures sessions are replaced and reset, closing the previous one.
func TestManagerConnectDisconnect(t *testing.T) {
	manager := NewManager()
	assert.False(t, manager.Session().Connected)

	closed := 0
	rpcSession := &RPCSession{}
	manager.Use(Session{Connected: true, Signer: rpcSession, Reader: rpcSession}, func() { closed++ })
	assert.True(t, manager.Session().CanDeploy())

	manager.Use(Session{Connected: true}, nil)
	assert.Equal(t, 1, closed)
	assert.False(t, manager.Session().CanDeploy())

	manager.Disconnect()
	manager.Disconnect()
	assert.Equal(t, Session{}, manager.Session())
	assert.Equal(t, 1, closed)
}
