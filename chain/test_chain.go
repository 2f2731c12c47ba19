package chain

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/common/math"
	"github.com/crytic/medusa-geth/core"
	"github.com/crytic/medusa-geth/core/rawdb"
	gethState "github.com/crytic/medusa-geth/core/state"
	"github.com/crytic/medusa-geth/core/tracing"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/core/vm"
	"github.com/crytic/medusa-geth/ethdb"
	"github.com/crytic/medusa-geth/params"
	"github.com/crytic/medusa-geth/triedb"
	"github.com/crytic/medusa-geth/triedb/hashdb"
	"github.com/crytic/sollab/chain/config"
	"github.com/crytic/sollab/chain/types"
	"github.com/crytic/sollab/chain/vendored"
	"github.com/crytic/sollab/logging"
	"github.com/holiman/uint256"
	"golang.org/x/exp/maps"
	"golang.org/x/net/context"
)

// unlimitedGas is the gas pool size for calls, which are not bound by a block gas limit.
const unlimitedGas = ^uint64(0)

// TestChain represents a simulated Ethereum chain used for local deployments. It maintains blocks in-memory and strips
// away typical consensus/chain objects, exposing raw storage and execution primitives instead.
// All exported methods are safe for concurrent use.
type TestChain struct {
	// lock serializes access to the chain state.
	lock sync.Mutex

	// blocks represents the blocks committed to the chain, starting with the genesis block.
	blocks []*types.Block

	// pendingBlock is a block currently under construction by the chain which has not yet been committed.
	pendingBlock *types.Block

	// BlockGasLimit defines the maximum amount of gas that can be consumed by transactions in a block.
	BlockGasLimit uint64

	// testChainConfig represents the configuration used by this TestChain.
	testChainConfig *config.TestChainConfig

	// chainConfig represents the configuration used to instantiate and manage this chain's underlying go-ethereum
	// components.
	chainConfig *params.ChainConfig

	// vmConfigExtensions defines EVM extensions to use with each chain call or transaction.
	vmConfigExtensions *vm.ConfigExtensions

	// genesisDefinition represents the Genesis information used to generate the chain's initial state.
	genesisDefinition *core.Genesis

	// state represents the current world state. Raw storage writes are applied to it directly and are committed with
	// the next block.
	state *gethState.StateDB

	// stateDatabase refers to the database object which state uses to store data. It is constructed over db.
	stateDatabase gethState.Database

	// db represents the in-memory database used by the TestChain to store state changes.
	db ethdb.Database

	// deployer is the funded account local deployments are sent from.
	deployer common.Address

	// Events defines the event system for the TestChain.
	Events TestChainEvents

	logger *logging.Logger
}

// NewTestChain creates a simulated Ethereum backend with the provided genesis allocation and config, or returns an
// error if one occurred. If a nil config is provided, a default one is used. The configured deployer is funded in
// addition to genesisAlloc.
func NewTestChain(ctx context.Context, genesisAlloc gethTypes.GenesisAlloc, testChainConfig *config.TestChainConfig) (*TestChain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if testChainConfig == nil {
		testChainConfig = config.DefaultTestChainConfig()
	}
	if err := testChainConfig.Validate(); err != nil {
		return nil, err
	}
	deployer, deployerBalance, err := testChainConfig.Deployer()
	if err != nil {
		return nil, err
	}

	// Copy our chain config, so it is not shared across chains.
	chainConfig, err := copyChainConfig(params.TestChainConfig)
	if err != nil {
		return nil, err
	}
	chainConfig.ChainID = new(big.Int).SetUint64(testChainConfig.ChainID)

	// go-ethereum's test config does not schedule the latest forks, so they are enabled from genesis.
	forkTime := uint64(0)
	chainConfig.ShanghaiTime = &forkTime
	chainConfig.CancunTime = &forkTime
	chainConfig.PragueTime = &forkTime
	chainConfig.BlobScheduleConfig = params.DefaultBlobSchedule

	alloc := maps.Clone(genesisAlloc)
	if alloc == nil {
		alloc = make(gethTypes.GenesisAlloc)
	}
	if _, ok := alloc[deployer]; !ok {
		alloc[deployer] = gethTypes.Account{Balance: deployerBalance}
	}

	genesisDefinition := &core.Genesis{
		Config:     chainConfig,
		ExtraData:  []byte("sollab"),
		GasLimit:   testChainConfig.BlockGasLimit,
		Difficulty: common.Big0,
		Alloc:      alloc,
		BaseFee:    big.NewInt(0),
	}

	// Create an in-memory database and commit our genesis definition to it.
	db := rawdb.NewMemoryDatabase()
	trieDB := triedb.NewDatabase(db, &triedb.Config{HashDB: hashdb.Defaults})
	genesisBlock := genesisDefinition.MustCommit(db, trieDB)

	chain := &TestChain{
		blocks:             []*types.Block{types.NewBlock(genesisBlock.Header())},
		BlockGasLimit:      genesisBlock.Header().GasLimit,
		testChainConfig:    testChainConfig,
		chainConfig:        chainConfig,
		vmConfigExtensions: testChainConfig.GetVMConfigExtensions(),
		genesisDefinition:  genesisDefinition,
		stateDatabase:      gethState.NewDatabase(trieDB, nil),
		db:                 db,
		deployer:           deployer,
		logger:             logging.GlobalLogger.NewSubLogger("module", logging.CHAIN_SERVICE),
	}

	chain.state, err = chain.stateAfterBlockNumber(0)
	if err != nil {
		return nil, err
	}
	return chain, nil
}

// Close releases the trie database cache backing the chain state.
func (t *TestChain) Close() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.stateDatabase.TrieDB().Close()
}

// ChainID returns the chain id of the simulated chain.
func (t *TestChain) ChainID() *big.Int {
	return new(big.Int).Set(t.chainConfig.ChainID)
}

// DeployerAddress returns the funded account local deployments are sent from by default.
func (t *TestChain) DeployerAddress() common.Address {
	return t.deployer
}

// GenesisDefinition returns the Genesis information used to generate the chain's initial state.
func (t *TestChain) GenesisDefinition() *core.Genesis {
	return t.genesisDefinition
}

// CommittedBlocks returns the blocks committed to the chain, starting with the genesis block.
func (t *TestChain) CommittedBlocks() []*types.Block {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]*types.Block(nil), t.blocks...)
}

// Head returns the head of the chain (the latest block).
func (t *TestChain) Head() *types.Block {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.head()
}

func (t *TestChain) head() *types.Block {
	return t.blocks[len(t.blocks)-1]
}

// HeadBlockNumber returns the test chain head's block number, where zero is the genesis block.
func (t *TestChain) HeadBlockNumber() uint64 {
	return t.Head().Header.Number.Uint64()
}

// blockFromNumber obtains the committed block with the provided block number.
func (t *TestChain) blockFromNumber(blockNumber uint64) (*types.Block, error) {
	for _, block := range t.blocks {
		if block.Header.Number.Uint64() == blockNumber {
			return block, nil
		}
	}
	return nil, fmt.Errorf("could not find block with block number %v", blockNumber)
}

// blockHashFromNumber returns the hash of the committed block with the provided block number.
func (t *TestChain) blockHashFromNumber(blockNumber uint64) (common.Hash, error) {
	block, err := t.blockFromNumber(blockNumber)
	if err != nil {
		return common.Hash{}, err
	}
	return block.Hash, nil
}

// stateAfterBlockNumber loads the world state after the committed block with the provided block number.
func (t *TestChain) stateAfterBlockNumber(blockNumber uint64) (*gethState.StateDB, error) {
	block, err := t.blockFromNumber(blockNumber)
	if err != nil {
		return nil, err
	}
	return gethState.New(block.Header.Root, t.stateDatabase)
}

// GetBalance returns the balance of the given account, in wei.
func (t *TestChain) GetBalance(address common.Address) *big.Int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.state.GetBalance(address).ToBig()
}

// SetBalance sets the balance of the given account, in wei.
func (t *TestChain) SetBalance(address common.Address, balance *big.Int) error {
	value, overflow := uint256.FromBig(balance)
	if overflow || balance.Sign() < 0 {
		return fmt.Errorf("balance %v does not fit in 256 bits", balance)
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.state.SetBalance(address, value, tracing.BalanceChangeUnspecified)
	return nil
}

// GetCode returns the runtime bytecode deployed at the given address.
func (t *TestChain) GetCode(address common.Address) []byte {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.state.GetCode(address)
}

// GetNonce returns the nonce of the given account.
func (t *TestChain) GetNonce(address common.Address) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.state.GetNonce(address)
}

// GetStorageAt returns the raw storage value at key in the storage of the given account.
func (t *TestChain) GetStorageAt(address common.Address, key common.Hash) common.Hash {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.state.GetState(address, key)
}

// SetStorageAt writes a raw storage value at key in the storage of the given account. The write is visible to
// subsequent calls immediately.
func (t *TestChain) SetStorageAt(address common.Address, key common.Hash, value common.Hash) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.state.SetState(address, key, value)
}

// newMessage creates a zero-fee message from the given sender using its current nonce.
func (t *TestChain) newMessage(from common.Address, to *common.Address, value *big.Int, data []byte) *core.Message {
	if value == nil {
		value = big.NewInt(0)
	}
	return &core.Message{
		To:        to,
		From:      from,
		Nonce:     t.state.GetNonce(from),
		Value:     value,
		GasLimit:  t.testChainConfig.TransactionGasLimit,
		GasPrice:  big.NewInt(0),
		GasFeeCap: big.NewInt(0),
		GasTipCap: big.NewInt(0),
		Data:      data,
	}
}

// CallContract executes a message call from the given sender against the current chain state and discards any
// changes it made. Execution failures, including reverts, are reported in the returned core.ExecutionResult; the
// error is reserved for messages that could not be applied at all.
func (t *TestChain) CallContract(from common.Address, to common.Address, data []byte) (*core.ExecutionResult, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.call(t.newMessage(from, &to, nil, data))
}

// call applies msg over the current state and reverts the state afterwards.
func (t *TestChain) call(msg *core.Message) (*core.ExecutionResult, error) {
	snapshot := t.state.Snapshot()
	defer t.state.RevertToSnapshot(snapshot)

	// Calls are free, so the sender is given an effectively infinite balance.
	t.state.SetBalance(msg.From, uint256.MustFromBig(math.MaxBig256), tracing.BalanceChangeUnspecified)

	var header *gethTypes.Header
	if t.pendingBlock != nil {
		header = t.pendingBlock.Header
	} else {
		header = t.head().Header
	}
	evm := vm.NewEVM(newTestChainBlockContext(t, header), t.state, t.chainConfig, vm.Config{
		NoBaseFee:        true,
		ConfigExtensions: t.vmConfigExtensions,
	})

	gasPool := new(core.GasPool).AddGas(unlimitedGas)
	return core.ApplyMessage(evm, msg, gasPool)
}

// SendMessage executes msg in a new block and commits that block to the chain. A message that executes but fails
// is still committed, with a failed receipt.
func (t *TestChain) SendMessage(msg *core.Message) (*types.MessageResults, error) {
	t.lock.Lock()
	block, results, err := t.sendMessage(msg)
	t.lock.Unlock()
	if err != nil {
		return nil, err
	}

	if err := t.Events.BlockCommitted.Publish(BlockCommittedEvent{Chain: t, Block: block}); err != nil {
		return results, err
	}
	return results, nil
}

// sendMessage executes msg in a new block and commits it, returning the committed block and the message results.
func (t *TestChain) sendMessage(msg *core.Message) (*types.Block, *types.MessageResults, error) {
	if _, err := t.pendingBlockCreate(); err != nil {
		return nil, nil, err
	}
	snapshot := t.state.Snapshot()
	results, err := t.pendingBlockAddTx(msg)
	if err != nil {
		t.pendingBlockDiscard(snapshot)
		return nil, nil, err
	}
	block, err := t.pendingBlockCommit()
	if err != nil {
		return nil, nil, err
	}
	return block, results, nil
}

// pendingBlockCreate constructs an empty block following the current head, which is pending addition to the chain.
func (t *TestChain) pendingBlockCreate() (*types.Block, error) {
	if t.pendingBlock != nil {
		return nil, errors.New("could not create a new pending block for chain, as a block is already pending")
	}

	head := t.head()
	baseBlockContext := types.NewBaseBlockContext(
		head.Header.Number.Uint64()+1,
		head.Header.Time+1,
		head.Header.BaseFee,
		head.Header.Coinbase,
	)

	header := &gethTypes.Header{
		ParentHash:  head.Hash,
		UncleHash:   gethTypes.EmptyUncleHash,
		Root:        head.Header.Root,
		TxHash:      gethTypes.EmptyRootHash,
		ReceiptHash: gethTypes.EmptyRootHash,
		Bloom:       gethTypes.Bloom{},
		GasLimit:    t.BlockGasLimit,
		GasUsed:     0,
		Extra:       []byte{},
		Nonce:       gethTypes.BlockNonce{},
		Coinbase:    baseBlockContext.Coinbase,
		Difficulty:  common.Big0,
		Number:      baseBlockContext.Number,
		Time:        baseBlockContext.Time,
		MixDigest:   head.Hash,
		BaseFee:     baseBlockContext.BaseFee,
	}
	t.pendingBlock = types.NewBlock(header)
	return t.pendingBlock, nil
}

// pendingBlockAddTx executes message and adds it to the pending block, updating the header with its gas usage and
// bloom.
func (t *TestChain) pendingBlockAddTx(message *core.Message) (*types.MessageResults, error) {
	if t.pendingBlock == nil {
		return nil, errors.New("could not add tx to the chain's pending block because no pending block was created")
	}

	gasPool := new(core.GasPool).AddGas(t.pendingBlock.Header.GasLimit - t.pendingBlock.Header.GasUsed)
	tx := messageTransaction(message)
	t.state.SetTxContext(tx.Hash(), len(t.pendingBlock.Messages))

	evm := vm.NewEVM(newTestChainBlockContext(t, t.pendingBlock.Header), t.state, t.chainConfig, vm.Config{
		NoBaseFee:        true,
		ConfigExtensions: t.vmConfigExtensions,
	})

	var usedGas uint64
	receipt, executionResult, err := vendored.EVMApplyTransaction(message, t.chainConfig, t.testChainConfig.ContractAddressOverrides, gasPool, t.state, t.pendingBlock.Header.Number, t.pendingBlock.Hash, tx, &usedGas, evm)
	if err != nil {
		return nil, fmt.Errorf("test chain state write error when adding tx to pending block: %w", err)
	}

	results := &types.MessageResults{
		PostStateRoot:   common.BytesToHash(receipt.PostState),
		ExecutionResult: executionResult,
		Receipt:         receipt,
	}
	t.pendingBlock.Header.GasUsed += receipt.GasUsed
	t.pendingBlock.Header.Bloom.Add(receipt.Bloom.Bytes())
	t.pendingBlock.Messages = append(t.pendingBlock.Messages, message)
	t.pendingBlock.MessageResults = append(t.pendingBlock.MessageResults, results)
	return results, nil
}

// pendingBlockCommit commits the pending block to the chain, so it is set as the new head.
func (t *TestChain) pendingBlockCommit() (*types.Block, error) {
	if t.pendingBlock == nil {
		return nil, errors.New("could not commit chain's pending block, as no pending block was created")
	}

	root, err := t.state.Commit(t.pendingBlock.Header.Number.Uint64(), true, true)
	if err != nil {
		return nil, err
	}
	t.pendingBlock.Header.Root = root

	// Committing the state invalidates the cached tries, so the state is reloaded.
	t.state, err = gethState.New(root, t.stateDatabase)
	if err != nil {
		return nil, err
	}

	block := t.pendingBlock
	block.Hash = block.Header.Hash()
	for _, results := range block.MessageResults {
		results.Receipt.BlockHash = block.Hash
	}
	t.blocks = append(t.blocks, block)
	t.pendingBlock = nil

	t.logger.Trace("Committed block ", block.Header.Number, " with ", len(block.Messages), " message(s)")
	return block, nil
}

// pendingBlockDiscard discards the pending block and reverts the state to snapshot, which was taken before the
// block's messages were applied. Uncommitted writes made before the snapshot, such as SetStorageAt, are kept.
func (t *TestChain) pendingBlockDiscard(snapshot int) {
	if t.pendingBlock == nil {
		return
	}
	t.pendingBlock = nil
	t.state.RevertToSnapshot(snapshot)
}
