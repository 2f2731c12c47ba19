package balances

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core"
	"github.com/crytic/sollab/logging"
	"github.com/crytic/sollab/logging/colors"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"
	"golang.org/x/net/context"
)

// MaxProbedSlots bounds the storage indices FindBalanceSlot probes, starting at zero.
const MaxProbedSlots = 100

// ErrSlotNotFound is returned when no probed storage index holds the token's balance mapping.
var ErrSlotNotFound = errors.New("balance slot not found")

// erc20Abi holds the parts of the ERC-20 interface the prober calls.
var erc20Abi = func() abi.ABI {
	addressType, _ := abi.NewType("address", "", nil)
	uint256Type, _ := abi.NewType("uint256", "", nil)
	uint8Type, _ := abi.NewType("uint8", "", nil)
	return abi.ABI{
		Methods: map[string]abi.Method{
			"balanceOf": abi.NewMethod("balanceOf", "balanceOf", abi.Function, "view", false, false,
				abi.Arguments{{Name: "account", Type: addressType}}, abi.Arguments{{Type: uint256Type}}),
			"decimals": abi.NewMethod("decimals", "decimals", abi.Function, "view", false, false,
				nil, abi.Arguments{{Type: uint8Type}}),
		},
	}
}()

// StorageEnvironment is the simulated environment the prober reads and writes. chain.TestChain implements it.
type StorageEnvironment interface {
	GetStorageAt(address common.Address, key common.Hash) common.Hash
	SetStorageAt(address common.Address, key common.Hash, value common.Hash)
	CallContract(from common.Address, to common.Address, data []byte) (*core.ExecutionResult, error)
}

// Prober locates and rewrites token balances by manipulating raw storage, without knowledge of the token's source.
// Operations against the same token are serialized; operations against different tokens may run concurrently.
type Prober struct {
	env StorageEnvironment

	// lock guards tokenLocks and slots.
	lock       sync.Mutex
	tokenLocks map[common.Address]*sync.Mutex
	slots      map[common.Address]uint64

	logger *logging.Logger
}

// NewProber creates a Prober over env.
func NewProber(env StorageEnvironment) *Prober {
	return &Prober{
		env:        env,
		tokenLocks: make(map[common.Address]*sync.Mutex),
		slots:      make(map[common.Address]uint64),
		logger:     logging.GlobalLogger.NewSubLogger("module", logging.BALANCES_SERVICE),
	}
}

// MappingSlotKey returns the storage key of holder's entry in a mapping(address => ...) declared at slot, i.e.
// keccak256(abi.encode(holder, slot)).
func MappingSlotKey(holder common.Address, slot uint64) common.Hash {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(common.LeftPadBytes(holder.Bytes(), 32))
	slotWord := uint256.NewInt(slot).Bytes32()
	hasher.Write(slotWord[:])
	return common.BytesToHash(hasher.Sum(nil))
}

// lockToken acquires the lock of token and returns its release function.
func (p *Prober) lockToken(token common.Address) func() {
	p.lock.Lock()
	tokenLock, ok := p.tokenLocks[token]
	if !ok {
		tokenLock = &sync.Mutex{}
		p.tokenLocks[token] = tokenLock
	}
	p.lock.Unlock()

	tokenLock.Lock()
	return tokenLock.Unlock
}

// FindBalanceSlot returns the storage index of token's balance mapping. Each candidate index is probed by writing a
// sentinel to the zero address's entry and checking whether balanceOf(0) returns it. The original value is restored
// before the result of a probe is examined. Discovered indices are cached per token.
func (p *Prober) FindBalanceSlot(ctx context.Context, token common.Address) (uint64, error) {
	unlock := p.lockToken(token)
	defer unlock()
	return p.findBalanceSlot(ctx, token)
}

// findBalanceSlot implements FindBalanceSlot. The caller must hold the token lock.
func (p *Prober) findBalanceSlot(ctx context.Context, token common.Address) (uint64, error) {
	p.lock.Lock()
	slot, cached := p.slots[token]
	p.lock.Unlock()
	if cached {
		return slot, nil
	}

	for candidate := uint64(0); candidate < MaxProbedSlots; candidate++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		matched, err := p.probe(token, candidate)
		if err != nil {
			return 0, err
		}
		if matched {
			p.lock.Lock()
			p.slots[token] = candidate
			p.lock.Unlock()
			p.logger.Debug("Found balance slot ", colors.Bold, candidate, colors.Reset, " for token ", token.Hex())
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("%w for token %v after probing %d slots", ErrSlotNotFound, token.Hex(), MaxProbedSlots)
}

// probe checks whether candidate is the index of token's balance mapping.
func (p *Prober) probe(token common.Address, candidate uint64) (bool, error) {
	key := MappingSlotKey(common.Address{}, candidate)
	original := p.env.GetStorageAt(token, key)
	sentinel := sentinelFor(original)

	p.env.SetStorageAt(token, key, sentinel)
	balance, callErr := func() (*big.Int, error) {
		defer p.env.SetStorageAt(token, key, original)
		return p.balanceOf(token, common.Address{})
	}()

	// A reverting balanceOf at one index says nothing about the others.
	if callErr != nil {
		if isExecutionError(callErr) {
			return false, nil
		}
		return false, callErr
	}
	return balance.Cmp(sentinel.Big()) == 0, nil
}

// sentinelFor returns a recognizable storage value that differs from original.
func sentinelFor(original common.Hash) common.Hash {
	sentinel := common.HexToHash("0x5011ab5011ab5011ab5011ab")
	if sentinel == original {
		sentinel[0] ^= 0xff
	}
	return sentinel
}

// SetBalance sets holder's balance of token to amount by writing it directly into the token's balance mapping. No
// token logic runs, so transfer hooks, fees and pausing are bypassed.
func (p *Prober) SetBalance(ctx context.Context, token common.Address, holder common.Address, amount *big.Int) error {
	if amount == nil {
		return fmt.Errorf("no amount provided")
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("amount %v is not a valid uint256", amount)
	}
	value, overflow := uint256.FromBig(amount)
	if overflow {
		return fmt.Errorf("amount %v is not a valid uint256", amount)
	}

	unlock := p.lockToken(token)
	defer unlock()
	slot, err := p.findBalanceSlot(ctx, token)
	if err != nil {
		return err
	}
	p.env.SetStorageAt(token, MappingSlotKey(holder, slot), common.Hash(value.Bytes32()))
	p.logger.Debug("Set balance of ", holder.Hex(), " in token ", token.Hex(), " to ", amount)
	return nil
}

// GetBalance returns holder's balance of token as reported by the token's balanceOf.
func (p *Prober) GetBalance(ctx context.Context, token common.Address, holder common.Address) (*big.Int, error) {
	unlock := p.lockToken(token)
	defer unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.balanceOf(token, holder)
}

// Decimals returns the token's decimals.
func (p *Prober) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	unlock := p.lockToken(token)
	defer unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	values, err := p.call(token, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := values[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals value %v", values[0])
	}
	return decimals, nil
}

// balanceOf calls token.balanceOf(holder).
func (p *Prober) balanceOf(token common.Address, holder common.Address) (*big.Int, error) {
	values, err := p.call(token, "balanceOf", holder)
	if err != nil {
		return nil, err
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balance value %v", values[0])
	}
	return balance, nil
}

// executionError wraps a failed token call.
type executionError struct {
	method string
	err    error
}

// Error implements error.
func (e *executionError) Error() string {
	return fmt.Sprintf("%v call failed: %v", e.method, e.err)
}

// Unwrap returns the underlying error.
func (e *executionError) Unwrap() error {
	return e.err
}

func isExecutionError(err error) bool {
	var target *executionError
	return errors.As(err, &target)
}

// call invokes a view method of the token from the zero address and unpacks its outputs.
func (p *Prober) call(token common.Address, method string, args ...any) ([]any, error) {
	data, err := erc20Abi.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	result, err := p.env.CallContract(common.Address{}, token, data)
	if err != nil {
		return nil, err
	}
	if result.Err != nil {
		return nil, &executionError{method: method, err: result.Err}
	}
	values, err := erc20Abi.Unpack(method, result.ReturnData)
	if err != nil {
		return nil, &executionError{method: method, err: err}
	}
	return values, nil
}
