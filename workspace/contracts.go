package workspace

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/crytic/medusa-geth/common"
	"golang.org/x/exp/slices"
)

// contractKey is the Store key of the persisted DeployedContract.
const contractKey = "contract"

// ErrInvalidContract is returned when storing a contract reference without an address or ABI.
var ErrInvalidContract = errors.New("deployed contract requires an address and an ABI")

// DeployedContract references the last successfully deployed contract.
type DeployedContract struct {
	Address common.Address  `json:"address"`
	Abi     json.RawMessage `json:"abi"`
	Name    string          `json:"name,omitempty"`

	// Network names where the contract lives, e.g. "local" or a chain name.
	Network string `json:"network,omitempty"`

	// TransactionHash is set for contracts deployed by a transaction on a live network.
	TransactionHash *common.Hash `json:"transactionHash,omitempty"`

	DeployedAt time.Time `json:"deployedAt"`
}

// Contracts owns the DeployedContract reference. It is only replaced wholesale by Set and removed by Clear.
type Contracts struct {
	lock    sync.Mutex
	current *DeployedContract
	store   Store
}

// NewContracts creates a Contracts, restoring a persisted reference from store. A nil store keeps it in memory only.
func NewContracts(store Store) (*Contracts, error) {
	contracts := &Contracts{store: store}
	if store != nil {
		var persisted DeployedContract
		found, err := store.Get(contractKey, &persisted)
		if err != nil {
			return nil, err
		}
		if found {
			contracts.current = &persisted
		}
	}
	return contracts, nil
}

// Get returns a copy of the current reference, if there is one.
func (c *Contracts) Get() (DeployedContract, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.current == nil {
		return DeployedContract{}, false
	}
	contract := *c.current
	contract.Abi = slices.Clone(c.current.Abi)
	return contract, true
}

// Set replaces the current reference. The reference is persisted before it becomes visible, so a persistence
// failure leaves the previous reference in place.
func (c *Contracts) Set(contract DeployedContract) error {
	if contract.Address == (common.Address{}) || len(contract.Abi) == 0 {
		return ErrInvalidContract
	}
	contract.Abi = slices.Clone(contract.Abi)

	c.lock.Lock()
	defer c.lock.Unlock()
	if c.store != nil {
		if err := c.store.Put(contractKey, contract); err != nil {
			return err
		}
	}
	c.current = &contract
	return nil
}

// Clear removes the current reference.
func (c *Contracts) Clear() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.store != nil {
		if err := c.store.Delete(contractKey); err != nil {
			return err
		}
	}
	c.current = nil
	return nil
}
