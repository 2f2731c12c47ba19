package wallet

import (
	"fmt"
	"math/big"

	"golang.org/x/exp/slices"
)

// Chain describes a network a session may be connected to.
type Chain struct {
	// ID is the EIP-155 chain id.
	ID uint64 `json:"id"`

	// Name is a short human-readable identifier, e.g. "mainnet".
	Name string `json:"name"`
}

// BigID returns the chain id as a big.Int, as used by transaction signers.
func (c Chain) BigID() *big.Int {
	return new(big.Int).SetUint64(c.ID)
}

// String implements fmt.Stringer.
func (c Chain) String() string {
	return fmt.Sprintf("%v (%d)", c.Name, c.ID)
}

// supportedChains lists the networks sessions may connect to, ordered by chain id.
var supportedChains = []Chain{
	{ID: 1, Name: "mainnet"},
	{ID: 10, Name: "optimism"},
	{ID: 137, Name: "polygon"},
	{ID: 1337, Name: "localhost"},
	{ID: 8453, Name: "base"},
	{ID: 31337, Name: "hardhat"},
	{ID: 42161, Name: "arbitrum"},
	{ID: 11155111, Name: "sepolia"},
}

// SupportedChains returns the networks sessions may connect to.
func SupportedChains() []Chain {
	return slices.Clone(supportedChains)
}

// ChainByID returns the supported chain with the given id.
func ChainByID(id uint64) (Chain, bool) {
	index := slices.IndexFunc(supportedChains, func(chain Chain) bool {
		return chain.ID == id
	})
	if index < 0 {
		return Chain{}, false
	}
	return supportedChains[index], true
}
