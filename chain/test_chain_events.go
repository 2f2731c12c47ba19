package chain

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/sollab/chain/types"
	"github.com/crytic/sollab/events"
)

// TestChainEvents defines event emitters for a TestChain.
type TestChainEvents struct {
	// BlockCommitted emits events when a pending block is committed as the new chain head.
	BlockCommitted events.EventEmitter[BlockCommittedEvent]

	// ContractDeployed emits events when a contract creation is committed to the chain.
	ContractDeployed events.EventEmitter[ContractDeployedEvent]
}

// BlockCommittedEvent describes a block being committed to the TestChain.
type BlockCommittedEvent struct {
	Chain *TestChain
	Block *types.Block
}

// ContractDeployedEvent describes a contract creation committed to the TestChain.
type ContractDeployedEvent struct {
	Chain           *TestChain
	Address         common.Address
	TransactionHash common.Hash
	BlockNumber     uint64
}
