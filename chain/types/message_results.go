package types

import (
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core"
	gethTypes "github.com/crytic/medusa-geth/core/types"
)

// MessageResults represents the results of executing a message in a Block.
type MessageResults struct {
	// PostStateRoot refers to the state root hash after the execution of this transaction.
	PostStateRoot common.Hash

	// ExecutionResult describes the core.ExecutionResult returned after processing the message.
	ExecutionResult *core.ExecutionResult

	// Receipt represents the transaction receipt.
	Receipt *gethTypes.Receipt
}

// CreatedAddress returns the address of the contract the message created, or nil if it created none or failed.
func (m *MessageResults) CreatedAddress() *common.Address {
	if m.Receipt == nil || m.Receipt.Status != gethTypes.ReceiptStatusSuccessful {
		return nil
	}
	if m.Receipt.ContractAddress == (common.Address{}) {
		return nil
	}
	address := m.Receipt.ContractAddress
	return &address
}
