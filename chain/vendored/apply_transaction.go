// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package vendored

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core"
	gethState "github.com/crytic/medusa-geth/core/state"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/core/vm"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/medusa-geth/params"
)

// EVMApplyTransaction is a vendored version of go-ethereum's unexported applyTransaction method. It applies msg to
// statedb on the provided EVM as if the transaction it was derived from had already been validated, and returns the
// receipt together with the core.ExecutionResult.
// Changes from upstream:
// - Exposed core.ExecutionResult as a return value.
// - Contract creations whose init bytecode hash appears in addressOverrides report the overridden address.
func EVMApplyTransaction(msg *core.Message, config *params.ChainConfig, addressOverrides map[common.Hash]common.Address, gp *core.GasPool, statedb *gethState.StateDB, blockNumber *big.Int, blockHash common.Hash, tx *gethTypes.Transaction, usedGas *uint64, evm *vm.EVM) (*gethTypes.Receipt, *core.ExecutionResult, error) {
	result, err := core.ApplyMessage(evm, msg, gp)
	if err != nil {
		return nil, nil, err
	}

	var root []byte
	if config.IsByzantium(blockNumber) {
		statedb.Finalise(true)
	} else {
		root = statedb.IntermediateRoot(config.IsEIP158(blockNumber)).Bytes()
	}
	*usedGas += result.UsedGas

	receipt := &gethTypes.Receipt{Type: tx.Type(), PostState: root, CumulativeGasUsed: *usedGas}
	if result.Failed() {
		receipt.Status = gethTypes.ReceiptStatusFailed
	} else {
		receipt.Status = gethTypes.ReceiptStatusSuccessful
	}
	receipt.TxHash = tx.Hash()
	receipt.GasUsed = result.UsedGas

	if msg.To == nil {
		if overrideAddr, ok := addressOverrides[crypto.Keccak256Hash(msg.Data)]; ok {
			receipt.ContractAddress = overrideAddr
		} else {
			receipt.ContractAddress = crypto.CreateAddress(msg.From, tx.Nonce())
		}
	}

	receipt.Logs = statedb.GetLogs(tx.Hash(), blockNumber.Uint64(), blockHash)
	receipt.Bloom = gethTypes.CreateBloom(receipt)
	receipt.BlockHash = blockHash
	receipt.BlockNumber = blockNumber
	receipt.TransactionIndex = uint(statedb.TxIndex())
	return receipt, result, nil
}
