package testutils

import (
	"fmt"

	"github.com/crytic/medusa-geth/common"
)

// MappingTokenABI is the ABI of the contracts produced by MappingTokenInitCode.
const MappingTokenABI = `[{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}]`

// RevertingInitCode is init bytecode whose constructor always reverts with empty return data.
var RevertingInitCode = common.FromHex("60006000fd")

// MappingTokenRuntimeCode returns the runtime bytecode of a minimal token whose every call returns
// `balances[account]`, where balances is a mapping(address => uint256) declared at the given storage slot and account
// is the first calldata argument.
func MappingTokenRuntimeCode(slot byte) []byte {
	return common.FromHex(fmt.Sprintf(
		"600435"+ // calldataload(4)
			"600052"+ // mstore(0, account)
			"60%02x602052"+ // mstore(32, slot)
			"6040600020"+ // keccak256(0, 64)
			"54"+ // sload
			"600052"+ // mstore(0, balance)
			"60206000f3", // return(0, 32)
		slot,
	))
}

// MappingTokenInitCode returns init bytecode deploying MappingTokenRuntimeCode(slot).
func MappingTokenInitCode(slot byte) []byte {
	// codecopy(0, 12, 25); return(0, 25)
	initCode := common.FromHex("6019600c60003960196000f3")
	return append(initCode, MappingTokenRuntimeCode(slot)...)
}
