package types

import "math/big"

// bigOf returns v as a *big.Int, the Go type the ABI encoder expects for uint256.
func bigOf(v int64) *big.Int {
	return big.NewInt(v)
}
