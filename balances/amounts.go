package balances

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ParseTokenAmount parses a human-readable token amount, e.g. "1.5", into base units of a token with the given
// decimals. Amounts with more fractional digits than the token supports, and negative amounts, are rejected.
func ParseTokenAmount(amount string, decimals uint8) (*big.Int, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid token amount %q: %w", amount, err)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("token amount %v is negative", amount)
	}
	scaled := value.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("token amount %v has more than %d decimal places", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatTokenAmount formats an amount of base units of a token with the given decimals, e.g. 1500000 with 6 decimals
// is "1.5".
func FormatTokenAmount(amount *big.Int, decimals uint8) string {
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
