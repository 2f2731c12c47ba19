package utils

import (
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHexStringToAddress ensures addresses parse with or without a prefix and malformed input is rejected.
func TestHexStringToAddress(t *testing.T) {
	expected := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	address, err := HexStringToAddress("0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Equal(t, expected, address)

	address, err = HexStringToAddress("00000000000000000000000000000000000000aa")
	require.NoError(t, err)
	assert.Equal(t, expected, address)

	for _, invalid := range []string{"", "0x", "0xaa", "0xzz000000000000000000000000000000000000aa", "0x0000000000000000000000000000000000000000aa"} {
		_, err = HexStringToAddress(invalid)
		assert.Error(t, err, invalid)
	}
}
