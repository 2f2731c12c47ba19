package config

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core/vm"
	"github.com/pkg/errors"
)

// TestChainConfig represents the configuration of the local simulated chain.
type TestChainConfig struct {
	// ChainID is the chain id reported by the simulated chain.
	ChainID uint64 `json:"chainId"`

	// BlockGasLimit defines the maximum amount of gas that can be consumed by the transactions in a block.
	BlockGasLimit uint64 `json:"blockGasLimit"`

	// TransactionGasLimit defines the gas limit of every message sent to the chain.
	TransactionGasLimit uint64 `json:"transactionGasLimit"`

	// CodeSizeCheckDisabled indicates whether code size checks should be disabled in the EVM. This allows oversized
	// contracts to be deployed locally.
	CodeSizeCheckDisabled bool `json:"codeSizeCheckDisabled"`

	// DeployerAddress is the funded account local deployments are sent from.
	DeployerAddress string `json:"deployerAddress"`

	// DeployerBalance is the deployer's genesis balance in wei, as a base 10 string.
	DeployerBalance string `json:"deployerBalance"`

	// ContractAddressOverrides maps init bytecode hashes to the address the contract should be deployed at.
	ContractAddressOverrides map[common.Hash]common.Address `json:"contractAddressOverrides,omitempty"`
}

// GetVMConfigExtensions derives a vm.ConfigExtensions from the provided TestChainConfig.
func (t *TestChainConfig) GetVMConfigExtensions() *vm.ConfigExtensions {
	// medusa-geth updates the overrides ephemerally, so they are copied.
	contractAddressOverrides := make(map[common.Hash]common.Address, len(t.ContractAddressOverrides))
	for hash, addr := range t.ContractAddressOverrides {
		contractAddressOverrides[hash] = addr
	}

	return &vm.ConfigExtensions{
		OverrideCodeSizeCheck:    t.CodeSizeCheckDisabled,
		AdditionalPrecompiles:    make(map[common.Address]vm.PrecompiledContract),
		ContractAddressOverrides: contractAddressOverrides,
	}
}

// Deployer returns the parsed deployer address and genesis balance.
func (t *TestChainConfig) Deployer() (common.Address, *big.Int, error) {
	if !common.IsHexAddress(t.DeployerAddress) {
		return common.Address{}, nil, errors.Errorf("invalid deployer address %q", t.DeployerAddress)
	}
	balance, ok := new(big.Int).SetString(t.DeployerBalance, 10)
	if !ok || balance.Sign() < 0 {
		return common.Address{}, nil, errors.Errorf("invalid deployer balance %q", t.DeployerBalance)
	}
	return common.HexToAddress(t.DeployerAddress), balance, nil
}

// Validate checks the configuration for errors.
func (t *TestChainConfig) Validate() error {
	if t.ChainID == 0 {
		return errors.New("chain id must be non-zero")
	}
	if t.BlockGasLimit == 0 || t.TransactionGasLimit == 0 {
		return errors.New("block and transaction gas limit cannot be zero")
	}
	if t.BlockGasLimit < t.TransactionGasLimit {
		return errors.New("block gas limit cannot be less than transaction gas limit")
	}
	_, _, err := t.Deployer()
	return err
}
