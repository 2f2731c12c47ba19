package config

// DefaultTestChainConfig obtains a default configuration for a chain.TestChain.
func DefaultTestChainConfig() *TestChainConfig {
	return &TestChainConfig{
		ChainID:               1337,
		BlockGasLimit:         30_000_000,
		TransactionGasLimit:   12_500_000,
		CodeSizeCheckDisabled: true,
		DeployerAddress:       "0x0000000000000000000000000000000000030000",
		// 2^128 wei
		DeployerBalance: "340282366920938463463374607431768211456",
	}
}
