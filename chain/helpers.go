package chain

import (
	"encoding/json"

	"github.com/crytic/medusa-geth/core"
	"github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/params"
)

// messageTransaction wraps msg in an unsigned legacy transaction so it can be hashed and receipted. Messages are
// never signed on the simulated chain, so the sender is placed in the S value to keep equal messages from different
// senders apart.
func messageTransaction(msg *core.Message) *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    msg.Nonce,
		To:       msg.To,
		Value:    msg.Value,
		Gas:      msg.GasLimit,
		GasPrice: msg.GasPrice,
		Data:     msg.Data,
		S:        msg.From.Big(),
	})
}

// copyChainConfig returns a deep copy of config, so forks and overrides can be set per chain.
func copyChainConfig(config *params.ChainConfig) (*params.ChainConfig, error) {
	b, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}
	var copied params.ChainConfig
	if err = json.Unmarshal(b, &copied); err != nil {
		return nil, err
	}
	return &copied, nil
}
