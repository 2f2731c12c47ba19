package types

import (
	"math/big"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core"
	gethTypes "github.com/crytic/medusa-geth/core/types"
)

// Block represents a block committed to, or pending on, a chain.TestChain.
type Block struct {
	// Hash is the hash of Header.
	Hash common.Hash

	// Header is the block header.
	Header *gethTypes.Header

	// Messages are the messages (internal transactions) executed in this block.
	Messages []*core.Message

	// MessageResults holds the results of Messages, index for index.
	MessageResults []*MessageResults
}

// NewBlock returns a block with the given header and no messages.
func NewBlock(header *gethTypes.Header) *Block {
	return &Block{
		Hash:           header.Hash(),
		Header:         header,
		Messages:       make([]*core.Message, 0),
		MessageResults: make([]*MessageResults, 0),
	}
}

// BaseBlockContext stores the block-level information a pending block is created with.
type BaseBlockContext struct {
	Number   *big.Int
	Time     uint64
	BaseFee  *big.Int
	Coinbase common.Address
}

// NewBaseBlockContext returns a new BaseBlockContext with the provided parameters.
func NewBaseBlockContext(number uint64, time uint64, baseFee *big.Int, coinbase common.Address) *BaseBlockContext {
	return &BaseBlockContext{
		Number:   new(big.Int).SetUint64(number),
		Time:     time,
		BaseFee:  new(big.Int).Set(baseFee),
		Coinbase: coinbase,
	}
}
