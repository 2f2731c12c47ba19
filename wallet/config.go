package wallet

import (
	"time"

	"github.com/pkg/errors"
)

// Config describes how a live session is established.
type Config struct {
	// RPCUrl is the endpoint of the network's JSON-RPC API.
	RPCUrl string `json:"rpcUrl"`

	// ChainID is the chain id the endpoint is expected to serve. Zero accepts any supported chain.
	ChainID uint64 `json:"chainId"`

	// PrivateKeyEnvironmentVariable names the environment variable holding the hex-encoded signing key. The key itself
	// is never stored in the configuration.
	PrivateKeyEnvironmentVariable string `json:"privateKeyEnvironmentVariable"`

	// ReceiptPollInterval is the time between receipt lookups, in milliseconds.
	ReceiptPollInterval int `json:"receiptPollInterval"`

	// ReceiptTimeout is the time to wait for a receipt before giving up, in seconds. Zero waits until cancelled.
	ReceiptTimeout int `json:"receiptTimeout"`
}

// DefaultConfig returns the default live session configuration.
func DefaultConfig() Config {
	return Config{
		RPCUrl:                        "http://127.0.0.1:8545",
		PrivateKeyEnvironmentVariable: "SOLLAB_PRIVATE_KEY",
		ReceiptPollInterval:           1000,
		ReceiptTimeout:                120,
	}
}

// Validate validates that the Config meets certain requirements.
func (c *Config) Validate() error {
	if c.ReceiptPollInterval <= 0 {
		return errors.Errorf("receipt poll interval must be a positive number")
	}
	if c.ReceiptTimeout < 0 {
		return errors.Errorf("receipt timeout cannot be negative")
	}
	if c.ChainID != 0 {
		if _, ok := ChainByID(c.ChainID); !ok {
			return errors.Errorf("chain id %d is not supported", c.ChainID)
		}
	}
	return nil
}

// pollInterval returns ReceiptPollInterval as a duration.
func (c *Config) pollInterval() time.Duration {
	return time.Duration(c.ReceiptPollInterval) * time.Millisecond
}

// receiptTimeout returns ReceiptTimeout as a duration.
func (c *Config) receiptTimeout() time.Duration {
	return time.Duration(c.ReceiptTimeout) * time.Second
}
