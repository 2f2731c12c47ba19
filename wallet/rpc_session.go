package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/crytic/medusa-geth"
	"github.com/crytic/medusa-geth/common"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/medusa-geth/ethclient"
	"github.com/crytic/medusa-geth/rpc"
	"github.com/crytic/sollab/logging"
	"github.com/crytic/sollab/utils"
	"golang.org/x/net/context"
)

// ErrReceiptTimeout is returned when a receipt is not observed within the configured timeout.
var ErrReceiptTimeout = errors.New("timed out waiting for transaction receipt")

// RPCSession signs with a local private key and talks to a network over JSON-RPC. It implements both Signer and
// Reader.
type RPCSession struct {
	client    *ethclient.Client
	rpcClient *rpc.Client

	privateKey *ecdsa.PrivateKey
	address    common.Address
	chain      Chain

	pollInterval time.Duration
	timeout      time.Duration

	logger *logging.Logger
}

// DialRPCSession connects to config.RPCUrl and verifies that it serves a supported chain matching config.ChainID.
func DialRPCSession(ctx context.Context, config Config, privateKey string) (*RPCSession, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	rpcClient, err := rpc.DialContext(ctx, config.RPCUrl)
	if err != nil {
		return nil, fmt.Errorf("error when creating rpc client: %w", err)
	}
	session, err := NewRPCSession(ctx, rpcClient, config, privateKey)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	return session, nil
}

// NewRPCSession creates a session over an existing rpc client. The session takes ownership of rpcClient.
func NewRPCSession(ctx context.Context, rpcClient *rpc.Client, config Config, privateKey string) (*RPCSession, error) {
	key, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	client := ethclient.NewClient(rpcClient)
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not fetch chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return nil, fmt.Errorf("chain id %v is not supported", chainID)
	}
	chain, ok := ChainByID(chainID.Uint64())
	if !ok {
		return nil, fmt.Errorf("chain id %v is not supported", chainID)
	}
	if config.ChainID != 0 && config.ChainID != chain.ID {
		return nil, fmt.Errorf("endpoint serves chain %v but chain id %d was configured", chain, config.ChainID)
	}

	return &RPCSession{
		client:       client,
		rpcClient:    rpcClient,
		privateKey:   key,
		address:      crypto.PubkeyToAddress(key.PublicKey),
		chain:        chain,
		pollInterval: config.pollInterval(),
		timeout:      config.receiptTimeout(),
		logger:       logging.GlobalLogger.NewSubLogger("module", logging.WALLET_SERVICE),
	}, nil
}

// parsePrivateKey parses a hex-encoded private key, with or without a 0x prefix.
func parsePrivateKey(privateKey string) (*ecdsa.PrivateKey, error) {
	if strings.TrimSpace(privateKey) == "" {
		return nil, fmt.Errorf("no private key provided")
	}
	return utils.HexStringToPrivateKey(privateKey)
}

// Address returns the account the session signs for.
func (s *RPCSession) Address() common.Address {
	return s.address
}

// Chain returns the network the session is connected to.
func (s *RPCSession) Chain() Chain {
	return s.chain
}

// Close releases the underlying rpc client.
func (s *RPCSession) Close() {
	s.rpcClient.Close()
}

// SendDeployment implements Signer. A dynamic fee transaction is sent when the network reports a priority fee,
// otherwise a legacy transaction.
func (s *RPCSession) SendDeployment(ctx context.Context, data []byte) (common.Hash, error) {
	nonce, err := s.client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("could not fetch nonce: %w", err)
	}
	gas, err := s.client.EstimateGas(ctx, ethereum.CallMsg{From: s.address, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("could not estimate gas: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("could not fetch gas price: %w", err)
	}

	var txData gethTypes.TxData
	if tipCap, err := s.client.SuggestGasTipCap(ctx); err == nil {
		txData = &gethTypes.DynamicFeeTx{
			ChainID:   s.chain.BigID(),
			Nonce:     nonce,
			GasTipCap: tipCap,
			GasFeeCap: new(big.Int).Add(new(big.Int).Mul(gasPrice, big.NewInt(2)), tipCap),
			Gas:       gas,
			Data:      data,
		}
	} else {
		s.logger.Debug("Network did not suggest a priority fee, sending a legacy transaction")
		txData = &gethTypes.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			Data:     data,
		}
	}

	tx, err := gethTypes.SignNewTx(s.privateKey, gethTypes.LatestSignerForChainID(s.chain.BigID()), txData)
	if err != nil {
		return common.Hash{}, fmt.Errorf("could not sign transaction: %w", err)
	}
	if err := s.client.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, err
	}
	s.logger.Debug("Sent deployment transaction ", tx.Hash().Hex(), " with nonce ", nonce)
	return tx.Hash(), nil
}

// WaitForReceipt implements Reader by polling for the receipt until it is found.
func (s *RPCSession) WaitForReceipt(ctx context.Context, txHash common.Hash) (*gethTypes.Receipt, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := s.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil {
			return nil, fmt.Errorf("could not fetch receipt of transaction %v: %w", txHash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w %v", ErrReceiptTimeout, txHash.Hex())
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
