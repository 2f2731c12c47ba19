package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/core"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/crytic/sollab/chain/types"
	"github.com/crytic/sollab/compilation/abiutils"
	"github.com/crytic/sollab/logging/colors"
)

// DeployRequest describes a one-shot contract deployment against the TestChain.
type DeployRequest struct {
	// Abi is the contract ABI, used to encode Args and to decode revert reasons. It may be nil when Args is empty.
	Abi *abi.ABI

	// Bytecode is the contract's init bytecode.
	Bytecode []byte

	// Args are the constructor arguments.
	Args []any

	// From is the sender of the creation. The chain's deployer is used if nil.
	From *common.Address

	// Value is the amount of wei sent with the creation, if any.
	Value *big.Int

	// Commit indicates whether the deployment is committed in a new block. Uncommitted deployments are executed and
	// then discarded.
	Commit bool
}

// ExecutionError is a structured error reported by a DeployResult.
type ExecutionError struct {
	// Message describes the failure.
	Message string

	// ReturnData is the return data of a failed execution, if any.
	ReturnData []byte
}

// Error implements error.
func (e ExecutionError) Error() string {
	return e.Message
}

// DeployResult is the outcome of DeployContract. A deployment succeeded if it has no Errors and a CreatedAddress.
type DeployResult struct {
	// CreatedAddress is the address of the created contract, or nil if the creation failed.
	CreatedAddress *common.Address

	// TransactionHash is the hash of the creation transaction.
	TransactionHash common.Hash

	// BlockNumber is the number of the block the creation was committed in, for committed deployments.
	BlockNumber uint64

	// GasUsed is the gas consumed by the creation.
	GasUsed uint64

	// Logs are the logs emitted by the constructor of a committed deployment.
	Logs []*gethTypes.Log

	// Errors lists everything that prevented the deployment from succeeding.
	Errors []ExecutionError

	// block is the committed block, for committed deployments.
	block *types.Block
}

// DeployContract deploys a contract from request. Encoding and execution failures are reported through
// DeployResult.Errors; the error is reserved for failures of the chain itself.
func (t *TestChain) DeployContract(request DeployRequest) (*DeployResult, error) {
	data, err := deploymentData(request)
	if err != nil {
		return &DeployResult{Errors: []ExecutionError{{Message: err.Error()}}}, nil
	}

	t.lock.Lock()
	from := t.deployer
	if request.From != nil {
		from = *request.From
	}
	msg := t.newMessage(from, nil, request.Value, data)
	var result *DeployResult
	if request.Commit {
		result, err = t.deployCommitted(request, msg)
	} else {
		result, err = t.deploySimulated(request, msg)
	}
	t.lock.Unlock()
	if err != nil {
		return nil, err
	}
	if result.block != nil {
		if err := t.Events.BlockCommitted.Publish(BlockCommittedEvent{Chain: t, Block: result.block}); err != nil {
			return result, err
		}
	}
	if result.CreatedAddress == nil || !request.Commit {
		return result, nil
	}

	t.logger.Debug("Deployed contract at ", colors.Bold, result.CreatedAddress.Hex(), colors.Reset, " in block ", result.BlockNumber)
	err = t.Events.ContractDeployed.Publish(ContractDeployedEvent{
		Chain:           t,
		Address:         *result.CreatedAddress,
		TransactionHash: result.TransactionHash,
		BlockNumber:     result.BlockNumber,
	})
	return result, err
}

// deploymentData returns the init bytecode with the packed constructor arguments appended.
func deploymentData(request DeployRequest) ([]byte, error) {
	if len(request.Bytecode) == 0 {
		return nil, fmt.Errorf("no bytecode to deploy")
	}
	data := append([]byte(nil), request.Bytecode...)
	if request.Abi == nil {
		if len(request.Args) > 0 {
			return nil, fmt.Errorf("constructor arguments provided without an ABI")
		}
		return data, nil
	}
	if len(request.Abi.Constructor.Inputs) == 0 && len(request.Args) == 0 {
		return data, nil
	}
	args, err := request.Abi.Pack("", request.Args...)
	if err != nil {
		return nil, fmt.Errorf("could not encode constructor arguments: %w", err)
	}
	return append(data, args...), nil
}

// deployCommitted executes the creation in a new block and commits it.
func (t *TestChain) deployCommitted(request DeployRequest, msg *core.Message) (*DeployResult, error) {
	block, results, err := t.sendMessage(msg)
	if err != nil {
		// A message that cannot be applied at all, e.g. for lack of funds, is a deployment error.
		if isMessageError(err) {
			return &DeployResult{Errors: []ExecutionError{{Message: err.Error()}}}, nil
		}
		return nil, err
	}

	result := &DeployResult{
		TransactionHash: results.Receipt.TxHash,
		BlockNumber:     block.Header.Number.Uint64(),
		GasUsed:         results.Receipt.GasUsed,
		Logs:            results.Receipt.Logs,
		block:           block,
	}
	if executionErr := results.ExecutionResult.Err; executionErr != nil {
		returnData := results.ExecutionResult.Revert()
		result.Errors = append(result.Errors, ExecutionError{
			Message:    abiutils.DescribeExecutionError(request.Abi, executionErr, returnData),
			ReturnData: returnData,
		})
		return result, nil
	}
	result.CreatedAddress = results.CreatedAddress()
	return result, nil
}

// deploySimulated executes the creation over the current state and discards it.
func (t *TestChain) deploySimulated(request DeployRequest, msg *core.Message) (*DeployResult, error) {
	executionResult, err := t.call(msg)
	if err != nil {
		return &DeployResult{Errors: []ExecutionError{{Message: err.Error()}}}, nil
	}

	result := &DeployResult{
		TransactionHash: messageTransaction(msg).Hash(),
		GasUsed:         executionResult.UsedGas,
	}
	if executionResult.Err != nil {
		returnData := executionResult.Revert()
		result.Errors = append(result.Errors, ExecutionError{
			Message:    abiutils.DescribeExecutionError(request.Abi, executionResult.Err, returnData),
			ReturnData: returnData,
		})
		return result, nil
	}
	address := crypto.CreateAddress(msg.From, msg.Nonce)
	if override, ok := t.testChainConfig.ContractAddressOverrides[crypto.Keccak256Hash(msg.Data)]; ok {
		address = override
	}
	result.CreatedAddress = &address
	return result, nil
}

// isMessageError indicates whether err was raised by a message failing pre-execution checks, rather than by the
// chain.
func isMessageError(err error) bool {
	return errors.Is(err, core.ErrInsufficientFunds) ||
		errors.Is(err, core.ErrIntrinsicGas) ||
		errors.Is(err, core.ErrNonceTooLow) ||
		errors.Is(err, core.ErrNonceTooHigh) ||
		errors.Is(err, core.ErrGasLimitReached) ||
		errors.Is(err, core.ErrMaxInitCodeSizeExceeded)
}
