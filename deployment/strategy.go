package deployment

import (
	"context"
	"fmt"

	"github.com/crytic/medusa-geth/common"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/sollab/chain"
	"github.com/crytic/sollab/compilation/types"
	"github.com/crytic/sollab/wallet"
)

// Status strings written to the editor state.
const (
	StatusDeploying             = "Deploying..."
	StatusCompileFailed         = "Error: Compilation failed, cannot deploy."
	StatusNoAddressReturned     = "Error: Deployment failed, no address returned"
	StatusReceiptMissingAddress = "Error: Transaction receipt did not include a contract address"
	statusDeployedPrefix        = "Deployed successfully at: "
	statusDeploymentErrorPrefix = "Deployment Error: "
	statusErrorPrefix           = "Error: "
)

// LocalNetwork names the simulated chain in DeployedContract references.
const LocalNetwork = "local"

// Submission is the result of a successful strategy submission.
type Submission struct {
	Address common.Address

	// Network names where the contract was deployed.
	Network string

	// TransactionHash is the hash of the creation transaction, if it was broadcast.
	TransactionHash *common.Hash

	// Logs are the logs emitted by the constructor, if known.
	Logs []*gethTypes.Log
}

// Strategy submits a compiled artifact to a network. Failures are returned as a *DeployError.
type Strategy interface {
	// Name identifies the strategy in logs and events.
	Name() string

	// Submit deploys artifact with the given constructor arguments.
	Submit(ctx context.Context, artifact *types.ContractArtifact, args []any) (*Submission, error)
}

// failure creates a DeployError with an "Error: " status.
func failure(kind ErrorKind, err error) *DeployError {
	return &DeployError{Kind: kind, Status: statusErrorPrefix + err.Error(), Err: err}
}

// LocalStrategy deploys to the simulated chain and commits the deployment in a new block.
type LocalStrategy struct {
	chain *chain.TestChain
}

// NewLocalStrategy creates a LocalStrategy over testChain.
func NewLocalStrategy(testChain *chain.TestChain) *LocalStrategy {
	return &LocalStrategy{chain: testChain}
}

// Name implements Strategy.
func (s *LocalStrategy) Name() string {
	return "local"
}

// Submit implements Strategy. The first structured error reported by the chain fails the deployment.
func (s *LocalStrategy) Submit(ctx context.Context, artifact *types.ContractArtifact, args []any) (*Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure(LocalExecutionFailed, err)
	}
	bytecode, err := artifact.InitBytecode()
	if err != nil {
		return nil, failure(ArtifactInvalid, err)
	}

	result, err := s.chain.DeployContract(chain.DeployRequest{
		Abi:      &artifact.Abi,
		Bytecode: bytecode,
		Args:     args,
		Commit:   true,
	})
	if err != nil {
		return nil, failure(LocalExecutionFailed, err)
	}
	if len(result.Errors) > 0 {
		first := result.Errors[0]
		return nil, &DeployError{Kind: LocalExecutionFailed, Status: statusDeploymentErrorPrefix + first.Message, Err: first}
	}
	if result.CreatedAddress == nil {
		return nil, &DeployError{Kind: MissingCreatedAddress, Status: StatusNoAddressReturned, Err: ErrNoAddressReturned}
	}

	txHash := result.TransactionHash
	return &Submission{
		Address:         *result.CreatedAddress,
		Network:         LocalNetwork,
		TransactionHash: &txHash,
		Logs:            result.Logs,
	}, nil
}

// LiveStrategy deploys through a wallet session: it submits a signed transaction and waits for its receipt.
type LiveStrategy struct {
	session wallet.Session
}

// NewLiveStrategy creates a LiveStrategy over session, which must be able to deploy.
func NewLiveStrategy(session wallet.Session) *LiveStrategy {
	return &LiveStrategy{session: session}
}

// Name implements Strategy.
func (s *LiveStrategy) Name() string {
	return s.session.Chain.Name
}

// Submit implements Strategy. Submission and receipt failures are TransactionFailed; a receipt without a contract
// address is ReceiptMissingAddress.
func (s *LiveStrategy) Submit(ctx context.Context, artifact *types.ContractArtifact, args []any) (*Submission, error) {
	data, err := artifact.GetDeploymentMessageData(args)
	if err != nil {
		return nil, failure(ArtifactInvalid, err)
	}

	txHash, err := s.session.Signer.SendDeployment(ctx, data)
	if err != nil {
		return nil, failure(TransactionFailed, err)
	}
	receipt, err := s.session.Reader.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, failure(TransactionFailed, err)
	}
	if receipt.Status != gethTypes.ReceiptStatusSuccessful {
		return nil, failure(TransactionFailed, fmt.Errorf("transaction %v reverted", txHash.Hex()))
	}
	if receipt.ContractAddress == (common.Address{}) {
		return nil, &DeployError{Kind: ReceiptMissingAddress, Status: StatusReceiptMissingAddress, Err: ErrReceiptMissingAddress}
	}

	return &Submission{
		Address:         receipt.ContractAddress,
		Network:         s.session.Chain.Name,
		TransactionHash: &txHash,
		Logs:            receipt.Logs,
	}, nil
}
