package deployment

import (
	"context"
	"errors"
	"time"

	"github.com/crytic/sollab/chain"
	"github.com/crytic/sollab/compilation"
	"github.com/crytic/sollab/compilation/abiutils"
	"github.com/crytic/sollab/compilation/types"
	"github.com/crytic/sollab/events"
	"github.com/crytic/sollab/logging"
	"github.com/crytic/sollab/logging/colors"
	"github.com/crytic/sollab/wallet"
	"github.com/crytic/sollab/workspace"
)

// SessionSource provides the current wallet session.
type SessionSource interface {
	Session() wallet.Session
}

// DeployOutcome describes a successful deployment.
type DeployOutcome struct {
	Contract workspace.DeployedContract

	// Strategy names the strategy that performed the deployment.
	Strategy string

	// Compiled indicates whether the source had to be compiled first.
	Compiled bool
}

// DeploymentStartedEvent is published once an artifact is available and a strategy has been chosen.
type DeploymentStartedEvent struct {
	Artifact *types.ContractArtifact
	Strategy string
}

// DeploymentFinishedEvent is published after every deployment that reached a strategy, successful or not.
type DeploymentFinishedEvent struct {
	Outcome *DeployOutcome
	Err     error
}

// DeployerEvents are the events a Deployer publishes.
type DeployerEvents struct {
	DeploymentStarted  events.EventEmitter[DeploymentStartedEvent]
	DeploymentFinished events.EventEmitter[DeploymentFinishedEvent]
}

// Deployer compiles the editor's source if needed and deploys the resulting artifact. Deployments go to a live network
// when the wallet session can deploy, otherwise to the local simulated chain.
type Deployer struct {
	compiler  *compilation.Compiler
	local     *chain.TestChain
	editor    *workspace.Editor
	contracts *workspace.Contracts
	sessions  SessionSource

	Events DeployerEvents
	logger *logging.Logger
}

// NewDeployer creates a Deployer. sessions may be nil, in which case deployments are always local.
func NewDeployer(compiler *compilation.Compiler, local *chain.TestChain, editor *workspace.Editor, contracts *workspace.Contracts, sessions SessionSource) *Deployer {
	return &Deployer{
		compiler:  compiler,
		local:     local,
		editor:    editor,
		contracts: contracts,
		sessions:  sessions,
		logger:    logging.GlobalLogger.NewSubLogger("module", logging.DEPLOYMENT_SERVICE),
	}
}

// Deploy deploys the editor's contract with the given constructor arguments.
func (d *Deployer) Deploy(ctx context.Context, args []any) (*DeployOutcome, error) {
	return d.deploy(ctx, func(*types.ContractArtifact) ([]any, error) {
		return args, nil
	})
}

// DeployWithRawArgs deploys the editor's contract, parsing rawArgs against the constructor of the artifact being
// deployed.
func (d *Deployer) DeployWithRawArgs(ctx context.Context, rawArgs []string) (*DeployOutcome, error) {
	return d.deploy(ctx, func(artifact *types.ContractArtifact) ([]any, error) {
		return abiutils.ParseConstructorArgs(&artifact.Abi, rawArgs)
	})
}

// deploy implements Deploy. The busy flag is held for the whole operation, including any compilation. On failure the
// previously deployed contract, if any, is left untouched.
func (d *Deployer) deploy(ctx context.Context, argsFor func(*types.ContractArtifact) ([]any, error)) (*DeployOutcome, error) {
	if !d.editor.TryBeginBusy() {
		d.editor.SetStatus(compilation.StatusBusy)
		return nil, &DeployError{Kind: Busy, Status: compilation.StatusBusy, Err: compilation.ErrBusy}
	}
	defer d.editor.EndBusy()

	state := d.editor.Snapshot()
	artifact := state.Artifact
	compiled := false
	if !state.Compiled() {
		outcome, err := d.compiler.CompileLocked(ctx, state.Code)
		if err != nil {
			// The compiler has already recorded why it failed.
			return nil, &DeployError{Kind: CompileFailed, Err: err}
		}
		artifact = outcome.Artifact
		compiled = true
	}
	if !artifact.IsValid() {
		d.editor.SetStatus(StatusCompileFailed)
		return nil, &DeployError{Kind: CompileFailed, Status: StatusCompileFailed, Err: ErrArtifactUnavailable}
	}

	args, err := argsFor(artifact)
	if err != nil {
		return nil, d.fail(failure(InvalidArguments, err))
	}

	d.editor.SetStatus(StatusDeploying)
	strategy := d.strategy()
	if err := d.Events.DeploymentStarted.Publish(DeploymentStartedEvent{Artifact: artifact, Strategy: strategy.Name()}); err != nil {
		d.logger.Debug("Deployment started event handler failed", err)
	}
	d.logger.Info("Deploying ", colors.Bold, artifact.Name, colors.Reset, " to ", strategy.Name())

	submission, err := strategy.Submit(ctx, artifact, args)
	if err != nil {
		var deployErr *DeployError
		if !errors.As(err, &deployErr) {
			deployErr = failure(TransactionFailed, err)
		}
		d.publishFinished(nil, deployErr)
		return nil, d.fail(deployErr)
	}
	d.logConstructorEvents(artifact, submission)

	contract := workspace.DeployedContract{
		Address:         submission.Address,
		Abi:             artifact.AbiJSON,
		Name:            artifact.Name,
		Network:         submission.Network,
		TransactionHash: submission.TransactionHash,
		DeployedAt:      time.Now(),
	}
	if err := d.contracts.Set(contract); err != nil {
		deployErr := failure(PersistenceFailed, err)
		d.publishFinished(nil, deployErr)
		return nil, d.fail(deployErr)
	}

	d.editor.SetStatus(statusDeployedPrefix + submission.Address.Hex())
	d.logger.Info(colors.Green, "Deployed ", colors.Bold, artifact.Name, colors.Reset, " at ", submission.Address.Hex())
	outcome := &DeployOutcome{Contract: contract, Strategy: strategy.Name(), Compiled: compiled}
	d.publishFinished(outcome, nil)
	return outcome, nil
}

// strategy selects the live strategy if the current session can deploy, otherwise the local one.
func (d *Deployer) strategy() Strategy {
	if d.sessions != nil {
		if session := d.sessions.Session(); session.CanDeploy() {
			return NewLiveStrategy(session)
		}
	}
	return NewLocalStrategy(d.local)
}

// fail records the failure's status and returns it.
func (d *Deployer) fail(deployErr *DeployError) *DeployError {
	if deployErr.Status != "" {
		d.editor.SetStatus(deployErr.Status)
	}
	d.logger.Error("Deployment failed", deployErr.Err)
	return deployErr
}

// logConstructorEvents logs the events the constructor emitted that the contract's ABI can decode.
func (d *Deployer) logConstructorEvents(artifact *types.ContractArtifact, submission *Submission) {
	for _, eventLog := range submission.Logs {
		if eventLog.Address != submission.Address {
			continue
		}
		event, values := abiutils.UnpackEventAndValues(&artifact.Abi, eventLog)
		if event == nil {
			continue
		}
		d.logger.Info("Constructor emitted ", colors.Bold, event.Sig, colors.Reset, " ", values)
	}
}

// publishFinished publishes a DeploymentFinishedEvent, logging handler failures.
func (d *Deployer) publishFinished(outcome *DeployOutcome, err error) {
	if publishErr := d.Events.DeploymentFinished.Publish(DeploymentFinishedEvent{Outcome: outcome, Err: err}); publishErr != nil {
		d.logger.Debug("Deployment finished event handler failed", publishErr)
	}
}

// LocalChain returns the simulated chain local deployments go to.
func (d *Deployer) LocalChain() *chain.TestChain {
	return d.local
}

// DeployedContract returns the current deployed contract reference, if any.
func (d *Deployer) DeployedContract() (workspace.DeployedContract, bool) {
	return d.contracts.Get()
}
