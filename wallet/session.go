package wallet

import (
	"errors"
	"sync"

	"github.com/crytic/medusa-geth/common"
	gethTypes "github.com/crytic/medusa-geth/core/types"
	"github.com/crytic/sollab/logging"
	"github.com/crytic/sollab/logging/colors"
	"golang.org/x/net/context"
)

// ErrNotConnected is returned when an operation requires a connected session.
var ErrNotConnected = errors.New("wallet is not connected")

// Signer submits signed contract creation transactions on behalf of the session's account.
type Signer interface {
	// SendDeployment signs and submits a contract creation transaction carrying data, and returns its hash.
	SendDeployment(ctx context.Context, data []byte) (common.Hash, error)
}

// Reader observes the network the session is connected to.
type Reader interface {
	// WaitForReceipt blocks until the receipt of the given transaction is available, or ctx is done.
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*gethTypes.Receipt, error)
}

// Session is a snapshot of the wallet connection. The zero value is a disconnected session.
type Session struct {
	Address   common.Address
	Chain     Chain
	Connected bool

	// Signer and Reader are the session's capabilities. Either may be nil.
	Signer Signer
	Reader Reader
}

// CanDeploy indicates whether the session can deploy contracts to its network, i.e. it is connected and exposes both
// a signing and a read capability.
func (s Session) CanDeploy() bool {
	return s.Connected && s.Signer != nil && s.Reader != nil
}

// Manager owns the current Session.
type Manager struct {
	lock    sync.Mutex
	session Session

	// closer releases the resources of the current session, if any.
	closer func()

	logger *logging.Logger
}

// NewManager creates a Manager with a disconnected session.
func NewManager() *Manager {
	return &Manager{
		logger: logging.GlobalLogger.NewSubLogger("module", logging.WALLET_SERVICE),
	}
}

// Session returns the current session.
func (m *Manager) Session() Session {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.session
}

// Connect dials the network described by config and signs with privateKey, replacing any current session.
func (m *Manager) Connect(ctx context.Context, config Config, privateKey string) (Session, error) {
	rpcSession, err := DialRPCSession(ctx, config, privateKey)
	if err != nil {
		return Session{}, err
	}
	session := Session{
		Address:   rpcSession.Address(),
		Chain:     rpcSession.Chain(),
		Connected: true,
		Signer:    rpcSession,
		Reader:    rpcSession,
	}
	m.Use(session, rpcSession.Close)
	return session, nil
}

// Use replaces the current session with session. closer, if non-nil, is invoked when the session is replaced or
// disconnected.
func (m *Manager) Use(session Session, closer func()) {
	m.lock.Lock()
	previous := m.closer
	m.session = session
	m.closer = closer
	m.lock.Unlock()

	if previous != nil {
		previous()
	}
	if session.Connected {
		m.logger.Info("Connected ", colors.Bold, session.Address.Hex(), colors.Reset, " to ", session.Chain.String())
	}
}

// Disconnect resets the session to the zero session. Disconnecting a disconnected manager is a no-op.
func (m *Manager) Disconnect() {
	m.lock.Lock()
	closer := m.closer
	wasConnected := m.session.Connected
	m.session = Session{}
	m.closer = nil
	m.lock.Unlock()

	if closer != nil {
		closer()
	}
	if wasConnected {
		m.logger.Info("Disconnected wallet")
	}
}
