package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/crytic/sollab/compilation/types"
	"github.com/crytic/sollab/logging"
	"github.com/google/uuid"
)

// pendingResult is a handle for a request awaiting its response. It is fulfilled at most once.
type pendingResult struct {
	done     chan struct{}
	response *types.CompileResponse
	err      error
}

// session is one lifetime of the boundary, from lazy start to teardown.
type session struct {
	transport Transport

	lock sync.Mutex
	// closed is set once the transport's response stream has ended.
	closed bool
	// pending maps correlation ids to their handles. Entries are removed when fulfilled or abandoned.
	pending map[string]*pendingResult
}

// Channel is the caller side of the compiler boundary. It assigns each request a correlation id, demultiplexes
// responses by id and discards any it did not originate. The boundary is started on first use and may be restarted
// after Close.
type Channel struct {
	factory TransportFactory
	logger  *logging.Logger

	lock    sync.Mutex
	current *session
}

// NewChannel creates a Channel that starts its boundary with factory on first use.
func NewChannel(factory TransportFactory) *Channel {
	return &Channel{
		factory: factory,
		logger:  logging.GlobalLogger.NewSubLogger("module", logging.COMPILATION_SERVICE),
	}
}

// Started indicates whether the boundary is currently running.
func (c *Channel) Started() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.current != nil
}

// start returns the running session, starting a new one if needed.
func (c *Channel) start() (*session, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.current != nil {
		return c.current, nil
	}

	transport, err := c.factory()
	if err != nil {
		return nil, fmt.Errorf("could not start compiler boundary: %w", err)
	}
	s := &session{transport: transport, pending: make(map[string]*pendingResult)}
	c.current = s
	go c.listen(s)
	c.logger.Debug("Started compiler boundary")
	return s, nil
}

// listen is the demultiplexing listener of a session. It routes each response to the handle registered under its id
// and unregisters the handle. When the transport closes, every remaining handle fails with ErrChannelClosed.
func (c *Channel) listen(s *session) {
	for message := range s.transport.Responses() {
		response, err := types.DecodeCompileResponse(message)
		if err != nil {
			c.logger.Debug("Discarding malformed compiler response", err)
			continue
		}

		s.lock.Lock()
		handle, ok := s.pending[response.ID]
		delete(s.pending, response.ID)
		s.lock.Unlock()

		if !ok {
			c.logger.Trace("Ignoring compiler response with unknown id ", response.ID)
			continue
		}
		handle.response = response
		close(handle.done)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.closed = true
	for id, handle := range s.pending {
		handle.err = ErrChannelClosed
		close(handle.done)
		delete(s.pending, id)
	}
}

// Compile sends the sources across the boundary and waits for the matching response. The returned error reports
// boundary failures only: a response whose Success flag is false is returned as-is. Cancelling ctx abandons the wait,
// but a compilation already handed to the worker runs to completion.
func (c *Channel) Compile(ctx context.Context, sources types.SourceMap, settings types.CompilerSettings) (*types.CompileResponse, error) {
	s, err := c.start()
	if err != nil {
		return nil, err
	}

	request := &types.CompileRequest{ID: uuid.NewString(), Sources: sources, Settings: settings}
	message, err := types.EncodeCompileRequest(request)
	if err != nil {
		return nil, err
	}

	handle := &pendingResult{done: make(chan struct{})}
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		c.discard(s)
		return nil, ErrChannelClosed
	}
	s.pending[request.ID] = handle
	s.lock.Unlock()

	if err := s.transport.Post(message); err != nil {
		s.abandon(request.ID)
		if errors.Is(err, ErrChannelClosed) {
			c.discard(s)
		}
		return nil, err
	}

	select {
	case <-handle.done:
		return handle.response, handle.err
	case <-ctx.Done():
		s.abandon(request.ID)
		return nil, ctx.Err()
	}
}

// discard forgets a session whose transport has shut down on its own, so the next Compile starts a new one.
func (c *Channel) discard(s *session) {
	c.lock.Lock()
	if c.current == s {
		c.current = nil
	}
	c.lock.Unlock()
	_ = s.transport.Close()
}

// abandon unregisters a handle that will no longer be waited on.
func (s *session) abandon(id string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.pending, id)
}

// pendingCount returns the number of registered handles, for tests.
func (c *Channel) pendingCount() int {
	c.lock.Lock()
	s := c.current
	c.lock.Unlock()
	if s == nil {
		return 0
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.pending)
}

// Close tears down the boundary. Waiting requests fail with ErrChannelClosed. Closing a channel that is not running
// is a no-op, and a later Compile starts a fresh boundary.
func (c *Channel) Close() error {
	c.lock.Lock()
	s := c.current
	c.current = nil
	c.lock.Unlock()

	if s == nil {
		return nil
	}
	c.logger.Debug("Stopping compiler boundary")
	return s.transport.Close()
}
