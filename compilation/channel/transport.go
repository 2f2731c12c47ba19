package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/crytic/sollab/compilation/platforms"
	"github.com/crytic/sollab/compilation/types"
)

// ErrChannelClosed is returned for requests that cannot complete because the boundary was torn down.
var ErrChannelClosed = errors.New("compiler channel is closed")

// Transport carries serialized messages across the compiler boundary. Responses is a broadcast surface: it may
// carry responses to requests the caller never sent, and it is closed once the transport shuts down.
type Transport interface {
	Post(message []byte) error
	Responses() <-chan []byte
	Close() error
}

// TransportFactory creates a started Transport.
type TransportFactory func() (Transport, error)

// WorkerTransport isolates compilation in a worker goroutine that owns the compiler backend. The worker only sees
// serialized requests and only emits serialized responses, so it shares no mutable state with its callers. Requests
// are compiled one at a time in the order they were posted.
type WorkerTransport struct {
	backend   platforms.Backend
	requests  chan []byte
	responses chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWorkerTransport starts a worker goroutine compiling with backend.
func NewWorkerTransport(backend platforms.Backend) *WorkerTransport {
	ctx, cancel := context.WithCancel(context.Background())
	w := &WorkerTransport{
		backend:   backend,
		requests:  make(chan []byte, 16),
		responses: make(chan []byte, 16),
		ctx:       ctx,
		cancel:    cancel,
		closed:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// WorkerTransportFactory returns a TransportFactory starting a WorkerTransport over backend.
func WorkerTransportFactory(backend platforms.Backend) TransportFactory {
	return func() (Transport, error) {
		if backend == nil {
			return nil, errors.New("no compiler backend configured")
		}
		return NewWorkerTransport(backend), nil
	}
}

// Post implements Transport.
func (w *WorkerTransport) Post(message []byte) error {
	select {
	case <-w.closed:
		return ErrChannelClosed
	default:
	}
	select {
	case <-w.closed:
		return ErrChannelClosed
	case w.requests <- message:
		return nil
	}
}

// Responses implements Transport.
func (w *WorkerTransport) Responses() <-chan []byte {
	return w.responses
}

// Close stops the worker, aborting an in-flight compilation, and waits for it to exit. Calling Close more than once
// is a no-op.
func (w *WorkerTransport) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		close(w.closed)
		w.wg.Wait()
	})
	return nil
}

// run is the worker loop. It owns the responses channel and closes it on exit.
func (w *WorkerTransport) run() {
	defer w.wg.Done()
	defer close(w.responses)

	for {
		select {
		case <-w.closed:
			return
		case message := <-w.requests:
			response := w.handle(message)
			encoded, err := types.EncodeCompileResponse(response)
			if err != nil {
				encoded, _ = types.EncodeCompileResponse(types.NewCompileFailure(response.ID, err))
			}
			select {
			case <-w.closed:
				return
			case w.responses <- encoded:
			}
		}
	}
}

// handle compiles a single serialized request. Every failure is reported in the response rather than dropped, so
// the caller waiting on the id is always answered.
func (w *WorkerTransport) handle(message []byte) *types.CompileResponse {
	request, err := types.DecodeCompileRequest(message)
	if err != nil {
		var envelope struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(message, &envelope)
		return types.NewCompileFailure(envelope.ID, fmt.Errorf("malformed compile request: %w", err))
	}

	input, err := json.Marshal(request.StandardJSONInput())
	if err != nil {
		return types.NewCompileFailure(request.ID, err)
	}

	out, err := w.backend.CompileStandardJSON(w.ctx, input)
	if err != nil {
		return types.NewCompileFailure(request.ID, err)
	}

	var output types.CompilerOutput
	if err := json.Unmarshal(out, &output); err != nil {
		return types.NewCompileFailure(request.ID, fmt.Errorf("could not decode %v output: %w", w.backend.Platform(), err))
	}
	return &types.CompileResponse{ID: request.ID, Success: true, Output: &output}
}
