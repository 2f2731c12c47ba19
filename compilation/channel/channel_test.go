package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crytic/sollab/compilation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport exposes the boundary to the test: posted requests are readable from posted, and the test decides
// what is broadcast on responses.
type fakeTransport struct {
	posted    chan []byte
	responses chan []byte
	closeOnce sync.Once
	closes    atomic.Int32
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{posted: make(chan []byte, 8), responses: make(chan []byte, 8)}
}

func (f *fakeTransport) Post(message []byte) error {
	f.posted <- message
	return nil
}

func (f *fakeTransport) Responses() <-chan []byte {
	return f.responses
}

func (f *fakeTransport) Close() error {
	f.closes.Add(1)
	f.closeOnce.Do(func() { close(f.responses) })
	return nil
}

// fakeBackend answers every compilation with a contract named after the first source path.
type fakeBackend struct {
	err   error
	calls atomic.Int32
}

func (f *fakeBackend) Platform() string {
	return "fake"
}

func (f *fakeBackend) CompileStandardJSON(ctx context.Context, input []byte) ([]byte, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	var document types.StandardJSONInput
	if err := json.Unmarshal(input, &document); err != nil {
		return nil, err
	}
	path := document.Sources.Paths()[0]
	output := types.CompilerOutput{Contracts: map[string]map[string]types.ContractOutput{
		path: {"C": {Evm: types.EVMOutput{Bytecode: types.BytecodeOutput{Object: "6000"}}}},
	}}
	return json.Marshal(output)
}

// singleSource returns a SourceMap holding one source.
func singleSource(t *testing.T, path string) types.SourceMap {
	sources := types.NewSourceMap()
	require.NoError(t, sources.Add(path, "contract C {}"))
	return sources
}

// TestChannelIgnoresForeignResponses ensures stale and malformed broadcasts are dropped and only the response with
// the request's id completes it.
func TestChannelIgnoresForeignResponses(t *testing.T) {
	transport := newFakeTransport()
	channel := NewChannel(func() (Transport, error) { return transport, nil })
	defer channel.Close()

	go func() {
		request, err := types.DecodeCompileRequest(<-transport.posted)
		if err != nil {
			return
		}
		stale, _ := types.EncodeCompileResponse(&types.CompileResponse{ID: "stale", Success: false, Error: "old"})
		ours, _ := types.EncodeCompileResponse(&types.CompileResponse{ID: request.ID, Success: true, Output: &types.CompilerOutput{}})
		transport.responses <- stale
		transport.responses <- []byte("not json")
		transport.responses <- ours
	}()

	response, err := channel.Compile(context.Background(), singleSource(t, "contract.sol"), types.CompilerSettings{})
	require.NoError(t, err)
	assert.True(t, response.Success)
	assert.NotEqual(t, "stale", response.ID)
	assert.Equal(t, 0, channel.pendingCount())
}

// TestChannelLazyStartAndIdempotentClose ensures the boundary starts on first use only, that Close can be repeated
// and that a Compile after Close starts a fresh boundary.
func TestChannelLazyStartAndIdempotentClose(t *testing.T) {
	var starts atomic.Int32
	backend := &fakeBackend{}
	channel := NewChannel(func() (Transport, error) {
		starts.Add(1)
		return NewWorkerTransport(backend), nil
	})

	assert.NoError(t, channel.Close())
	assert.False(t, channel.Started())
	assert.EqualValues(t, 0, starts.Load())

	for i := 0; i < 2; i++ {
		_, err := channel.Compile(context.Background(), singleSource(t, "contract.sol"), types.CompilerSettings{})
		require.NoError(t, err)
	}
	assert.True(t, channel.Started())
	assert.EqualValues(t, 1, starts.Load())

	assert.NoError(t, channel.Close())
	assert.NoError(t, channel.Close())
	assert.False(t, channel.Started())

	_, err := channel.Compile(context.Background(), singleSource(t, "contract.sol"), types.CompilerSettings{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, starts.Load())
	assert.NoError(t, channel.Close())
}

// TestChannelStartFailure ensures a boundary that cannot start is reported and retried on the next call.
func TestChannelStartFailure(t *testing.T) {
	channel := NewChannel(WorkerTransportFactory(nil))
	_, err := channel.Compile(context.Background(), singleSource(t, "contract.sol"), types.CompilerSettings{})
	assert.ErrorContains(t, err, "could not start compiler boundary")
	assert.False(t, channel.Started())
}

// TestChannelCloseFailsPending ensures a request waiting on a torn down boundary fails instead of hanging.
func TestChannelCloseFailsPending(t *testing.T) {
	transport := newFakeTransport()
	channel := NewChannel(func() (Transport, error) { return transport, nil })

	result := make(chan error, 1)
	go func() {
		_, err := channel.Compile(context.Background(), singleSource(t, "contract.sol"), types.CompilerSettings{})
		result <- err
	}()
	<-transport.posted
	require.NoError(t, channel.Close())

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrChannelClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("pending compile did not fail after close")
	}
}

// TestChannelContextCancel ensures a cancelled wait unregisters its handle.
func TestChannelContextCancel(t *testing.T) {
	transport := newFakeTransport()
	channel := NewChannel(func() (Transport, error) { return transport, nil })
	defer channel.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-transport.posted
		cancel()
	}()
	_, err := channel.Compile(ctx, singleSource(t, "contract.sol"), types.CompilerSettings{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, channel.pendingCount())
}

// TestWorkerTransportResponses ensures worker responses carry compiler output on success and the backend's error on
// failure, and that concurrent callers each receive their own response.
func TestWorkerTransportResponses(t *testing.T) {
	backend := &fakeBackend{}
	channel := NewChannel(WorkerTransportFactory(backend))
	defer channel.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("source%d.sol", i)
			response, err := channel.Compile(context.Background(), singleSource(t, path), types.CompilerSettings{})
			if assert.NoError(t, err) && assert.True(t, response.Success) {
				_, ok := response.Output.Contract(path, "C")
				assert.True(t, ok, path)
			}
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 8, backend.calls.Load())

	backend.err = errors.New("solc not found")
	response, err := channel.Compile(context.Background(), singleSource(t, "contract.sol"), types.CompilerSettings{})
	require.NoError(t, err)
	assert.False(t, response.Success)
	assert.Equal(t, "solc not found", response.Error)
}

// TestWorkerTransportPostAfterClose ensures a closed worker rejects new requests.
func TestWorkerTransportPostAfterClose(t *testing.T) {
	worker := NewWorkerTransport(&fakeBackend{})
	require.NoError(t, worker.Close())
	require.NoError(t, worker.Close())
	assert.ErrorIs(t, worker.Post([]byte(`{}`)), ErrChannelClosed)

	_, open := <-worker.Responses()
	assert.False(t, open)
}
