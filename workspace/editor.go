package workspace

import (
	"sync"

	"github.com/crytic/sollab/compilation/types"
	"github.com/crytic/sollab/logging"
)

// editorKey is the Store key of the persisted EditorState.
const editorKey = "editor"

// DefaultCode is the source a fresh workspace starts with.
const DefaultCode = `// SPDX-License-Identifier: MIT
pragma solidity ^0.8.24;

contract Counter {
    uint256 public count;

    function increment() public {
        count += 1;
    }
}
`

// EditorState is the shared status surface of the workspace. Code, status and the last compilation error are
// persisted; the compiled artifact and the busy flag only live for the current process.
type EditorState struct {
	Code             string `json:"code"`
	Status           string `json:"deploymentStatus"`
	CompilationError string `json:"compilationError,omitempty"`

	// Artifact is the output of the last successful compilation of Code, or nil.
	Artifact *types.ContractArtifact `json:"-"`

	// Busy is set while a compile or deploy operation is in progress.
	Busy bool `json:"-"`
}

// Compiled indicates whether the state holds an artifact for its current code.
func (s EditorState) Compiled() bool {
	return s.Artifact.IsValid()
}

// Editor owns an EditorState and is the only way to read or update it. All methods are safe for concurrent use and
// every update is persisted to the backing Store, if any.
type Editor struct {
	lock   sync.Mutex
	state  EditorState
	store  Store
	logger *logging.Logger
}

// NewEditor creates an Editor, restoring persisted state from store. A nil store keeps state in memory only.
func NewEditor(store Store) (*Editor, error) {
	editor := &Editor{
		state:  EditorState{Code: DefaultCode},
		store:  store,
		logger: logging.GlobalLogger.NewSubLogger("module", logging.WORKSPACE_SERVICE),
	}
	if store != nil {
		var persisted EditorState
		found, err := store.Get(editorKey, &persisted)
		if err != nil {
			return nil, err
		}
		if found {
			editor.state = persisted
		}
	}
	return editor, nil
}

// Snapshot returns a copy of the current state.
func (e *Editor) Snapshot() EditorState {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.state
}

// update applies fn to the state under lock and persists the result. Persistence failures are logged rather than
// returned, since the in-memory state stays authoritative for the running process.
func (e *Editor) update(fn func(state *EditorState)) {
	e.lock.Lock()
	defer e.lock.Unlock()
	fn(&e.state)
	if e.store != nil {
		if err := e.store.Put(editorKey, e.state); err != nil {
			e.logger.Warn("Failed to persist editor state", err)
		}
	}
}

// SetCode replaces the source code. A changed source invalidates the compiled artifact.
func (e *Editor) SetCode(code string) {
	e.update(func(state *EditorState) {
		if state.Code != code {
			state.Artifact = nil
			state.CompilationError = ""
		}
		state.Code = code
	})
}

// SetStatus sets the human-readable status string.
func (e *Editor) SetStatus(status string) {
	e.update(func(state *EditorState) {
		state.Status = status
	})
}

// SetCompiled stores a successful compilation's artifact together with its status in one update.
func (e *Editor) SetCompiled(artifact *types.ContractArtifact, status string) {
	e.update(func(state *EditorState) {
		state.Artifact = artifact
		state.CompilationError = ""
		state.Status = status
	})
}

// SetCompileFailed records a failed compilation. The previous artifact is dropped, since it no longer matches the
// code.
func (e *Editor) SetCompileFailed(status string, compilationError string) {
	e.update(func(state *EditorState) {
		state.Artifact = nil
		state.CompilationError = compilationError
		state.Status = status
	})
}

// TryBeginBusy sets the busy flag and returns true, or returns false if it was already set.
func (e *Editor) TryBeginBusy() bool {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.state.Busy {
		return false
	}
	e.state.Busy = true
	return true
}

// EndBusy clears the busy flag.
func (e *Editor) EndBusy() {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.state.Busy = false
}

// Reset restores the default code and clears status and artifacts. The busy flag is left alone.
func (e *Editor) Reset() {
	e.update(func(state *EditorState) {
		*state = EditorState{Code: DefaultCode, Busy: state.Busy}
	})
}
