package utils

import (
	"bytes"
	"io"
	"os/exec"
	"sync"
)

// RunCommand runs command and returns its stdout and its interleaved stdout and stderr, along with any error from
// running it.
func RunCommand(command *exec.Cmd) ([]byte, []byte, error) {
	var stdout bytes.Buffer
	combined := &lockedBuffer{}
	command.Stdout = io.MultiWriter(&stdout, combined)
	command.Stderr = combined
	err := command.Run()
	return stdout.Bytes(), combined.Bytes(), err
}

// lockedBuffer is a bytes.Buffer that can be written from the stdout and stderr copiers at once.
type lockedBuffer struct {
	lock   sync.Mutex
	buffer bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buffer.Write(p)
}

// Bytes returns the bytes written so far.
func (b *lockedBuffer) Bytes() []byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buffer.Bytes()
}
