package serialio

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// TestablePort implements Port with configurable behaviour for testing.
// Incoming data is scripted as a sequence of chunks; an empty chunk makes the
// next read return without data, which is how a real port reports an elapsed
// timeout. This lets tests drive the bridge through timeout paths
// deterministically, with no real clocks involved.
type TestablePort struct {
	mu sync.Mutex

	// chunks holds scripted read data. A nil or empty chunk simulates a
	// timeout gap.
	chunks [][]byte

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls records the number of Read calls
	ReadCalls int

	// WriteCalls records the number of Write calls
	WriteCalls int

	// ReadTimeout is the timeout most recently set with SetReadTimeout
	ReadTimeout time.Duration

	// Timeouts records every value passed to SetReadTimeout in order
	Timeouts []time.Duration

	// BlockReads causes Read to block until data is added or Close is
	// called once the script runs dry. When false an exhausted script
	// behaves like one more timeout gap.
	BlockReads bool

	readCond *sync.Cond
}

// NewTestablePort creates a new TestablePort for testing.
func NewTestablePort() *TestablePort {
	tp := &TestablePort{
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tp.readCond = sync.NewCond(&tp.mu)
	return tp
}

// Read returns bytes from the front of the script, at most one chunk at a time.
func (t *TestablePort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if len(t.chunks) == 0 {
		if !t.BlockReads {
			return 0, nil
		}
		for !t.Closed && len(t.chunks) == 0 {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, errors.New("serial port closed")
		}
	}

	chunk := t.chunks[0]
	if len(chunk) == 0 {
		// scripted timeout gap
		t.chunks = t.chunks[1:]
		return 0, nil
	}

	n = copy(p, chunk)
	if n < len(chunk) {
		t.chunks[0] = chunk[n:]
	} else {
		t.chunks = t.chunks[1:]
	}
	return n, nil
}

// Write appends to the write buffer, honouring any injected error.
func (t *TestablePort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	return t.WriteBuffer.Write(p)
}

// Close marks the port as closed and wakes any blocked readers.
func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast()

	return t.CloseError
}

// SetReadTimeout records the timeout for later inspection.
func (t *TestablePort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	t.Timeouts = append(t.Timeouts, timeout)
	return nil
}

// AddReadData appends a chunk to be returned by subsequent Read calls.
func (t *TestablePort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.chunks = append(t.chunks, data)
	t.readCond.Signal()
}

// AddTimeoutGap appends a scripted timeout: the read that reaches it
// returns no data, as if the line had gone silent past the bound.
func (t *TestablePort) AddTimeoutGap() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.chunks = append(t.chunks, nil)
	t.readCond.Signal()
}

// GetWrittenData returns all data written to the port.
func (t *TestablePort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.WriteBuffer.Bytes()
}

// Reset clears all buffers and resets state.
func (t *TestablePort) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.chunks = nil
	t.WriteBuffer.Reset()
	t.ReadCalls = 0
	t.WriteCalls = 0
	t.Closed = false
	t.ReadError = nil
	t.WriteError = nil
	t.CloseError = nil
	t.ReadTimeout = 0
	t.Timeouts = nil
}
