package i2cbus

import (
	"sync"
)

// CallKind distinguishes recorded TestableBus operations.
type CallKind int

const (
	CallWrite CallKind = iota
	CallRead
	CallSetFrequency
	CallClose
)

// Call records one operation issued against a TestableBus.
type Call struct {
	Kind  CallKind
	Addr  byte
	Data  []byte // payload for writes
	N     int    // requested length for reads
	Start bool
	Stop  bool
	Hz    uint32 // for SetFrequency
}

// TestableBus implements Bus with configurable behaviour for testing.
// Reads are served from a scripted queue; errors can be injected per
// operation; every call is recorded for later assertion.
type TestableBus struct {
	mu sync.Mutex

	// ReadData holds scripted responses, one per Read call. A Read
	// request is truncated or padded with zeros to the requested length.
	ReadData [][]byte

	// WriteError is returned by the next Write call if set
	WriteError error

	// ReadError is returned by the next Read call if set
	ReadError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// Calls records every operation in order
	Calls []Call

	// FrequencyHz is the most recently configured clock rate
	FrequencyHz uint32
}

// NewTestableBus creates a new TestableBus for testing.
func NewTestableBus() *TestableBus {
	return &TestableBus{}
}

// Write records the call and honours any injected error.
func (b *TestableBus) Write(addr byte, p []byte, start, stop bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := append([]byte(nil), p...)
	b.Calls = append(b.Calls, Call{Kind: CallWrite, Addr: addr, Data: data, Start: start, Stop: stop})

	if b.Closed {
		return ErrClosed
	}
	if b.WriteError != nil {
		err := b.WriteError
		b.WriteError = nil
		return err
	}
	return nil
}

// Read records the call and returns the next scripted response.
func (b *TestableBus) Read(addr byte, n int, start, stop bool) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Calls = append(b.Calls, Call{Kind: CallRead, Addr: addr, N: n, Start: start, Stop: stop})

	if b.Closed {
		return nil, ErrClosed
	}
	if b.ReadError != nil {
		err := b.ReadError
		b.ReadError = nil
		return nil, err
	}

	buf := make([]byte, n)
	if len(b.ReadData) > 0 {
		copy(buf, b.ReadData[0])
		b.ReadData = b.ReadData[1:]
	}
	return buf, nil
}

// SetFrequency records the configured clock rate.
func (b *TestableBus) SetFrequency(hz uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Calls = append(b.Calls, Call{Kind: CallSetFrequency, Hz: hz})
	if b.Closed {
		return ErrClosed
	}
	b.FrequencyHz = hz
	return nil
}

// Close marks the bus as closed.
func (b *TestableBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Calls = append(b.Calls, Call{Kind: CallClose})
	b.Closed = true
	return b.CloseError
}

// AddReadData queues a scripted response for a future Read call.
func (b *TestableBus) AddReadData(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ReadData = append(b.ReadData, data)
}

// DataCalls returns only the Write and Read calls, in order. Convenient for
// asserting on the transaction sequence without frequency or close noise.
func (b *TestableBus) DataCalls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()

	var calls []Call
	for _, c := range b.Calls {
		if c.Kind == CallWrite || c.Kind == CallRead {
			calls = append(calls, c)
		}
	}
	return calls
}

// Reset clears recorded calls and scripted data.
func (b *TestableBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ReadData = nil
	b.Calls = nil
	b.WriteError = nil
	b.ReadError = nil
	b.CloseError = nil
	b.Closed = false
	b.FrequencyHz = 0
}
