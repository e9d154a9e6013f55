// Package bridge implements the SC18IM704 command protocol: it frames bytes
// arriving on a serial line into commands and drives an I2C bus accordingly.
// The grammar and state machine live in this package; the transports are
// consumed through the serialio and i2cbus interfaces.
package bridge

import (
	"fmt"
	"time"
)

// StartMarker opens a frame on the serial line and, as a terminator,
// requests a repeated start so the next command chains onto the same I2C
// transaction.
const StartMarker byte = 'S'

// Direction indicates whether a frame writes to or reads from the device.
type Direction int

const (
	Write Direction = iota
	Read
)

func (d Direction) String() string {
	if d == Write {
		return "write"
	}
	return "read"
}

// Terminator records how a frame was closed.
type Terminator int

const (
	// Stop releases the bus, ending the I2C transaction.
	Stop Terminator = iota
	// RepeatedStart chains another command without releasing the bus.
	RepeatedStart
)

func (t Terminator) String() string {
	if t == RepeatedStart {
		return "repeated start"
	}
	return "stop"
}

// Frame is one complete bridge command parsed from the serial stream.
type Frame struct {
	Dir     Direction
	Addr    byte // 7-bit device address
	Length  int  // byte count as received, 0-255
	Payload []byte
	Term    Terminator
}

func (f Frame) String() string {
	return fmt.Sprintf("%s addr=0x%02x len=%d term=%s", f.Dir, f.Addr, f.Length, f.Term)
}

// DecodeAddr splits the raw address byte into transfer direction and 7-bit
// device address: an even byte writes, an odd byte reads, and the address is
// the remaining seven high bits.
func DecodeAddr(raw byte) (Direction, byte) {
	dir := Write
	if raw%2 != 0 {
		dir = Read
	}
	return dir, raw >> 1
}

// decodeTerminator classifies the byte that closes a frame. Only the start
// marker requests a repeated start; every other value stops.
func decodeTerminator(b byte) Terminator {
	if b == StartMarker {
		return RepeatedStart
	}
	return Stop
}

// minFrameTimeout is the deployment floor for the in-frame silence bound.
// Well-formed commands arrive as contiguous bursts, so anything past this is
// an abandoned transmission even on hosts with coarse timers.
const minFrameTimeout = 700 * time.Millisecond

// FrameTimeout returns the in-frame read bound for the given line rate. The
// protocol requires at least 15 bit periods of allowed inter-byte silence;
// the result never falls below minFrameTimeout.
func FrameTimeout(baud int) time.Duration {
	if baud <= 0 {
		return minFrameTimeout
	}
	t := 15 * time.Second / time.Duration(baud)
	if t < minFrameTimeout {
		t = minFrameTimeout
	}
	return t
}
