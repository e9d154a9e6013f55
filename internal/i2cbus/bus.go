// Package i2cbus defines the I2C transport consumed by the bridge engine and
// provides a periph.io backend for real buses plus a testable fake.
package i2cbus

import (
	"errors"
)

// DefaultFrequencyHz is the standard-mode I2C clock used unless configured.
const DefaultFrequencyHz = 100_000

var (
	// ErrShortWrite reports that the device did not acknowledge every byte.
	ErrShortWrite = errors.New("i2c: not all bytes were acknowledged")
	// ErrShortRead reports that fewer bytes arrived than were requested.
	ErrShortRead = errors.New("i2c: short read from device")
	// ErrClosed reports an operation on a closed bus.
	ErrClosed = errors.New("i2c: bus is closed")
)

// Bus is the transport contract the bridge engine drives. Write and Read
// address a 7-bit device; start and stop independently control whether the
// start and stop conditions are asserted, which is what allows a repeated
// start to chain transactions without releasing the bus. All operations are
// synchronous; the engine never issues two concurrently.
type Bus interface {
	// Write sends p to the device at addr. It fails unless every byte was
	// acknowledged and transferred.
	Write(addr byte, p []byte, start, stop bool) error

	// Read fetches exactly n bytes from the device at addr. It fails if
	// fewer bytes were transferred than requested; on failure no partial
	// data is returned.
	Read(addr byte, n int, start, stop bool) ([]byte, error)

	// SetFrequency sets the bus clock rate in hertz.
	SetFrequency(hz uint32) error

	// Close releases the bus handle.
	Close() error
}
