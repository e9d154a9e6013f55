// Package serialio provides the serial transport used by the bridge: a
// minimal port interface, connection options, a real backend over
// go.bug.st/serial, and a deterministic fake for tests.
package serialio

import (
	"errors"
	"io"
	"time"
)

// ErrTimeout is returned by ReadFull when the port stays silent longer
// than the supplied bound before the requested bytes arrive.
var ErrTimeout = errors.New("serial read timed out")

// NoTimeout disables the read timeout: reads block until data arrives.
const NoTimeout time.Duration = -1

// Port defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type Port interface {
	io.ReadWriter
	io.Closer
	// SetReadTimeout sets the read timeout applied to subsequent reads.
	// NoTimeout blocks indefinitely. A read that elapses without any
	// byte arriving returns n == 0 with a nil error.
	SetReadTimeout(timeout time.Duration) error
}

// ReadFull reads exactly len(buf) bytes from the port, applying timeout
// as an inter-byte bound: the clock restarts whenever at least one byte
// arrives. On silence longer than the bound it returns ErrTimeout along
// with however many bytes were already read. The timeout is passed
// explicitly on every call rather than left as ambient port state so
// callers with differing bounds cannot trip over each other.
func ReadFull(p Port, buf []byte, timeout time.Duration) (int, error) {
	if err := p.SetReadTimeout(timeout); err != nil {
		return 0, err
	}

	read := 0
	for read < len(buf) {
		n, err := p.Read(buf[read:])
		read += n
		if err != nil {
			return read, err
		}
		if n == 0 {
			return read, ErrTimeout
		}
	}
	return read, nil
}

// WriteFull writes all of buf to the port, surfacing short writes as an
// error rather than silently truncating the response stream.
func WriteFull(p Port, buf []byte) error {
	n, err := p.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return io.ErrShortWrite
	}
	return nil
}
