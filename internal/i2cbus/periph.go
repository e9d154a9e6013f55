package i2cbus

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
)

// PeriphBus adapts a periph.io I2C bus to the Bus contract.
//
// periph exposes whole transactions (write-then-read under one start/stop
// envelope via Tx) rather than raw start/stop control, so chaining is
// emulated: write segments with stop=false are buffered and coalesced into
// the transaction that eventually carries a stop, and a chained write+read
// to the same address becomes a single Tx with a repeated start between the
// halves. A read with stop=false cannot defer (its bytes must go back over
// the serial line immediately), so it closes the transaction early; command
// chains that continue past a read lose bus atomicity on this backend.
type PeriphBus struct {
	bus i2c.BusCloser

	pending     []byte
	pendingAddr byte
	havePending bool
	closed      bool
}

// OpenPeriph opens the named periph I2C bus ("" selects the first available).
func OpenPeriph(name string) (*PeriphBus, error) {
	if _, err := driverreg.Init(); err != nil {
		log.Printf("periph driver init: %v", err)
	}
	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	return &PeriphBus{bus: bus}, nil
}

// ListBuses returns the names of the I2C buses periph knows about.
func ListBuses() []string {
	if _, err := driverreg.Init(); err != nil {
		log.Printf("periph driver init: %v", err)
	}
	var names []string
	for _, ref := range i2creg.All() {
		names = append(names, ref.Name)
	}
	return names
}

// Write sends p to addr, buffering the segment when stop is withheld so a
// later segment can extend the same transaction.
func (b *PeriphBus) Write(addr byte, p []byte, start, stop bool) error {
	if b.closed {
		return ErrClosed
	}

	if b.havePending && b.pendingAddr != addr {
		// a chain moved to a different device; the buffered segment
		// cannot share its transaction, so issue it on its own
		if err := b.flush(); err != nil {
			return err
		}
	}

	b.pendingAddr = addr
	b.pending = append(b.pending, p...)
	b.havePending = true

	if !stop {
		return nil
	}
	return b.flush()
}

// Read fetches n bytes from addr. Any buffered write to the same address is
// folded into the transaction ahead of the read, giving the device the usual
// write-register-then-read shape under one repeated start.
func (b *PeriphBus) Read(addr byte, n int, start, stop bool) ([]byte, error) {
	if b.closed {
		return nil, ErrClosed
	}

	var w []byte
	if b.havePending {
		if b.pendingAddr == addr {
			w = b.pending
			b.pending = nil
			b.havePending = false
		} else if err := b.flush(); err != nil {
			return nil, err
		}
	}

	buf := make([]byte, n)
	if err := b.bus.Tx(uint16(addr), w, buf); err != nil {
		return nil, fmt.Errorf("i2c read %d bytes from 0x%02x: %w", n, addr, err)
	}
	return buf, nil
}

// SetFrequency sets the bus clock rate.
func (b *PeriphBus) SetFrequency(hz uint32) error {
	if b.closed {
		return ErrClosed
	}
	return b.bus.SetSpeed(physic.Frequency(hz) * physic.Hertz)
}

// Close flushes any buffered segment and releases the bus.
func (b *PeriphBus) Close() error {
	if b.closed {
		return nil
	}
	flushErr := b.flush()
	b.closed = true
	if err := b.bus.Close(); err != nil {
		return err
	}
	return flushErr
}

func (b *PeriphBus) flush() error {
	if !b.havePending {
		return nil
	}
	w := b.pending
	addr := b.pendingAddr
	b.pending = nil
	b.havePending = false

	if err := b.bus.Tx(uint16(addr), w, nil); err != nil {
		return fmt.Errorf("i2c write %d bytes to 0x%02x: %w", len(w), addr, err)
	}
	return nil
}
