package bridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/eplant-data/uart2i2c/internal/i2cbus"
	"github.com/eplant-data/uart2i2c/internal/serialio"
)

// idlePollInterval bounds the nominally infinite idle read so cancellation is
// observed at the idle suspension point. The poll is invisible on the wire:
// an elapsed poll simply reissues the same one byte read.
const idlePollInterval = 500 * time.Millisecond

// Engine runs the bridge: a single blocking loop that pumps the protocol
// machine with serial bytes and executes the I2C operations it emits. There
// is no internal concurrency; at most one I2C transaction is ever in flight,
// issued strictly in command order.
type Engine struct {
	port         serialio.Port
	bus          i2cbus.Bus
	frameTimeout time.Duration

	// Verbose enables per-frame debug logging.
	Verbose bool

	machine     Machine
	subscribers *traceHub
}

// New creates an Engine bridging the given serial port and I2C bus.
// frameTimeout bounds in-frame reads; pass FrameTimeout(baud), or zero or
// less to fall back to the deployment floor.
func New(port serialio.Port, bus i2cbus.Bus, frameTimeout time.Duration) *Engine {
	if frameTimeout <= 0 {
		frameTimeout = minFrameTimeout
	}
	return &Engine{
		port:         port,
		bus:          bus,
		frameTimeout: frameTimeout,
		subscribers:  newTraceHub(),
	}
}

// Run drives the bridge until the context is cancelled or the serial port
// fails. Per-frame failures (timeouts, I2C errors) are contained within the
// frame and never propagate past it; only cancellation and transport-level
// stream errors end the loop. The caller owns closing both transports.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		in, err := e.read(ctx, e.machine.NextRead())
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return fmt.Errorf("serial read: %w", err)
		}

		if err := e.execute(e.machine.Feed(in)); err != nil {
			return err
		}
	}
}

// read performs the machine's requested read. Bounded reads apply the frame
// timeout and report elapsed silence as a timeout input. The unbounded idle
// read polls so ctx cancellation is noticed between silent intervals.
func (e *Engine) read(ctx context.Context, req ReadRequest) (Input, error) {
	buf := make([]byte, req.N)

	if req.Bounded {
		_, err := serialio.ReadFull(e.port, buf, e.frameTimeout)
		if errors.Is(err, serialio.ErrTimeout) {
			return Input{TimedOut: true}, nil
		}
		if err != nil {
			return Input{}, err
		}
		return Input{Data: buf}, nil
	}

	for {
		_, err := serialio.ReadFull(e.port, buf, idlePollInterval)
		if err == nil {
			return Input{Data: buf}, nil
		}
		if !errors.Is(err, serialio.ErrTimeout) {
			return Input{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Input{}, ctxErr
		}
	}
}

// execute performs the side effect of one transition. I2C failures abort
// only the current frame: they are logged, the machine resynchronizes at
// idle, and for reads nothing is echoed. A serial write failure is a stream
// error and returned to end the loop.
func (e *Engine) execute(op Op) error {
	switch op.Kind {
	case OpDiscard:
		e.debugf("discarding unexpected byte 0x%02x while idle", op.Byte)

	case OpAbandon:
		e.debugf("abandoning %s: serial timeout mid-frame", op.Frame)

	case OpWrite:
		f := op.Frame
		err := e.bus.Write(f.Addr, f.Payload, true, f.Term == Stop)
		e.subscribers.publish(Trace{Frame: f, Err: err, Time: time.Now()})
		if err != nil {
			log.Printf("i2c write to 0x%02x failed: %v", f.Addr, err)
			e.machine.Reset()
			return nil
		}
		e.debugf("completed %s", f)

	case OpRead:
		f := op.Frame
		data, err := e.bus.Read(f.Addr, f.Length, true, f.Term == Stop)
		e.subscribers.publish(Trace{Frame: f, Err: err, Time: time.Now()})
		if err != nil {
			// all-or-nothing: a failed read echoes no partial data
			log.Printf("i2c read from 0x%02x failed: %v", f.Addr, err)
			e.machine.Reset()
			return nil
		}
		if err := serialio.WriteFull(e.port, data); err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		e.debugf("completed %s", f)
	}
	return nil
}

// Subscribe registers a channel receiving a Trace for every executed frame.
// The returned ID identifies the subscription for Unsubscribe.
func (e *Engine) Subscribe() (string, chan Trace) {
	return e.subscribers.subscribe()
}

// Unsubscribe removes and closes a trace subscription.
func (e *Engine) Unsubscribe(id string) {
	e.subscribers.unsubscribe(id)
}

func (e *Engine) debugf(format string, args ...any) {
	if e.Verbose {
		log.Printf(format, args...)
	}
}
