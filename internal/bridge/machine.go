package bridge

// The protocol is parsed by a pure state machine so that every transition can
// be unit tested by feeding synthetic byte and timeout sequences, with no
// serial device or clock involved. The machine owns no I/O: NextRead tells
// the caller what to read next, Feed consumes the result and returns the side
// effect to perform.

type phase int

const (
	phaseIdle phase = iota
	phaseHeader
	phaseWritePayload
	phaseReadTerminator
)

// ReadRequest describes the read the machine needs next. Bounded reads use
// the in-frame timeout; the unbounded idle read waits for a frame start.
type ReadRequest struct {
	N       int
	Bounded bool
}

// Input is the outcome of a requested read: either the full requested bytes,
// or a timeout event.
type Input struct {
	Data     []byte
	TimedOut bool
}

// OpKind enumerates the side effects a transition can demand.
type OpKind int

const (
	// OpNone means parsing continues with the next read.
	OpNone OpKind = iota
	// OpDiscard reports an unrecognized byte seen while idle.
	OpDiscard
	// OpAbandon reports a frame dropped mid-parse after a timeout.
	OpAbandon
	// OpWrite asks for an I2C write of Frame.Payload to Frame.Addr.
	OpWrite
	// OpRead asks for an I2C read of Frame.Length bytes from Frame.Addr,
	// echoed back over the serial line.
	OpRead
)

// Op is the side effect produced by one Feed call.
type Op struct {
	Kind  OpKind
	Byte  byte // the discarded byte for OpDiscard
	Frame Frame
}

// Machine is the bridge protocol state machine. The zero value is idle and
// ready to use. It holds at most one in-flight frame; timeouts discard the
// frame and resynchronize at the idle read.
type Machine struct {
	phase phase
	frame Frame
}

// NextRead reports the read the machine needs before the next Feed.
func (m *Machine) NextRead() ReadRequest {
	switch m.phase {
	case phaseHeader:
		return ReadRequest{N: 2, Bounded: true}
	case phaseWritePayload:
		return ReadRequest{N: m.frame.Length + 1, Bounded: true}
	case phaseReadTerminator:
		return ReadRequest{N: 1, Bounded: true}
	default:
		return ReadRequest{N: 1, Bounded: false}
	}
}

// Feed consumes the outcome of the requested read and returns the side
// effect to perform. The caller must execute OpWrite and OpRead before the
// next Feed; if execution fails it must call Reset so the rest of an
// abandoned chain cannot be misread as frame data.
func (m *Machine) Feed(in Input) Op {
	if in.TimedOut || len(in.Data) < m.NextRead().N {
		return m.timeout()
	}

	switch m.phase {
	case phaseIdle:
		if in.Data[0] == StartMarker {
			m.phase = phaseHeader
			return Op{Kind: OpNone}
		}
		return Op{Kind: OpDiscard, Byte: in.Data[0]}

	case phaseHeader:
		dir, addr := DecodeAddr(in.Data[0])
		m.frame = Frame{Dir: dir, Addr: addr, Length: int(in.Data[1])}
		if dir == Write {
			m.phase = phaseWritePayload
		} else {
			m.phase = phaseReadTerminator
		}
		return Op{Kind: OpNone}

	case phaseWritePayload:
		m.frame.Payload = append([]byte(nil), in.Data[:m.frame.Length]...)
		m.frame.Term = decodeTerminator(in.Data[m.frame.Length])
		op := Op{Kind: OpWrite, Frame: m.frame}
		m.advance()
		return op

	default: // phaseReadTerminator
		m.frame.Term = decodeTerminator(in.Data[0])
		op := Op{Kind: OpRead, Frame: m.frame}
		m.advance()
		return op
	}
}

// Reset abandons any in-flight frame and returns to the idle phase.
func (m *Machine) Reset() {
	m.phase = phaseIdle
	m.frame = Frame{}
}

// timeout handles an elapsed read bound. Idle reads simply retry; a timeout
// inside a frame abandons it without issuing any I2C operation.
func (m *Machine) timeout() Op {
	if m.phase == phaseIdle {
		return Op{Kind: OpNone}
	}
	dropped := m.frame
	m.Reset()
	return Op{Kind: OpAbandon, Frame: dropped}
}

// advance moves past a completed command: a repeated start chains straight
// into the next header, a stop returns to idle.
func (m *Machine) advance() {
	if m.frame.Term == RepeatedStart {
		m.phase = phaseHeader
	} else {
		m.phase = phaseIdle
	}
	m.frame = Frame{}
}
