package twi

// Action is what the interrupt handler writes back to the hardware after a
// step: optionally a byte into the data register, then a control word.
type Action struct {
	Control Control
	Data    byte
	Load    bool // write Data before Control
}

// Machine is the transfer state owned by the interrupt handler while a
// transfer is in flight. It is a plain value; Step never mutates its
// receiver.
type Machine struct {
	buf    Buffer
	size   uint8
	cursor uint8
	ok     bool
	state  Status
}

// Step advances the protocol by one hardware event. s is the sampled status
// code and rx the sampled data register.
func (m Machine) Step(s Status, rx byte) (Action, Machine) {
	switch s {
	case StatusStart, StatusRepStart:
		m.cursor = 0
		return m.advanceWrite()

	case StatusMTAddrAck, StatusMTDataAck:
		return m.advanceWrite()

	case StatusMRDataAck:
		m.store(rx)
		m.cursor++
		return m.requestRead()

	case StatusMRAddrAck:
		return m.requestRead()

	case StatusMRDataNack:
		// Last byte: stored in place, cursor stays.
		m.store(rx)
		m.ok = true
		return Action{Control: controlStop}, m

	case StatusArbLost:
		// Another master won the bus. Try again once it is free; the
		// outcome is not decided yet.
		return Action{Control: controlStart}, m
	}

	// Address or data NACK, bus error, or a code we do not know.
	m.state = s
	return Action{Control: controlIdle}, m
}

// advanceWrite sends the next packet byte, or ends the transfer once the
// whole packet is out. A START lands here with the cursor at zero, so the
// address byte goes first in both directions.
func (m Machine) advanceWrite() (Action, Machine) {
	if m.cursor < m.size {
		a := Action{Control: controlNext, Data: m.buf[m.cursor], Load: true}
		m.cursor++
		return a, m
	}
	m.ok = true
	return Action{Control: controlStop}, m
}

// requestRead clocks in the next byte, acknowledging it unless it is the
// last one the packet has room for.
func (m Machine) requestRead() (Action, Machine) {
	if m.cursor < m.size-1 {
		return Action{Control: controlNextAck}, m
	}
	return Action{Control: controlNext}, m
}

func (m *Machine) store(b byte) {
	if int(m.cursor) < len(m.buf) {
		m.buf[m.cursor] = b
	}
}

// load prepares m for a new transfer of size bytes. Only the address byte is
// taken from p for reads.
func (m *Machine) load(p []byte) {
	m.size = uint8(len(p))
	m.buf[0] = p[0]
	if !IsRead(p[0]) {
		copy(m.buf[1:], p[1:])
	}
	m.reset()
}

func (m *Machine) reset() {
	m.cursor = 0
	m.ok = false
	m.state = StatusNone
}

// Ok reports whether the last transfer succeeded.
func (m Machine) Ok() bool { return m.ok }

// State returns the status code recorded by the last failed transfer.
func (m Machine) State() Status { return m.state }

// Cursor returns the index of the next buffer byte.
func (m Machine) Cursor() uint8 { return m.cursor }

// Size returns the packet size.
func (m Machine) Size() uint8 { return m.size }
