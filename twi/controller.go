// Package twi implements an interrupt-driven two-wire (I2C) bus master.
//
// Foreground code hands a packet to a Controller and polls for the result.
// The byte-level protocol runs in HandleInterrupt, which the target
// registers as the controller's interrupt handler. The InterruptEnable bit
// of the control register doubles as the busy flag: foreground code only
// touches the transfer buffer while it is clear, and only the interrupt
// handler clears it.
package twi

import (
	"runtime"
	"sync/atomic"
)

// Controller drives one bus controller in master mode.
//
// Methods other than HandleInterrupt are meant for a single foreground
// caller; use Bus to share a controller between goroutines.
type Controller struct {
	hw      Hardware
	bitRate uint8

	// Owned by the interrupt handler while Busy reports true.
	m      Machine
	events eventRing

	// Copy of m.state readable at any time.
	state atomic.Uint32
}

// New returns a controller for hw. It does not touch the hardware; call Init.
func New(hw Hardware, cfg Config) (*Controller, error) {
	rate, err := cfg.BitRate()
	if err != nil {
		return nil, err
	}
	c := &Controller{hw: hw, bitRate: rate}
	c.m.reset()
	c.state.Store(uint32(StatusNone))
	return c, nil
}

// Init programs the clock divisor and enables the controller with no
// condition, acknowledge or interrupt pending. It may be called again at any
// time the bus is idle.
func (c *Controller) Init() {
	c.m.ok = false
	c.hw.SetBitRate(c.bitRate)
	c.hw.SetData(0xFF)
	c.hw.SetControl(controlIdle)
}

// Configure waits for the bus to go idle, then applies cfg and re-runs Init.
func (c *Controller) Configure(cfg Config) error {
	rate, err := cfg.BitRate()
	if err != nil {
		return err
	}
	c.wait()
	c.bitRate = rate
	c.Init()
	return nil
}

// Busy reports whether a transfer is in flight.
func (c *Controller) Busy() bool {
	return c.hw.Control()&InterruptEnable != 0
}

// wait spins until the interrupt handler has released the buffer. There is
// no timeout: a wedged bus keeps the caller here.
func (c *Controller) wait() {
	for c.Busy() {
		runtime.Gosched()
	}
}

// StartTransfer waits for any transfer in flight to finish, then starts a
// new one for packet p. p[0] is the address byte; for writes the rest of p
// is sent, for reads len(p)-1 bytes are received into the buffer.
//
// p is copied; it may be reused as soon as StartTransfer returns.
func (c *Controller) StartTransfer(p []byte) error {
	if len(p) == 0 {
		return ErrEmptyPacket
	}
	if len(p) > BufferSize {
		return ErrPacketSize
	}
	c.wait()
	c.m.load(p)
	c.start()
	return nil
}

// StartTransferRepeat re-runs the last packet once the bus is idle. It
// returns ErrEmptyPacket if no packet was ever started.
func (c *Controller) StartTransferRepeat() error {
	c.wait()
	if c.m.size == 0 {
		return ErrEmptyPacket
	}
	c.m.reset()
	c.start()
	return nil
}

func (c *Controller) start() {
	c.state.Store(uint32(StatusNone))
	c.hw.SetControl(controlStart)
}

// Result waits for the transfer in flight, then copies up to len(dst) bytes
// of the transfer buffer into dst, address byte first. If the transfer
// failed dst is left untouched and ok is false.
func (c *Controller) Result(dst []byte) (n int, ok bool) {
	c.wait()
	if !c.m.ok {
		return 0, false
	}
	return copy(dst, c.m.buf[:]), true
}

// State returns the status code recorded by the last failed transfer, or
// StatusNone if the last transfer has not failed.
func (c *Controller) State() Status {
	return Status(c.state.Load())
}

// HandleInterrupt advances the transfer by one hardware event. It must run
// in the controller's interrupt context and is not reentrant.
func (c *Controller) HandleInterrupt() {
	s := c.hw.Status()
	a, m := c.m.Step(s, c.hw.Data())

	// Commit before touching the control register: clearing
	// InterruptEnable hands the buffer back to the foreground.
	c.m = m
	if m.state != StatusNone {
		c.state.Store(uint32(m.state))
	}
	c.events.record(Event{Status: s, Cursor: m.cursor, Control: a.Control})

	if a.Load {
		c.hw.SetData(a.Data)
	}
	c.hw.SetControl(a.Control)
}

// Events returns the most recent interrupt events, oldest first, once the
// bus is idle.
func (c *Controller) Events() []Event {
	c.wait()
	return c.events.appendTo(make([]Event, 0, EventRingSize))
}

// DumpEvents writes the event ring through the debug writer.
func (c *Controller) DumpEvents() {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[TWI] === event dump ===")
	for _, e := range c.Events() {
		debugPrintln(formatEvent(e))
	}
	debugPrintln("[TWI] === end dump ===")
}

// ClearEvents empties the event ring once the bus is idle.
func (c *Controller) ClearEvents() {
	c.wait()
	c.events.clear()
}
