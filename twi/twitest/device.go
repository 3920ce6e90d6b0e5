// Package twitest provides a software two-wire bus controller for tests.
//
// Device implements twi.Hardware. It models the master side of the
// controller closely enough for the driver's state machine: START and
// repeated START, address and data phases with ACK/NACK from attached
// targets, STOP, and the interrupt flag. Faults can be injected per byte.
package twitest

import (
	"sync"

	"twimaster/twi"
)

// Target is a device attached to the simulated bus.
type Target interface {
	// Begin is called when the target acknowledged its address.
	Begin(read bool)

	// Receive takes one byte from the master and returns its ACK.
	Receive(b byte) bool

	// Transmit supplies the next byte for the master.
	Transmit() byte

	// End is called on STOP, repeated START or lost bus.
	End()
}

// Device is a simulated bus controller.
type Device struct {
	mu sync.Mutex

	bitRate uint8
	control twi.Control
	data    byte
	status  twi.Status
	flag    bool // interrupt flag raised by the hardware

	owned     bool // START sent and no STOP since
	addrPhase bool // next transmitted byte is the address byte
	read      bool
	target    Target
	targets   map[uint8]Target

	arbLoss int
	inject  []twi.Status
	starts  int
	stops   int

	handler func()
	wake    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

var _ twi.Hardware = (*Device)(nil)

// NewDevice returns an idle device with no targets.
func NewDevice() *Device {
	return &Device{
		status:  twi.StatusNone,
		targets: make(map[uint8]Target),
		wake:    make(chan struct{}, 1),
	}
}

// Attach puts t on the bus at the 7-bit address addr.
func (d *Device) Attach(addr uint8, t Target) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.targets[addr] = t
}

// Detach removes the target at addr.
func (d *Device) Detach(addr uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.targets, addr)
}

// InjectArbitrationLoss makes the next n transmitted bytes lose
// arbitration.
func (d *Device) InjectArbitrationLoss(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.arbLoss += n
}

// InjectStatus replaces the status code of the next hardware event with s.
// The bus otherwise behaves as if the event happened normally.
func (d *Device) InjectStatus(s twi.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inject = append(d.inject, s)
}

// Starts returns the number of START and repeated START conditions sent.
func (d *Device) Starts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts
}

// Stops returns the number of STOP conditions sent.
func (d *Device) Stops() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}

// BitRate returns the last clock divisor written.
func (d *Device) BitRate() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bitRate
}

// SetBitRate implements twi.Hardware.
func (d *Device) SetBitRate(v uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bitRate = v
}

// Control implements twi.Hardware. InterruptFlag reads back as set while
// the hardware waits for software.
func (d *Device) Control() twi.Control {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := d.control
	if d.flag {
		c |= twi.InterruptFlag
	}
	return c
}

// SetData implements twi.Hardware.
func (d *Device) SetData(b byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data = b
}

// Data implements twi.Hardware.
func (d *Device) Data() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data
}

// Status implements twi.Hardware.
func (d *Device) Status() twi.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// SetControl implements twi.Hardware. Writing InterruptFlag performs the
// bus action selected by the other bits.
func (d *Device) SetControl(c twi.Control) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.control = c &^ (twi.InterruptFlag | twi.WriteCollision)
	if !c.Has(twi.Enable) {
		d.release()
		d.owned = false
		d.flag = false
		return
	}
	if !c.Has(twi.InterruptFlag) {
		return
	}
	d.flag = false

	switch {
	case c.Has(twi.Start):
		d.release()
		if d.owned {
			d.raise(twi.StatusRepStart)
		} else {
			d.raise(twi.StatusStart)
		}
		d.owned = true
		d.addrPhase = true
		d.starts++

	case c.Has(twi.Stop):
		d.release()
		d.owned = false
		d.stops++

	case !d.owned:

	case d.addrPhase:
		d.addrPhase = false
		if d.loseArbitration() {
			return
		}
		d.read = twi.IsRead(d.data)
		t, ok := d.targets[twi.Address(d.data)]
		switch {
		case !ok && d.read:
			d.raise(twi.StatusMRAddrNack)
		case !ok:
			d.raise(twi.StatusMTAddrNack)
		case d.read:
			d.target = t
			t.Begin(true)
			d.raise(twi.StatusMRAddrAck)
		default:
			d.target = t
			t.Begin(false)
			d.raise(twi.StatusMTAddrAck)
		}

	case d.target == nil:
		d.raise(twi.StatusBusError)

	case d.read:
		d.data = d.target.Transmit()
		if c.Has(twi.Ack) {
			d.raise(twi.StatusMRDataAck)
		} else {
			d.raise(twi.StatusMRDataNack)
		}

	default:
		if d.loseArbitration() {
			return
		}
		if d.target.Receive(d.data) {
			d.raise(twi.StatusMTDataAck)
		} else {
			d.raise(twi.StatusMTDataNack)
		}
	}
}

// loseArbitration consumes one injected arbitration loss, if any.
func (d *Device) loseArbitration() bool {
	if d.arbLoss == 0 {
		return false
	}
	d.arbLoss--
	d.release()
	d.owned = false
	d.raise(twi.StatusArbLost)
	return true
}

func (d *Device) release() {
	if d.target != nil {
		d.target.End()
		d.target = nil
	}
}

func (d *Device) raise(s twi.Status) {
	if len(d.inject) > 0 {
		s = d.inject[0]
		d.inject = d.inject[1:]
	}
	d.status = s
	d.flag = true
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// ready reports whether an interrupt is due.
func (d *Device) ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flag && d.control.Has(twi.Enable|twi.InterruptEnable)
}
