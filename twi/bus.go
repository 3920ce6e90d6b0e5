package twi

import (
	"sync"

	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*Bus)(nil)

// Bus shares a Controller between goroutines and exposes it as a
// drivers.I2C, so TinyGo device drivers can run on top of it.
//
// Each call holds the bus for the whole start/result exchange, which is the
// caller-side serialization the Controller itself does not provide.
type Bus struct {
	mu  sync.Mutex
	c   *Controller
	pkt Buffer
}

// NewBus wraps c. c must already be initialized.
func NewBus(c *Controller) *Bus {
	return &Bus{c: c}
}

// Controller returns the wrapped controller.
func (b *Bus) Controller() *Controller {
	return b.c
}

// Configure changes the bus clock between transfers.
func (b *Bus) Configure(cfg Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.c.Configure(cfg)
}

// Tx writes w to the target at addr, then reads len(r) bytes into r.
// The write and the read are separate transfers, each ended by a STOP.
// With both w and r empty Tx sends the address alone, which probes for an
// acknowledging target.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > MaxAddress {
		return ErrAddress
	}
	if len(w) > BufferSize-1 || len(r) > BufferSize-1 {
		return ErrPacketSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	a := uint8(addr)
	if len(w) > 0 || len(r) == 0 {
		if err := b.transfer(WritePacket(b.pkt[:], a, w)); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		if err := b.transfer(ReadPacket(b.pkt[:], a, len(r))); err != nil {
			return err
		}
		copy(r, b.pkt[1:len(r)+1])
	}
	return nil
}

// transfer runs p to completion and leaves the buffer contents in b.pkt.
func (b *Bus) transfer(p []byte) error {
	if err := b.c.StartTransfer(p); err != nil {
		return err
	}
	if _, ok := b.c.Result(b.pkt[:len(p)]); !ok {
		st := b.c.State()
		DebugPrintln("[TWI] transfer to 0x" + hex8(Address(p[0])) + " failed: " + st.String())
		return &TransferError{Addr: Address(p[0]), Status: st}
	}
	return nil
}

// ReadRegister reads len(buf) bytes starting at register reg.
func (b *Bus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{reg}, buf)
}

// WriteRegister writes buf starting at register reg.
func (b *Bus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	if len(buf)+1 > BufferSize-1 {
		return ErrPacketSize
	}
	var w [BufferSize - 1]byte
	w[0] = reg
	n := copy(w[1:], buf)
	return b.Tx(uint16(addr), w[:n+1], nil)
}

// Scan probes every non-reserved address and returns the ones that
// acknowledged.
func (b *Bus) Scan() []uint8 {
	var found []uint8
	for a := uint16(0x08); a <= 0x77; a++ {
		if b.Tx(a, nil, nil) == nil {
			found = append(found, uint8(a))
		}
	}
	return found
}
