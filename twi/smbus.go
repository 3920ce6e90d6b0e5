package twi

import "github.com/sigurn/crc8"

// pecTable is CRC-8 with polynomial x^8+x^2+x+1, as SMBus packet error
// checking specifies.
var pecTable = crc8.MakeTable(crc8.Params{Poly: 0x07, Init: 0x00, RefIn: false, RefOut: false, XorOut: 0x00, Check: 0xF4, Name: "CRC-8/SMBUS"})

// SMBus issues SMBus byte and word commands over a Bus. A read is sent as
// a command write and a separate read, each ended by STOP, since Bus has no
// repeated START. Targets that drop the command pointer at STOP do not work
// over it, and the PEC is still computed over the repeated START framing.
type SMBus struct {
	Bus *Bus

	// PEC appends a packet error code to writes and checks it on reads.
	PEC bool
}

// pec computes the packet error code over every byte on the wire,
// address bytes included.
func pec(parts ...[]byte) uint8 {
	csum := crc8.Init(pecTable)
	for _, p := range parts {
		csum = crc8.Update(csum, p, pecTable)
	}
	return crc8.Complete(csum, pecTable)
}

// ReadByteData reads one byte from command register cmd.
func (s *SMBus) ReadByteData(addr, cmd uint8) (uint8, error) {
	var buf [2]byte
	if err := s.read(addr, cmd, buf[:1+s.pecLen()]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteByteData writes one byte to command register cmd.
func (s *SMBus) WriteByteData(addr, cmd, v uint8) error {
	return s.write(addr, cmd, []byte{v})
}

// ReadWordData reads a little-endian word from command register cmd.
func (s *SMBus) ReadWordData(addr, cmd uint8) (uint16, error) {
	var buf [3]byte
	if err := s.read(addr, cmd, buf[:2+s.pecLen()]); err != nil {
		return 0, err
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

// WriteWordData writes a little-endian word to command register cmd.
func (s *SMBus) WriteWordData(addr, cmd uint8, v uint16) error {
	return s.write(addr, cmd, []byte{byte(v), byte(v >> 8)})
}

func (s *SMBus) pecLen() int {
	if s.PEC {
		return 1
	}
	return 0
}

func (s *SMBus) read(addr, cmd uint8, buf []byte) error {
	if err := s.Bus.Tx(uint16(addr), []byte{cmd}, buf); err != nil {
		return err
	}
	if !s.PEC {
		return nil
	}
	data := buf[:len(buf)-1]
	want := pec([]byte{AddressByte(addr, false), cmd, AddressByte(addr, true)}, data)
	if buf[len(buf)-1] != want {
		return ErrPEC
	}
	return nil
}

func (s *SMBus) write(addr, cmd uint8, data []byte) error {
	w := make([]byte, 0, len(data)+2)
	w = append(w, cmd)
	w = append(w, data...)
	if s.PEC {
		w = append(w, pec([]byte{AddressByte(addr, false)}, w))
	}
	return s.Bus.Tx(uint16(addr), w, nil)
}
