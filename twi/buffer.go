package twi

// BufferSize is the capacity of the transfer buffer, address byte included.
const BufferSize = 8

// ReadBit is the direction bit of an address byte. Set means read.
const ReadBit = 0x01

// GeneralCall is the address that addresses every target for writing.
const GeneralCall = 0x00

// MaxAddress is the highest 7-bit target address.
const MaxAddress = 0x7F

// Buffer holds one packet: the address byte followed by the payload.
type Buffer [BufferSize]byte

// AddressByte packs a 7-bit address with the direction bit.
func AddressByte(addr uint8, read bool) byte {
	b := addr << 1
	if read {
		b |= ReadBit
	}
	return b
}

// IsRead reports whether an address byte selects the read direction.
func IsRead(b byte) bool {
	return b&ReadBit != 0
}

// Address extracts the 7-bit address from an address byte.
func Address(b byte) uint8 {
	return b >> 1
}

// WritePacket builds a write packet for addr into dst and returns the packet
// slice. dst must have room for len(payload)+1 bytes.
func WritePacket(dst []byte, addr uint8, payload []byte) []byte {
	dst = dst[:len(payload)+1]
	dst[0] = AddressByte(addr, false)
	copy(dst[1:], payload)
	return dst
}

// ReadPacket builds a read packet for n payload bytes into dst.
// Only the address byte is meaningful; the rest is filled by the transfer.
func ReadPacket(dst []byte, addr uint8, n int) []byte {
	dst = dst[:n+1]
	dst[0] = AddressByte(addr, true)
	return dst
}
