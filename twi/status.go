package twi

// Status is a status register code sampled once per interrupt.
// The prescaler bits are always masked off.
type Status uint8

// Master mode status codes
const (
	StatusBusError   Status = 0x00 // illegal START or STOP condition
	StatusStart      Status = 0x08 // START transmitted
	StatusRepStart   Status = 0x10 // repeated START transmitted
	StatusMTAddrAck  Status = 0x18 // SLA+W transmitted, ACK received
	StatusMTAddrNack Status = 0x20 // SLA+W transmitted, NACK received
	StatusMTDataAck  Status = 0x28 // data transmitted, ACK received
	StatusMTDataNack Status = 0x30 // data transmitted, NACK received
	StatusArbLost    Status = 0x38 // arbitration lost in SLA or data
	StatusMRAddrAck  Status = 0x40 // SLA+R transmitted, ACK received
	StatusMRAddrNack Status = 0x48 // SLA+R transmitted, NACK received
	StatusMRDataAck  Status = 0x50 // data received, ACK returned
	StatusMRDataNack Status = 0x58 // data received, NACK returned
	StatusNone       Status = 0xF8 // no state information available
)

// StatusMask selects the code bits of the raw status register.
const StatusMask = 0xF8

func (s Status) String() string {
	switch s {
	case StatusBusError:
		return "bus error"
	case StatusStart:
		return "start"
	case StatusRepStart:
		return "repeated start"
	case StatusMTAddrAck:
		return "write address ack"
	case StatusMTAddrNack:
		return "write address nack"
	case StatusMTDataAck:
		return "write data ack"
	case StatusMTDataNack:
		return "write data nack"
	case StatusArbLost:
		return "arbitration lost"
	case StatusMRAddrAck:
		return "read address ack"
	case StatusMRAddrNack:
		return "read address nack"
	case StatusMRDataAck:
		return "read data ack"
	case StatusMRDataNack:
		return "read data nack"
	case StatusNone:
		return "no state"
	}
	return "status 0x" + hex8(uint8(s))
}

// Err classifies the code recorded by a failed transfer. Codes the state
// machine handles as progress return nil. StatusNone is never produced by
// the hardware mid-transfer, so it classifies as unknown.
func (s Status) Err() error {
	switch s {
	case StatusMTAddrNack, StatusMRAddrNack:
		return ErrAddressNACK
	case StatusMTDataNack:
		return ErrDataNACK
	case StatusBusError:
		return ErrBusError
	case StatusStart, StatusRepStart, StatusMTAddrAck, StatusMTDataAck,
		StatusArbLost, StatusMRAddrAck, StatusMRDataAck, StatusMRDataNack:
		return nil
	}
	return ErrUnknownStatus
}

const hexDigits = "0123456789abcdef"

func hex8(v uint8) string {
	return string([]byte{hexDigits[v>>4], hexDigits[v&0x0F]})
}
