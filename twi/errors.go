package twi

import "errors"

var (
	ErrEmptyPacket      = errors.New("twi: empty packet")
	ErrPacketSize       = errors.New("twi: packet larger than transfer buffer")
	ErrAddress          = errors.New("twi: address out of 7-bit range")
	ErrInvalidFrequency = errors.New("twi: bus frequency not reachable from core clock")

	ErrAddressNACK   = errors.New("twi: address not acknowledged")
	ErrDataNACK      = errors.New("twi: data not acknowledged")
	ErrBusError      = errors.New("twi: bus error")
	ErrUnknownStatus = errors.New("twi: unexpected status")

	ErrPEC = errors.New("twi: packet error code mismatch")
)

// TransferError reports a transfer that ended in failure.
type TransferError struct {
	Addr   uint8
	Status Status
}

func (e *TransferError) Error() string {
	return "twi: transfer to 0x" + hex8(e.Addr) + " failed: " + e.Status.String()
}

// Unwrap returns the sentinel matching the recorded status code.
func (e *TransferError) Unwrap() error {
	return e.Status.Err()
}
