package twi

// Control is a control register word. InterruptFlag and WriteCollision are
// cleared by writing a one.
type Control uint8

// Control register bits
const (
	InterruptEnable Control = 1 << 0
	Enable          Control = 1 << 2
	WriteCollision  Control = 1 << 3
	Stop            Control = 1 << 4
	Start           Control = 1 << 5
	Ack             Control = 1 << 6
	InterruptFlag   Control = 1 << 7
)

// Control words written by the driver.
const (
	// controlIdle enables the controller with nothing pending. Writing it
	// does not clear InterruptFlag, so the controller does not act on it.
	controlIdle = Enable

	// controlStart requests a (repeated) START with the interrupt armed.
	controlStart = Enable | InterruptEnable | InterruptFlag | Start

	// controlNext clocks the next byte out, or in with NACK.
	controlNext = Enable | InterruptEnable | InterruptFlag

	// controlNextAck clocks the next byte in and acknowledges it.
	controlNextAck = Enable | InterruptEnable | InterruptFlag | Ack

	// controlStop ends the transfer and disarms the interrupt.
	controlStop = Enable | InterruptFlag | Stop
)

// Has reports whether every bit in mask is set.
func (c Control) Has(mask Control) bool {
	return c&mask == mask
}
