package twi

// Hardware is the register interface of one two-wire bus controller.
// Target-specific code implements it over real registers; twitest
// implements it in software.
type Hardware interface {
	// SetBitRate writes the clock divisor.
	SetBitRate(v uint8)

	// SetControl writes the control register. Writing InterruptFlag starts
	// the action selected by the other bits.
	SetControl(c Control)

	// Control reads the control register back.
	Control() Control

	// SetData writes the next byte to transmit.
	SetData(b byte)

	// Data reads the last byte received.
	Data() byte

	// Status reads the status register with the prescaler bits masked.
	Status() Status
}
