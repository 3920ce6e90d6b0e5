package twi

// Config holds the clock settings of a controller.
type Config struct {
	// CPUFrequency is the controller's input clock in Hz.
	CPUFrequency uint32

	// Frequency is the wanted SCL frequency in Hz.
	Frequency uint32
}

// DefaultConfig returns a 400 kHz bus on an 8 MHz core.
func DefaultConfig() Config {
	return Config{
		CPUFrequency: 8000000,
		Frequency:    400000,
	}
}

// BitRate computes the clock divisor for a prescaler of 1:
//
//	SCL = CPU / (16 + 2*BitRate)
func (c Config) BitRate() (uint8, error) {
	if c.Frequency == 0 || c.CPUFrequency/c.Frequency < 16 {
		return 0, ErrInvalidFrequency
	}
	v := (c.CPUFrequency/c.Frequency - 16) / 2
	if v > 0xFF {
		return 0, ErrInvalidFrequency
	}
	return uint8(v), nil
}
