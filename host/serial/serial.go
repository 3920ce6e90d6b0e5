// Package serial opens the serial link to a bus bridge.
package serial

import (
	"io"
	"time"
)

// Port is an open link to the bridge. Tests substitute in-memory pipes.
type Port interface {
	io.ReadWriteCloser
}

// idlePort reports a read that timed out with no data, which tarm/serial
// returns as io.EOF, as an empty read. io.EOF from Read then means the link
// is gone.
type idlePort struct {
	io.ReadWriteCloser
}

func (p idlePort) Read(b []byte) (int, error) {
	n, err := p.ReadWriteCloser.Read(b)
	if n == 0 && err == io.EOF {
		return 0, nil
	}
	return n, err
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate of the bridge UART
	Baud int

	// ReadTimeout bounds a single read; zero blocks.
	ReadTimeout time.Duration
}

// DefaultConfig returns the configuration the AVR bridge firmware uses.
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100 * time.Millisecond,
	}
}
