package bridge

import (
	"errors"

	"twimaster/twi"
)

// BusID identifies a TWI bus on the bridge.
type BusID uint8

// I2CDriver is the bus interface the command handlers use.
type I2CDriver interface {
	// ConfigureBus sets the clock of a bus.
	ConfigureBus(bus BusID, frequencyHz uint32) error

	// Write transmits data to the target at addr. Empty data probes the
	// address.
	Write(bus BusID, addr uint8, data []byte) error

	// Read transmits reg, if non-empty, and then reads readLen bytes from
	// the target.
	Read(bus BusID, addr uint8, reg []byte, readLen uint8) ([]byte, error)

	// Scan returns the addresses that acknowledge a probe.
	Scan(bus BusID) ([]uint8, error)

	// State returns the last terminal bus status, twi.StatusNone after a
	// successful transfer.
	State(bus BusID) (twi.Status, error)
}

var ErrUnknownBus = errors.New("bridge: unknown bus")

// TWIDriver implements I2CDriver over TWI buses indexed by BusID.
type TWIDriver struct {
	cpuFrequency uint32
	buses        []*twi.Bus
}

// NewTWIDriver returns a driver for buses clocked from cpuFrequency.
func NewTWIDriver(cpuFrequency uint32, buses ...*twi.Bus) *TWIDriver {
	return &TWIDriver{cpuFrequency: cpuFrequency, buses: buses}
}

// BusCount returns the number of buses.
func (d *TWIDriver) BusCount() int {
	return len(d.buses)
}

func (d *TWIDriver) bus(id BusID) (*twi.Bus, error) {
	if int(id) >= len(d.buses) {
		return nil, ErrUnknownBus
	}
	return d.buses[id], nil
}

func (d *TWIDriver) ConfigureBus(id BusID, frequencyHz uint32) error {
	b, err := d.bus(id)
	if err != nil {
		return err
	}
	return b.Configure(twi.Config{CPUFrequency: d.cpuFrequency, Frequency: frequencyHz})
}

func (d *TWIDriver) Write(id BusID, addr uint8, data []byte) error {
	b, err := d.bus(id)
	if err != nil {
		return err
	}
	return b.Tx(uint16(addr), data, nil)
}

func (d *TWIDriver) Read(id BusID, addr uint8, reg []byte, readLen uint8) ([]byte, error) {
	b, err := d.bus(id)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, readLen)
	if err := b.Tx(uint16(addr), reg, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *TWIDriver) Scan(id BusID) ([]uint8, error) {
	b, err := d.bus(id)
	if err != nil {
		return nil, err
	}
	return b.Scan(), nil
}

func (d *TWIDriver) State(id BusID) (twi.Status, error) {
	b, err := d.bus(id)
	if err != nil {
		return twi.StatusNone, err
	}
	return b.Controller().State(), nil
}
