//go:build tinygo && avr

// Firmware for ATmega328P boards: serves the TWI bus to the host over the
// on-board UART.
package main

import (
	"context"
	"machine"
	"strconv"

	"twimaster/bridge"
	"twimaster/twi"
	"twimaster/twi/avrtwi"
)

const (
	baudRate   = 115200
	defaultBus = 400000
)

func main() {
	machine.Serial.Configure(machine.UARTConfig{BaudRate: baudRate})

	cpu := machine.CPUFrequency()
	c, err := avrtwi.New(twi.Config{CPUFrequency: cpu, Frequency: defaultBus})
	if err != nil {
		// 400 kHz needs a 6.4 MHz clock. Fall back to standard mode.
		c, err = avrtwi.New(twi.Config{CPUFrequency: cpu, Frequency: 100000})
		if err != nil {
			return
		}
	}

	drv := bridge.NewTWIDriver(cpu, twi.NewBus(c))
	srv := bridge.NewServer(drv,
		bridge.Constant{Name: "MCU", Value: "atmega328p"},
		bridge.Constant{Name: "CLOCK_FREQ", Value: strconv.FormatUint(uint64(cpu), 10)},
		bridge.Constant{Name: "BUS_COUNT", Value: strconv.Itoa(drv.BusCount())},
	)

	for {
		srv.Serve(context.Background(), machine.Serial)
	}
}
