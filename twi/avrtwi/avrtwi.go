//go:build tinygo && avr

// Package avrtwi binds the twi driver to the ATmega328P TWI peripheral.
package avrtwi

import (
	"device/avr"
	"runtime/interrupt"

	"twimaster/twi"
)

// Hardware is the TWI register block.
type Hardware struct{}

var _ twi.Hardware = Hardware{}

// SetBitRate also clears the prescaler so the rate formula holds.
func (Hardware) SetBitRate(v uint8) {
	avr.TWSR.Set(0)
	avr.TWBR.Set(v)
}

func (Hardware) SetControl(c twi.Control) { avr.TWCR.Set(uint8(c)) }
func (Hardware) Control() twi.Control     { return twi.Control(avr.TWCR.Get()) }
func (Hardware) SetData(b byte)           { avr.TWDR.Set(b) }
func (Hardware) Data() byte               { return avr.TWDR.Get() }
func (Hardware) Status() twi.Status       { return twi.Status(avr.TWSR.Get() & twi.StatusMask) }

// EnablePullups turns on the internal pull-ups of SDA (PC4) and SCL (PC5).
// They are weak; real buses want external resistors.
func EnablePullups() {
	avr.DDRC.ClearBits(1<<4 | 1<<5)
	avr.PORTC.SetBits(1<<4 | 1<<5)
}

var ctrl *twi.Controller

func handle(interrupt.Interrupt) {
	ctrl.HandleInterrupt()
}

// New creates the controller, routes the TWI vector to it and initializes
// the peripheral. Call it once.
func New(cfg twi.Config) (*twi.Controller, error) {
	c, err := twi.New(Hardware{}, cfg)
	if err != nil {
		return nil, err
	}
	ctrl = c
	interrupt.New(avr.IRQ_TWI, handle)
	EnablePullups()
	c.Init()
	return c, nil
}
