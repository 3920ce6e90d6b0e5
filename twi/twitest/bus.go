package twitest

import "twimaster/twi"

// NewBus returns a bus on a fresh Device with interrupts delivered in the
// background. The caller stops delivery with dev.Stop.
func NewBus(cfg twi.Config) (*Device, *twi.Bus, error) {
	dev := NewDevice()
	c, err := twi.New(dev, cfg)
	if err != nil {
		return nil, nil, err
	}
	c.Init()
	dev.Start(c.HandleInterrupt)
	return dev, twi.NewBus(c), nil
}
