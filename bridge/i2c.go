package bridge

import (
	"errors"

	"twimaster/protocol"
	"twimaster/twi"
)

var (
	ErrUnknownOID     = errors.New("bridge: unknown oid")
	ErrDeviceNotReady = errors.New("bridge: device bus not configured")
)

// ScanBitmapSize is the length of the i2c_scan_response bitmap, one bit per
// 7-bit address, LSB first.
const ScanBitmapSize = (twi.MaxAddress + 1) / 8

func (s *Server) registerI2C() {
	s.reg.Register("config_i2c", "oid=%c", s.handleConfigI2C)
	s.reg.Register("i2c_set_bus", "oid=%c i2c_bus=%u rate=%u address=%u", s.handleSetBus)
	s.reg.Register("i2c_write", "oid=%c data=%*s", s.handleWrite)
	s.reg.Register("i2c_read", "oid=%c reg=%*s read_len=%u", s.handleRead)
	s.reg.Register("i2c_get_state", "oid=%c", s.handleGetState)
	s.reg.Register("i2c_scan", "i2c_bus=%u", s.handleScan)

	s.reg.RegisterResponse("i2c_result", "oid=%c ok=%c state=%c")
	s.reg.RegisterResponse("i2c_read_response", "oid=%c response=%*s")
	s.reg.RegisterResponse("i2c_state", "oid=%c state=%c")
	s.reg.RegisterResponse("i2c_scan_response", "i2c_bus=%u found=%*s")
}

// handleConfigI2C allocates a device object. Reallocating an OID drops its
// bus binding.
// Format: config_i2c oid=%c
func (s *Server) handleConfigI2C(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	s.devices[uint8(oid)] = &Device{OID: uint8(oid)}
	return nil
}

// handleSetBus binds a device to a bus and address and sets the bus clock.
// Only a failure is answered, with an i2c_result carrying no bus state.
// Format: i2c_set_bus oid=%c i2c_bus=%u rate=%u address=%u
func (s *Server) handleSetBus(data *[]byte) error {
	var args [4]uint32
	for i := range args {
		v, err := protocol.DecodeVLQUint(data)
		if err != nil {
			return err
		}
		args[i] = v
	}
	oid, bus, rate, address := uint8(args[0]), BusID(args[1]), args[2], args[3]

	dev, ok := s.devices[oid]
	if !ok {
		s.result(oid, false, twi.StatusNone)
		return ErrUnknownOID
	}
	dev.Ready = false
	dev.Bus = bus
	dev.Address = uint8(address & twi.MaxAddress)

	if err := s.drv.ConfigureBus(bus, rate); err != nil {
		s.result(oid, false, twi.StatusNone)
		return err
	}
	dev.Ready = true
	return nil
}

// handleWrite answers with i2c_result.
// Format: i2c_write oid=%c data=%*s
func (s *Server) handleWrite(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	buf, err := protocol.DecodeVLQBytes(data)
	if err != nil {
		return err
	}

	dev, err := s.ready(uint8(oid))
	if err != nil {
		return err
	}
	if err := s.drv.Write(dev.Bus, dev.Address, buf); err != nil {
		s.result(dev.OID, false, s.failure(dev.Bus, err))
		return err
	}
	s.result(dev.OID, true, s.state(dev.Bus))
	return nil
}

// handleRead answers with i2c_read_response, or i2c_result on failure.
// Format: i2c_read oid=%c reg=%*s read_len=%u
func (s *Server) handleRead(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	reg, err := protocol.DecodeVLQBytes(data)
	if err != nil {
		return err
	}
	n, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	dev, err := s.ready(uint8(oid))
	if err != nil {
		return err
	}
	if n > twi.BufferSize-1 {
		s.result(dev.OID, false, twi.StatusNone)
		return twi.ErrPacketSize
	}
	buf, err := s.drv.Read(dev.Bus, dev.Address, reg, uint8(n))
	if err != nil {
		s.result(dev.OID, false, s.failure(dev.Bus, err))
		return err
	}

	args := protocol.AppendVLQUint(nil, uint32(dev.OID))
	s.respond("i2c_read_response", protocol.AppendVLQBytes(args, buf))
	return nil
}

// Format: i2c_get_state oid=%c
func (s *Server) handleGetState(data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	dev, err := s.ready(uint8(oid))
	if err != nil {
		return err
	}
	args := protocol.AppendVLQUint(nil, uint32(dev.OID))
	s.respond("i2c_state", protocol.AppendVLQUint(args, uint32(s.state(dev.Bus))))
	return nil
}

// handleScan probes every non-reserved address. An unknown bus reports an
// empty bitmap.
// Format: i2c_scan i2c_bus=%u
func (s *Server) handleScan(data *[]byte) error {
	bus, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	var found [ScanBitmapSize]byte
	addrs, err := s.drv.Scan(BusID(bus))
	for _, a := range addrs {
		found[a/8] |= 1 << (a % 8)
	}
	args := protocol.AppendVLQUint(nil, bus)
	s.respond("i2c_scan_response", protocol.AppendVLQBytes(args, found[:]))
	return err
}

// ready returns a configured device. Otherwise the failure is answered
// with i2c_result so the host is not left waiting.
func (s *Server) ready(oid uint8) (*Device, error) {
	dev, ok := s.devices[oid]
	if !ok {
		s.result(oid, false, twi.StatusNone)
		return nil, ErrUnknownOID
	}
	if !dev.Ready {
		s.result(oid, false, twi.StatusNone)
		return nil, ErrDeviceNotReady
	}
	return dev, nil
}

func (s *Server) state(bus BusID) twi.Status {
	st, err := s.drv.State(bus)
	if err != nil {
		return twi.StatusNone
	}
	return st
}

// failure is the state reported for a failed write or read. Only a transfer
// that reached the bus carries its status; a rejected one reports none.
func (s *Server) failure(bus BusID, err error) twi.Status {
	var te *twi.TransferError
	if !errors.As(err, &te) {
		return twi.StatusNone
	}
	return s.state(bus)
}

// Format: i2c_result oid=%c ok=%c state=%c
func (s *Server) result(oid uint8, ok bool, state twi.Status) {
	var okv uint32
	if ok {
		okv = 1
	}
	args := protocol.AppendVLQUint(nil, uint32(oid))
	args = protocol.AppendVLQUint(args, okv)
	s.respond("i2c_result", protocol.AppendVLQUint(args, uint32(state)))
}
