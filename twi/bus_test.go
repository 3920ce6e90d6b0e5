package twi_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"tinygo.org/x/drivers/adxl345"

	"twimaster/twi"
	"twimaster/twi/twitest"
)

func newBus(t *testing.T) (*twitest.Device, *twi.Bus) {
	t.Helper()
	dev, c := newRunning(t)
	return dev, twi.NewBus(c)
}

func TestBusRegisters(t *testing.T) {
	dev, bus := newBus(t)
	regs := twitest.NewRegisters(32)
	dev.Attach(targetAddr, regs)

	if err := bus.WriteRegister(targetAddr, 0x10, []byte{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	if got := regs.Get(0x10, 6); !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("register file % x", got)
	}

	buf := make([]byte, 7)
	regs.Set(0x04, 7, 6, 5, 4, 3, 2, 1)
	if err := bus.ReadRegister(targetAddr, 0x04, buf); err != nil {
		t.Fatalf("ReadRegister: %v", err)
	}
	if !bytes.Equal(buf, []byte{7, 6, 5, 4, 3, 2, 1}) {
		t.Errorf("read % x", buf)
	}
}

func TestBusTxErrors(t *testing.T) {
	_, bus := newBus(t)

	err := bus.Tx(0x22, []byte{0x01}, nil)
	var te *twi.TransferError
	if !errors.As(err, &te) {
		t.Fatalf("Tx to missing target: %v", err)
	}
	if te.Addr != 0x22 || te.Status != twi.StatusMTAddrNack {
		t.Errorf("TransferError %+v", te)
	}
	if !errors.Is(err, twi.ErrAddressNACK) {
		t.Errorf("%v does not match ErrAddressNACK", err)
	}

	if err := bus.Tx(0x80, nil, nil); err != twi.ErrAddress {
		t.Errorf("10-bit address: %v", err)
	}
	if err := bus.Tx(0x22, make([]byte, twi.BufferSize), nil); err != twi.ErrPacketSize {
		t.Errorf("oversized write: %v", err)
	}
	if err := bus.Tx(0x22, nil, make([]byte, twi.BufferSize)); err != twi.ErrPacketSize {
		t.Errorf("oversized read: %v", err)
	}
	if err := bus.WriteRegister(0x22, 0, make([]byte, twi.BufferSize-1)); err != twi.ErrPacketSize {
		t.Errorf("oversized register write: %v", err)
	}
}

func TestBusDataNACK(t *testing.T) {
	dev, bus := newBus(t)
	regs := twitest.NewRegisters(8)
	regs.NackAfter = 3
	dev.Attach(targetAddr, regs)

	err := bus.WriteRegister(targetAddr, 0, []byte{1, 2, 3})
	if !errors.Is(err, twi.ErrDataNACK) {
		t.Errorf("got %v, want data NACK", err)
	}
}

func TestBusScan(t *testing.T) {
	dev, bus := newBus(t)
	dev.Attach(0x1D, twitest.NewRegisters(4))
	dev.Attach(0x53, twitest.NewRegisters(4))
	dev.Attach(0x03, twitest.NewRegisters(4)) // reserved, not probed

	got := bus.Scan()
	if !bytes.Equal(got, []byte{0x1D, 0x53}) {
		t.Errorf("scan found % x, want 1d 53", got)
	}
}

func TestBusConcurrentCallers(t *testing.T) {
	dev, bus := newBus(t)
	regs := twitest.NewRegisters(64)
	dev.Attach(targetAddr, regs)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			reg := uint8(g * 8)
			for i := 0; i < 20; i++ {
				want := []byte{byte(g), byte(i), byte(g + i)}
				if err := bus.WriteRegister(targetAddr, reg, want); err != nil {
					t.Errorf("caller %d: write: %v", g, err)
					return
				}
				got := make([]byte, 3)
				if err := bus.ReadRegister(targetAddr, reg, got); err != nil {
					t.Errorf("caller %d: read: %v", g, err)
					return
				}
				if !bytes.Equal(got, want) {
					t.Errorf("caller %d: read back % x, want % x", g, got, want)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestBusADXL345(t *testing.T) {
	dev, bus := newBus(t)
	regs := twitest.NewRegisters(64)
	dev.Attach(adxl345.AddressLow, regs)

	accel := adxl345.New(bus)
	accel.Configure()

	if got := regs.Get(adxl345.REG_BW_RATE, 2); !bytes.Equal(got, []byte{0x1A, 0x08}) {
		t.Errorf("rate/power registers % x, want 1a 08", got)
	}

	regs.Set(adxl345.REG_DATAX0, 0x10, 0x00, 0xF0, 0xFF, 0x00, 0x01)
	x, y, z := accel.ReadRawAcceleration()
	if x != 16 || y != -16 || z != 256 {
		t.Errorf("raw acceleration %d %d %d, want 16 -16 256", x, y, z)
	}
}

func TestSMBus(t *testing.T) {
	dev, bus := newBus(t)
	regs := twitest.NewRegisters(16)
	dev.Attach(targetAddr, regs)
	sm := &twi.SMBus{Bus: bus}

	if err := sm.WriteWordData(targetAddr, 2, 0xBEEF); err != nil {
		t.Fatal(err)
	}
	if got := regs.Get(2, 2); !bytes.Equal(got, []byte{0xEF, 0xBE}) {
		t.Errorf("word stored as % x", got)
	}
	w, err := sm.ReadWordData(targetAddr, 2)
	if err != nil || w != 0xBEEF {
		t.Errorf("ReadWordData = 0x%04x, %v", w, err)
	}

	if err := sm.WriteByteData(targetAddr, 7, 0x5C); err != nil {
		t.Fatal(err)
	}
	b, err := sm.ReadByteData(targetAddr, 7)
	if err != nil || b != 0x5C {
		t.Errorf("ReadByteData = 0x%02x, %v", b, err)
	}
}

func TestSMBusPEC(t *testing.T) {
	dev, bus := newBus(t)
	regs := twitest.NewRegisters(16)
	dev.Attach(targetAddr, regs)
	sm := &twi.SMBus{Bus: bus, PEC: true}

	// With PEC the written code lands in the register after the data.
	if err := sm.WriteByteData(targetAddr, 3, 0x42); err != nil {
		t.Fatal(err)
	}
	wr := twi.PEC([]byte{twi.AddressByte(targetAddr, false), 3, 0x42})
	if got := regs.Get(3, 2); got[0] != 0x42 || got[1] != wr {
		t.Errorf("stored % x, want 42 %02x", got, wr)
	}

	rd := twi.PEC([]byte{twi.AddressByte(targetAddr, false), 3, twi.AddressByte(targetAddr, true), 0x42})
	regs.Set(4, rd)
	b, err := sm.ReadByteData(targetAddr, 3)
	if err != nil || b != 0x42 {
		t.Errorf("ReadByteData = 0x%02x, %v", b, err)
	}

	regs.Set(4, rd^0xFF)
	if _, err := sm.ReadByteData(targetAddr, 3); err != twi.ErrPEC {
		t.Errorf("corrupted PEC: %v", err)
	}
}

func TestPECCheckValue(t *testing.T) {
	if got := twi.PEC([]byte("123456789")); got != 0xF4 {
		t.Errorf("CRC-8/SMBUS check 0x%02x, want 0xf4", got)
	}
}
