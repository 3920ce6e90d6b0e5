package protocol

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := AppendVLQUint(nil, 3)
	payload = AppendVLQBytes(payload, []byte{0xA0, 0x01})

	raw, err := AppendFrame(nil, 0x13, payload)
	if err != nil {
		t.Fatal(err)
	}
	if raw[0] != byte(len(raw)) {
		t.Errorf("length byte %d, frame %d bytes", raw[0], len(raw))
	}
	if raw[1] != 0x13 || raw[len(raw)-1] != SyncByte {
		t.Errorf("header/trailer % x", raw)
	}

	d := NewDecoder()
	d.Write(raw)
	f, ok := d.Next()
	if !ok {
		t.Fatal("frame not decoded")
	}
	if f.Seq != 3 || !bytes.Equal(f.Payload, payload) {
		t.Errorf("decoded seq %d payload % x", f.Seq, f.Payload)
	}
	if _, ok := d.Next(); ok {
		t.Error("extra frame decoded")
	}
}

func TestFrameTooLarge(t *testing.T) {
	if _, err := AppendFrame(nil, 0, make([]byte, PayloadMax+1)); err != ErrFrameTooLarge {
		t.Errorf("got %v", err)
	}
	if _, err := AppendFrame(nil, 0, make([]byte, PayloadMax)); err != nil {
		t.Errorf("max payload: %v", err)
	}
}

func TestDecoderPartialWrites(t *testing.T) {
	raw, _ := AppendFrame(nil, 1, []byte{1, 2, 3})
	raw, _ = AppendFrame(raw, 2, []byte{4})

	d := NewDecoder()
	var got []Frame
	for _, b := range raw {
		d.Write([]byte{b})
		for {
			f, ok := d.Next()
			if !ok {
				break
			}
			got = append(got, Frame{Seq: f.Seq, Payload: append([]byte(nil), f.Payload...)})
		}
	}

	if len(got) != 2 || got[0].Seq != 1 || got[1].Seq != 2 || !bytes.Equal(got[1].Payload, []byte{4}) {
		t.Errorf("decoded %+v", got)
	}
}

func TestDecoderResync(t *testing.T) {
	good, _ := AppendFrame(nil, 5, []byte{0x42})
	bad := append([]byte(nil), good...)
	bad[2] ^= 0xFF // corrupt payload, CRC fails

	stream := append([]byte{0x01, 0x02}, bad...)
	stream = append(stream, good...)

	d := NewDecoder()
	d.Write(stream)
	f, ok := d.Next()
	if !ok {
		t.Fatal("no frame after resync")
	}
	if f.Seq != 5 || !bytes.Equal(f.Payload, []byte{0x42}) {
		t.Errorf("decoded seq %d payload % x", f.Seq, f.Payload)
	}
	if d.Dropped == 0 {
		t.Error("garbage not counted")
	}
}
