package client

import (
	"bytes"
	"testing"

	"twimaster/protocol"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(7, "i2c_set_bus oid=%c i2c_bus=%u rate=%u address=%u")
	if err != nil {
		t.Fatal(err)
	}
	if f.ID != 7 || f.Name != "i2c_set_bus" || len(f.Params) != 4 || f.Params[2].Name != "rate" {
		t.Errorf("format %+v", f)
	}

	if _, err := ParseFormat(0, ""); err == nil {
		t.Error("empty signature accepted")
	}
	if _, err := ParseFormat(0, "x oid"); err == nil {
		t.Error("parameter without type accepted")
	}
}

func TestFormatEncodeDecode(t *testing.T) {
	f, _ := ParseFormat(3, "i2c_write oid=%c data=%*s")

	msg, err := f.Encode(nil, uint8(2), []byte{0xDE, 0xAD})
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{3, 2, 2, 0xDE, 0xAD}; !bytes.Equal(msg, want) {
		t.Errorf("encoded % x, want % x", msg, want)
	}

	rest := msg[1:]
	m, err := f.Decode(&rest)
	if err != nil || len(rest) != 0 {
		t.Fatalf("decode: %v, %d left", err, len(rest))
	}
	if m.Uint("oid") != 2 || !bytes.Equal(m.Bytes("data"), []byte{0xDE, 0xAD}) {
		t.Errorf("decoded %+v", m)
	}

	if _, err := f.Encode(nil, 1); err == nil {
		t.Error("short argument list accepted")
	}
	if _, err := f.Encode(nil, "x", []byte{}); err == nil {
		t.Error("string for integer accepted")
	}
	if _, err := f.Encode(nil, 1, 2); err == nil {
		t.Error("integer for bytes accepted")
	}
}

func TestDictionaryDecode(t *testing.T) {
	d, err := ParseDictionary([]byte(`{"version":"v","config":{},` +
		`"commands":{"ping value=%u":1},"responses":{"pong value=%u":0,"blob data=%*s":2}}`))
	if err != nil {
		t.Fatal(err)
	}

	payload := protocol.AppendVLQUint(nil, 0)
	payload = protocol.AppendVLQUint(payload, 300)
	payload = protocol.AppendVLQUint(payload, 2)
	payload = protocol.AppendVLQBytes(payload, []byte("hi"))
	msgs, err := d.Decode(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Uint("value") != 300 || string(msgs[1].Bytes("data")) != "hi" {
		t.Errorf("messages %+v", msgs)
	}

	msgs, err = d.Decode(append(protocol.AppendVLQUint(nil, 0), 5, 9))
	if err == nil || len(msgs) != 1 {
		t.Errorf("unknown id 9: %d messages, %v", len(msgs), err)
	}
}
