package protocol

import (
	"bytes"
	"testing"
)

func TestVLQEncodeDecodeInt(t *testing.T) {
	testCases := []int32{
		0, 1, -1, 31, -32, 95, 96, 127, -127, 128, -128,
		1000, -1000, 65535, -65535, 1000000, -1000000,
		1 << 30, -(1 << 30),
	}

	for _, expected := range testCases {
		encoded := AppendVLQInt(nil, expected)

		data := encoded
		decoded, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}
		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}
		if len(data) != 0 {
			t.Errorf("VLQ decode left %d bytes for value %d", len(data), expected)
		}
	}
}

func TestVLQSingleByteRange(t *testing.T) {
	for v := int32(-32); v < 96; v++ {
		if n := len(AppendVLQInt(nil, v)); n != 1 {
			t.Errorf("value %d encoded in %d bytes", v, n)
		}
	}
	if n := len(AppendVLQUint(nil, 96)); n != 2 {
		t.Errorf("value 96 encoded in %d bytes", n)
	}
}

func TestVLQUintMax(t *testing.T) {
	data := AppendVLQUint(nil, 0xFFFFFFFF)
	got, err := DecodeVLQUint(&data)
	if err != nil || got != 0xFFFFFFFF {
		t.Errorf("got 0x%x, %v", got, err)
	}
}

func TestVLQBytes(t *testing.T) {
	testCases := [][]byte{
		{},
		{0x01},
		{0x01, 0x02, 0x03},
		{0xFF, 0xFE, 0xFD},
		make([]byte, 50),
	}

	for i, expected := range testCases {
		data := AppendVLQBytes(nil, expected)
		decoded, err := DecodeVLQBytes(&data)
		if err != nil {
			t.Errorf("Test case %d: Failed to decode bytes: %v", i, err)
			continue
		}
		if !bytes.Equal(decoded, expected) {
			t.Errorf("Test case %d: got % x, want % x", i, decoded, expected)
		}
	}
}

func TestVLQString(t *testing.T) {
	for _, expected := range []string{"", "hello", "i2c_read oid=%c reg=%*s read_len=%u"} {
		data := AppendVLQString(nil, expected)
		decoded, err := DecodeVLQString(&data)
		if err != nil || decoded != expected {
			t.Errorf("got %q, %v, want %q", decoded, err, expected)
		}
	}
}

func TestVLQErrors(t *testing.T) {
	data := []byte{0x80}
	if _, err := DecodeVLQInt(&data); err != ErrBufferTooSmall {
		t.Errorf("truncated: got %v", err)
	}

	data = []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, err := DecodeVLQInt(&data); err != ErrInvalidVLQ {
		t.Errorf("overlong: got %v", err)
	}

	data = []byte{0x05, 0x01}
	if _, err := DecodeVLQBytes(&data); err != ErrBufferTooSmall {
		t.Errorf("short byte string: got %v", err)
	}
}
