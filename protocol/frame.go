package protocol

import "errors"

var (
	ErrFrameTooLarge = errors.New("frame payload too large")
)

// Frame is one decoded frame.
type Frame struct {
	Seq     uint8
	Payload []byte
}

// AppendFrame appends a frame carrying payload with sequence number seq.
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	if len(payload) > PayloadMax {
		return dst, ErrFrameTooLarge
	}
	start := len(dst)
	dst = append(dst, byte(len(payload)+FrameMin), seq&SeqMask|SeqDest)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), SyncByte), nil
}

// Decoder extracts frames from a byte stream. Garbage, bad lengths and CRC
// failures drop the decoder out of sync until the next sync byte.
type Decoder struct {
	buf    []byte
	synced bool

	// Dropped counts bytes discarded while resynchronizing.
	Dropped int
}

// NewDecoder returns a synchronized decoder.
func NewDecoder() *Decoder {
	return &Decoder{synced: true}
}

// Write buffers stream data. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	return len(p), nil
}

// Next returns the next complete frame. The payload is only valid until the
// next call to Write.
func (d *Decoder) Next() (Frame, bool) {
	for len(d.buf) > 0 {
		if !d.synced {
			i := 0
			for i < len(d.buf) && d.buf[i] != SyncByte {
				i++
			}
			d.drop(i)
			if len(d.buf) == 0 {
				break
			}
			d.drop(1)
			d.synced = true
			continue
		}

		if d.buf[0] == SyncByte {
			d.buf = d.buf[1:]
			continue
		}
		if len(d.buf) < FrameMin {
			break
		}

		n := int(d.buf[0])
		if n < FrameMin || n > FrameMax || d.buf[1]&^SeqMask != SeqDest {
			d.desync()
			continue
		}
		if len(d.buf) < n {
			break
		}
		if d.buf[n-1] != SyncByte {
			d.desync()
			continue
		}
		crc := uint16(d.buf[n-3])<<8 | uint16(d.buf[n-2])
		if crc != CRC16(d.buf[:n-FrameTrailer]) {
			d.desync()
			continue
		}

		f := Frame{Seq: d.buf[1] & SeqMask, Payload: d.buf[FrameHeader : n-FrameTrailer]}
		d.buf = d.buf[n:]
		return f, true
	}
	d.compact()
	return Frame{}, false
}

func (d *Decoder) desync() {
	d.synced = false
	d.drop(1)
}

func (d *Decoder) drop(n int) {
	d.buf = d.buf[n:]
	d.Dropped += n
}

// compact moves pending bytes to the front so the buffer does not grow.
func (d *Decoder) compact() {
	if cap(d.buf) > 4*FrameMax && len(d.buf) < FrameMax {
		d.buf = append([]byte(nil), d.buf...)
	}
}
