// Package bridge exposes TWI buses to a host over the framed command
// protocol. The host allocates device objects by OID, binds them to a bus
// and a target address, and then issues writes and register reads.
package bridge

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strconv"

	"twimaster/protocol"
	"twimaster/twi"
)

// Device is a target configured by the host.
type Device struct {
	OID     uint8
	Bus     BusID
	Address uint8 // 7-bit
	Ready   bool  // bus configured
}

// Server dispatches host commands to an I2CDriver. A Server is used by one
// goroutine at a time.
type Server struct {
	drv     I2CDriver
	reg     *Registry
	dict    []byte
	devices map[uint8]*Device

	w   io.Writer
	seq uint8
	out []byte // response messages not yet framed
	tx  []byte
	err error // first write error of the current frame
}

// NewServer registers the bridge commands and builds the dictionary.
// constants are published in its config section.
func NewServer(drv I2CDriver, constants ...Constant) *Server {
	s := &Server{
		drv:     drv,
		reg:     NewRegistry(),
		devices: make(map[uint8]*Device),
	}
	s.reg.RegisterResponse("identify_response", "offset=%u data=%*s")
	s.reg.Register("identify", "offset=%u count=%c", s.handleIdentify)
	s.registerI2C()

	constants = append(constants, Constant{Name: "TWI_BUFFER_SIZE", Value: strconv.Itoa(twi.BufferSize)})
	s.dict = BuildDictionary(s.reg, constants)
	return s
}

// Registry returns the command registry.
func (s *Server) Registry() *Registry {
	return s.reg
}

// Dictionary returns the data dictionary served by identify.
func (s *Server) Dictionary() []byte {
	return s.dict
}

// Device returns a copy of the device configured under oid.
func (s *Server) Device(oid uint8) (Device, bool) {
	d, ok := s.devices[oid]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// Serve reads frames from rw and answers them until ctx is done, rw
// reports io.EOF, or a read or write fails. ctx is checked between reads.
func (s *Server) Serve(ctx context.Context, rw io.ReadWriter) error {
	dec := protocol.NewDecoder()
	var buf [protocol.FrameMax]byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := rw.Read(buf[:])
		if n > 0 {
			dec.Write(buf[:n])
			for {
				f, ok := dec.Next()
				if !ok {
					break
				}
				if herr := s.HandleFrame(rw, f); herr != nil {
					return herr
				}
			}
		} else if err == nil {
			runtime.Gosched()
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// HandleFrame runs every message of f and writes the responses to w in
// frames acknowledging f. Command failures are logged. A message that cannot
// be decoded ends processing of the frame. Only write errors are returned.
func (s *Server) HandleFrame(w io.Writer, f protocol.Frame) error {
	s.w = w
	s.seq = (f.Seq + 1) & protocol.SeqMask
	s.err = nil

	data := f.Payload
	for len(data) > 0 {
		id, err := protocol.DecodeVLQUint(&data)
		if err != nil {
			twi.DebugPrintln("[bridge] bad message id: " + err.Error())
			break
		}
		if err := s.reg.Dispatch(uint16(id), &data); err != nil {
			twi.DebugPrintln("[bridge] command " + strconv.Itoa(int(id)) + ": " + err.Error())
			if malformed(err) {
				break
			}
		}
	}

	s.flush()
	s.w = nil
	return s.err
}

// malformed reports whether the rest of a payload can no longer be parsed.
func malformed(err error) bool {
	return errors.Is(err, protocol.ErrInvalidVLQ) ||
		errors.Is(err, protocol.ErrBufferTooSmall) ||
		errors.Is(err, ErrUnknownCommand)
}

// respond queues a response message. args are the encoded arguments.
func (s *Server) respond(name string, args []byte) {
	id, ok := s.reg.Lookup(name)
	if !ok {
		panic("bridge: unregistered response " + name)
	}
	msg := protocol.AppendVLQUint(nil, uint32(id))
	msg = append(msg, args...)
	if len(s.out)+len(msg) > protocol.PayloadMax {
		s.flush()
	}
	s.out = append(s.out, msg...)
}

func (s *Server) flush() {
	if len(s.out) == 0 {
		return
	}
	frame, err := protocol.AppendFrame(s.tx[:0], s.seq, s.out)
	s.out = s.out[:0]
	if err != nil {
		twi.DebugPrintln("[bridge] dropped response: " + err.Error())
		return
	}
	s.tx = frame
	if _, err := s.w.Write(frame); err != nil && s.err == nil {
		s.err = err
	}
}

func (s *Server) handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	if count > protocol.IdentifyChunk {
		count = protocol.IdentifyChunk
	}

	var chunk []byte
	if offset < uint32(len(s.dict)) {
		end := offset + count
		if end > uint32(len(s.dict)) {
			end = uint32(len(s.dict))
		}
		chunk = s.dict[offset:end]
	}

	args := protocol.AppendVLQUint(nil, offset)
	s.respond("identify_response", protocol.AppendVLQBytes(args, chunk))
	return nil
}
