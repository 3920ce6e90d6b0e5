// Package client talks to a bus bridge over a serial link: it fetches the
// data dictionary and issues TWI transfers on configured device objects.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"twimaster/host/serial"
	"twimaster/protocol"
	"twimaster/twi"
)

// DefaultTimeout bounds the wait for a response.
const DefaultTimeout = time.Second

// ErrRejected is returned when the bridge refuses a command without a bus
// transfer taking place, e.g. for an unconfigured device.
var ErrRejected = errors.New("client: command rejected by bridge")

// Client is a connection to a bridge. Requests are serialized.
type Client struct {
	port io.ReadWriter

	// Timeout bounds each request on top of its context.
	Timeout time.Duration

	// Debug, when set, receives diagnostic messages.
	Debug func(string)

	mu    sync.Mutex
	seq   uint8
	addrs map[uint8]uint8 // oid -> target address

	dict     atomic.Pointer[Dictionary]
	dictData []byte

	msgs      chan Message
	done      chan struct{}
	closeOnce sync.Once
	err       atomic.Value // reader error
	wg        sync.WaitGroup
}

// New starts a client on port. Call Identify before issuing commands. A read
// error from port, io.EOF included, closes the link; a port with read
// timeouts must report them as empty reads, as serial.Open's ports do.
func New(port io.ReadWriter) *Client {
	c := &Client{
		port:    port,
		Timeout: DefaultTimeout,
		addrs:   make(map[uint8]uint8),
		msgs:    make(chan Message, 16),
		done:    make(chan struct{}),
	}
	c.dict.Store(bootstrapDictionary())
	c.wg.Add(1)
	go c.readLoop()
	return c
}

// Dial opens a serial port and fetches the dictionary.
func Dial(ctx context.Context, cfg serial.Config) (*Client, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	c := New(port)
	if err := c.Identify(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Close stops the client. If the port is an io.Closer it is closed and
// Close waits for the reader to exit.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	cl, ok := c.port.(io.Closer)
	if !ok {
		return nil
	}
	err := cl.Close()
	c.wg.Wait()
	return err
}

func (c *Client) debug(msg string) {
	if c.Debug != nil {
		c.Debug(msg)
	}
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	dec := protocol.NewDecoder()
	buf := make([]byte, 256)
	for {
		n, err := c.port.Read(buf)
		if n > 0 {
			dec.Write(buf[:n])
			for {
				f, ok := dec.Next()
				if !ok {
					break
				}
				msgs, derr := c.dict.Load().Decode(f.Payload)
				if derr != nil {
					c.debug("dropping rest of frame: " + derr.Error())
				}
				for _, m := range msgs {
					select {
					case c.msgs <- m:
					case <-c.done:
						return
					}
				}
			}
		}
		if err != nil {
			c.err.Store(err)
			close(c.msgs)
			return
		}
		select {
		case <-c.done:
			return
		default:
		}
	}
}

// send frames one or more encoded messages.
func (c *Client) send(msgs ...[]byte) error {
	var payload []byte
	for _, m := range msgs {
		payload = append(payload, m...)
	}
	frame, err := protocol.AppendFrame(nil, c.seq, payload)
	if err != nil {
		return err
	}
	c.seq = (c.seq + 1) & protocol.SeqMask
	if _, err := c.port.Write(frame); err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

// encode encodes a command from the current dictionary.
func (c *Client) encode(name string, args ...any) ([]byte, error) {
	f, ok := c.dict.Load().Format(name)
	if !ok {
		return nil, fmt.Errorf("bridge has no command %s", name)
	}
	return f.Encode(nil, args...)
}

// request sends the commands and returns the first message accepted by
// match. Unmatched messages are discarded.
func (c *Client) request(ctx context.Context, match func(Message) bool, cmds ...[]byte) (Message, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	c.drain()
	if err := c.send(cmds...); err != nil {
		return Message{}, err
	}
	for {
		select {
		case m, ok := <-c.msgs:
			if !ok {
				return Message{}, c.readErr()
			}
			if match(m) {
				return m, nil
			}
			c.debug("ignoring " + m.Name)
		case <-ctx.Done():
			return Message{}, fmt.Errorf("no response from bridge: %w", ctx.Err())
		}
	}
}

// drain discards responses left over from timed out requests.
func (c *Client) drain() {
	for {
		select {
		case _, ok := <-c.msgs:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) readErr() error {
	if err, ok := c.err.Load().(error); ok {
		return fmt.Errorf("bridge link closed: %w", err)
	}
	return errors.New("bridge link closed")
}

// Identify fetches and parses the data dictionary.
func (c *Client) Identify(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var data []byte
	for i := 0; i < 1000; i++ {
		offset := len(data)
		cmd, err := c.encode("identify", offset, protocol.IdentifyChunk)
		if err != nil {
			return err
		}
		m, err := c.request(ctx, func(m Message) bool {
			return m.Name == "identify_response" && int(m.Uint("offset")) == offset
		}, cmd)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}
		chunk := m.Bytes("data")
		data = append(data, chunk...)
		if len(chunk) < protocol.IdentifyChunk {
			break
		}
	}

	d, err := ParseDictionary(data)
	if err != nil {
		return err
	}
	c.dictData = data
	c.dict.Store(d)
	return nil
}

// Dictionary returns the fetched dictionary.
func (c *Client) Dictionary() *Dictionary {
	return c.dict.Load()
}

// DictionaryRaw returns the dictionary as served.
func (c *Client) DictionaryRaw() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dictData
}

func forOID(oid uint8, names ...string) func(Message) bool {
	return func(m Message) bool {
		if m.Uint("oid") != uint32(oid) {
			return false
		}
		for _, n := range names {
			if m.Name == n {
				return true
			}
		}
		return false
	}
}

// resultErr converts a failed i2c_result into an error.
func (c *Client) resultErr(oid uint8, m Message) error {
	st := twi.Status(m.Uint("state"))
	if st == twi.StatusNone {
		return fmt.Errorf("oid %d: %w", oid, ErrRejected)
	}
	return &twi.TransferError{Addr: c.addrs[oid], Status: st}
}

// Configure allocates device object oid and binds it to a target on bus,
// clocked at rate Hz.
func (c *Client) Configure(ctx context.Context, oid, bus uint8, rate uint32, addr uint8) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	alloc, err := c.encode("config_i2c", oid)
	if err != nil {
		return err
	}
	set, err := c.encode("i2c_set_bus", oid, bus, rate, addr)
	if err != nil {
		return err
	}
	get, err := c.encode("i2c_get_state", oid)
	if err != nil {
		return err
	}

	c.addrs[oid] = addr & twi.MaxAddress
	m, err := c.request(ctx, forOID(oid, "i2c_state", "i2c_result"), alloc, set, get)
	if err != nil {
		return err
	}
	if m.Name == "i2c_result" {
		return fmt.Errorf("failed to configure oid %d: %w", oid, c.resultErr(oid, m))
	}
	return nil
}

// Write transmits data to the device. Empty data probes the address.
func (c *Client) Write(ctx context.Context, oid uint8, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd, err := c.encode("i2c_write", oid, data)
	if err != nil {
		return err
	}
	m, err := c.request(ctx, forOID(oid, "i2c_result"), cmd)
	if err != nil {
		return err
	}
	if m.Uint("ok") == 0 {
		return c.resultErr(oid, m)
	}
	return nil
}

// Read transmits reg, if non-empty, and reads n bytes from the device.
func (c *Client) Read(ctx context.Context, oid uint8, reg []byte, n int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd, err := c.encode("i2c_read", oid, reg, n)
	if err != nil {
		return nil, err
	}
	m, err := c.request(ctx, forOID(oid, "i2c_read_response", "i2c_result"), cmd)
	if err != nil {
		return nil, err
	}
	if m.Name == "i2c_result" {
		return nil, c.resultErr(oid, m)
	}
	return m.Bytes("response"), nil
}

// State returns the last terminal bus status seen by the device's bus.
func (c *Client) State(ctx context.Context, oid uint8) (twi.Status, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd, err := c.encode("i2c_get_state", oid)
	if err != nil {
		return twi.StatusNone, err
	}
	m, err := c.request(ctx, forOID(oid, "i2c_state", "i2c_result"), cmd)
	if err != nil {
		return twi.StatusNone, err
	}
	if m.Name == "i2c_result" {
		return twi.StatusNone, c.resultErr(oid, m)
	}
	return twi.Status(m.Uint("state")), nil
}

// Scan returns the addresses on bus that acknowledge a probe.
func (c *Client) Scan(ctx context.Context, bus uint8) ([]uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cmd, err := c.encode("i2c_scan", bus)
	if err != nil {
		return nil, err
	}
	m, err := c.request(ctx, func(m Message) bool {
		return m.Name == "i2c_scan_response" && m.Uint("i2c_bus") == uint32(bus)
	}, cmd)
	if err != nil {
		return nil, err
	}

	var found []uint8
	for i, b := range m.Bytes("found") {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<bit) != 0 {
				found = append(found, uint8(i*8+bit))
			}
		}
	}
	return found, nil
}
