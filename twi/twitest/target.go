package twitest

import "sync"

// Registers is a target with a register file. The first byte of a write
// sets the register pointer; further bytes are stored at the pointer, which
// auto-increments. Reads return bytes from the pointer on. Addresses wrap.
type Registers struct {
	mu      sync.Mutex
	mem     []byte
	ptr     int
	pointer bool // next written byte is the register pointer
	written int

	// NackAfter makes the target NACK the n-th byte of every write,
	// counting the pointer byte. Zero disables.
	NackAfter int
}

// NewRegisters returns a register file of size bytes.
func NewRegisters(size int) *Registers {
	return &Registers{mem: make([]byte, size)}
}

// Set stores data starting at register reg.
func (r *Registers) Set(reg int, data ...byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, b := range data {
		r.mem[(reg+i)%len(r.mem)] = b
	}
}

// Get returns n bytes starting at register reg.
func (r *Registers) Get(reg, n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]byte, n)
	for i := range out {
		out[i] = r.mem[(reg+i)%len(r.mem)]
	}
	return out
}

func (r *Registers) Begin(read bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !read {
		r.pointer = true
		r.written = 0
	}
}

func (r *Registers) Receive(b byte) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written++
	if r.NackAfter > 0 && r.written >= r.NackAfter {
		return false
	}
	if r.pointer {
		r.ptr = int(b) % len(r.mem)
		r.pointer = false
		return true
	}
	r.mem[r.ptr] = b
	r.ptr = (r.ptr + 1) % len(r.mem)
	return true
}

func (r *Registers) Transmit() byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.mem[r.ptr]
	r.ptr = (r.ptr + 1) % len(r.mem)
	return b
}

func (r *Registers) End() {}

// Stream is a target that plays back Out on reads, restarting at every
// addressing, and records written bytes per write transfer.
type Stream struct {
	mu     sync.Mutex
	out    []byte
	pos    int
	writes [][]byte
	cur    []byte
	active bool
}

// NewStream returns a target that supplies out on reads.
func NewStream(out ...byte) *Stream {
	return &Stream{out: out}
}

// Writes returns the payload of every completed write transfer.
func (s *Stream) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.writes...)
}

// Served returns how many bytes were read by the master in the current or
// last read transfer.
func (s *Stream) Served() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *Stream) Begin(read bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = 0
	s.active = !read
	s.cur = nil
}

func (s *Stream) Receive(b byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = append(s.cur, b)
	return true
}

func (s *Stream) Transmit() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.out) == 0 {
		return 0xFF
	}
	b := s.out[s.pos%len(s.out)]
	s.pos++
	return b
}

func (s *Stream) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.writes = append(s.writes, s.cur)
		s.active = false
		s.cur = nil
	}
}
