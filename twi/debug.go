package twi

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

var (
	// debugPrintln is set by platform code (UART, stdout, ...)
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled gates DebugPrintln. Event capture is not affected.
	debugEnabled bool
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// EventRingSize is the number of interrupt events kept for post-mortem.
const EventRingSize = 32

// Event is one interrupt as seen by the state machine.
type Event struct {
	Status  Status  // sampled status code
	Cursor  uint8   // cursor after the step
	Control Control // control word written back
}

// eventRing keeps the last EventRingSize events. Written from interrupt
// context only; never allocates.
type eventRing struct {
	buf  [EventRingSize]Event
	head uint8
	n    uint8
}

func (r *eventRing) record(e Event) {
	r.buf[r.head] = e
	r.head = (r.head + 1) % EventRingSize
	if r.n < EventRingSize {
		r.n++
	}
}

// appendTo appends the events oldest first.
func (r *eventRing) appendTo(dst []Event) []Event {
	start := (r.head + EventRingSize - r.n) % EventRingSize
	for i := uint8(0); i < r.n; i++ {
		dst = append(dst, r.buf[(start+i)%EventRingSize])
	}
	return dst
}

func (r *eventRing) clear() {
	*r = eventRing{}
}

func formatEvent(e Event) string {
	return "[TWI] " + e.Status.String() +
		" status=0x" + hex8(uint8(e.Status)) +
		" cursor=" + itoa(int(e.Cursor)) +
		" control=0x" + hex8(uint8(e.Control))
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var b [20]byte
	i := len(b)
	for v > 0 {
		i--
		b[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}
