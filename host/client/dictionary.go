package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"twimaster/protocol"
)

// Dictionary is the data dictionary published by the bridge.
type Dictionary struct {
	Version   string            `json:"version"`
	Config    map[string]string `json:"config"`
	Commands  map[string]int    `json:"commands"`
	Responses map[string]int    `json:"responses"`

	byName map[string]*Format
	byID   map[uint16]*Format
}

// ParseDictionary decodes a dictionary fetched with identify.
func ParseDictionary(data []byte) (*Dictionary, error) {
	d := &Dictionary{}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}
	if err := d.index(); err != nil {
		return nil, err
	}
	return d, nil
}

// bootstrapDictionary knows only the messages needed to fetch the real one.
func bootstrapDictionary() *Dictionary {
	d := &Dictionary{
		Commands:  map[string]int{"identify offset=%u count=%c": protocol.IdentifyID},
		Responses: map[string]int{"identify_response offset=%u data=%*s": protocol.IdentifyResponseID},
	}
	if err := d.index(); err != nil {
		panic(err)
	}
	return d
}

func (d *Dictionary) index() error {
	d.byName = make(map[string]*Format)
	d.byID = make(map[uint16]*Format)
	for _, section := range []map[string]int{d.Commands, d.Responses} {
		for sig, id := range section {
			f, err := ParseFormat(uint16(id), sig)
			if err != nil {
				return err
			}
			d.byName[f.Name] = f
			d.byID[f.ID] = f
		}
	}
	return nil
}

// Format returns the message format registered under name.
func (d *Dictionary) Format(name string) (*Format, bool) {
	f, ok := d.byName[name]
	return f, ok
}

// Decode decodes every message of a frame payload.
func (d *Dictionary) Decode(payload []byte) ([]Message, error) {
	var msgs []Message
	for len(payload) > 0 {
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return msgs, err
		}
		f, ok := d.byID[uint16(id)]
		if !ok {
			return msgs, fmt.Errorf("unknown message id %d", id)
		}
		m, err := f.Decode(&payload)
		if err != nil {
			return msgs, fmt.Errorf("%s: %w", f.Name, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Param is one "name=%x" field of a format.
type Param struct {
	Name string
	Kind string // %c, %u, %i, %hu, %*s, %.*s or %s
}

func (p Param) isBytes() bool {
	return strings.HasSuffix(p.Kind, "s")
}

// Format describes how a message is encoded.
type Format struct {
	ID     uint16
	Name   string
	Params []Param
}

// ParseFormat parses a dictionary signature such as "i2c_write oid=%c data=%*s".
func ParseFormat(id uint16, sig string) (*Format, error) {
	fields := strings.Fields(sig)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty message signature")
	}
	f := &Format{ID: id, Name: fields[0]}
	for _, field := range fields[1:] {
		name, kind, ok := strings.Cut(field, "=")
		if !ok || !strings.HasPrefix(kind, "%") {
			return nil, fmt.Errorf("%s: bad parameter %q", f.Name, field)
		}
		f.Params = append(f.Params, Param{Name: name, Kind: kind})
	}
	return f, nil
}

// Encode appends the message to dst. Integer parameters take any integer
// type; byte parameters take []byte or string.
func (f *Format) Encode(dst []byte, args ...any) ([]byte, error) {
	if len(args) != len(f.Params) {
		return dst, fmt.Errorf("%s takes %d arguments, got %d", f.Name, len(f.Params), len(args))
	}
	dst = protocol.AppendVLQUint(dst, uint32(f.ID))
	for i, p := range f.Params {
		if p.isBytes() {
			switch v := args[i].(type) {
			case []byte:
				dst = protocol.AppendVLQBytes(dst, v)
			case string:
				dst = protocol.AppendVLQString(dst, v)
			default:
				return dst, fmt.Errorf("%s %s: want bytes, got %T", f.Name, p.Name, args[i])
			}
			continue
		}
		v, ok := toInt32(args[i])
		if !ok {
			return dst, fmt.Errorf("%s %s: want integer, got %T", f.Name, p.Name, args[i])
		}
		dst = protocol.AppendVLQInt(dst, v)
	}
	return dst, nil
}

func toInt32(v any) (int32, bool) {
	switch n := v.(type) {
	case int:
		return int32(n), true
	case int32:
		return n, true
	case uint8:
		return int32(n), true
	case uint16:
		return int32(n), true
	case uint32:
		return int32(n), true
	}
	return 0, false
}

// Decode reads the arguments of a message whose ID was already consumed.
func (f *Format) Decode(data *[]byte) (Message, error) {
	m := Message{Name: f.Name}
	for _, p := range f.Params {
		if p.isBytes() {
			b, err := protocol.DecodeVLQBytes(data)
			if err != nil {
				return m, err
			}
			if m.bufs == nil {
				m.bufs = make(map[string][]byte)
			}
			m.bufs[p.Name] = append([]byte(nil), b...)
			continue
		}
		v, err := protocol.DecodeVLQInt(data)
		if err != nil {
			return m, err
		}
		if m.ints == nil {
			m.ints = make(map[string]int32)
		}
		m.ints[p.Name] = v
	}
	return m, nil
}

// Message is a decoded bridge message.
type Message struct {
	Name string
	ints map[string]int32
	bufs map[string][]byte
}

// Uint returns an integer parameter.
func (m Message) Uint(name string) uint32 {
	return uint32(m.ints[name])
}

// Bytes returns a byte string parameter.
func (m Message) Bytes(name string) []byte {
	return m.bufs[name]
}
