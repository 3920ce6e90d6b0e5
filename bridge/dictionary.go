package bridge

import (
	"strconv"

	"twimaster/protocol"
)

// Constant is a named value published in the dictionary config section.
type Constant struct {
	Name  string
	Value string
}

// BuildDictionary renders the data dictionary the host fetches with
// identify:
//
//	{"version":"...","config":{...},"commands":{"sig":id},"responses":{"sig":id}}
//
// It is built by hand to stay small on targets without encoding/json.
func BuildDictionary(reg *Registry, constants []Constant) []byte {
	out := make([]byte, 0, 512)
	out = append(out, `{"version":`...)
	out = appendQuoted(out, protocol.Version)

	out = append(out, `,"config":{`...)
	for i, c := range constants {
		if i > 0 {
			out = append(out, ',')
		}
		out = appendQuoted(out, c.Name)
		out = append(out, ':')
		out = appendQuoted(out, c.Value)
	}

	cmds := reg.Commands()
	out = append(out, `},"commands":{`...)
	out = appendSection(out, cmds, true)
	out = append(out, `},"responses":{`...)
	out = appendSection(out, cmds, false)
	return append(out, "}}"...)
}

func appendSection(out []byte, cmds []Command, handlers bool) []byte {
	first := true
	for _, c := range cmds {
		if (c.Handler != nil) != handlers {
			continue
		}
		if !first {
			out = append(out, ',')
		}
		first = false
		out = appendQuoted(out, c.Signature())
		out = append(out, ':')
		out = strconv.AppendUint(out, uint64(c.ID), 10)
	}
	return out
}

func appendQuoted(out []byte, s string) []byte {
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			out = append(out, '\\', c)
		default:
			out = append(out, c)
		}
	}
	return append(out, '"')
}
