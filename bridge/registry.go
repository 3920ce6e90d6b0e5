package bridge

import (
	"errors"
	"sync"
)

// CommandHandler handles one command. It decodes its own arguments from
// data.
type CommandHandler func(data *[]byte) error

// Command is a registered command or response. Responses have no handler.
type Command struct {
	ID      uint16
	Name    string
	Format  string // e.g. "oid=%c data=%*s"
	Handler CommandHandler
}

var ErrUnknownCommand = errors.New("bridge: unknown command")

// Registry assigns message IDs in registration order.
type Registry struct {
	mu       sync.RWMutex
	commands []*Command
	byName   map[string]uint16
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]uint16)}
}

// Register adds a command and returns its ID. Registering a name twice
// returns the existing ID.
func (r *Registry) Register(name, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byName[name]; ok {
		return id
	}
	id := uint16(len(r.commands))
	r.commands = append(r.commands, &Command{ID: id, Name: name, Format: format, Handler: handler})
	r.byName[name] = id
	return id
}

// RegisterResponse adds a bridge-to-host message.
func (r *Registry) RegisterResponse(name, format string) uint16 {
	return r.Register(name, format, nil)
}

// Lookup returns the ID of a registered name.
func (r *Registry) Lookup(name string) (uint16, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	return id, ok
}

// Command returns the command with the given ID.
func (r *Registry) Command(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.commands) {
		return nil, false
	}
	return r.commands[id], true
}

// Dispatch runs the handler of command id.
func (r *Registry) Dispatch(id uint16, data *[]byte) error {
	cmd, ok := r.Command(id)
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}
	return cmd.Handler(data)
}

// Commands returns every registered message in ID order.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, len(r.commands))
	for i, c := range r.commands {
		out[i] = *c
	}
	return out
}

// Signature returns "name format" as it appears in the dictionary.
func (c Command) Signature() string {
	if c.Format == "" {
		return c.Name
	}
	return c.Name + " " + c.Format
}
