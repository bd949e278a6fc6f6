package cmd

import (
	"sort"
	"sync"
)

// Registry stores commands by name. It does not perform dispatch; each
// adapter looks up commands and invokes them with its own context.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	mws      []Middleware
}

// NewRegistry returns an empty registry. mws wrap every registered command.
func NewRegistry(mws ...Middleware) *Registry {
	return &Registry{commands: make(map[string]Command), mws: mws}
}

// Register adds c, wrapped with the registry middlewares.
func (r *Registry) Register(c Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[c.Name()] = Apply(c, r.mws...)
}

// Get returns the command with the given name, or nil.
func (r *Registry) Get(name string) Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[name]
}

// GetAll returns all registered commands, sorted by name.
func (r *Registry) GetAll() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}
