// Package cmd is a transport-agnostic command core: a command has a name,
// a description and Run(ctx, invocation). Adapters (the Discord bridge, the
// HTTP API) parse their own input and dispatch through a Registry.
package cmd

import (
	"context"
	"strings"
)

// Invocation carries the input a command receives. Adapters set Data to
// their own context (for example the Discord message being answered) and
// read Reply back after Run.
type Invocation struct {
	Args  []string
	User  string
	Data  interface{}
	Reply string
}

// Command is the universal contract: identity plus execution.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Parse splits "!speak hello there" into ("speak", ["hello", "there"]).
// ok is false when text does not start with prefix or names no command.
func Parse(prefix, text string) (name string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// Func adapts a plain function to Command.
type Func struct {
	N, Desc string
	Fn      func(ctx context.Context, inv *Invocation) error
}

func (f *Func) Name() string        { return f.N }
func (f *Func) Description() string { return f.Desc }
func (f *Func) Run(ctx context.Context, inv *Invocation) error {
	return f.Fn(ctx, inv)
}
