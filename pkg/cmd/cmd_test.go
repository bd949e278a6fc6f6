package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParse(t *testing.T) {
	name, args, ok := Parse("!", "  !Speak hello there ")
	if !ok || name != "speak" || strings.Join(args, " ") != "hello there" {
		t.Fatalf("Parse = %q %v %v", name, args, ok)
	}
	for _, in := range []string{"hello", "!", "?mood"} {
		if _, _, ok := Parse("!", in); ok {
			t.Fatalf("Parse(%q) should not match", in)
		}
	}
}

func TestRegistryAppliesMiddlewareInOrder(t *testing.T) {
	var trace []string
	tag := func(label string) Middleware {
		return func(c Command) Command {
			return Wrap(c, func(ctx context.Context, inv *Invocation) error {
				trace = append(trace, label)
				return c.Run(ctx, inv)
			})
		}
	}
	r := NewRegistry(tag("outer"), tag("inner"), Logging(zerolog.Nop()))
	r.Register(&Func{N: "mood", Desc: "show mood", Fn: func(ctx context.Context, inv *Invocation) error {
		trace = append(trace, "run")
		inv.Reply = "fine"
		return nil
	}})

	c := r.Get("mood")
	if c == nil {
		t.Fatal("mood not registered")
	}
	inv := &Invocation{}
	if err := c.Run(context.Background(), inv); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(trace, ",") != "outer,inner,run" {
		t.Fatalf("trace = %v", trace)
	}
	if inv.Reply != "fine" {
		t.Fatalf("reply = %q", inv.Reply)
	}
	if _, ok := Root(c).(*Func); !ok {
		t.Fatal("Root should reach the registered command")
	}
}

func TestRecover(t *testing.T) {
	c := Apply(&Func{N: "boom", Fn: func(context.Context, *Invocation) error { panic("x") }}, Recover())
	if err := c.Run(context.Background(), &Invocation{}); err == nil {
		t.Fatal("panic should surface as error")
	}
}
