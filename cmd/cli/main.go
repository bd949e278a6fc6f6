// cmd/cli/main.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/keshon/stream-companion/pkg/cmd"
)

type client struct {
	base string
	http *http.Client
	out  string
}

func main() {
	_ = godotenv.Load()
	def := os.Getenv("COMPANION_URL")
	if def == "" {
		def = "http://localhost:4003"
	}
	addr := flag.String("addr", def, "companion base URL")
	out := flag.String("o", "speech.wav", "file for speak output")
	flag.Parse()

	c := &client{base: strings.TrimRight(*addr, "/"), http: &http.Client{Timeout: 2 * time.Minute}, out: *out}
	reg := cmd.NewRegistry(cmd.Recover())
	for _, command := range c.commands() {
		reg.Register(command)
	}

	args := flag.Args()
	if len(args) == 0 {
		usage(reg)
		os.Exit(2)
	}
	command := reg.Get(strings.ToLower(args[0]))
	if command == nil {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		usage(reg)
		os.Exit(2)
	}

	inv := &cmd.Invocation{Args: args[1:], User: os.Getenv("USER")}
	if err := command.Run(context.Background(), inv); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if inv.Reply != "" {
		fmt.Println(inv.Reply)
	}
}

func usage(reg *cmd.Registry) {
	fmt.Fprintln(os.Stderr, "usage: cli [-addr URL] <command> [args]")
	for _, c := range reg.GetAll() {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.Name(), c.Description())
	}
}

func (c *client) commands() []cmd.Command {
	return []cmd.Command{
		&cmd.Func{N: "health", Desc: "show liveness", Fn: c.get("/health")},
		&cmd.Func{N: "status", Desc: "show mood and last event", Fn: c.get("/status")},
		&cmd.Func{N: "stats", Desc: "show reply gate and pipeline stats", Fn: c.get("/stats")},
		&cmd.Func{N: "chat", Desc: "chat <user> <message...>", Fn: c.chat},
		&cmd.Func{N: "follow", Desc: "follow <user>", Fn: c.follow},
		&cmd.Func{N: "sub", Desc: "sub <user> [tier]", Fn: c.sub},
		&cmd.Func{N: "raid", Desc: "raid <user> <viewers>", Fn: c.raid},
		&cmd.Func{N: "alert", Desc: "alert <message...>", Fn: c.alert},
		&cmd.Func{N: "speak", Desc: "speak <text...> (writes -o file)", Fn: c.speak},
	}
}

func (c *client) get(path string) func(context.Context, *cmd.Invocation) error {
	return func(ctx context.Context, inv *cmd.Invocation) error {
		body, err := c.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		var pretty bytes.Buffer
		if json.Indent(&pretty, body, "", "  ") != nil {
			inv.Reply = string(body)
			return nil
		}
		inv.Reply = pretty.String()
		return nil
	}
}

func (c *client) send(ctx context.Context, inv *cmd.Invocation, event string, data map[string]any) error {
	if _, err := c.do(ctx, http.MethodPost, "/events", map[string]any{"event": event, "data": data}); err != nil {
		return err
	}
	inv.Reply = "sent " + event
	return nil
}

func (c *client) chat(ctx context.Context, inv *cmd.Invocation) error {
	if len(inv.Args) < 2 {
		return errors.New("usage: chat <user> <message...>")
	}
	return c.send(ctx, inv, "chat-message", map[string]any{
		"username": inv.Args[0],
		"message":  strings.Join(inv.Args[1:], " "),
	})
}

func (c *client) follow(ctx context.Context, inv *cmd.Invocation) error {
	if len(inv.Args) < 1 {
		return errors.New("usage: follow <user>")
	}
	return c.send(ctx, inv, "new-follower", map[string]any{"username": inv.Args[0]})
}

func (c *client) sub(ctx context.Context, inv *cmd.Invocation) error {
	if len(inv.Args) < 1 {
		return errors.New("usage: sub <user> [tier]")
	}
	tier := 1.0
	if len(inv.Args) > 1 {
		t, err := strconv.ParseFloat(inv.Args[1], 64)
		if err != nil {
			return fmt.Errorf("bad tier: %w", err)
		}
		tier = t
	}
	return c.send(ctx, inv, "new-subscriber", map[string]any{"username": inv.Args[0], "tier": tier})
}

func (c *client) raid(ctx context.Context, inv *cmd.Invocation) error {
	if len(inv.Args) < 2 {
		return errors.New("usage: raid <user> <viewers>")
	}
	viewers, err := strconv.Atoi(inv.Args[1])
	if err != nil {
		return fmt.Errorf("bad viewer count: %w", err)
	}
	return c.send(ctx, inv, "raid", map[string]any{"username": inv.Args[0], "viewers": viewers})
}

func (c *client) alert(ctx context.Context, inv *cmd.Invocation) error {
	if len(inv.Args) < 1 {
		return errors.New("usage: alert <message...>")
	}
	return c.send(ctx, inv, "alert", map[string]any{"message": strings.Join(inv.Args, " ")})
}

func (c *client) speak(ctx context.Context, inv *cmd.Invocation) error {
	if len(inv.Args) < 1 {
		return errors.New("usage: speak <text...>")
	}
	audio, err := c.do(ctx, http.MethodPost, "/speak", map[string]any{"text": strings.Join(inv.Args, " ")})
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.out, audio, 0o644); err != nil {
		return err
	}
	inv.Reply = fmt.Sprintf("wrote %d bytes to %s", len(audio), c.out)
	return nil
}

func (c *client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(data)))
	}
	return data, nil
}
