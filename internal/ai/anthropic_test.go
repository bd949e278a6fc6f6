package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnthropicGenerate(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "key" || r.Header.Get("anthropic-version") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"  welcome to the stream!  "}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("key", "haiku", 100, time.Second)
	p.BaseURL = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply, err := p.Generate(ctx, "you are a cat", []Message{
		{Role: "system", Content: "dropped"},
		{Role: "user", Content: "[Stream event] bob just followed!"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if reply != "welcome to the stream!" {
		t.Fatalf("reply = %q", reply)
	}
	if got.System != "you are a cat" || got.MaxTokens != 100 || got.Model != "haiku" {
		t.Fatalf("request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestAnthropicFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status_non_2xx", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(529); _, _ = w.Write([]byte("overloaded")) }},
		{"bad_json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("not-json")) }},
		{"empty_content", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"content":[]}`)) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			p := NewAnthropicProvider("key", "m", 0, time.Second)
			p.BaseURL = srv.URL
			if _, err := p.Generate(context.Background(), "", []Message{{Role: "user", Content: "hi"}}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestAnthropicHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	p := NewAnthropicProvider("key", "m", 0, 5*time.Second)
	p.BaseURL = srv.URL

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	if _, err := p.Generate(ctx, "", []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("Generate ignored the context deadline")
	}
}

func TestParseChatCompletion(t *testing.T) {
	reply, err := parseChatCompletion([]byte(`{"choices":[{"message":{"content":"<think>x</think>\"gg\""}}]}`))
	if err != nil || reply != "gg" {
		t.Fatalf("reply = %q, err = %v", reply, err)
	}
	if _, err := parseChatCompletion([]byte(`{"choices":[]}`)); err == nil {
		t.Fatal("empty choices should fail")
	}
}
