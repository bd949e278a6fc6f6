package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/keshon/stream-companion/internal/mind"
)

// Frame names outside the event vocabulary.
const (
	FrameSettingsChanged = "settings-changed"
	FrameCompanionState  = "companion-state"
)

// Frame is one websocket message: an event name and its payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// payload accepts every field spelling the backend has used.
type payload struct {
	Username    string `json:"username"`
	User        string `json:"user"`
	From        string `json:"from"`
	Message     string `json:"message"`
	Text        string `json:"text"`
	Type        string `json:"type"`
	Tier        number `json:"tier"`
	Plan        number `json:"plan"`
	Viewers     number `json:"viewers"`
	ViewerCount number `json:"viewerCount"`
	Amount      number `json:"amount"`
}

// number decodes JSON numbers and numeric strings. Anything else is unset.
type number struct {
	v   float64
	set bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	n.v, n.set = f, true
	return nil
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNumber(def float64, vals ...number) float64 {
	for _, v := range vals {
		if v.set {
			return v.v
		}
	}
	return def
}

// Decode turns a frame into a stream event. ok is false for frames that are
// not events, like settings changes. Missing fields decode to "" and 0.
func Decode(f Frame) (ev mind.StreamEvent, ok bool, err error) {
	name := strings.ToLower(strings.TrimSpace(f.Event))
	if name == "" || name == FrameSettingsChanged || name == FrameCompanionState {
		return mind.StreamEvent{}, false, nil
	}

	var p payload
	if len(f.Data) > 0 && !bytes.Equal(bytes.TrimSpace(f.Data), []byte("null")) {
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return mind.StreamEvent{}, false, fmt.Errorf("decode %s payload: %w", name, err)
		}
	}

	kind := mind.ParseEventKind(name)
	ev = mind.StreamEvent{Kind: kind, Type: name}
	switch kind {
	case mind.EventChatMessage:
		ev.Username = firstString(p.Username, p.User)
		ev.Message = firstString(p.Message, p.Text)
	case mind.EventNewFollower:
		ev.Username = firstString(p.Username, p.From)
	case mind.EventNewSubscriber:
		ev.Username = firstString(p.Username, p.From)
		ev.Amount = firstNumber(1, p.Tier, p.Plan)
	case mind.EventRaid:
		ev.Username = firstString(p.Username, p.From)
		ev.Amount = firstNumber(0, p.Viewers, p.ViewerCount)
	case mind.EventAlert:
		ev.Username = p.Username
		ev.Message = firstString(p.Message, p.Type)
	default:
		ev.Username = firstString(p.Username, p.User, p.From)
		ev.Message = firstString(p.Message, p.Text)
		ev.Amount = firstNumber(0, p.Amount, p.Tier, p.Viewers, p.ViewerCount)
	}
	return ev, true, nil
}

// Encode wraps v as a frame named event.
func Encode(event string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}
