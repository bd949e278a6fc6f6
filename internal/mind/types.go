package mind

import (
	"strings"
	"time"
)

// Expression is the discrete face the companion shows. Presentation hint only:
// any expression may follow any other.
type Expression string

const (
	ExprIdle      Expression = "idle"
	ExprHappy     Expression = "happy"
	ExprExcited   Expression = "excited"
	ExprSnarky    Expression = "snarky"
	ExprThinking  Expression = "thinking"
	ExprSurprised Expression = "surprised"
	ExprSad       Expression = "sad"
	ExprAngry     Expression = "angry"
	ExprSleepy    Expression = "sleepy"
	ExprLove      Expression = "love"
	ExprLaughing  Expression = "laughing"
	ExprCatFace   Expression = "cat_face"
)

// Expressions lists the closed set in declaration order.
var Expressions = []Expression{
	ExprIdle, ExprHappy, ExprExcited, ExprSnarky, ExprThinking, ExprSurprised,
	ExprSad, ExprAngry, ExprSleepy, ExprLove, ExprLaughing, ExprCatFace,
}

// Valid reports whether e belongs to the fixed set.
func (e Expression) Valid() bool {
	for _, x := range Expressions {
		if x == e {
			return true
		}
	}
	return false
}

// ParseExpression maps a label to an Expression. Unknown labels yield idle, false.
func ParseExpression(s string) (Expression, bool) {
	e := Expression(strings.ToLower(strings.TrimSpace(s)))
	if e.Valid() {
		return e, true
	}
	return ExprIdle, false
}

// EventKind is the closed vocabulary of stream events.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventChatMessage
	EventNewFollower
	EventNewSubscriber
	EventRaid
	EventAlert
	EventGiftSub
	EventBits
	EventDonation
	EventBan
	EventHost
	EventPoll
	EventPrediction
	EventAdBreak
)

var eventKindNames = map[EventKind]string{
	EventChatMessage:   "chat-message",
	EventNewFollower:   "new-follower",
	EventNewSubscriber: "new-subscriber",
	EventRaid:          "raid",
	EventAlert:         "alert",
	EventGiftSub:       "gift-sub",
	EventBits:          "bits",
	EventDonation:      "donation",
	EventBan:           "ban",
	EventHost:          "host",
	EventPoll:          "poll",
	EventPrediction:    "prediction",
	EventAdBreak:       "ad-break",
}

// String returns the wire name ("chat-message", ...) or "unknown".
func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseEventKind maps a wire name to its kind. Unrecognized names give EventUnknown.
func ParseEventKind(s string) EventKind {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range eventKindNames {
		if name == s {
			return k
		}
	}
	return EventUnknown
}

// StreamEvent is one immutable event from the stream. Type keeps the raw wire
// name so unknown kinds can still be logged.
type StreamEvent struct {
	Kind      EventKind `json:"-"`
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
	Mention   bool      `json:"-"` // addressed to the companion directly (e.g. a Discord mention)
}

// NewEvent builds an event of kind k stamped with now.
func NewEvent(k EventKind, username, message string, amount float64) StreamEvent {
	return StreamEvent{
		Kind:      k,
		Type:      k.String(),
		Username:  username,
		Message:   message,
		Amount:    amount,
		Timestamp: time.Now(),
	}
}

// ReactionWorthy reports whether the event should trigger a generated reaction.
// Chat has its own reply path and is not included.
func (k EventKind) ReactionWorthy() bool {
	switch k {
	case EventNewFollower, EventNewSubscriber, EventRaid, EventAlert,
		EventGiftSub, EventBits, EventDonation, EventHost:
		return true
	}
	return false
}

// ShortMessage is one turn of conversation context.
type ShortMessage struct {
	Role    string    `json:"role"` // "user" | "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}
