package mind

import (
	"fmt"
	"math"
)

// ChatExpressionChance is how often a chat line changes the face.
const ChatExpressionChance = 0.3

// Expression candidates per event kind.
var (
	chatExpressions       = []Expression{ExprHappy, ExprSnarky, ExprLaughing, ExprCatFace, ExprThinking}
	followerExpressions   = []Expression{ExprHappy, ExprExcited, ExprLove}
	subscriberExpressions = []Expression{ExprExcited, ExprHappy, ExprLove}
	alertExpressions      = []Expression{ExprSurprised, ExprExcited, ExprHappy}
)

// Classifier turns stream events into mood deltas and expression picks.
type Classifier struct {
	rnd Rand
}

// NewClassifier returns a classifier drawing from rnd. nil uses NewRand.
func NewClassifier(rnd Rand) *Classifier {
	if rnd == nil {
		rnd = NewRand()
	}
	return &Classifier{rnd: rnd}
}

// Classify returns the delta and the expression that follow ev, given the
// current expression. ok is false for kinds without mood rules.
func (c *Classifier) Classify(ev StreamEvent, current Expression) (d Delta, expr Expression, ok bool) {
	expr = current
	switch ev.Kind {
	case EventChatMessage:
		d = Delta{Engagement: 3, Energy: 1}
		if c.rnd.Float64() < ChatExpressionChance {
			expr = c.pick(chatExpressions)
		}
		return d, expr, true

	case EventNewFollower:
		return Delta{Positivity: 8, Engagement: 10, Energy: 5}, c.pick(followerExpressions), true

	case EventNewSubscriber:
		tier := math.Max(1, ev.Amount)
		d = Delta{Positivity: 12 * tier, Engagement: 15 * tier, Energy: 10 * tier}
		if tier >= 2 {
			return d, ExprExcited, true
		}
		return d, c.pick(subscriberExpressions), true

	case EventRaid:
		viewers := math.Max(1, ev.Amount)
		scale := math.Min(3, viewers/10)
		return Delta{Positivity: 15 * scale, Engagement: 20 * scale, Energy: 15 * scale}, ExprExcited, true

	case EventAlert:
		return Delta{Engagement: 8, Energy: 5}, c.pick(alertExpressions), true

	case EventGiftSub, EventBits, EventDonation, EventBan, EventHost,
		EventPoll, EventPrediction, EventAdBreak, EventUnknown:
		return Delta{}, current, false
	}
	return Delta{}, current, false
}

// Apply classifies ev and applies the result to m. m is clamped even when
// the kind has no rule.
func (c *Classifier) Apply(m *Mood, ev StreamEvent) bool {
	d, expr, ok := c.Classify(ev, m.Expression)
	if ok {
		m.Apply(d)
		m.Expression = expr
	}
	m.Clamp()
	return ok
}

func (c *Classifier) pick(set []Expression) Expression {
	return set[c.rnd.Intn(len(set))]
}

// DescribeEvent renders ev as one line for the language model.
func DescribeEvent(ev StreamEvent) string {
	switch ev.Kind {
	case EventNewFollower:
		return fmt.Sprintf("%s just followed!", ev.Username)
	case EventNewSubscriber:
		tier := int(ev.Amount)
		if tier < 1 {
			tier = 1
		}
		return fmt.Sprintf("%s subscribed at tier %d!", ev.Username, tier)
	case EventRaid:
		return fmt.Sprintf("%s raided with %d viewers!", ev.Username, int(ev.Amount))
	case EventChatMessage:
		return fmt.Sprintf("%s said: %s", ev.Username, ev.Message)
	case EventAlert:
		if ev.Message != "" {
			return "Alert triggered: " + ev.Message
		}
		return "Alert triggered: " + ev.Type
	case EventGiftSub:
		return fmt.Sprintf("%s gifted %d subs!", ev.Username, int(math.Max(1, ev.Amount)))
	case EventBits:
		return fmt.Sprintf("%s cheered %d bits!", ev.Username, int(ev.Amount))
	case EventDonation:
		return fmt.Sprintf("%s donated %.2f!", ev.Username, ev.Amount)
	case EventHost:
		return fmt.Sprintf("%s is hosting the stream with %d viewers!", ev.Username, int(ev.Amount))
	}
	return fmt.Sprintf("Event: %s from %s", ev.Type, ev.Username)
}
