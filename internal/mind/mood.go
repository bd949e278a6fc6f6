package mind

import "math"

// Mood bounds. Scalars always live in [MoodMin, MoodMax] after a mutation.
const (
	MoodMin = 0.0
	MoodMax = 100.0
)

// Mood is the companion's bounded emotional state.
type Mood struct {
	Energy     float64    `json:"energy"`
	Positivity float64    `json:"positivity"`
	Engagement float64    `json:"engagement"`
	Expression Expression `json:"current_expression"`
}

// Delta is a signed change applied to the three scalars.
type Delta struct {
	Energy     float64
	Positivity float64
	Engagement float64
}

// IsZero reports whether d changes nothing.
func (d Delta) IsZero() bool {
	return d.Energy == 0 && d.Positivity == 0 && d.Engagement == 0
}

// DefaultMood is the resting state at process start.
func DefaultMood() Mood {
	return Mood{Energy: 50, Positivity: 60, Engagement: 30, Expression: ExprIdle}
}

// Apply adds d and clamps.
func (m *Mood) Apply(d Delta) {
	m.Energy += d.Energy
	m.Positivity += d.Positivity
	m.Engagement += d.Engagement
	m.Clamp()
}

// Clamp forces every scalar into [0,100] and repairs an unknown expression.
// NaN collapses to MoodMin.
func (m *Mood) Clamp() {
	m.Energy = clamp100(m.Energy)
	m.Positivity = clamp100(m.Positivity)
	m.Engagement = clamp100(m.Engagement)
	if !m.Expression.Valid() {
		m.Expression = ExprIdle
	}
}

func clamp100(x float64) float64 {
	if math.IsNaN(x) || x < MoodMin {
		return MoodMin
	}
	if x > MoodMax {
		return MoodMax
	}
	return x
}

// round1 rounds to one decimal for publishing.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
