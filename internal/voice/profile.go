package voice

// Profile holds the generation parameters sent with a synthesis request.
type Profile struct {
	Name        string  `json:"mood"`
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"topk"`
	Pace        float64 `json:"pace_modifier"`
}

var Profiles = map[string]Profile{
	"neutral":  {Name: "neutral", Temperature: 0.7, TopK: 50, Pace: 1.0},
	"snarky":   {Name: "snarky", Temperature: 0.6, TopK: 40, Pace: 0.9},
	"warm":     {Name: "warm", Temperature: 0.8, TopK: 50, Pace: 1.0},
	"excited":  {Name: "excited", Temperature: 0.8, TopK: 55, Pace: 1.15},
	"thinking": {Name: "thinking", Temperature: 0.65, TopK: 45, Pace: 0.85},
}

// ProfileFor returns the profile named mood, falling back to neutral.
func ProfileFor(mood string) Profile {
	if p, ok := Profiles[mood]; ok {
		return p
	}
	return Profiles["neutral"]
}

// MoodForExpression maps a face label to a voice profile name.
func MoodForExpression(expr string) string {
	switch expr {
	case "snarky", "cat_face", "angry":
		return "snarky"
	case "happy", "love", "sad":
		return "warm"
	case "excited", "laughing", "surprised":
		return "excited"
	case "thinking":
		return "thinking"
	}
	return "neutral"
}
