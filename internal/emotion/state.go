// Package emotion 维护人设的好感度与心情状态。
package emotion

// EmotionLabel classifies the sentiment of one user utterance.
type EmotionLabel string

const (
	EmotionPositive EmotionLabel = "Positive"
	EmotionNegative EmotionLabel = "Negative"
	EmotionNeutral  EmotionLabel = "Neutral"
)

// Moods the persona can be in. Stored on the persona record and rendered
// into the system prompt.
const (
	MoodNeutral = "Neutral"
	MoodHappy   = "Happy"
	MoodSad     = "Sad"
	MoodAngry   = "Angry"
)

// EmotionState is the persisted emotional state of a persona. LastLabel and
// MoodTurns track the current same-label streak across turns.
type EmotionState struct {
	Affection   int
	CurrentMood string
	MoodTurns   int
	LastLabel   string
}

// ClampAffection bounds an affection score to [0,100].
func ClampAffection(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// MoodInstruction returns the reply-style guideline injected into the system
// prompt for a mood. Neutral and unknown moods get none.
func MoodInstruction(mood string) string {
	switch mood {
	case MoodAngry:
		return "语气冷淡简短，避免亲昵表达。"
	case MoodSad:
		return "语气低落克制，表达轻微委屈。"
	case MoodHappy:
		return "语气温柔积极，适度亲昵。"
	default:
		return ""
	}
}
