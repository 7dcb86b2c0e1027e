package emotion

// Tuning controls how sentiment labels move affection and mood.
type Tuning struct {
	// Per-label affection deltas. Negative sentiment costs more than
	// positive sentiment earns, so affection is slow to build and quick
	// to lose.
	PositiveDelta int
	NegativeDelta int
	NeutralDelta  int

	// MoodStreak is how many consecutive same-label turns it takes to
	// flip the mood. A single outburst never changes it.
	MoodStreak int

	// AngryFloor is the affection level at or below which sustained
	// negative sentiment turns the mood Angry instead of Sad.
	AngryFloor int
}

// DefaultTuning returns the stock companion tuning.
func DefaultTuning() Tuning {
	return Tuning{
		PositiveDelta: 5,
		NegativeDelta: -10,
		NeutralDelta:  1,
		MoodStreak:    2,
		AngryFloor:    30,
	}
}

// StateMachine evolves persona emotion state from sentiment labels.
type StateMachine struct {
	tuning Tuning
}

// NewStateMachine returns a StateMachine with default tuning.
func NewStateMachine() *StateMachine {
	return NewStateMachineWith(DefaultTuning())
}

// NewStateMachineWith returns a StateMachine with custom tuning.
func NewStateMachineWith(tuning Tuning) *StateMachine {
	if tuning.MoodStreak <= 0 {
		tuning.MoodStreak = DefaultTuning().MoodStreak
	}
	return &StateMachine{tuning: tuning}
}

// Update applies one sentiment label and returns the next state. Affection
// always moves; the mood only flips once the same label has held for a full
// streak, and neutral signals never flip it.
func (s *StateMachine) Update(state EmotionState, label EmotionLabel) EmotionState {
	switch label {
	case EmotionPositive:
		state.Affection += s.tuning.PositiveDelta
	case EmotionNegative:
		state.Affection += s.tuning.NegativeDelta
	case EmotionNeutral:
		state.Affection += s.tuning.NeutralDelta
	}
	state.Affection = ClampAffection(state.Affection)

	streak := 1
	if state.LastLabel == string(label) {
		streak = state.MoodTurns + 1
	}

	if label != EmotionNeutral && streak >= s.tuning.MoodStreak {
		state.CurrentMood = s.moodFor(label, state.Affection, state.CurrentMood)
	}

	state.LastLabel = string(label)
	state.MoodTurns = streak
	return state
}

func (s *StateMachine) moodFor(label EmotionLabel, affection int, current string) string {
	switch label {
	case EmotionPositive:
		return MoodHappy
	case EmotionNegative:
		if affection <= s.tuning.AngryFloor {
			return MoodAngry
		}
		return MoodSad
	default:
		return current
	}
}
