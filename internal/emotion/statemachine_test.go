package emotion

import "testing"

func TestUpdateMovesAffectionPerLabel(t *testing.T) {
	machine := NewStateMachine()

	cases := []struct {
		label EmotionLabel
		want  int
	}{
		{EmotionPositive, 55},
		{EmotionNegative, 40},
		{EmotionNeutral, 51},
	}
	for _, tc := range cases {
		next := machine.Update(EmotionState{Affection: 50, CurrentMood: MoodNeutral}, tc.label)
		if next.Affection != tc.want {
			t.Fatalf("label %s: expected affection %d, got %d", tc.label, tc.want, next.Affection)
		}
	}
}

func TestUpdateClampsAffection(t *testing.T) {
	machine := NewStateMachine()

	next := machine.Update(EmotionState{Affection: 5, CurrentMood: MoodNeutral}, EmotionNegative)
	if next.Affection != 0 {
		t.Fatalf("expected affection floored at 0, got %d", next.Affection)
	}

	next = machine.Update(EmotionState{Affection: 98, CurrentMood: MoodNeutral}, EmotionPositive)
	if next.Affection != 100 {
		t.Fatalf("expected affection capped at 100, got %d", next.Affection)
	}
}

func TestUpdateSingleLabelDoesNotFlipMood(t *testing.T) {
	machine := NewStateMachine()

	next := machine.Update(EmotionState{Affection: 80, CurrentMood: MoodNeutral}, EmotionNegative)
	if next.CurrentMood != MoodNeutral {
		t.Fatalf("expected mood unchanged after one turn, got %s", next.CurrentMood)
	}
	if next.LastLabel != "Negative" || next.MoodTurns != 1 {
		t.Fatalf("unexpected streak tracking: %s/%d", next.LastLabel, next.MoodTurns)
	}
}

func TestUpdateSustainedNegativeTurnsSad(t *testing.T) {
	machine := NewStateMachine()

	state := EmotionState{Affection: 80, CurrentMood: MoodNeutral, LastLabel: "Negative", MoodTurns: 1}
	next := machine.Update(state, EmotionNegative)
	if next.CurrentMood != MoodSad {
		t.Fatalf("expected Sad above the angry floor, got %s", next.CurrentMood)
	}
	if next.MoodTurns != 2 {
		t.Fatalf("expected streak 2, got %d", next.MoodTurns)
	}
}

func TestUpdateSustainedNegativeAtLowAffectionTurnsAngry(t *testing.T) {
	machine := NewStateMachine()

	state := EmotionState{Affection: 35, CurrentMood: MoodNeutral, LastLabel: "Negative", MoodTurns: 1}
	next := machine.Update(state, EmotionNegative)
	if next.Affection != 25 {
		t.Fatalf("expected affection 25, got %d", next.Affection)
	}
	if next.CurrentMood != MoodAngry {
		t.Fatalf("expected Angry at low affection, got %s", next.CurrentMood)
	}
}

func TestUpdateSustainedPositiveTurnsHappy(t *testing.T) {
	machine := NewStateMachine()

	state := EmotionState{Affection: 60, CurrentMood: MoodSad, LastLabel: "Positive", MoodTurns: 1}
	next := machine.Update(state, EmotionPositive)
	if next.CurrentMood != MoodHappy {
		t.Fatalf("expected Happy, got %s", next.CurrentMood)
	}
}

func TestUpdateNeutralNeverFlipsMood(t *testing.T) {
	machine := NewStateMachine()

	state := EmotionState{Affection: 50, CurrentMood: MoodSad, LastLabel: "Neutral", MoodTurns: 5}
	next := machine.Update(state, EmotionNeutral)
	if next.CurrentMood != MoodSad {
		t.Fatalf("expected mood preserved under neutral signals, got %s", next.CurrentMood)
	}
}

func TestUpdateLabelChangeResetsStreak(t *testing.T) {
	machine := NewStateMachine()

	state := EmotionState{Affection: 50, CurrentMood: MoodNeutral, LastLabel: "Negative", MoodTurns: 3}
	next := machine.Update(state, EmotionPositive)
	if next.MoodTurns != 1 {
		t.Fatalf("expected streak reset to 1, got %d", next.MoodTurns)
	}
	if next.CurrentMood != MoodNeutral {
		t.Fatalf("expected mood unchanged on streak reset, got %s", next.CurrentMood)
	}
}

func TestUpdateCustomTuning(t *testing.T) {
	machine := NewStateMachineWith(Tuning{
		PositiveDelta: 2,
		NegativeDelta: -3,
		NeutralDelta:  0,
		MoodStreak:    3,
		AngryFloor:    10,
	})

	state := EmotionState{Affection: 50, CurrentMood: MoodNeutral, LastLabel: "Negative", MoodTurns: 1}
	next := machine.Update(state, EmotionNegative)
	if next.Affection != 47 {
		t.Fatalf("expected custom delta applied, got %d", next.Affection)
	}
	if next.CurrentMood != MoodNeutral {
		t.Fatalf("expected no flip before a 3-turn streak, got %s", next.CurrentMood)
	}

	next = machine.Update(next, EmotionNegative)
	if next.CurrentMood != MoodSad {
		t.Fatalf("expected flip at the custom streak, got %s", next.CurrentMood)
	}
}
