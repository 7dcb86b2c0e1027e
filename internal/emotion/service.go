package emotion

import (
	"context"
	"fmt"

	"github.com/easeaico/persona-agent/internal/types"
)

// PersonaRepo defines emotion update and fetch behavior.
type PersonaRepo interface {
	GetPersona(ctx context.Context, id int) (*types.Persona, error)
	GetDefaultPersona(ctx context.Context) (*types.Persona, error)
	UpdateEmotion(ctx context.Context, id int, affection int, mood string, lastLabel string, moodTurns int) error
}

// Service updates persisted emotion state based on labels.
type Service struct {
	stateMachine *StateMachine
	personas     PersonaRepo
	personaID    int
}

// NewService returns a new emotion service.
func NewService(stateMachine *StateMachine, personas PersonaRepo, personaID int) *Service {
	return &Service{
		stateMachine: stateMachine,
		personas:     personas,
		personaID:    personaID,
	}
}

// UpdateFromLabel updates affection and mood based on sentiment label.
func (s *Service) UpdateFromLabel(ctx context.Context, label EmotionLabel) error {
	if s == nil || s.stateMachine == nil {
		return fmt.Errorf("emotion service not configured")
	}
	if s.personas == nil {
		return fmt.Errorf("persona repo is nil")
	}

	var persona *types.Persona
	if s.personaID > 0 {
		p, err := s.personas.GetPersona(ctx, s.personaID)
		if err != nil {
			return fmt.Errorf("failed to get persona by id: %w", err)
		}
		persona = p
	} else {
		p, err := s.personas.GetDefaultPersona(ctx)
		if err != nil {
			return fmt.Errorf("failed to get default persona: %w", err)
		}
		persona = p
	}

	if persona == nil {
		return fmt.Errorf("persona not found")
	}

	next := s.stateMachine.Update(EmotionState{
		Affection:   persona.Affection,
		CurrentMood: persona.CurrentMood,
		MoodTurns:   persona.MoodTurns,
		LastLabel:   persona.LastLabel,
	}, label)

	if err := s.personas.UpdateEmotion(ctx, persona.ID, next.Affection, next.CurrentMood, next.LastLabel, next.MoodTurns); err != nil {
		return fmt.Errorf("failed to update emotion: %w", err)
	}
	return nil
}
