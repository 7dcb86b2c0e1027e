package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/easeaico/persona-agent/internal/types"
)

// personaModel maps to the personas table.
type personaModel struct {
	ID           int `gorm:"primaryKey;autoIncrement"`
	Name         string
	Personality  string
	Background   string
	SystemPrompt string
	Greeting     string
	Affection    int
	CurrentMood  string
	LastLabel    string
	MoodTurns    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (personaModel) TableName() string {
	return "personas"
}

// userProfileModel maps to the user_profiles table.
type userProfileModel struct {
	UserID      string `gorm:"primaryKey"`
	Nickname    string
	TopicsLike  json.RawMessage `gorm:"type:jsonb"`
	TopicsAvoid json.RawMessage `gorm:"type:jsonb"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (userProfileModel) TableName() string {
	return "user_profiles"
}

// ProfileRepo accesses personas and user profiles.
type ProfileRepo struct {
	db *gorm.DB
}

// NewProfileRepo returns a ProfileRepo.
func NewProfileRepo(db *gorm.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetPersona fetches a persona by id, or nil when absent.
func (r *ProfileRepo) GetPersona(ctx context.Context, id int) (*types.Persona, error) {
	var record personaModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get persona by id: %w", err)
	}
	persona := personaFromModel(record)
	return &persona, nil
}

// GetDefaultPersona fetches the first available persona, or nil.
func (r *ProfileRepo) GetDefaultPersona(ctx context.Context) (*types.Persona, error) {
	var record personaModel
	err := r.db.WithContext(ctx).Order("id ASC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get default persona: %w", err)
	}
	persona := personaFromModel(record)
	return &persona, nil
}

// CreatePersona inserts a persona and fills in its assigned id.
func (r *ProfileRepo) CreatePersona(ctx context.Context, persona *types.Persona) error {
	now := time.Now().UTC()
	record := personaModel{
		Name:         persona.Name,
		Personality:  persona.Personality,
		Background:   persona.Background,
		SystemPrompt: persona.SystemPrompt,
		Greeting:     persona.Greeting,
		Affection:    persona.Affection,
		CurrentMood:  persona.CurrentMood,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert persona: %w", err)
	}
	persona.ID = record.ID
	return nil
}

// UpdateEmotion updates a persona's affection and mood tracking state.
func (r *ProfileRepo) UpdateEmotion(ctx context.Context, id int, affection int, mood, lastLabel string, moodTurns int) error {
	result := r.db.WithContext(ctx).Model(&personaModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"affection":    affection,
			"current_mood": mood,
			"last_label":   lastLabel,
			"mood_turns":   moodTurns,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update emotion: %w", result.Error)
	}
	return nil
}

// GetProfile fetches the user profile, or nil when absent.
func (r *ProfileRepo) GetProfile(ctx context.Context, userID string) (*types.UserProfile, error) {
	var record userProfileModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	profile := types.UserProfile{
		UserID:    record.UserID,
		Nickname:  record.Nickname,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
	if len(record.TopicsLike) > 0 {
		_ = json.Unmarshal(record.TopicsLike, &profile.TopicsLike)
	}
	if len(record.TopicsAvoid) > 0 {
		_ = json.Unmarshal(record.TopicsAvoid, &profile.TopicsAvoid)
	}
	return &profile, nil
}

// UpsertProfile creates or replaces the user profile.
func (r *ProfileRepo) UpsertProfile(ctx context.Context, profile types.UserProfile) error {
	like, err := json.Marshal(profile.TopicsLike)
	if err != nil {
		return fmt.Errorf("failed to encode liked topics: %w", err)
	}
	avoid, err := json.Marshal(profile.TopicsAvoid)
	if err != nil {
		return fmt.Errorf("failed to encode avoided topics: %w", err)
	}

	now := time.Now().UTC()
	record := userProfileModel{
		UserID:      profile.UserID,
		Nickname:    profile.Nickname,
		TopicsLike:  like,
		TopicsAvoid: avoid,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"nickname", "topics_like", "topics_avoid", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to upsert user profile: %w", err)
	}
	return nil
}

func personaFromModel(model personaModel) types.Persona {
	return types.Persona{
		ID:           model.ID,
		Name:         model.Name,
		Personality:  model.Personality,
		Background:   model.Background,
		SystemPrompt: model.SystemPrompt,
		Greeting:     model.Greeting,
		Affection:    model.Affection,
		CurrentMood:  model.CurrentMood,
		LastLabel:    model.LastLabel,
		MoodTurns:    model.MoodTurns,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}
