package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/easeaico/persona-agent/internal/types"
)

// sessionModel maps to the sessions table.
type sessionModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	Status    string `gorm:"index"`
	Summary   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (sessionModel) TableName() string {
	return "sessions"
}

// messageModel maps to the session_messages table. Position defines the
// append-only conversation order within a session.
type messageModel struct {
	ID         int    `gorm:"primaryKey;autoIncrement"`
	SessionID  string `gorm:"index:idx_session_position,priority:1"`
	Position   int    `gorm:"index:idx_session_position,priority:2"`
	Role       string
	Content    string
	Emotion    string
	ToolCalls  json.RawMessage `gorm:"type:jsonb"`
	ToolCallID string
	CreatedAt  time.Time
}

func (messageModel) TableName() string {
	return "session_messages"
}

// SessionRepo accesses conversation sessions and their message log.
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo returns a SessionRepo.
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create inserts a new active session for the user.
func (r *SessionRepo) Create(ctx context.Context, userID string) (*types.Session, error) {
	now := time.Now().UTC()
	record := sessionModel{
		ID:        fmt.Sprintf("session_%s", uuid.NewString()[:12]),
		UserID:    userID,
		Status:    types.SessionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	return sessionFromModel(record, nil), nil
}

// GetActive returns the most recent active session for the user, or nil.
func (r *SessionRepo) GetActive(ctx context.Context, userID string) (*types.Session, error) {
	var record sessionModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, types.SessionStatusActive).
		Order("created_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active session: %w", err)
	}
	return sessionFromModel(record, nil), nil
}

// Get returns a session with its full ordered message log.
func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	var record sessionModel
	err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	messages, err := r.GetMessages(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}
	return sessionFromModel(record, messages), nil
}

// AppendMessage appends a message to the session log. The append is durable
// once this returns, so a crash mid-turn leaves a replayable transcript.
func (r *SessionRepo) AppendMessage(ctx context.Context, sessionID string, msg types.Message) error {
	var toolCalls json.RawMessage
	if len(msg.ToolCalls) > 0 {
		raw, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("failed to encode tool calls: %w", err)
		}
		toolCalls = raw
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var position int64
		if err := tx.Model(&messageModel{}).
			Where("session_id = ?", sessionID).
			Count(&position).Error; err != nil {
			return fmt.Errorf("failed to count session messages: %w", err)
		}

		record := messageModel{
			SessionID:  sessionID,
			Position:   int(position),
			Role:       msg.Role,
			Content:    msg.Content,
			Emotion:    msg.Emotion,
			ToolCalls:  toolCalls,
			ToolCallID: msg.ToolCallID,
			CreatedAt:  ts,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}

		if err := tx.Model(&sessionModel{}).
			Where("id = ?", sessionID).
			Update("updated_at", time.Now().UTC()).Error; err != nil {
			return fmt.Errorf("failed to touch session: %w", err)
		}
		return nil
	})
}

// GetMessages returns session messages in conversation order. With a positive
// limit only the most recent messages are returned, oldest first.
func (r *SessionRepo) GetMessages(ctx context.Context, sessionID string, limit int) ([]types.Message, error) {
	query := r.db.WithContext(ctx).Where("session_id = ?", sessionID)
	var records []messageModel
	if limit > 0 {
		if err := query.Order("position DESC").Limit(limit).Find(&records).Error; err != nil {
			return nil, fmt.Errorf("failed to query messages: %w", err)
		}
		// Oldest -> newest
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
	} else {
		if err := query.Order("position ASC").Find(&records).Error; err != nil {
			return nil, fmt.Errorf("failed to query messages: %w", err)
		}
	}

	results := make([]types.Message, 0, len(records))
	for _, record := range records {
		results = append(results, messageFromModel(record))
	}
	return results, nil
}

// Close transitions an active session to closed. Returns false when the
// session does not exist or is already closed.
func (r *SessionRepo) Close(ctx context.Context, sessionID, summary string) (bool, error) {
	updates := map[string]any{
		"status":     types.SessionStatusClosed,
		"updated_at": time.Now().UTC(),
	}
	if summary != "" {
		updates["summary"] = summary
	}
	result := r.db.WithContext(ctx).Model(&sessionModel{}).
		Where("id = ? AND status = ?", sessionID, types.SessionStatusActive).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to close session: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete removes a session and its message log. Individual messages are
// never deleted, only whole sessions.
func (r *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&messageModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete session messages: %w", err)
		}
		if err := tx.Where("id = ?", sessionID).Delete(&sessionModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}

func sessionFromModel(model sessionModel, messages []types.Message) *types.Session {
	return &types.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		Status:    model.Status,
		Summary:   model.Summary,
		Messages:  messages,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func messageFromModel(model messageModel) types.Message {
	msg := types.Message{
		Role:       model.Role,
		Content:    model.Content,
		Emotion:    model.Emotion,
		ToolCallID: model.ToolCallID,
		Timestamp:  model.CreatedAt,
	}
	if len(model.ToolCalls) > 0 {
		_ = json.Unmarshal(model.ToolCalls, &msg.ToolCalls)
	}
	return msg
}
