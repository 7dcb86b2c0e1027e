package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/easeaico/persona-agent/internal/types"
)

// memoryModel maps to the memories table, the structured record of truth.
type memoryModel struct {
	ID     string `gorm:"primaryKey"`
	UserID string `gorm:"index"`
	Type   string `gorm:"index"`
	Content string
	// Importance is a 0-1 score, used for prompt budgeting and cleanup.
	Importance         float64 `gorm:"index"`
	SourceSessionID    string
	SourceMessageIndex int
	Tags               json.RawMessage `gorm:"type:jsonb"`
	AccessCount        int
	LastAccessed       *time.Time
	CreatedAt          time.Time `gorm:"index"`
	UpdatedAt          time.Time
}

func (memoryModel) TableName() string {
	return "memories"
}

// MemoryRepo accesses long-term memory records.
type MemoryRepo struct {
	db *gorm.DB
}

// NewMemoryRepo returns a MemoryRepo.
func NewMemoryRepo(db *gorm.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

// Add inserts a memory record.
func (r *MemoryRepo) Add(ctx context.Context, mem types.Memory) error {
	var tags json.RawMessage
	if len(mem.Tags) > 0 {
		raw, err := json.Marshal(mem.Tags)
		if err != nil {
			return fmt.Errorf("failed to encode memory tags: %w", err)
		}
		tags = raw
	}

	record := memoryModel{
		ID:          mem.ID,
		UserID:      mem.UserID,
		Type:        mem.Type,
		Content:     mem.Content,
		Importance:  mem.Importance,
		Tags:        tags,
		AccessCount: mem.AccessCount,
		CreatedAt:   mem.CreatedAt,
		UpdatedAt:   mem.UpdatedAt,
	}
	if mem.Source != nil {
		record.SourceSessionID = mem.Source.SessionID
		record.SourceMessageIndex = mem.Source.MessageIndex
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	return nil
}

// Get fetches a memory by id, or nil when absent.
func (r *MemoryRepo) Get(ctx context.Context, id string) (*types.Memory, error) {
	var record memoryModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query memory: %w", err)
	}
	mem := memoryFromModel(record)
	return &mem, nil
}

// GetRecent returns the newest memories, newest first.
func (r *MemoryRepo) GetRecent(ctx context.Context, userID string, limit int, memoryTypes []string) ([]types.Memory, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit)
	if len(memoryTypes) > 0 {
		query = query.Where("type IN ?", memoryTypes)
	}

	var records []memoryModel
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query recent memories: %w", err)
	}
	return memoriesFromModels(records), nil
}

// GetImportant returns memories at or above the importance floor,
// most important first.
func (r *MemoryRepo) GetImportant(ctx context.Context, userID string, minImportance float64, limit int) ([]types.Memory, error) {
	var records []memoryModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND importance >= ?", userID, minImportance).
		Order("importance DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query important memories: %w", err)
	}
	return memoriesFromModels(records), nil
}

// SearchText matches memory content by substring, for keyword lookup.
func (r *MemoryRepo) SearchText(ctx context.Context, userID, query string, limit int) ([]types.Memory, error) {
	var records []memoryModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND content ILIKE ?", userID, "%"+query+"%").
		Order("importance DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	return memoriesFromModels(records), nil
}

// UpdateAccess increments the access counter and stamps last access.
func (r *MemoryRepo) UpdateAccess(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&memoryModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"access_count":  gorm.Expr("access_count + 1"),
			"last_accessed": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update memory access: %w", result.Error)
	}
	return nil
}

// UpdateImportance sets a new importance score. Returns false when the
// memory does not exist.
func (r *MemoryRepo) UpdateImportance(ctx context.Context, id string, importance float64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&memoryModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"importance": importance,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to update memory importance: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete removes a memory record. Returns false when nothing was deleted.
func (r *MemoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&memoryModel{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete memory: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteOlderThan bulk-removes low-importance memories older than the given
// number of days. Vector entries are not synced here; orphans are harmless.
func (r *MemoryRepo) DeleteOlderThan(ctx context.Context, userID string, days int, maxImportance float64) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at < ? AND importance <= ?", userID, cutoff, maxImportance).
		Delete(&memoryModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old memories: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteAll removes every memory for the user. Full reset only.
func (r *MemoryRepo) DeleteAll(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&memoryModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reset memories: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func memoriesFromModels(records []memoryModel) []types.Memory {
	results := make([]types.Memory, 0, len(records))
	for _, record := range records {
		results = append(results, memoryFromModel(record))
	}
	return results
}

func memoryFromModel(model memoryModel) types.Memory {
	mem := types.Memory{
		ID:           model.ID,
		UserID:       model.UserID,
		Type:         model.Type,
		Content:      model.Content,
		Importance:   model.Importance,
		AccessCount:  model.AccessCount,
		LastAccessed: model.LastAccessed,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
	if len(model.Tags) > 0 {
		_ = json.Unmarshal(model.Tags, &mem.Tags)
	}
	if model.SourceSessionID != "" {
		mem.Source = &types.Provenance{
			SessionID:    model.SourceSessionID,
			MessageIndex: model.SourceMessageIndex,
		}
	}
	return mem
}
