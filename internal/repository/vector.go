package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// memoryVectorModel maps to the memory_vectors table. It holds a weak
// back-reference to a memory: lookup only, never lifecycle.
type memoryVectorModel struct {
	MemoryID string `gorm:"primaryKey"`
	UserID   string `gorm:"index"`
	Type     string
	// Importance and Tags are duplicated as metadata for filtered queries.
	Importance float64
	Tags       string
	Content    string
	Embedding  pgvector.Vector `gorm:"type:vector(768)"`
}

func (memoryVectorModel) TableName() string {
	return "memory_vectors"
}

// VectorMetadata is attached to an indexed document.
type VectorMetadata struct {
	UserID     string
	Type       string
	Importance float64
	Tags       []string
}

// VectorMatch is one nearest-neighbor result.
type VectorMatch struct {
	MemoryID string
	Distance float64
}

// VectorIndex provides semantic lookup over memory content via pgvector.
type VectorIndex struct {
	db       *gorm.DB
	embedder Embedder
}

// NewVectorIndex returns a VectorIndex.
func NewVectorIndex(db *gorm.DB, embedder Embedder) *VectorIndex {
	return &VectorIndex{db: db, embedder: embedder}
}

// Upsert embeds the text and indexes it under the given id.
func (v *VectorIndex) Upsert(ctx context.Context, id, text string, meta VectorMetadata) error {
	if v.embedder == nil {
		return fmt.Errorf("vector index has no embedder")
	}
	embedding, err := v.embedder.EmbedDocument(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed document: %w", err)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("empty embedding for document %s", id)
	}

	record := memoryVectorModel{
		MemoryID:   id,
		UserID:     meta.UserID,
		Type:       meta.Type,
		Importance: meta.Importance,
		Tags:       strings.Join(meta.Tags, ","),
		Content:    text,
		Embedding:  pgvector.NewVector(embedding),
	}
	if err := v.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "memory_id"}},
		UpdateAll: true,
	}).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}
	return nil
}

// UpdateMetadata refreshes the indexed importance for an id. A missing
// vector entry is not an error.
func (v *VectorIndex) UpdateMetadata(ctx context.Context, id string, importance float64) error {
	if err := v.db.WithContext(ctx).Model(&memoryVectorModel{}).
		Where("memory_id = ?", id).
		Update("importance", importance).Error; err != nil {
		return fmt.Errorf("failed to update vector metadata: %w", err)
	}
	return nil
}

// Query embeds the text and returns up to k nearest neighbors for the user,
// closest first. Distance is cosine distance (smaller is closer).
func (v *VectorIndex) Query(ctx context.Context, text string, k int, userID string) ([]VectorMatch, error) {
	if v.embedder == nil {
		return nil, fmt.Errorf("vector index has no embedder")
	}
	embedding, err := v.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embedding) == 0 {
		return nil, nil
	}

	query := `
		SELECT memory_id, embedding <=> $1 AS distance
		FROM memory_vectors
		WHERE user_id = $2
		ORDER BY distance ASC
		LIMIT $3`

	var results []VectorMatch
	if err := v.db.WithContext(ctx).
		Raw(query, pgvector.NewVector(embedding), userID, k).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	return results, nil
}

// DeleteUser removes all vector entries for a user.
func (v *VectorIndex) DeleteUser(ctx context.Context, userID string) error {
	if err := v.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&memoryVectorModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete user vectors: %w", err)
	}
	return nil
}

// Delete removes vector entries for the given ids. Missing ids are no-ops.
func (v *VectorIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := v.db.WithContext(ctx).
		Where("memory_id IN ?", ids).
		Delete(&memoryVectorModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	return nil
}
