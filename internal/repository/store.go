// Package repository implements the persistence layer on PostgreSQL.
package repository

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Embedder converts text to vectors for the vector index.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// Store holds the DB pool and repositories.
type Store struct {
	db       *gorm.DB
	Sessions *SessionRepo
	Memories *MemoryRepo
	Profiles *ProfileRepo
	Vectors  *VectorIndex
}

// NewStore initializes the PostgreSQL pool and repositories.
func NewStore(ctx context.Context, databaseURL string, embedder Embedder) (*Store, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{
		db:       db,
		Sessions: NewSessionRepo(db),
		Memories: NewMemoryRepo(db),
		Profiles: NewProfileRepo(db),
		Vectors:  NewVectorIndex(db, embedder),
	}
	return store, nil
}

// Migrate creates or updates the backing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&sessionModel{},
		&messageModel{},
		&memoryModel{},
		&memoryVectorModel{},
		&personaModel{},
		&userProfileModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() {
	if s.db == nil {
		return
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return
	}
	_ = sqlDB.Close()
}
