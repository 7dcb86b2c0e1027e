package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/easeaico/persona-agent/internal/repository"
	"github.com/easeaico/persona-agent/internal/types"
)

// MemoryRecords is the structured side of the dual store.
type MemoryRecords interface {
	Add(ctx context.Context, mem types.Memory) error
	Get(ctx context.Context, id string) (*types.Memory, error)
	GetRecent(ctx context.Context, userID string, limit int, memoryTypes []string) ([]types.Memory, error)
	GetImportant(ctx context.Context, userID string, minImportance float64, limit int) ([]types.Memory, error)
	SearchText(ctx context.Context, userID, query string, limit int) ([]types.Memory, error)
	UpdateAccess(ctx context.Context, id string) error
	UpdateImportance(ctx context.Context, id string, importance float64) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteOlderThan(ctx context.Context, userID string, days int, maxImportance float64) (int64, error)
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

// VectorIndex is the semantic side of the dual store.
type VectorIndex interface {
	Upsert(ctx context.Context, id, text string, meta repository.VectorMetadata) error
	UpdateMetadata(ctx context.Context, id string, importance float64) error
	Query(ctx context.Context, text string, k int, userID string) ([]repository.VectorMatch, error)
	Delete(ctx context.Context, ids []string) error
	DeleteUser(ctx context.Context, userID string) error
}

// Manager coordinates the structured record store and the vector index.
// The structured record is the record of truth; the vector entry is a weak
// back-reference maintained best-effort.
type Manager struct {
	userID  string
	records MemoryRecords
	vectors VectorIndex
}

// NewManager returns a Manager scoped to one user.
func NewManager(userID string, records MemoryRecords, vectors VectorIndex) *Manager {
	return &Manager{
		userID:  userID,
		records: records,
		vectors: vectors,
	}
}

// Add persists a memory and indexes it for semantic lookup. The structured
// write must succeed; a failed vector write leaves the memory unsearchable
// semantically but still reachable by recency and importance.
func (m *Manager) Add(ctx context.Context, content, memoryType string, importance float64, source *types.Provenance, tags []string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("memory content cannot be empty")
	}
	if memoryType == "" {
		memoryType = types.MemoryTypeFact
	}

	now := time.Now().UTC()
	mem := types.Memory{
		ID:         fmt.Sprintf("mem_%s", strings.ReplaceAll(uuid.NewString(), "-", "")[:12]),
		UserID:     m.userID,
		Type:       memoryType,
		Content:    content,
		Importance: types.ClampImportance(importance),
		Source:     source,
		Tags:       tags,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := m.records.Add(ctx, mem); err != nil {
		return "", err
	}

	if err := m.vectors.Upsert(ctx, mem.ID, content, repository.VectorMetadata{
		UserID:     m.userID,
		Type:       memoryType,
		Importance: mem.Importance,
		Tags:       tags,
	}); err != nil {
		slog.Warn("memory stored but not indexed", "memory_id", mem.ID, "error", err.Error())
	}

	slog.Info("added long-term memory", "memory_id", mem.ID, "type", memoryType, "importance", mem.Importance)
	return mem.ID, nil
}

// Search returns up to k memories semantically similar to the query. It
// over-fetches 2k neighbors, then filters by type and importance floor in
// similarity order, bumping access stats on every surfaced record.
func (m *Manager) Search(ctx context.Context, query string, k int, minImportance float64, memoryTypes []string) ([]types.RetrievedMemory, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}

	matches, err := m.vectors.Query(ctx, query, 2*k, m.userID)
	if err != nil {
		return nil, err
	}

	results := make([]types.RetrievedMemory, 0, k)
	for _, match := range matches {
		record, err := m.records.Get(ctx, match.MemoryID)
		if err != nil {
			return nil, err
		}
		if record == nil {
			// Orphaned vector entry; the record was deleted.
			continue
		}
		if len(memoryTypes) > 0 && !containsType(memoryTypes, record.Type) {
			continue
		}
		if record.Importance < minImportance {
			continue
		}

		if err := m.records.UpdateAccess(ctx, record.ID); err != nil {
			slog.Warn("failed to update memory access", "memory_id", record.ID, "error", err.Error())
		}

		results = append(results, types.RetrievedMemory{Memory: *record, Distance: match.Distance})
		if len(results) >= k {
			break
		}
	}
	return results, nil
}

// contextOverFetch and contextMinImportance tune snippet retrieval.
const (
	contextOverFetch     = 10
	contextMinImportance = 0.3
)

// ContextSnippet formats relevant memories as prompt lines under an
// approximate character budget. Entries that do not fit are dropped whole.
func (m *Manager) ContextSnippet(ctx context.Context, query string, budget int) (string, error) {
	memories, err := m.Search(ctx, query, contextOverFetch, contextMinImportance, nil)
	if err != nil {
		return "", err
	}
	if len(memories) == 0 {
		return "", nil
	}

	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].Importance > memories[j].Importance
	})

	var sb strings.Builder
	used := 0
	for _, mem := range memories {
		// 中文约 2 字符/token 的粗略估算。
		cost := utf8.RuneCountInString(mem.Content) / 2
		if used+cost > budget {
			break
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("[" + typeLabel(mem.Type) + "] " + mem.Content)
		used += cost
	}
	return sb.String(), nil
}

// GetRecent returns the newest memories, newest first.
func (m *Manager) GetRecent(ctx context.Context, k int) ([]types.Memory, error) {
	return m.records.GetRecent(ctx, m.userID, k, nil)
}

// GetImportant returns memories at or above the floor, most important first.
func (m *Manager) GetImportant(ctx context.Context, minImportance float64, k int) ([]types.Memory, error) {
	return m.records.GetImportant(ctx, m.userID, minImportance, k)
}

// SearchText matches memory content by keyword against the record store.
func (m *Manager) SearchText(ctx context.Context, query string, k int) ([]types.Memory, error) {
	return m.records.SearchText(ctx, m.userID, query, k)
}

// UpdateImportance sets a new clamped importance score and refreshes the
// indexed metadata best-effort.
func (m *Manager) UpdateImportance(ctx context.Context, id string, importance float64) (bool, error) {
	importance = types.ClampImportance(importance)
	ok, err := m.records.UpdateImportance(ctx, id, importance)
	if err != nil || !ok {
		return ok, err
	}
	if err := m.vectors.UpdateMetadata(ctx, id, importance); err != nil {
		slog.Warn("failed to sync vector metadata", "memory_id", id, "error", err.Error())
	}
	return true, nil
}

// Delete removes one memory from both stores. A missing vector entry is
// not an error.
func (m *Manager) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := m.records.Delete(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	if err := m.vectors.Delete(ctx, []string{id}); err != nil {
		slog.Warn("failed to delete vector entry", "memory_id", id, "error", err.Error())
	}
	return true, nil
}

// DeleteOlderThan bulk-removes old low-importance memories. The vector
// index is intentionally left alone; orphans are no-ops on later misses.
func (m *Manager) DeleteOlderThan(ctx context.Context, days int, maxImportance float64) (int64, error) {
	return m.records.DeleteOlderThan(ctx, m.userID, days, maxImportance)
}

// Reset removes every memory and vector entry for the user.
func (m *Manager) Reset(ctx context.Context) (int64, error) {
	deleted, err := m.records.DeleteAll(ctx, m.userID)
	if err != nil {
		return 0, err
	}
	if err := m.vectors.DeleteUser(ctx, m.userID); err != nil {
		slog.Warn("failed to reset vector index", "user_id", m.userID, "error", err.Error())
	}
	return deleted, nil
}

func containsType(memoryTypes []string, memoryType string) bool {
	for _, t := range memoryTypes {
		if t == memoryType {
			return true
		}
	}
	return false
}

func typeLabel(memoryType string) string {
	switch memoryType {
	case types.MemoryTypeFact:
		return "事实"
	case types.MemoryTypeEvent:
		return "事件"
	case types.MemoryTypePreference:
		return "偏好"
	case types.MemoryTypeEmotion:
		return "情感"
	case types.MemoryTypeSummary:
		return "摘要"
	default:
		return memoryType
	}
}
