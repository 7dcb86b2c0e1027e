package tool

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/easeaico/persona-agent/internal/types"
)

type fakeMemoryStore struct {
	saved   []types.Memory
	results []types.RetrievedMemory
	recent  []types.Memory
}

var _ MemoryStore = (*fakeMemoryStore)(nil)

func (f *fakeMemoryStore) Add(_ context.Context, content, memoryType string, importance float64, _ *types.Provenance, _ []string) (string, error) {
	f.saved = append(f.saved, types.Memory{Content: content, Type: memoryType, Importance: importance})
	return "mem_test", nil
}

func (f *fakeMemoryStore) Search(_ context.Context, _ string, _ int, _ float64, _ []string) ([]types.RetrievedMemory, error) {
	return f.results, nil
}

func (f *fakeMemoryStore) GetRecent(_ context.Context, _ int) ([]types.Memory, error) {
	return f.recent, nil
}

func TestMemoryToolSave(t *testing.T) {
	store := &fakeMemoryStore{}
	mt := NewMemoryTool(store)

	result := mt.Execute(context.Background(), map[string]any{
		"action":      "save",
		"content":     "用户喜欢吃火锅",
		"memory_type": "preference",
		"importance":  0.8,
	})
	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected 1 saved memory, got %d", len(store.saved))
	}
	if store.saved[0].Type != types.MemoryTypePreference || store.saved[0].Importance != 0.8 {
		t.Fatalf("unexpected saved memory: %+v", store.saved[0])
	}
}

func TestMemoryToolSaveRequiresContent(t *testing.T) {
	mt := NewMemoryTool(&fakeMemoryStore{})

	result := mt.Execute(context.Background(), map[string]any{"action": "save"})
	if result.Success {
		t.Fatalf("expected failure without content")
	}
}

func TestMemoryToolSearch(t *testing.T) {
	store := &fakeMemoryStore{results: []types.RetrievedMemory{
		{Memory: types.Memory{Content: "用户喜欢吃火锅", Type: types.MemoryTypePreference, Importance: 0.8}},
	}}
	mt := NewMemoryTool(store)

	result := mt.Execute(context.Background(), map[string]any{"action": "search", "content": "火锅"})
	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	if !strings.Contains(result.Render(), "用户喜欢吃火锅") {
		t.Fatalf("expected memory content in rendering, got %s", result.Render())
	}
}

func TestMemoryToolList(t *testing.T) {
	store := &fakeMemoryStore{recent: []types.Memory{
		{Content: "用户在上海工作", Type: types.MemoryTypeFact, CreatedAt: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)},
	}}
	mt := NewMemoryTool(store)

	result := mt.Execute(context.Background(), map[string]any{"action": "list"})
	if !result.Success {
		t.Fatalf("expected success, got %s", result.Error)
	}
	rendered := result.Render()
	if !strings.Contains(rendered, "2026-01-02 10:00:00") {
		t.Fatalf("expected timestamp in rendering, got %s", rendered)
	}
}

func TestMemoryToolUnknownAction(t *testing.T) {
	mt := NewMemoryTool(&fakeMemoryStore{})

	result := mt.Execute(context.Background(), map[string]any{"action": "purge"})
	if result.Success {
		t.Fatalf("expected failure for unknown action")
	}
	if !strings.Contains(result.Error, "purge") {
		t.Fatalf("unexpected error: %s", result.Error)
	}
}
