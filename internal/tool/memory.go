package tool

import (
	"context"
	"strings"

	"github.com/easeaico/persona-agent/internal/types"
)

// MemoryStore is the slice of the memory manager the tool needs.
type MemoryStore interface {
	Add(ctx context.Context, content, memoryType string, importance float64, source *types.Provenance, tags []string) (string, error)
	Search(ctx context.Context, query string, k int, minImportance float64, memoryTypes []string) ([]types.RetrievedMemory, error)
	GetRecent(ctx context.Context, k int) ([]types.Memory, error)
}

// MemoryTool lets the model save, search and list long-term memories.
type MemoryTool struct {
	store MemoryStore
}

// NewMemoryTool returns a MemoryTool over the given store.
func NewMemoryTool(store MemoryStore) *MemoryTool {
	return &MemoryTool{store: store}
}

func (t *MemoryTool) Name() string {
	return "memory"
}

func (t *MemoryTool) Description() string {
	return `管理用户的长期记忆。
使用场景：
1. save: 当用户分享了重要的个人信息时保存（如：喜好、身份、重要事件等）
2. search: 当需要回忆用户之前说过的话时搜索
3. list: 列出用户的记忆

注意：只保存真正重要的信息，不要保存日常闲聊。
重要信息包括：用户的名字、喜好、厌恶、身份信息、重要事件、约定等。`
}

func (t *MemoryTool) Parameters() []Param {
	return []Param{
		{
			Name:        "action",
			Type:        "string",
			Description: "操作类型：save(保存)、search(搜索)、list(列表)",
			Required:    true,
			Enum:        []string{"save", "search", "list"},
		},
		{
			Name:        "content",
			Type:        "string",
			Description: "记忆内容（save时必填）或搜索关键词（search时必填）",
			Required:    false,
		},
		{
			Name:        "memory_type",
			Type:        "string",
			Description: "记忆类型",
			Required:    false,
			Enum:        []string{"fact", "preference", "event", "emotion"},
			Default:     "fact",
		},
		{
			Name:        "importance",
			Type:        "number",
			Description: "重要程度 0-1，默认0.5。非常重要的信息设为0.8以上",
			Required:    false,
			Default:     0.5,
		},
	}
}

func (t *MemoryTool) Execute(ctx context.Context, args map[string]any) Result {
	if t.store == nil {
		return Result{Success: false, Error: "记忆管理器未初始化"}
	}

	content := strings.TrimSpace(stringArg(args, "content", ""))
	switch stringArg(args, "action", "") {
	case "save":
		if content == "" {
			return Result{Success: false, Error: "保存记忆需要提供 content"}
		}
		id, err := t.store.Add(ctx, content, stringArg(args, "memory_type", types.MemoryTypeFact), floatArg(args, "importance", 0.5), nil, nil)
		if err != nil {
			return Result{Success: false, Error: err.Error()}
		}
		return Result{Success: true, Data: map[string]any{
			"message":   "记忆已保存",
			"memory_id": id,
		}}

	case "search":
		if content == "" {
			return Result{Success: false, Error: "搜索记忆需要提供关键词"}
		}
		memories, err := t.store.Search(ctx, content, 5, 0, nil)
		if err != nil {
			return Result{Success: false, Error: err.Error()}
		}
		entries := make([]map[string]any, 0, len(memories))
		for _, mem := range memories {
			entries = append(entries, map[string]any{
				"content":    mem.Content,
				"type":       mem.Type,
				"importance": mem.Importance,
			})
		}
		return Result{Success: true, Data: map[string]any{
			"count":    len(entries),
			"memories": entries,
		}}

	case "list":
		memories, err := t.store.GetRecent(ctx, 10)
		if err != nil {
			return Result{Success: false, Error: err.Error()}
		}
		entries := make([]map[string]any, 0, len(memories))
		for _, mem := range memories {
			entries = append(entries, map[string]any{
				"content":    mem.Content,
				"type":       mem.Type,
				"created_at": mem.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return Result{Success: true, Data: map[string]any{
			"count":    len(entries),
			"memories": entries,
		}}

	default:
		return Result{Success: false, Error: "未知操作: " + stringArg(args, "action", "")}
	}
}
