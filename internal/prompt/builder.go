package prompt

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easeaico/persona-agent/internal/emotion"
	"github.com/easeaico/persona-agent/internal/types"
	"github.com/easeaico/persona-agent/internal/utils"
)

const importantMemoryFloor = 0.7

// ProfileSource resolves the user profile feeding the system prompt.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (*types.UserProfile, error)
}

// MemorySource feeds user facts and relevant memories into the prompt.
type MemorySource interface {
	GetImportant(ctx context.Context, minImportance float64, k int) ([]types.Memory, error)
	ContextSnippet(ctx context.Context, query string, budget int) (string, error)
}

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "星期一",
	time.Tuesday:   "星期二",
	time.Wednesday: "星期三",
	time.Thursday:  "星期四",
	time.Friday:    "星期五",
	time.Saturday:  "星期六",
	time.Sunday:    "星期日",
}

// Builder assembles the context window for one model turn: layered system
// prompt, truncated history, then the pending user input. Profile and memory
// lookups degrade gracefully; a failed lookup drops its section only.
type Builder struct {
	profiles     ProfileSource
	memories     MemorySource
	historyLimit int
	topK         int
	memoryBudget int
	nowFunc      func() time.Time
}

// NewBuilder creates a prompt Builder.
func NewBuilder(profiles ProfileSource, memories MemorySource, historyLimit, topK, memoryBudget int) *Builder {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Builder{
		profiles:     profiles,
		memories:     memories,
		historyLimit: historyLimit,
		topK:         topK,
		memoryBudget: memoryBudget,
		nowFunc:      time.Now,
	}
}

// Build returns the message window for one turn.
func (b *Builder) Build(ctx context.Context, persona *types.Persona, userID string, history []types.Message, userInput, toolOverview string) ([]types.Message, error) {
	system, err := b.BuildSystemPrompt(ctx, persona, userID, userInput, toolOverview)
	if err != nil {
		return nil, err
	}

	if len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}
	// A tool result without its originating assistant call confuses the
	// backend, so drop stranded tool messages at the truncation edge.
	for len(history) > 0 && history[0].Role == types.RoleTool {
		history = history[1:]
	}

	messages := make([]types.Message, 0, len(history)+2)
	messages = append(messages, types.Message{Role: types.RoleSystem, Content: system})
	messages = append(messages, history...)
	messages = append(messages, types.Message{Role: types.RoleUser, Content: userInput})
	return messages, nil
}

// BuildSystemPrompt renders the layered system prompt.
func (b *Builder) BuildSystemPrompt(ctx context.Context, persona *types.Persona, userID, userInput, toolOverview string) (string, error) {
	if persona == nil {
		return "", fmt.Errorf("persona is required")
	}

	nickname, topicsLike, topicsAvoid := b.profileSections(ctx, userID)

	personaPrompt := strings.TrimSpace(persona.SystemPrompt)
	if personaPrompt == "" {
		personaPrompt = fmt.Sprintf("你是%s。%s", persona.Name, persona.Personality)
	}
	userName := nickname
	if userName == "" {
		userName = "用户"
	}
	personaPrompt = utils.NormalizePromptText(personaPrompt, persona.Name, userName)

	now := b.nowFunc()
	data := struct {
		PersonaPrompt     string
		Now               string
		Weekday           string
		Mood              string
		Affection         int
		MoodInstruction   string
		Nickname          string
		TopicsLike        string
		TopicsAvoid       string
		ImportantMemories []types.Memory
		Reference         string
		Tools             string
	}{
		PersonaPrompt:     personaPrompt,
		Now:               now.Format("2006年01月02日 15:04"),
		Weekday:           weekdayNames[now.Weekday()],
		Mood:              moodOrDefault(persona.CurrentMood),
		Affection:         persona.Affection,
		MoodInstruction:   emotion.MoodInstruction(persona.CurrentMood),
		Nickname:          nickname,
		TopicsLike:        strings.Join(topicsLike, "、"),
		TopicsAvoid:       strings.Join(topicsAvoid, "、"),
		ImportantMemories: b.importantMemories(ctx),
		Reference:         b.reference(ctx, userInput),
		Tools:             toolOverview,
	}

	var buf bytes.Buffer
	if err := systemPromptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to build system prompt: %w", err)
	}
	return buf.String(), nil
}

func (b *Builder) profileSections(ctx context.Context, userID string) (string, []string, []string) {
	if b.profiles == nil || userID == "" {
		return "", nil, nil
	}
	profile, err := b.profiles.GetProfile(ctx, userID)
	if err != nil {
		slog.Warn("failed to load user profile for prompt", "user_id", userID, "error", err.Error())
		return "", nil, nil
	}
	if profile == nil {
		return "", nil, nil
	}
	return profile.Nickname, profile.TopicsLike, profile.TopicsAvoid
}

func (b *Builder) importantMemories(ctx context.Context) []types.Memory {
	if b.memories == nil || b.topK <= 0 {
		return nil
	}
	memories, err := b.memories.GetImportant(ctx, importantMemoryFloor, b.topK)
	if err != nil {
		slog.Warn("failed to load important memories for prompt", "error", err.Error())
		return nil
	}
	return memories
}

func (b *Builder) reference(ctx context.Context, userInput string) string {
	if b.memories == nil || b.memoryBudget <= 0 || strings.TrimSpace(userInput) == "" {
		return ""
	}
	snippet, err := b.memories.ContextSnippet(ctx, userInput, b.memoryBudget)
	if err != nil {
		slog.Warn("failed to retrieve memory snippet for prompt", "error", err.Error())
		return ""
	}
	return snippet
}

func moodOrDefault(mood string) string {
	if mood == "" {
		return emotion.MoodNeutral
	}
	return mood
}
