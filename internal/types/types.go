// Package types holds the shared domain model for the companion agent.
package types

import "time"

// Session status values.
const (
	SessionStatusActive = "active"
	SessionStatusClosed = "closed"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Memory types.
const (
	MemoryTypeFact       = "fact"
	MemoryTypeEvent      = "event"
	MemoryTypePreference = "preference"
	MemoryTypeEmotion    = "emotion"
	MemoryTypeSummary    = "summary"
)

// Session is one bounded conversation between a user and the agent.
// Messages are append-only; a session closes exactly once.
type Session struct {
	ID        string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	Messages  []Message `json:"messages"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToolCall is a tool invocation requested by the backend.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single conversation entry.
// ToolCalls is set on assistant messages that request tools;
// ToolCallID correlates a tool-result message with its originating call.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Emotion    string     `json:"emotion,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Provenance records where a memory was extracted from.
type Provenance struct {
	SessionID    string `json:"session_id"`
	MessageIndex int    `json:"message_index"`
}

// Memory is a durable, typed, importance-scored record.
// Importance is always clamped to [0,1]; content is never empty.
type Memory struct {
	ID           string      `json:"memory_id"`
	UserID       string      `json:"user_id"`
	Type         string      `json:"type"`
	Content      string      `json:"content"`
	Importance   float64     `json:"importance"`
	Source       *Provenance `json:"source,omitempty"`
	Tags         []string    `json:"tags,omitempty"`
	AccessCount  int         `json:"access_count"`
	LastAccessed *time.Time  `json:"last_accessed,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// RetrievedMemory is a memory surfaced by semantic search,
// annotated with its similarity distance.
type RetrievedMemory struct {
	Memory
	Distance float64 `json:"distance"`
}

// MemoryCandidate is an extracted, not-yet-persisted memory.
type MemoryCandidate struct {
	Content      string  `json:"content"`
	Type         string  `json:"type"`
	Importance   float64 `json:"importance"`
	SourceText   string  `json:"source_text,omitempty"`
	MessageIndex int     `json:"message_index,omitempty"`
}

// TranscriptSummary is the structured output of transcript summarization.
type TranscriptSummary struct {
	Summary  string            `json:"summary"`
	Memories []MemoryCandidate `json:"memories"`
	Topics   []string          `json:"topics"`
}

// Persona is the character configuration driving the system prompt.
type Persona struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Personality  string    `json:"personality"`
	Background   string    `json:"background"`
	SystemPrompt string    `json:"system_prompt"`
	Greeting     string    `json:"greeting"`
	Affection    int       `json:"affection"`
	CurrentMood  string    `json:"current_mood"`
	LastLabel    string    `json:"last_label"`
	MoodTurns    int       `json:"mood_turns"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserProfile stores per-user display preferences.
type UserProfile struct {
	UserID      string    `json:"user_id"`
	Nickname    string    `json:"nickname"`
	TopicsLike  []string  `json:"topics_like,omitempty"`
	TopicsAvoid []string  `json:"topics_avoid,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ClampImportance bounds an importance score to [0,1].
func ClampImportance(score float64) float64 {
	if score != score || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
