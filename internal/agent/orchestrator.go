// Package agent 实现带工具调度的会话编排核心。
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/easeaico/persona-agent/internal/emotion"
	"github.com/easeaico/persona-agent/internal/models"
	"github.com/easeaico/persona-agent/internal/tool"
	"github.com/easeaico/persona-agent/internal/types"
)

const (
	defaultGreeting = "你好~"

	toolPolicy = `你可以调用工具来获取信息或执行操作。当用户询问实时信息（如日期时间）时，优先使用工具获取准确数据。
当用户分享重要的个人信息时，使用记忆工具保存。
不要滥用工具，简单的闲聊不需要工具。`
)

// summarizedMemoryFloor drops low-value model-extracted memories on close.
const summarizedMemoryFloor = 0.5

// SessionStore persists conversations.
type SessionStore interface {
	Create(ctx context.Context, userID string) (*types.Session, error)
	GetActive(ctx context.Context, userID string) (*types.Session, error)
	AppendMessage(ctx context.Context, sessionID string, msg types.Message) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]types.Message, error)
	Close(ctx context.Context, sessionID, summary string) (bool, error)
}

// PersonaSource resolves the active persona.
type PersonaSource interface {
	GetPersona(ctx context.Context, id int) (*types.Persona, error)
	GetDefaultPersona(ctx context.Context) (*types.Persona, error)
}

// ContextBuilder assembles the model message window for one turn.
type ContextBuilder interface {
	Build(ctx context.Context, persona *types.Persona, userID string, history []types.Message, userInput, toolOverview string) ([]types.Message, error)
}

// ToolRunner exposes tool declarations and dispatches calls.
type ToolRunner interface {
	Schemas() []models.ToolSchema
	Dispatch(ctx context.Context, call types.ToolCall) tool.Result
}

// MemoryWriter persists extracted memories.
type MemoryWriter interface {
	Add(ctx context.Context, content, memoryType string, importance float64, source *types.Provenance, tags []string) (string, error)
}

// CandidateExtractor derives rule-based memory candidates from a transcript.
type CandidateExtractor interface {
	ExtractFromTranscript(messages []types.Message) []types.MemoryCandidate
}

// TranscriptSummarizer condenses a transcript on session close.
type TranscriptSummarizer interface {
	Summarize(ctx context.Context, messages []types.Message) types.TranscriptSummary
}

// SentimentAnalyzer labels user input sentiment.
type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) emotion.EmotionLabel
}

// EmotionSink receives sentiment labels to evolve persisted emotion state.
type EmotionSink interface {
	UpdateFromLabel(ctx context.Context, label emotion.EmotionLabel) error
}

// Options wires an Orchestrator.
type Options struct {
	UserID       string
	PersonaID    int
	MaxToolCalls int
	HistoryLimit int

	Backend    models.ChatBackend
	Sessions   SessionStore
	Personas   PersonaSource
	Builder    ContextBuilder
	Tools      ToolRunner
	Memories   MemoryWriter
	Extractor  CandidateExtractor
	Summarizer TranscriptSummarizer
	Analyzer   SentimentAnalyzer
	Emotions   EmotionSink
}

// Orchestrator drives one user's conversation: it keeps a durable session
// transcript, assembles the context window, runs the bounded tool loop and
// harvests memories when the session closes.
type Orchestrator struct {
	opts Options
}

// NewOrchestrator validates required dependencies and returns an Orchestrator.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("chat backend is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if opts.Personas == nil {
		return nil, fmt.Errorf("persona source is required")
	}
	if opts.Builder == nil {
		return nil, fmt.Errorf("context builder is required")
	}
	if opts.UserID == "" {
		opts.UserID = "default_user"
	}
	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = 5
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	return &Orchestrator{opts: opts}, nil
}

// StartSession returns the active session id, creating a session if needed.
func (o *Orchestrator) StartSession(ctx context.Context) (string, error) {
	session, err := o.ensureSession(ctx)
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

// Chat runs one conversation turn and returns the assistant reply. Empty
// input is a no-op. Tool rounds are bounded: once the cap is reached the
// model is asked once more without tools so the turn always ends in text.
func (o *Orchestrator) Chat(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}

	session, err := o.ensureSession(ctx)
	if err != nil {
		return "", err
	}

	history, err := o.opts.Sessions.GetMessages(ctx, session.ID, o.opts.HistoryLimit)
	if err != nil {
		return "", err
	}

	label := o.trackSentiment(ctx, input)

	persona, err := o.persona(ctx)
	if err != nil {
		return "", err
	}

	if err := o.opts.Sessions.AppendMessage(ctx, session.ID, types.Message{
		Role:      types.RoleUser,
		Content:   input,
		Emotion:   string(label),
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return "", err
	}

	var schemas []models.ToolSchema
	toolOverview := ""
	if o.opts.Tools != nil {
		schemas = o.opts.Tools.Schemas()
		if len(schemas) > 0 {
			toolOverview = toolPolicy
		}
	}

	window, err := o.opts.Builder.Build(ctx, persona, o.opts.UserID, history, input, toolOverview)
	if err != nil {
		return "", err
	}

	for round := 0; round < o.opts.MaxToolCalls; round++ {
		resp, err := o.opts.Backend.Complete(ctx, window, schemas)
		if err != nil {
			return "", fmt.Errorf("chat completion failed: %w", err)
		}
		if len(resp.ToolCalls) == 0 {
			return o.finishTurn(ctx, session.ID, resp.Content)
		}

		assistantMsg := types.Message{
			Role:      types.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
			Timestamp: time.Now().UTC(),
		}
		window = append(window, assistantMsg)
		if err := o.opts.Sessions.AppendMessage(ctx, session.ID, assistantMsg); err != nil {
			return "", err
		}

		for _, call := range resp.ToolCalls {
			result := o.opts.Tools.Dispatch(ctx, call)
			toolMsg := types.Message{
				Role:       types.RoleTool,
				Content:    result.Render(),
				ToolCallID: call.ID,
				Timestamp:  time.Now().UTC(),
			}
			window = append(window, toolMsg)
			if err := o.opts.Sessions.AppendMessage(ctx, session.ID, toolMsg); err != nil {
				return "", err
			}
		}
	}

	// Tool budget exhausted. One final completion without declarations
	// forces a text reply.
	slog.Warn("tool call budget exhausted", "session_id", session.ID, "max_tool_calls", o.opts.MaxToolCalls)
	resp, err := o.opts.Backend.Complete(ctx, window, nil)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	return o.finishTurn(ctx, session.ID, resp.Content)
}

// EndSession closes the active session, harvesting memories and a closing
// summary first when summarize is set. Returns false when no session is
// active.
func (o *Orchestrator) EndSession(ctx context.Context, summarize bool) (bool, error) {
	session, err := o.opts.Sessions.GetActive(ctx, o.opts.UserID)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}

	summary := ""
	if summarize {
		summary = o.harvestMemories(ctx, session.ID)
	}
	return o.opts.Sessions.Close(ctx, session.ID, summary)
}

// Greeting returns the persona greeting line.
func (o *Orchestrator) Greeting(ctx context.Context) string {
	persona, err := o.persona(ctx)
	if err != nil || persona == nil || strings.TrimSpace(persona.Greeting) == "" {
		return defaultGreeting
	}
	return persona.Greeting
}

func (o *Orchestrator) ensureSession(ctx context.Context) (*types.Session, error) {
	session, err := o.opts.Sessions.GetActive(ctx, o.opts.UserID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}
	session, err = o.opts.Sessions.Create(ctx, o.opts.UserID)
	if err != nil {
		return nil, err
	}
	slog.Info("started session", "session_id", session.ID, "user_id", o.opts.UserID)
	return session, nil
}

func (o *Orchestrator) persona(ctx context.Context) (*types.Persona, error) {
	if o.opts.PersonaID > 0 {
		persona, err := o.opts.Personas.GetPersona(ctx, o.opts.PersonaID)
		if err != nil {
			return nil, err
		}
		if persona != nil {
			return persona, nil
		}
	}
	persona, err := o.opts.Personas.GetDefaultPersona(ctx)
	if err != nil {
		return nil, err
	}
	if persona == nil {
		return nil, fmt.Errorf("no persona configured")
	}
	return persona, nil
}

func (o *Orchestrator) finishTurn(ctx context.Context, sessionID, content string) (string, error) {
	if err := o.opts.Sessions.AppendMessage(ctx, sessionID, types.Message{
		Role:      types.RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return "", err
	}
	return content, nil
}

// trackSentiment labels the user input and evolves the persona emotion
// state. Failures never block the turn.
func (o *Orchestrator) trackSentiment(ctx context.Context, input string) emotion.EmotionLabel {
	if o.opts.Analyzer == nil {
		return ""
	}
	label := o.opts.Analyzer.Analyze(ctx, input)
	if o.opts.Emotions != nil {
		if err := o.opts.Emotions.UpdateFromLabel(ctx, label); err != nil {
			slog.Warn("failed to update emotion state", "error", err.Error())
		}
	}
	return label
}

// harvestMemories extracts rule candidates and model-summarized memories
// from the full transcript. All persistence is best-effort; the session
// still closes if harvesting fails.
func (o *Orchestrator) harvestMemories(ctx context.Context, sessionID string) string {
	if o.opts.Memories == nil {
		return ""
	}
	messages, err := o.opts.Sessions.GetMessages(ctx, sessionID, 0)
	if err != nil {
		slog.Warn("failed to load transcript for memory harvest", "session_id", sessionID, "error", err.Error())
		return ""
	}
	if len(messages) < 2 {
		return ""
	}

	if o.opts.Extractor != nil {
		for _, candidate := range o.opts.Extractor.ExtractFromTranscript(messages) {
			source := &types.Provenance{SessionID: sessionID, MessageIndex: candidate.MessageIndex}
			if _, err := o.opts.Memories.Add(ctx, candidate.Content, candidate.Type, candidate.Importance, source, nil); err != nil {
				slog.Warn("failed to save extracted memory", "error", err.Error())
			}
		}
	}

	if o.opts.Summarizer == nil {
		return ""
	}
	summary := o.opts.Summarizer.Summarize(ctx, messages)
	for _, candidate := range summary.Memories {
		if candidate.Importance < summarizedMemoryFloor {
			continue
		}
		source := &types.Provenance{SessionID: sessionID}
		if _, err := o.opts.Memories.Add(ctx, candidate.Content, candidate.Type, candidate.Importance, source, summary.Topics); err != nil {
			slog.Warn("failed to save summarized memory", "error", err.Error())
		}
	}
	return summary.Summary
}
