package agent

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/easeaico/persona-agent/internal/emotion"
	"github.com/easeaico/persona-agent/internal/models"
	"github.com/easeaico/persona-agent/internal/tool"
	"github.com/easeaico/persona-agent/internal/types"
)

type fakeSessions struct {
	sessions map[string]*types.Session
	messages map[string][]types.Message
	closed   map[string]string
	counter  int
}

var _ SessionStore = (*fakeSessions)(nil)

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		sessions: make(map[string]*types.Session),
		messages: make(map[string][]types.Message),
		closed:   make(map[string]string),
	}
}

func (f *fakeSessions) Create(_ context.Context, userID string) (*types.Session, error) {
	f.counter++
	session := &types.Session{
		ID:     fmt.Sprintf("session_%d", f.counter),
		UserID: userID,
		Status: types.SessionStatusActive,
	}
	f.sessions[session.ID] = session
	return session, nil
}

func (f *fakeSessions) GetActive(_ context.Context, userID string) (*types.Session, error) {
	for _, session := range f.sessions {
		if session.UserID == userID && session.Status == types.SessionStatusActive {
			return session, nil
		}
	}
	return nil, nil
}

func (f *fakeSessions) AppendMessage(_ context.Context, sessionID string, msg types.Message) error {
	f.messages[sessionID] = append(f.messages[sessionID], msg)
	return nil
}

func (f *fakeSessions) GetMessages(_ context.Context, sessionID string, limit int) ([]types.Message, error) {
	messages := f.messages[sessionID]
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return append([]types.Message(nil), messages...), nil
}

func (f *fakeSessions) Close(_ context.Context, sessionID, summary string) (bool, error) {
	session, ok := f.sessions[sessionID]
	if !ok || session.Status != types.SessionStatusActive {
		return false, nil
	}
	session.Status = types.SessionStatusClosed
	f.closed[sessionID] = summary
	return true, nil
}

type fakePersonas struct {
	persona *types.Persona
}

var _ PersonaSource = (*fakePersonas)(nil)

func (f *fakePersonas) GetPersona(_ context.Context, _ int) (*types.Persona, error) {
	return f.persona, nil
}

func (f *fakePersonas) GetDefaultPersona(_ context.Context) (*types.Persona, error) {
	return f.persona, nil
}

type fakeBuilder struct{}

var _ ContextBuilder = (*fakeBuilder)(nil)

func (f *fakeBuilder) Build(_ context.Context, _ *types.Persona, _ string, history []types.Message, userInput, _ string) ([]types.Message, error) {
	window := []types.Message{{Role: types.RoleSystem, Content: "system"}}
	window = append(window, history...)
	window = append(window, types.Message{Role: types.RoleUser, Content: userInput})
	return window, nil
}

type backendCall struct {
	windowLen    int
	withTools    bool
	lastInWindow types.Message
}

type scriptedBackend struct {
	responses []*models.ChatResponse
	calls     []backendCall
}

var _ models.ChatBackend = (*scriptedBackend)(nil)

func (s *scriptedBackend) Complete(_ context.Context, messages []types.Message, tools []models.ToolSchema) (*models.ChatResponse, error) {
	s.calls = append(s.calls, backendCall{
		windowLen:    len(messages),
		withTools:    len(tools) > 0,
		lastInWindow: messages[len(messages)-1],
	})
	if len(s.responses) == 0 {
		return &models.ChatResponse{Content: "好的"}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type recordedMemory struct {
	content    string
	memoryType string
	importance float64
	source     *types.Provenance
}

type fakeMemories struct {
	added []recordedMemory
}

var _ MemoryWriter = (*fakeMemories)(nil)

func (f *fakeMemories) Add(_ context.Context, content, memoryType string, importance float64, source *types.Provenance, _ []string) (string, error) {
	f.added = append(f.added, recordedMemory{content, memoryType, importance, source})
	return "mem_test", nil
}

type fakeExtractor struct {
	candidates []types.MemoryCandidate
}

var _ CandidateExtractor = (*fakeExtractor)(nil)

func (f *fakeExtractor) ExtractFromTranscript(_ []types.Message) []types.MemoryCandidate {
	return f.candidates
}

type fakeSummarizer struct {
	summary types.TranscriptSummary
}

var _ TranscriptSummarizer = (*fakeSummarizer)(nil)

func (f *fakeSummarizer) Summarize(_ context.Context, _ []types.Message) types.TranscriptSummary {
	return f.summary
}

type echoTool struct{}

var _ tool.Tool = (*echoTool)(nil)

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "回显参数" }
func (echoTool) Parameters() []tool.Param {
	return []tool.Param{{Name: "text", Type: "string", Description: "文本", Required: true}}
}

func (echoTool) Execute(_ context.Context, args map[string]any) tool.Result {
	text, _ := args["text"].(string)
	return tool.Result{Success: true, Data: text}
}

func testOrchestrator(t *testing.T, backend models.ChatBackend, opts func(*Options)) (*Orchestrator, *fakeSessions) {
	t.Helper()
	sessions := newFakeSessions()
	registry := tool.NewRegistry()
	registry.Register(echoTool{})

	options := Options{
		UserID:       "u1",
		PersonaID:    1,
		MaxToolCalls: 5,
		HistoryLimit: 20,
		Backend:      backend,
		Sessions:     sessions,
		Personas:     &fakePersonas{persona: &types.Persona{ID: 1, Name: "小雨", Greeting: "想我了吗？"}},
		Builder:      &fakeBuilder{},
		Tools:        registry,
	}
	if opts != nil {
		opts(&options)
	}

	orchestrator, err := NewOrchestrator(options)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return orchestrator, sessions
}

func TestChatEmptyInputIsNoOp(t *testing.T) {
	backend := &scriptedBackend{}
	orchestrator, sessions := testOrchestrator(t, backend, nil)

	reply, err := orchestrator.Chat(context.Background(), "   ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "" {
		t.Fatalf("expected empty reply, got %q", reply)
	}
	if len(backend.calls) != 0 {
		t.Fatalf("expected no backend calls")
	}
	if len(sessions.sessions) != 0 {
		t.Fatalf("expected no session created")
	}
}

func TestChatSimpleTurn(t *testing.T) {
	backend := &scriptedBackend{responses: []*models.ChatResponse{{Content: "你好呀"}}}
	orchestrator, sessions := testOrchestrator(t, backend, nil)

	reply, err := orchestrator.Chat(context.Background(), "你好")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "你好呀" {
		t.Fatalf("unexpected reply: %s", reply)
	}

	transcript := sessions.messages["session_1"]
	if len(transcript) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(transcript))
	}
	if transcript[0].Role != types.RoleUser || transcript[1].Role != types.RoleAssistant {
		t.Fatalf("unexpected transcript roles: %s/%s", transcript[0].Role, transcript[1].Role)
	}
	if !backend.calls[0].withTools {
		t.Fatalf("expected tool declarations on first call")
	}
}

func TestChatToolRoundWithUnknownTool(t *testing.T) {
	backend := &scriptedBackend{responses: []*models.ChatResponse{
		{ToolCalls: []types.ToolCall{
			{ID: "call_1", Name: "echo", Arguments: `{"text":"收到"}`},
			{ID: "call_2", Name: "teleport", Arguments: `{}`},
		}},
		{Content: "工具都跑完了"},
	}}
	orchestrator, sessions := testOrchestrator(t, backend, nil)

	reply, err := orchestrator.Chat(context.Background(), "试试工具")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "工具都跑完了" {
		t.Fatalf("unexpected reply: %s", reply)
	}

	transcript := sessions.messages["session_1"]
	// user, assistant tool request, two tool results, final assistant
	if len(transcript) != 5 {
		t.Fatalf("expected 5 persisted messages, got %d", len(transcript))
	}
	if len(transcript[1].ToolCalls) != 2 {
		t.Fatalf("expected tool calls persisted, got %+v", transcript[1])
	}
	if transcript[2].Content != "收到" || transcript[2].ToolCallID != "call_1" {
		t.Fatalf("unexpected tool result: %+v", transcript[2])
	}
	if transcript[3].Content != "错误: 工具不存在: teleport" || transcript[3].ToolCallID != "call_2" {
		t.Fatalf("expected unknown-tool failure folded into transcript, got %+v", transcript[3])
	}

	if len(backend.calls) != 2 {
		t.Fatalf("expected 2 backend calls, got %d", len(backend.calls))
	}
	if backend.calls[1].lastInWindow.Role != types.RoleTool {
		t.Fatalf("expected tool results in follow-up window")
	}
}

func TestChatToolBudgetExhausted(t *testing.T) {
	var responses []*models.ChatResponse
	for i := 0; i < 5; i++ {
		responses = append(responses, &models.ChatResponse{ToolCalls: []types.ToolCall{
			{ID: fmt.Sprintf("call_%d", i), Name: "echo", Arguments: `{"text":"again"}`},
		}})
	}
	responses = append(responses, &models.ChatResponse{Content: "我直接回答吧"})
	backend := &scriptedBackend{responses: responses}
	orchestrator, _ := testOrchestrator(t, backend, nil)

	reply, err := orchestrator.Chat(context.Background(), "循环起来")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reply != "我直接回答吧" {
		t.Fatalf("unexpected reply: %s", reply)
	}
	if len(backend.calls) != 6 {
		t.Fatalf("expected 6 backend calls, got %d", len(backend.calls))
	}
	for i := 0; i < 5; i++ {
		if !backend.calls[i].withTools {
			t.Fatalf("expected tool declarations on call %d", i)
		}
	}
	if backend.calls[5].withTools {
		t.Fatalf("expected final call without tool declarations")
	}
}

func TestChatBackendErrorPreservesUserMessage(t *testing.T) {
	backend := &erroringBackend{}
	orchestrator, sessions := testOrchestrator(t, backend, nil)

	if _, err := orchestrator.Chat(context.Background(), "你好"); err == nil {
		t.Fatalf("expected error from backend")
	}
	transcript := sessions.messages["session_1"]
	if len(transcript) != 1 || transcript[0].Role != types.RoleUser {
		t.Fatalf("expected durable user message, got %+v", transcript)
	}
}

type erroringBackend struct{}

var _ models.ChatBackend = (*erroringBackend)(nil)

func (erroringBackend) Complete(_ context.Context, _ []types.Message, _ []models.ToolSchema) (*models.ChatResponse, error) {
	return nil, fmt.Errorf("model unreachable")
}

func TestEndSessionHarvestsMemories(t *testing.T) {
	backend := &scriptedBackend{responses: []*models.ChatResponse{{Content: "好的"}}}
	memories := &fakeMemories{}
	extractor := &fakeExtractor{candidates: []types.MemoryCandidate{
		{Content: "用户喜欢吃火锅", Type: types.MemoryTypePreference, Importance: 0.5, MessageIndex: 0},
	}}
	summarizer := &fakeSummarizer{summary: types.TranscriptSummary{
		Summary: "聊了美食",
		Memories: []types.MemoryCandidate{
			{Content: "用户常去那家火锅店", Type: types.MemoryTypeEvent, Importance: 0.8},
			{Content: "用户今天有点累", Type: types.MemoryTypeEmotion, Importance: 0.4},
		},
		Topics: []string{"美食"},
	}}
	orchestrator, sessions := testOrchestrator(t, backend, func(o *Options) {
		o.Memories = memories
		o.Extractor = extractor
		o.Summarizer = summarizer
	})

	if _, err := orchestrator.Chat(context.Background(), "我喜欢吃火锅"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	closed, err := orchestrator.EndSession(context.Background(), true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !closed {
		t.Fatalf("expected session closed")
	}
	if sessions.closed["session_1"] != "聊了美食" {
		t.Fatalf("unexpected closing summary: %s", sessions.closed["session_1"])
	}

	if len(memories.added) != 2 {
		t.Fatalf("expected 2 memories (rule + important summarized), got %d", len(memories.added))
	}
	if memories.added[0].content != "用户喜欢吃火锅" {
		t.Fatalf("unexpected rule memory: %+v", memories.added[0])
	}
	if memories.added[0].source == nil || memories.added[0].source.SessionID != "session_1" {
		t.Fatalf("expected provenance on rule memory, got %+v", memories.added[0].source)
	}
	if memories.added[1].content != "用户常去那家火锅店" {
		t.Fatalf("expected low-importance summarized memory dropped, got %+v", memories.added[1])
	}
}

func TestEndSessionWithoutActiveSession(t *testing.T) {
	orchestrator, _ := testOrchestrator(t, &scriptedBackend{}, nil)

	closed, err := orchestrator.EndSession(context.Background(), true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if closed {
		t.Fatalf("expected no session to close")
	}
}

func TestEndSessionClosesOnlyOnce(t *testing.T) {
	backend := &scriptedBackend{responses: []*models.ChatResponse{{Content: "好的"}}}
	orchestrator, _ := testOrchestrator(t, backend, nil)

	if _, err := orchestrator.Chat(context.Background(), "你好"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if closed, _ := orchestrator.EndSession(context.Background(), false); !closed {
		t.Fatalf("expected first close to succeed")
	}
	if closed, _ := orchestrator.EndSession(context.Background(), false); closed {
		t.Fatalf("expected second close to be a no-op")
	}
}

func TestChatTracksSentiment(t *testing.T) {
	backend := &scriptedBackend{responses: []*models.ChatResponse{{Content: "抱抱"}}}
	sink := &recordingSink{}
	orchestrator, sessions := testOrchestrator(t, backend, func(o *Options) {
		o.Analyzer = emotion.NewAnalyzer(nil)
		o.Emotions = sink
	})

	if _, err := orchestrator.Chat(context.Background(), "我今天很难过，特别伤心"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sink.label != emotion.EmotionNegative {
		t.Fatalf("expected Negative label, got %s", sink.label)
	}
	if sessions.messages["session_1"][0].Emotion != string(emotion.EmotionNegative) {
		t.Fatalf("expected emotion recorded on user message")
	}
}

type recordingSink struct {
	label emotion.EmotionLabel
}

var _ EmotionSink = (*recordingSink)(nil)

func (r *recordingSink) UpdateFromLabel(_ context.Context, label emotion.EmotionLabel) error {
	r.label = label
	return nil
}

func TestGreetingFallsBack(t *testing.T) {
	orchestrator, _ := testOrchestrator(t, &scriptedBackend{}, func(o *Options) {
		o.Personas = &fakePersonas{persona: &types.Persona{ID: 1, Name: "小雨"}}
	})

	if got := orchestrator.Greeting(context.Background()); got != defaultGreeting {
		t.Fatalf("expected default greeting, got %s", got)
	}
}

func TestGreetingUsesPersona(t *testing.T) {
	orchestrator, _ := testOrchestrator(t, &scriptedBackend{}, nil)

	if got := orchestrator.Greeting(context.Background()); got != "想我了吗？" {
		t.Fatalf("unexpected greeting: %s", got)
	}
}

func TestNewOrchestratorRequiresBackend(t *testing.T) {
	_, err := NewOrchestrator(Options{
		Sessions: newFakeSessions(),
		Personas: &fakePersonas{},
		Builder:  &fakeBuilder{},
	})
	if err == nil || !strings.Contains(err.Error(), "backend") {
		t.Fatalf("expected backend requirement error, got %v", err)
	}
}
