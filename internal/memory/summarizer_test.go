package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/easeaico/persona-agent/internal/models"
	"github.com/easeaico/persona-agent/internal/types"
)

type fakeBackend struct {
	reply string
	err   error
}

var _ models.ChatBackend = (*fakeBackend)(nil)

func (f *fakeBackend) Complete(_ context.Context, _ []types.Message, _ []models.ToolSchema) (*models.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.ChatResponse{Content: f.reply}, nil
}

func sampleTranscript() []types.Message {
	return []types.Message{
		{Role: types.RoleUser, Content: "我喜欢吃火锅"},
		{Role: types.RoleAssistant, Content: "火锅很好吃"},
		{Role: types.RoleUser, Content: "今晚一起打游戏吧"},
	}
}

func TestSummarizeFromModel(t *testing.T) {
	backend := &fakeBackend{reply: "好的，结果如下:\n" +
		`{"summary":"聊了美食和游戏","memories":[{"content":"用户喜欢吃火锅","type":"preference","importance":1.5},{"content":"","type":"fact","importance":0.5}],"topics":["美食","游戏"]}`}
	summarizer := NewSummarizer(backend, newTestExtractor(t))

	got := summarizer.Summarize(context.Background(), sampleTranscript())
	if got.Summary != "聊了美食和游戏" {
		t.Fatalf("unexpected summary: %s", got.Summary)
	}
	if len(got.Memories) != 1 {
		t.Fatalf("expected empty memory dropped, got %d", len(got.Memories))
	}
	if got.Memories[0].Importance != 1.0 {
		t.Fatalf("expected importance clamped to 1.0, got %f", got.Memories[0].Importance)
	}
	if len(got.Topics) != 2 {
		t.Fatalf("unexpected topics: %v", got.Topics)
	}
}

func TestSummarizeNormalizesUnknownType(t *testing.T) {
	backend := &fakeBackend{reply: `{"summary":"总结","memories":[{"content":"用户的猫叫咪咪","type":"pet","importance":0.6}],"topics":[]}`}
	summarizer := NewSummarizer(backend, newTestExtractor(t))

	got := summarizer.Summarize(context.Background(), sampleTranscript())
	if len(got.Memories) != 1 {
		t.Fatalf("expected 1 memory, got %d", len(got.Memories))
	}
	if got.Memories[0].Type != types.MemoryTypeFact {
		t.Fatalf("expected unknown type normalized to fact, got %s", got.Memories[0].Type)
	}
}

func TestSummarizeFallbackOnModelError(t *testing.T) {
	backend := &fakeBackend{err: fmt.Errorf("model unreachable")}
	summarizer := NewSummarizer(backend, newTestExtractor(t))

	got := summarizer.Summarize(context.Background(), sampleTranscript())
	if got.Summary != "共进行了2轮对话" {
		t.Fatalf("unexpected fallback summary: %s", got.Summary)
	}
	if len(got.Memories) != 0 {
		t.Fatalf("expected no memories from fallback, got %d", len(got.Memories))
	}
	if len(got.Topics) != 1 || got.Topics[0] != "游戏" {
		t.Fatalf("unexpected fallback topics: %v", got.Topics)
	}
}

func TestSummarizeFallbackOnGarbageReply(t *testing.T) {
	backend := &fakeBackend{reply: "抱歉，我没法总结"}
	summarizer := NewSummarizer(backend, newTestExtractor(t))

	got := summarizer.Summarize(context.Background(), sampleTranscript())
	if got.Summary != "共进行了2轮对话" {
		t.Fatalf("expected fallback summary, got %s", got.Summary)
	}
}

func TestSummarizeWithoutBackend(t *testing.T) {
	summarizer := NewSummarizer(nil, nil)

	got := summarizer.Summarize(context.Background(), sampleTranscript())
	if got.Summary != "共进行了2轮对话" {
		t.Fatalf("expected fallback summary, got %s", got.Summary)
	}
	if len(got.Topics) != 1 || got.Topics[0] != "日常聊天" {
		t.Fatalf("expected default topic, got %v", got.Topics)
	}
}
