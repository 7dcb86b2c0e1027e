package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/easeaico/persona-agent/internal/models"
	"github.com/easeaico/persona-agent/internal/types"
	"github.com/easeaico/persona-agent/internal/utils"
)

const summaryPrompt = `请分析以下对话，提取值得长期记住的信息。

对话内容:
%s

请按以下 JSON 格式输出，不要输出其他内容:
{
  "summary": "一句话总结这次对话",
  "memories": [
    {"content": "记忆内容", "type": "fact|event|preference|emotion", "importance": 0.5}
  ],
  "topics": ["话题1", "话题2"]
}`

// Summarizer condenses a conversation transcript into a short summary plus
// durable memory candidates. The model path is preferred; a deterministic
// fallback keeps session close working when the model is unreachable.
type Summarizer struct {
	backend   models.ChatBackend
	extractor *Extractor
}

// NewSummarizer returns a Summarizer. backend may be nil to force the
// deterministic path.
func NewSummarizer(backend models.ChatBackend, extractor *Extractor) *Summarizer {
	return &Summarizer{backend: backend, extractor: extractor}
}

// Summarize never fails: any model or parse error degrades to the fallback.
func (s *Summarizer) Summarize(ctx context.Context, messages []types.Message) types.TranscriptSummary {
	if s.backend != nil {
		summary, err := s.llmSummarize(ctx, messages)
		if err == nil {
			return summary
		}
		slog.Warn("llm summarization failed, using fallback", "error", err.Error())
	}
	return s.fallbackSummarize(messages)
}

func (s *Summarizer) llmSummarize(ctx context.Context, messages []types.Message) (types.TranscriptSummary, error) {
	transcript := renderTranscript(messages)
	if transcript == "" {
		return types.TranscriptSummary{}, fmt.Errorf("empty transcript")
	}

	resp, err := s.backend.Complete(ctx, []types.Message{
		{Role: types.RoleUser, Content: fmt.Sprintf(summaryPrompt, transcript)},
	}, nil)
	if err != nil {
		return types.TranscriptSummary{}, err
	}

	raw, ok := utils.ExtractJSONObject(resp.Content)
	if !ok {
		return types.TranscriptSummary{}, fmt.Errorf("no JSON object in model reply")
	}

	var parsed struct {
		Summary  string `json:"summary"`
		Memories []struct {
			Content    string  `json:"content"`
			Type       string  `json:"type"`
			Importance float64 `json:"importance"`
		} `json:"memories"`
		Topics []string `json:"topics"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return types.TranscriptSummary{}, fmt.Errorf("failed to parse summary JSON: %w", err)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return types.TranscriptSummary{}, fmt.Errorf("summary missing from model reply")
	}

	result := types.TranscriptSummary{Summary: strings.TrimSpace(parsed.Summary), Topics: parsed.Topics}
	for _, mem := range parsed.Memories {
		content := strings.TrimSpace(mem.Content)
		if content == "" {
			continue
		}
		result.Memories = append(result.Memories, types.MemoryCandidate{
			Content:    content,
			Type:       normalizeMemoryType(mem.Type),
			Importance: types.ClampImportance(mem.Importance),
			SourceText: content,
		})
	}
	return result, nil
}

func (s *Summarizer) fallbackSummarize(messages []types.Message) types.TranscriptSummary {
	rounds := 0
	for _, msg := range messages {
		if msg.Role == types.RoleUser {
			rounds++
		}
	}

	topics := []string{"日常聊天"}
	if s.extractor != nil {
		if detected := s.extractor.DetectTopics(messages, 3); len(detected) > 0 {
			topics = detected
		}
	}

	return types.TranscriptSummary{
		Summary: fmt.Sprintf("共进行了%d轮对话", rounds),
		Topics:  topics,
	}
}

func renderTranscript(messages []types.Message) string {
	var sb strings.Builder
	for _, msg := range messages {
		var speaker string
		switch msg.Role {
		case types.RoleUser:
			speaker = "用户"
		case types.RoleAssistant:
			speaker = "助手"
		default:
			continue
		}
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(speaker + ": " + msg.Content)
	}
	return sb.String()
}

func normalizeMemoryType(memoryType string) string {
	switch memoryType {
	case types.MemoryTypeFact, types.MemoryTypeEvent, types.MemoryTypePreference, types.MemoryTypeEmotion, types.MemoryTypeSummary:
		return memoryType
	default:
		return types.MemoryTypeFact
	}
}
