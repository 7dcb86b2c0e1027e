package memory

import (
	"testing"

	"github.com/easeaico/persona-agent/internal/types"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	extractor, err := NewExtractor(DefaultRuleTable())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return extractor
}

func TestExtractPreference(t *testing.T) {
	extractor := newTestExtractor(t)

	candidates := extractor.ExtractFromMessage("我喜欢吃火锅", types.RoleUser)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	got := candidates[0]
	if got.Content != "用户喜欢吃火锅" {
		t.Fatalf("unexpected content: %s", got.Content)
	}
	if got.Type != types.MemoryTypePreference {
		t.Fatalf("unexpected type: %s", got.Type)
	}
	if got.Importance != 0.5 {
		t.Fatalf("unexpected importance: %f", got.Importance)
	}
}

func TestExtractSkipsQuestions(t *testing.T) {
	extractor := newTestExtractor(t)

	if got := extractor.ExtractFromMessage("我喜欢吃什么？", types.RoleUser); len(got) != 0 {
		t.Fatalf("expected no candidates from a question, got %d", len(got))
	}
}

func TestExtractSkipsNonUserRoles(t *testing.T) {
	extractor := newTestExtractor(t)

	if got := extractor.ExtractFromMessage("我喜欢吃火锅", types.RoleAssistant); got != nil {
		t.Fatalf("expected nil for assistant message, got %v", got)
	}
}

func TestExtractDeterministic(t *testing.T) {
	extractor := newTestExtractor(t)

	first := extractor.ExtractFromMessage("我在上海工作", types.RoleUser)
	second := extractor.ExtractFromMessage("我在上海工作", types.RoleUser)
	if len(first) != len(second) {
		t.Fatalf("extraction not deterministic: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("candidate %d differs between runs", i)
		}
	}
}

func TestImportanceHighKeyword(t *testing.T) {
	extractor := newTestExtractor(t)

	candidates := extractor.ExtractFromMessage("我最喜欢的电影是星际穿越", types.RoleUser)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Importance != 0.8 {
		t.Fatalf("expected high importance 0.8, got %f", candidates[0].Importance)
	}
}

func TestImportanceLowKeywordCaps(t *testing.T) {
	extractor := newTestExtractor(t)

	candidates := extractor.ExtractFromMessage("我喜欢偶尔去爬山", types.RoleUser)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Importance != 0.4 {
		t.Fatalf("expected capped importance 0.4, got %f", candidates[0].Importance)
	}
}

func TestTranscriptDedup(t *testing.T) {
	extractor := newTestExtractor(t)

	messages := []types.Message{
		{Role: types.RoleUser, Content: "我喜欢吃火锅"},
		{Role: types.RoleAssistant, Content: "火锅很好吃"},
		{Role: types.RoleUser, Content: "我喜欢吃火锅"},
	}
	candidates := extractor.ExtractFromTranscript(messages)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 deduplicated candidate, got %d", len(candidates))
	}
	if candidates[0].MessageIndex != 0 {
		t.Fatalf("expected first occurrence kept, got index %d", candidates[0].MessageIndex)
	}
}

func TestDetectTopics(t *testing.T) {
	extractor := newTestExtractor(t)

	messages := []types.Message{
		{Role: types.RoleUser, Content: "我今天打了一下午游戏"},
		{Role: types.RoleUser, Content: "晚上想去吃美食"},
		{Role: types.RoleAssistant, Content: "旅行怎么样"},
	}
	topics := extractor.DetectTopics(messages, 3)
	if len(topics) != 2 {
		t.Fatalf("expected 2 topics, got %v", topics)
	}
	if topics[0] != "游戏" || topics[1] != "美食" {
		t.Fatalf("unexpected topics: %v", topics)
	}
}

func TestLoadRuleTableMissingFile(t *testing.T) {
	if _, err := LoadRuleTable("testdata/does-not-exist.yaml"); err == nil {
		t.Fatalf("expected error for missing rule table")
	}
}
