package utils

import "testing"

func TestExtractJSONObject(t *testing.T) {
	got, ok := ExtractJSONObject("```json\n{\"summary\":\"聊了聊工作\"}\n```")
	if !ok {
		t.Fatalf("expected a JSON object")
	}
	if got != `{"summary":"聊了聊工作"}` {
		t.Fatalf("unexpected extraction: %s", got)
	}
}

func TestExtractJSONObjectMissing(t *testing.T) {
	if _, ok := ExtractJSONObject("没有任何结构化内容"); ok {
		t.Fatalf("expected no JSON object")
	}
}

func TestParseEmotionLabel(t *testing.T) {
	got, err := ParseEmotionLabel(" neutral ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "Neutral" {
		t.Fatalf("expected normalized label, got %s", got)
	}
}

func TestParseEmotionLabelInvalid(t *testing.T) {
	if _, err := ParseEmotionLabel("excited"); err == nil {
		t.Fatalf("expected error for invalid label")
	}
}
