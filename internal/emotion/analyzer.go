package emotion

import (
	"context"
	"strings"

	"github.com/easeaico/persona-agent/internal/models"
	"github.com/easeaico/persona-agent/internal/types"
	"github.com/easeaico/persona-agent/internal/utils"
)

// Analyzer classifies conversation sentiment. The model path is preferred;
// keyword matching keeps classification working when the model is
// unavailable or answers off-format.
type Analyzer struct {
	backend models.ChatBackend
}

var (
	positiveWords = []string{"喜欢", "开心", "高兴", "爱你", "谢谢", "哈哈", "太棒", "真好"}
	negativeWords = []string{"讨厌", "生气", "难过", "伤心", "烦", "滚", "别理我", "哭"}
)

// NewAnalyzer returns an Analyzer. backend may be nil to force keyword
// classification.
func NewAnalyzer(backend models.ChatBackend) *Analyzer {
	return &Analyzer{backend: backend}
}

// Analyze returns the sentiment label for text.
func (a *Analyzer) Analyze(ctx context.Context, text string) EmotionLabel {
	if strings.TrimSpace(text) == "" {
		return EmotionNeutral
	}

	if a != nil && a.backend != nil {
		if label, err := a.llmAnalyze(ctx, text); err == nil {
			return label
		}
	}
	return keywordAnalyze(text)
}

func (a *Analyzer) llmAnalyze(ctx context.Context, text string) (EmotionLabel, error) {
	system := `你是情感分析器。仅返回以下三个标签之一：Positive、Negative、Neutral。不要输出其他内容。`
	resp, err := a.backend.Complete(ctx, []types.Message{
		{Role: types.RoleSystem, Content: system},
		{Role: types.RoleUser, Content: text},
	}, nil)
	if err != nil {
		return EmotionNeutral, err
	}

	label, err := utils.ParseEmotionLabel(resp.Content)
	if err != nil {
		return EmotionNeutral, err
	}
	return EmotionLabel(label), nil
}

func keywordAnalyze(text string) EmotionLabel {
	positive, negative := 0, 0
	for _, word := range positiveWords {
		positive += strings.Count(text, word)
	}
	for _, word := range negativeWords {
		negative += strings.Count(text, word)
	}
	switch {
	case positive > negative:
		return EmotionPositive
	case negative > positive:
		return EmotionNegative
	default:
		return EmotionNeutral
	}
}
