package utils

import (
	"fmt"
	"strings"
)

// ExtractJSONObject returns the outermost {...} substring of a model reply.
// Models often wrap JSON in prose or code fences; everything outside the
// braces is discarded.
func ExtractJSONObject(raw string) (string, bool) {
	clean := strings.TrimSpace(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return clean[start : end+1], true
}

// ParseEmotionLabel normalizes a model-produced emotion label to one of
// Positive, Negative or Neutral.
func ParseEmotionLabel(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive":
		return "Positive", nil
	case "negative":
		return "Negative", nil
	case "neutral":
		return "Neutral", nil
	default:
		return "", fmt.Errorf("invalid emotion label: %s", raw)
	}
}
