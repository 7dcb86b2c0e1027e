// Package tool 定义可供模型调用的工具及其注册分发机制。
package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Param describes one tool parameter for schema generation.
type Param struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Enum        []string
	Default     any
}

// Result is the outcome of one tool invocation. A failed Result is still
// rendered and fed back to the model; it never aborts the conversation.
type Result struct {
	Success bool
	Data    any
	Error   string
}

// Render formats the result as text for the model.
func (r Result) Render() string {
	if !r.Success {
		return "错误: " + r.Error
	}
	switch data := r.Data.(type) {
	case nil:
		return ""
	case string:
		return data
	default:
		raw, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Sprint(data)
		}
		return string(raw)
	}
}

// Tool is one callable capability exposed to the model.
type Tool interface {
	Name() string
	Description() string
	Parameters() []Param
	Execute(ctx context.Context, args map[string]any) Result
}

func stringArg(args map[string]any, name, fallback string) string {
	if v, ok := args[name].(string); ok && v != "" {
		return v
	}
	return fallback
}

// floatArg accepts both JSON numbers and numeric strings; models emit either.
func floatArg(args map[string]any, name string, fallback float64) float64 {
	switch v := args[name].(type) {
	case float64:
		return v
	case string:
		var parsed float64
		if _, err := fmt.Sscanf(v, "%g", &parsed); err == nil {
			return parsed
		}
	}
	return fallback
}
