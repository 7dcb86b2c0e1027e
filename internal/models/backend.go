// Package models 提供聊天模型提供方的适配器实现。
package models

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/easeaico/persona-agent/internal/types"
)

// ToolSchema describes one callable tool exposed to the model.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// ChatResponse is one model turn: free text, tool call requests, or both.
type ChatResponse struct {
	Content   string
	ToolCalls []types.ToolCall
}

// ChatBackend 封装一次带工具声明的聊天补全调用。
type ChatBackend interface {
	Complete(ctx context.Context, messages []types.Message, tools []ToolSchema) (*ChatResponse, error)
}
