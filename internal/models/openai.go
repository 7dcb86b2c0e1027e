package models

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/easeaico/persona-agent/internal/types"
)

// openaiBackend 封装 OpenAI 兼容的聊天客户端。
type openaiBackend struct {
	client *openai.Client
	model  string
}

// NewOpenAIBackend creates a ChatBackend against an OpenAI-compatible API.
// baseURL may be empty for the default endpoint.
func NewOpenAIBackend(apiKey, baseURL, modelName string) (ChatBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)

	return &openaiBackend{
		client: &client,
		model:  modelName,
	}, nil
}

func (b *openaiBackend) Complete(ctx context.Context, messages []types.Message, tools []ToolSchema) (*ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    b.model,
		Messages: convertMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		slog.Error("failed to call llm API", "error", err.Error())
		return nil, fmt.Errorf("failed to call chat API: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return &ChatResponse{}, nil
	}

	message := resp.Choices[0].Message
	result := &ChatResponse{Content: message.Content}
	for _, v := range message.ToolCalls {
		// OpenAI 工具类型目前仅支持 function。
		if v.Type != "function" {
			continue
		}
		result.ToolCalls = append(result.ToolCalls, types.ToolCall{
			ID:        v.ID,
			Name:      v.Function.Name,
			Arguments: v.Function.Arguments,
		})
	}
	return result, nil
}

// convertMessages converts transcript messages to OpenAI message params.
// Assistant turns that requested tools carry the calls so the follow-up tool
// messages stay paired with their IDs.
func convertMessages(messages []types.Message) []openai.ChatCompletionMessageParamUnion {
	var result []openai.ChatCompletionMessageParamUnion
	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case types.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				result = append(result, openai.AssistantMessage(msg.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				assistant.Content.OfString = openai.String(msg.Content)
			}
			for _, call := range msg.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: call.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      call.Name,
							Arguments: call.Arguments,
						},
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case types.RoleTool:
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}

func convertTools(tools []ToolSchema) []openai.ChatCompletionToolUnionParam {
	result := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  schemaToParameters(t.Parameters),
				},
			},
		})
	}
	return result
}

// schemaToParameters converts a jsonschema.Schema into the loose map form
// OpenAI expects for function parameters.
func schemaToParameters(schema *jsonschema.Schema) openai.FunctionParameters {
	if schema == nil {
		return openai.FunctionParameters{"type": "object", "properties": map[string]any{}, "required": []string{}}
	}

	result := make(map[string]any)
	if schema.Type != "" {
		result["type"] = schema.Type
	} else {
		result["type"] = "object"
	}

	if len(schema.Properties) > 0 {
		properties := make(map[string]any, len(schema.Properties))
		for name, prop := range schema.Properties {
			if prop != nil {
				properties[name] = schemaProperty(prop)
			}
		}
		result["properties"] = properties
	}

	if len(schema.Required) > 0 {
		result["required"] = schema.Required
	} else {
		result["required"] = []string{}
	}
	return openai.FunctionParameters(result)
}

func schemaProperty(schema *jsonschema.Schema) map[string]any {
	prop := make(map[string]any)
	if schema.Type != "" {
		prop["type"] = schema.Type
	}
	if schema.Description != "" {
		prop["description"] = schema.Description
	}
	if len(schema.Enum) > 0 {
		prop["enum"] = schema.Enum
	}
	if len(schema.Default) > 0 {
		var defaultVal any
		if err := json.Unmarshal(schema.Default, &defaultVal); err == nil {
			prop["default"] = defaultVal
		}
	}
	if schema.Items != nil {
		prop["items"] = schemaProperty(schema.Items)
	}
	if len(schema.Properties) > 0 {
		properties := make(map[string]any, len(schema.Properties))
		for name, nested := range schema.Properties {
			if nested != nil {
				properties[name] = schemaProperty(nested)
			}
		}
		prop["properties"] = properties
	}
	if len(schema.Required) > 0 {
		prop["required"] = schema.Required
	}
	return prop
}
