package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/easeaico/persona-agent/internal/models"
	"github.com/easeaico/persona-agent/internal/types"
)

// Registry holds registered tools and dispatches model tool calls to them.
type Registry struct {
	names []string
	tools map[string]Tool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces the previous tool.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; !exists {
		r.names = append(r.names, t.Name())
	}
	r.tools[t.Name()] = t
	slog.Info("registered tool", "name", t.Name())
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns registered tool names in registration order.
func (r *Registry) List() []string {
	return append([]string(nil), r.names...)
}

// Schemas renders the registered tools as function-calling declarations.
func (r *Registry) Schemas() []models.ToolSchema {
	schemas := make([]models.ToolSchema, 0, len(r.names))
	for _, name := range r.names {
		t := r.tools[name]
		schemas = append(schemas, models.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  schemaFromParams(t.Parameters()),
		})
	}
	return schemas
}

// Describe renders a plain-text tool overview for the system prompt.
func (r *Registry) Describe() string {
	if len(r.names) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("可用工具：")
	for _, name := range r.names {
		t := r.tools[name]
		sb.WriteString("\n### " + name + "\n")
		sb.WriteString("描述: " + t.Description())
		if params := t.Parameters(); len(params) > 0 {
			sb.WriteString("\n参数:")
			for _, p := range params {
				req := "可选"
				if p.Required {
					req = "必填"
				}
				sb.WriteString("\n  - " + p.Name + " (" + p.Type + ", " + req + "): " + p.Description)
			}
		}
	}
	return sb.String()
}

// Dispatch executes one model tool call. Unknown tools and malformed
// arguments produce failed Results, never errors: the model sees the
// failure and can recover in its next turn.
func (r *Registry) Dispatch(ctx context.Context, call types.ToolCall) Result {
	t, ok := r.tools[call.Name]
	if !ok {
		slog.Warn("unknown tool requested", "name", call.Name)
		return Result{Success: false, Error: "工具不存在: " + call.Name}
	}

	slog.Info("dispatching tool call", "name", call.Name, "call_id", call.ID)
	result := t.Execute(ctx, parseArguments(call.Arguments))
	if !result.Success {
		slog.Warn("tool call failed", "name", call.Name, "error", result.Error)
	}
	return result
}

// parseArguments tolerates malformed JSON by falling back to no arguments.
func parseArguments(raw string) map[string]any {
	if raw == "" {
		return make(map[string]any)
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		slog.Error("failed to parse tool arguments", "error", err.Error(), "json", raw)
		return make(map[string]any)
	}
	if args == nil {
		args = make(map[string]any)
	}
	return args
}

func schemaFromParams(params []Param) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(params))
	var required []string
	for _, p := range params {
		prop := &jsonschema.Schema{
			Type:        p.Type,
			Description: p.Description,
		}
		for _, v := range p.Enum {
			prop.Enum = append(prop.Enum, v)
		}
		if p.Default != nil {
			if raw, err := json.Marshal(p.Default); err == nil {
				prop.Default = raw
			}
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}
