// Package tools implements the tool-call runtime: the tool interfaces,
// the per-conversation registry the LLM client dispatches through, and
// the nine tool families (Python, Wolfram, sub-agent, lemma editors,
// read helpers, format reminders).
package tools

import (
	"context"
	"time"

	"github.com/alphasolve/alphasolve/pkg/llm"
)

// ToolInfo describes a tool for registration and for building the
// function-calling definitions sent to the model.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters,omitempty"`
}

// ToolParameter describes one argument of a tool.
type ToolParameter struct {
	Name        string                 `json:"name"`
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Required    bool                   `json:"required"`
	Items       map[string]interface{} `json:"items,omitempty"`
}

// ToolResult is the outcome of one tool execution. A non-empty Error
// is surfaced to the model as result text; it never fails the
// conversation.
type ToolResult struct {
	Content       string        `json:"content,omitempty"`
	Error         string        `json:"error,omitempty"`
	ExecutionTime time.Duration `json:"execution_time,omitempty"`
}

// Tool is one callable unit in the registry.
type Tool interface {
	GetInfo() ToolInfo

	Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error)

	GetName() string

	GetDescription() string
}

// Definition converts the tool description into the OpenAI
// function-tool shape the chat request carries.
func (i ToolInfo) Definition() llm.ToolDef {
	properties := make(map[string]interface{}, len(i.Parameters))
	var required []string

	for _, p := range i.Parameters {
		prop := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Items != nil {
			prop["items"] = p.Items
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return llm.ToolDef{
		Type: "function",
		Function: llm.ToolFunction{
			Name:        i.Name,
			Description: i.Description,
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}
