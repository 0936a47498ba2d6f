// Package llm implements a streaming tool-calling chat-completion client.
//
// The client runs whole conversations: it streams one completion, executes
// any tool calls the model requested through a Dispatcher, appends the tool
// results, and asks again until the model answers without tools. Broken
// tool-call payloads are repaired rather than failed (see repair.go), and
// any mid-stream error restarts the conversation from the caller's baseline
// messages.
package llm

import "context"

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a chat conversation in provider wire format.
// Content is always serialized, even when empty: tool-calling assistant
// turns carry an empty string and providers reject a missing field.
type Message struct {
	Role             string     `json:"role"`
	Content          string     `json:"content"`
	ReasoningContent string     `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID       string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-issued function call.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDef describes a callable tool in the request payload.
type ToolDef struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Dispatcher executes a named tool call on behalf of the model. A tool
// failure is reported as result text with a nil error so the conversation
// continues; a non-nil error aborts the whole attempt (used for context
// cancellation and other unrecoverable conditions).
type Dispatcher interface {
	Execute(ctx context.Context, name string, args map[string]interface{}) (string, error)
}

// CloneMessages deep-copies a conversation so retries can restart from an
// unmodified baseline.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}

	cloned := make([]Message, len(messages))
	for i, msg := range messages {
		cloned[i] = msg
		if msg.ToolCalls != nil {
			cloned[i].ToolCalls = make([]ToolCall, len(msg.ToolCalls))
			copy(cloned[i].ToolCalls, msg.ToolCalls)
		}
	}
	return cloned
}
