package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alphasolve/alphasolve/pkg/llm"
	"github.com/alphasolve/alphasolve/pkg/observability"
)

// Registry is a per-conversation named tool registry. It implements
// llm.Dispatcher: the LLM client routes every tool call the model
// emits through Execute, and the textual result becomes the tool-role
// message. Dispatch is serial within one conversation.
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its own name. Registering the same name
// twice replaces the earlier tool.
func (r *Registry) Register(t Tool) {
	name := t.GetName()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns the function-calling definitions for every
// registered tool, in registration order.
func (r *Registry) Definitions() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].GetInfo().Definition())
	}
	return defs
}

// Execute dispatches one tool call and renders the outcome as the text
// placed into the tool-role message. Unknown tools and tool failures
// become error text the model can react to; only context cancellation
// propagates as an error.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	start := time.Now()

	tracer := observability.GetTracer("alphasolve.tools")
	ctx, span := tracer.Start(ctx, observability.SpanToolExecution,
		trace.WithAttributes(attribute.String(observability.AttrToolName, name)),
	)
	defer span.End()

	text, execErr := r.execute(ctx, name, args)
	duration := time.Since(start)

	if metrics := observability.GetGlobalMetrics(); metrics != nil {
		metrics.RecordToolExecution(ctx, name, duration, execErr)
	}

	if execErr != nil {
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())

		if ctx.Err() != nil {
			return "", execErr
		}

		slog.Warn("Tool execution failed", "tool", name, "error", execErr)
		return fmt.Sprintf("Error: %v", execErr), nil
	}

	span.SetStatus(codes.Ok, "success")
	return text, nil
}

func (r *Registry) execute(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		known := r.Names()
		sort.Strings(known)
		return "", &ToolError{Tool: name,
			Message: fmt.Sprintf("unknown tool (available: %s)", strings.Join(known, ", "))}
	}

	result, err := tool.Execute(ctx, args)
	if err != nil {
		return "", err
	}
	if result.Error != "" {
		// Tool-level failures stay inside the conversation as result
		// text; the model self-corrects on the next turn.
		return "Error: " + result.Error, nil
	}
	return result.Content, nil
}

var _ llm.Dispatcher = (*Registry)(nil)
