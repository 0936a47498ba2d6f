package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/lemma"
	"github.com/alphasolve/alphasolve/pkg/llm"
	"github.com/alphasolve/alphasolve/pkg/prompts"
)

// subagentRunner executes one delegated research task and returns the
// final answer text. Swapped out in tests.
type subagentRunner func(ctx context.Context, task string) (string, error)

// SubagentTool delegates a self-contained research task to a fresh
// inner conversation. The inner client gets its own Python and Wolfram
// sessions and no access to the outer conversation or the lemma pool.
type SubagentTool struct {
	cfg      config.SubagentToolConfig
	toolsCfg config.ToolsConfig
	model    *config.ModelConfig
	prompts  *prompts.Set
	stream   io.Writer
	counter  *llm.TokenCounter
	run      subagentRunner
}

// NewSubagentTool builds the math_research_subagent tool. model is the
// sub-agent role's model config; stream receives the inner
// conversation's streamed fragments and may be nil.
func NewSubagentTool(toolsCfg config.ToolsConfig, model *config.ModelConfig, set *prompts.Set, stream io.Writer) *SubagentTool {
	counter, err := llm.NewTokenCounter(model.Model)
	if err != nil {
		slog.Warn("Sub-agent token counter unavailable, using estimates", "error", err)
	}
	t := &SubagentTool{
		cfg:      toolsCfg.Subagent,
		toolsCfg: toolsCfg,
		model:    model,
		prompts:  set,
		stream:   stream,
		counter:  counter,
	}
	t.run = t.runTask
	return t
}

type subagentArgs struct {
	TaskDescription string `mapstructure:"task_description"`
}

func (t *SubagentTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name: config.ToolResearchSubagent,
		Description: "Delegate a self-contained mathematical research task to a sub-agent with its own " +
			"Python and Wolfram sessions. The sub-agent sees only task_description, so state the task " +
			"completely. Returns a concise plain-text answer.",
		Parameters: []ToolParameter{
			{Name: "task_description", Type: "string", Description: "Complete, self-contained description of the task", Required: true},
		},
	}
}

func (t *SubagentTool) GetName() string { return config.ToolResearchSubagent }

func (t *SubagentTool) GetDescription() string {
	return "Delegate a research task to a computational sub-agent"
}

func (t *SubagentTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	var a subagentArgs
	if err := mapstructure.Decode(args, &a); err != nil {
		return ToolResult{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if a.TaskDescription == "" {
		return ToolResult{Error: "task_description parameter is required"}, nil
	}

	answer, err := t.run(ctx, a.TaskDescription)
	if err != nil {
		return ToolResult{Error: fmt.Sprintf("sub-agent failed: %v", err)}, nil
	}

	if n := t.counter.Count(answer); n > t.cfg.TokenEnvelope {
		slog.Warn("Sub-agent answer exceeds token envelope",
			"tokens", n, "envelope", t.cfg.TokenEnvelope)
	}
	return ToolResult{Content: answer, ExecutionTime: time.Since(start)}, nil
}

// runTask spins up the inner conversation: a fresh client, a fresh
// tool context, and the computational tools only.
func (t *SubagentTool) runTask(ctx context.Context, task string) (string, error) {
	system, err := t.prompts.Get(prompts.SubagentSystem)
	if err != nil {
		return "", err
	}

	var opts []llm.Option
	if t.stream != nil {
		opts = append(opts, llm.WithStreamWriter(t.stream))
	}
	client, err := llm.New(t.model, opts...)
	if err != nil {
		return "", err
	}

	tc := NewContext(t.toolsCfg, lemma.NewPool(), nil)
	defer tc.Close()

	registry := NewRegistry()
	registry.Register(NewRunPythonTool(tc))
	registry.Register(NewRunWolframTool(tc))

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: task},
	}
	answer, _, _, err := client.GetResult(ctx, messages, registry.Definitions(), registry)
	return answer, err
}
