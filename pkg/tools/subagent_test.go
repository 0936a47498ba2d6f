package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/prompts"
)

func newTestSubagent(t *testing.T, run subagentRunner) *SubagentTool {
	t.Helper()

	model := &config.ModelConfig{Model: "gpt-4o"}
	model.SetDefaults()
	toolsCfg := config.ToolsConfig{}
	toolsCfg.SetDefaults()

	set, err := prompts.New(config.PromptsConfig{})
	if err != nil {
		t.Fatalf("prompts.New: %v", err)
	}

	tool := NewSubagentTool(toolsCfg, model, set, nil)
	tool.run = run
	return tool
}

func TestSubagentTool(t *testing.T) {
	var gotTask string
	tool := newTestSubagent(t, func(_ context.Context, task string) (string, error) {
		gotTask = task
		return "the answer is 7", nil
	})

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"task_description": "compute the 4th prime",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Error != "" {
		t.Fatalf("unexpected tool error: %s", result.Error)
	}
	if result.Content != "the answer is 7" {
		t.Errorf("content = %q", result.Content)
	}
	if gotTask != "compute the 4th prime" {
		t.Errorf("task = %q", gotTask)
	}
}

func TestSubagentToolMissingTask(t *testing.T) {
	tool := newTestSubagent(t, func(context.Context, string) (string, error) {
		t.Fatal("runner must not be called")
		return "", nil
	})

	result, err := tool.Execute(context.Background(), map[string]interface{}{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(result.Error, "task_description") {
		t.Errorf("error = %q", result.Error)
	}
}

func TestSubagentToolRunnerFailureIsNotFatal(t *testing.T) {
	tool := newTestSubagent(t, func(context.Context, string) (string, error) {
		return "", errors.New("provider unreachable")
	})

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"task_description": "anything",
	})
	if err != nil {
		t.Fatalf("sub-agent failure must stay inside the conversation: %v", err)
	}
	if !strings.Contains(result.Error, "provider unreachable") {
		t.Errorf("error = %q", result.Error)
	}
}

func TestSubagentToolOversizeAnswerIsNotTruncated(t *testing.T) {
	long := strings.Repeat("lemma ", 5000)
	tool := newTestSubagent(t, func(context.Context, string) (string, error) {
		return long, nil
	})

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"task_description": "write a lot",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Content != long {
		t.Error("oversize answer was altered; the envelope is a warning, not a cap")
	}
}
