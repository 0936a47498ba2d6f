package tools

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

type stubTool struct {
	name   string
	result ToolResult
	err    error
	calls  int
}

func (s *stubTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        s.name,
		Description: "stub",
		Parameters: []ToolParameter{
			{Name: "x", Type: "string", Description: "x", Required: true},
		},
	}
}

func (s *stubTool) GetName() string        { return s.name }
func (s *stubTool) GetDescription() string { return "stub" }

func (s *stubTool) Execute(context.Context, map[string]interface{}) (ToolResult, error) {
	s.calls++
	return s.result, s.err
}

func TestRegistryExecute(t *testing.T) {
	r := NewRegistry()
	stub := &stubTool{name: "alpha", result: ToolResult{Content: "42"}}
	r.Register(stub)

	text, err := r.Execute(context.Background(), "alpha", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if text != "42" {
		t.Errorf("text = %q, want %q", text, "42")
	}
	if stub.calls != 1 {
		t.Errorf("calls = %d, want 1", stub.calls)
	}
}

func TestRegistryUnknownToolIsNotFatal(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "alpha"})

	text, err := r.Execute(context.Background(), "nope", nil)
	if err != nil {
		t.Fatalf("unknown tool must not fail the conversation: %v", err)
	}
	if !strings.Contains(text, "Error") || !strings.Contains(text, "nope") {
		t.Errorf("text = %q, want error text naming the tool", text)
	}
	if !strings.Contains(text, "alpha") {
		t.Errorf("text = %q, want the available tool list", text)
	}
}

func TestRegistryToolErrorBecomesText(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "alpha", result: ToolResult{Error: "division by zero"}})

	text, err := r.Execute(context.Background(), "alpha", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if text != "Error: division by zero" {
		t.Errorf("text = %q", text)
	}
}

func TestRegistryHardErrorBecomesText(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "alpha", err: errors.New("boom")})

	text, err := r.Execute(context.Background(), "alpha", nil)
	if err != nil {
		t.Fatalf("tool failure must stay inside the conversation: %v", err)
	}
	if !strings.Contains(text, "boom") {
		t.Errorf("text = %q, want the failure message", text)
	}
}

func TestRegistryDefinitionsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubTool{name: "beta"})
	r.Register(&stubTool{name: "alpha"})

	defs := r.Definitions()
	if len(defs) != 2 {
		t.Fatalf("len(defs) = %d, want 2", len(defs))
	}
	if defs[0].Function.Name != "beta" || defs[1].Function.Name != "alpha" {
		t.Errorf("definitions out of registration order: %s, %s",
			defs[0].Function.Name, defs[1].Function.Name)
	}
}

func TestToolInfoDefinition(t *testing.T) {
	info := ToolInfo{
		Name:        "demo",
		Description: "d",
		Parameters: []ToolParameter{
			{Name: "code", Type: "string", Description: "c", Required: true},
			{Name: "limit", Type: "integer", Description: "l"},
		},
	}

	def := info.Definition()
	if def.Type != "function" || def.Function.Name != "demo" {
		t.Fatalf("unexpected definition envelope: %+v", def)
	}
	params := def.Function.Parameters
	if params["type"] != "object" {
		t.Errorf("type = %v, want object", params["type"])
	}
	props := params["properties"].(map[string]interface{})
	if _, ok := props["code"]; !ok {
		t.Error("missing code property")
	}
	if _, ok := props["limit"]; !ok {
		t.Error("missing limit property")
	}
	if got := params["required"].([]string); !reflect.DeepEqual(got, []string{"code"}) {
		t.Errorf("required = %v, want [code]", got)
	}
}
