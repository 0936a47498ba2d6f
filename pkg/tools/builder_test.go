package tools

import (
	"reflect"
	"testing"

	"github.com/alphasolve/alphasolve/pkg/config"
)

func TestBuildRegistry(t *testing.T) {
	tc := newTestContext(t, -1)

	names := []string{
		config.ToolModifyStatement,
		config.ToolModifyProof,
		config.ToolReadConjectureAgain,
		config.ToolReadReviewAgain,
		config.ToolRunPython,
		config.ToolRunWolfram,
		config.ToolRefinerFormatReminder,
	}
	r, err := BuildRegistry(names, tc, nil)
	if err != nil {
		t.Fatalf("BuildRegistry: %v", err)
	}
	if got := r.Names(); !reflect.DeepEqual(got, names) {
		t.Errorf("Names() = %v, want configured order %v", got, names)
	}
	if len(r.Definitions()) != len(names) {
		t.Errorf("len(Definitions()) = %d, want %d", len(r.Definitions()), len(names))
	}
}

func TestBuildRegistryUnknownName(t *testing.T) {
	tc := newTestContext(t, -1)
	if _, err := BuildRegistry([]string{"launch_missiles"}, tc, nil); err == nil {
		t.Fatal("expected an error for an unknown tool name")
	}
}

func TestBuildRegistrySubagentRequired(t *testing.T) {
	tc := newTestContext(t, -1)
	if _, err := BuildRegistry([]string{config.ToolResearchSubagent}, tc, nil); err == nil {
		t.Fatal("expected an error when the sub-agent tool is missing")
	}
}
