package lemma

import (
	"strings"
	"testing"

	"github.com/alphasolve/alphasolve/pkg/llm"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		lemma   *Lemma
		id      int
		wantErr string
	}{
		{
			name:  "valid pending lemma",
			lemma: &Lemma{Statement: "n^2 is even iff n is even", Status: StatusPending},
			id:    0,
		},
		{
			name:  "valid lemma with backward deps",
			lemma: &Lemma{Statement: "the sum is even", Status: StatusVerified, Dependencies: []int{0, 2}},
			id:    3,
		},
		{
			name:    "empty statement",
			lemma:   &Lemma{Statement: "", Status: StatusPending},
			id:      0,
			wantErr: "empty statement",
		},
		{
			name:    "whitespace statement",
			lemma:   &Lemma{Statement: "  \n\t ", Status: StatusPending},
			id:      0,
			wantErr: "empty statement",
		},
		{
			name:    "unknown status",
			lemma:   &Lemma{Statement: "x", Status: Status("solved")},
			id:      0,
			wantErr: "unknown status",
		},
		{
			name:    "self dependency",
			lemma:   &Lemma{Statement: "x", Status: StatusPending, Dependencies: []int{2}},
			id:      2,
			wantErr: "illegal dependency",
		},
		{
			name:    "forward dependency",
			lemma:   &Lemma{Statement: "x", Status: StatusPending, Dependencies: []int{0, 5}},
			id:      2,
			wantErr: "illegal dependency",
		},
		{
			name:    "negative dependency",
			lemma:   &Lemma{Statement: "x", Status: StatusPending, Dependencies: []int{-1}},
			id:      2,
			wantErr: "illegal dependency",
		},
		{
			name:    "negative verify round",
			lemma:   &Lemma{Statement: "x", Status: StatusPending, VerifyRound: -1},
			id:      0,
			wantErr: "negative verify_round",
		},
		{
			name:    "nil lemma",
			lemma:   nil,
			id:      0,
			wantErr: "is nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.lemma, tt.id)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLemmaCloneIsDeep(t *testing.T) {
	orig := &Lemma{
		Statement:    "original",
		Proof:        "proof",
		Dependencies: []int{0, 1},
		Status:       StatusPending,
		HistoryMessages: []llm.Message{
			{Role: llm.RoleAssistant, Content: "hello", ToolCalls: []llm.ToolCall{
				{ID: "call_1", Type: "function", Function: llm.FunctionCall{Name: "run_python", Arguments: "{}"}},
			}},
		},
	}

	c := orig.clone()
	c.Dependencies[0] = 99
	c.HistoryMessages[0].Content = "changed"
	c.HistoryMessages[0].ToolCalls[0].ID = "changed"

	if orig.Dependencies[0] != 0 {
		t.Error("clone shares the dependencies slice")
	}
	if orig.HistoryMessages[0].Content != "hello" {
		t.Error("clone shares the history messages")
	}
	if orig.HistoryMessages[0].ToolCalls[0].ID != "call_1" {
		t.Error("clone shares the tool call slice")
	}
}
