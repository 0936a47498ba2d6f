package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/lemma"
	"github.com/alphasolve/alphasolve/pkg/llm"
)

const maxMarkerLen = 100

// currentLemma resolves the conversation's current lemma. The id comes
// from the tool context at call time, so refiner edits always target
// the lemma the worker is on.
func currentLemma(tc *Context) (int, lemma.Lemma, error) {
	id := tc.CurrentID()
	if id < 0 {
		return 0, lemma.Lemma{}, fmt.Errorf("no current lemma is selected")
	}
	l, ok := tc.Pool.Get(id)
	if !ok {
		return 0, lemma.Lemma{}, fmt.Errorf("current lemma id %d is out of range", id)
	}
	return id, l, nil
}

// ModifyStatementTool atomically replaces the current lemma's
// statement.
type ModifyStatementTool struct {
	tc *Context
}

func NewModifyStatementTool(tc *Context) *ModifyStatementTool {
	return &ModifyStatementTool{tc: tc}
}

type modifyStatementArgs struct {
	NewStatement string `mapstructure:"new_statement"`
}

func (t *ModifyStatementTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        config.ToolModifyStatement,
		Description: "Replace the statement of the conjecture you are currently refining with new_statement. The proof is left untouched.",
		Parameters: []ToolParameter{
			{Name: "new_statement", Type: "string", Description: "Full replacement statement text", Required: true},
		},
	}
}

func (t *ModifyStatementTool) GetName() string { return config.ToolModifyStatement }

func (t *ModifyStatementTool) GetDescription() string {
	return "Replace the current lemma's statement"
}

func (t *ModifyStatementTool) Execute(_ context.Context, args map[string]interface{}) (ToolResult, error) {
	var a modifyStatementArgs
	if err := mapstructure.Decode(args, &a); err != nil {
		return ToolResult{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if strings.TrimSpace(a.NewStatement) == "" {
		return ToolResult{Error: "new_statement must be non-empty"}, nil
	}

	id, l, err := currentLemma(t.tc)
	if err != nil {
		return ToolResult{Error: err.Error()}, nil
	}
	if err := t.tc.Pool.SetStatementProof(id, a.NewStatement, l.Proof); err != nil {
		return ToolResult{Error: err.Error()}, nil
	}
	return ToolResult{Content: "Statement updated."}, nil
}

// ModifyProofTool replaces a marker-delimited span of the current
// lemma's proof. Markers are matched literally; when a marker is
// absent, successively collapsed backslash escapes of it are tried,
// since models tend to over-escape LaTeX inside JSON arguments.
type ModifyProofTool struct {
	tc *Context
}

func NewModifyProofTool(tc *Context) *ModifyProofTool {
	return &ModifyProofTool{tc: tc}
}

type modifyProofArgs struct {
	BeginMarker      string `mapstructure:"begin_marker"`
	EndMarker        string `mapstructure:"end_marker"`
	ProofReplacement string `mapstructure:"proof_replacement"`
}

func (t *ModifyProofTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name: config.ToolModifyProof,
		Description: "Replace a span of the current proof. The span starts at the first occurrence " +
			"of begin_marker and ends at the first occurrence of end_marker after it. Both markers " +
			"are included in the replaced span, so restate them in proof_replacement if they should survive.",
		Parameters: []ToolParameter{
			{Name: "begin_marker", Type: "string", Description: "Short literal excerpt opening the span (at most 100 characters)", Required: true},
			{Name: "end_marker", Type: "string", Description: "Short literal excerpt closing the span (at most 100 characters)", Required: true},
			{Name: "proof_replacement", Type: "string", Description: "Text replacing the span, markers included", Required: true},
		},
	}
}

func (t *ModifyProofTool) GetName() string { return config.ToolModifyProof }

func (t *ModifyProofTool) GetDescription() string {
	return "Replace a marker-delimited span of the current proof"
}

func (t *ModifyProofTool) Execute(_ context.Context, args map[string]interface{}) (ToolResult, error) {
	var a modifyProofArgs
	if err := mapstructure.Decode(args, &a); err != nil {
		return ToolResult{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if a.BeginMarker == "" || a.EndMarker == "" {
		return ToolResult{Error: "begin_marker and end_marker must be non-empty"}, nil
	}
	if len(a.BeginMarker) > maxMarkerLen || len(a.EndMarker) > maxMarkerLen {
		return ToolResult{Error: fmt.Sprintf("markers must be at most %d characters", maxMarkerLen)}, nil
	}

	id, l, err := currentLemma(t.tc)
	if err != nil {
		return ToolResult{Error: err.Error()}, nil
	}

	begin, beginIdx, ok := locateMarker(l.Proof, 0, a.BeginMarker)
	if !ok {
		return ToolResult{Error: fmt.Sprintf("begin_marker %q not found in the current proof", a.BeginMarker)}, nil
	}
	end, endIdx, ok := locateMarker(l.Proof, beginIdx+len(begin), a.EndMarker)
	if !ok {
		return ToolResult{Error: fmt.Sprintf("end_marker %q not found after begin_marker in the current proof", a.EndMarker)}, nil
	}

	proof := l.Proof[:beginIdx] + a.ProofReplacement + l.Proof[endIdx+len(end):]
	if err := t.tc.Pool.SetStatementProof(id, l.Statement, proof); err != nil {
		return ToolResult{Error: err.Error()}, nil
	}
	return ToolResult{Content: "Proof updated."}, nil
}

// locateMarker finds the first candidate form of marker in text at or
// after offset. It returns the matched form and its absolute index.
// Only the raw marker and its collapsed-escape variants are tried; the
// replacement text is never normalized.
func locateMarker(text string, offset int, marker string) (string, int, bool) {
	for _, candidate := range llm.CollapseMarkerEscapes(marker) {
		if idx := strings.Index(text[offset:], candidate); idx >= 0 {
			return candidate, offset + idx, true
		}
	}
	return "", -1, false
}

// ReadLemmaTool exposes verified pool entries to the model.
type ReadLemmaTool struct {
	tc *Context
}

func NewReadLemmaTool(tc *Context) *ReadLemmaTool {
	return &ReadLemmaTool{tc: tc}
}

type readLemmaArgs struct {
	LemmaID int `mapstructure:"lemma_id"`
}

func (t *ReadLemmaTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name: config.ToolReadLemma,
		Description: "Read the full statement and proof of a verified lemma by id. " +
			"Only verified lemmas are readable; pending and rejected lemmas are not.",
		Parameters: []ToolParameter{
			{Name: "lemma_id", Type: "integer", Description: "Id of the lemma to read", Required: true},
		},
	}
}

func (t *ReadLemmaTool) GetName() string { return config.ToolReadLemma }

func (t *ReadLemmaTool) GetDescription() string {
	return "Read a verified lemma's statement and proof"
}

func (t *ReadLemmaTool) Execute(_ context.Context, args map[string]interface{}) (ToolResult, error) {
	var a readLemmaArgs
	if err := mapstructure.Decode(args, &a); err != nil {
		return ToolResult{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}

	l, ok := t.tc.Pool.Get(a.LemmaID)
	if !ok {
		return ToolResult{Error: fmt.Sprintf("lemma_id %d does not exist (pool has %d lemmas)", a.LemmaID, t.tc.Pool.Len())}, nil
	}

	switch l.Status {
	case lemma.StatusVerified:
		return ToolResult{Content: fmt.Sprintf("Lemma %d\nStatement:\n%s\n\nProof:\n%s", a.LemmaID, l.Statement, l.Proof)}, nil
	case lemma.StatusRejected:
		return ToolResult{Content: fmt.Sprintf(
			"Warning: lemma %d was rejected and must not be relied on. Verified lemma ids: %s",
			a.LemmaID, formatIDs(t.tc.Pool.VerifiedIDs()))}, nil
	default:
		return ToolResult{Error: fmt.Sprintf("lemma %d is still pending and not readable yet", a.LemmaID)}, nil
	}
}

func formatIDs(ids []int) string {
	if len(ids) == 0 {
		return "(none)"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

// ReadConjectureAgainTool re-sends the current statement and proof as
// plain text. JSON encoding is deliberately avoided here so LaTeX
// backslashes reach the model unmangled.
type ReadConjectureAgainTool struct {
	tc *Context
}

func NewReadConjectureAgainTool(tc *Context) *ReadConjectureAgainTool {
	return &ReadConjectureAgainTool{tc: tc}
}

func (t *ReadConjectureAgainTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        config.ToolReadConjectureAgain,
		Description: "Re-read the exact current statement and proof you are refining, as plain text.",
	}
}

func (t *ReadConjectureAgainTool) GetName() string { return config.ToolReadConjectureAgain }

func (t *ReadConjectureAgainTool) GetDescription() string {
	return "Re-read the current statement and proof"
}

func (t *ReadConjectureAgainTool) Execute(_ context.Context, _ map[string]interface{}) (ToolResult, error) {
	_, l, err := currentLemma(t.tc)
	if err != nil {
		return ToolResult{Error: err.Error()}, nil
	}
	return ToolResult{Content: fmt.Sprintf("Statement:\n$$\n%s\n$$\n\nProof:\n$$\n%s\n$$", l.Statement, l.Proof)}, nil
}

// ReadReviewAgainTool re-sends the verifier review of the current
// lemma as plain text.
type ReadReviewAgainTool struct {
	tc *Context
}

func NewReadReviewAgainTool(tc *Context) *ReadReviewAgainTool {
	return &ReadReviewAgainTool{tc: tc}
}

func (t *ReadReviewAgainTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        config.ToolReadReviewAgain,
		Description: "Re-read the verifier review of the current conjecture, as plain text.",
	}
}

func (t *ReadReviewAgainTool) GetName() string { return config.ToolReadReviewAgain }

func (t *ReadReviewAgainTool) GetDescription() string {
	return "Re-read the current verifier review"
}

func (t *ReadReviewAgainTool) Execute(_ context.Context, _ map[string]interface{}) (ToolResult, error) {
	_, l, err := currentLemma(t.tc)
	if err != nil {
		return ToolResult{Error: err.Error()}, nil
	}
	if l.Review == "" {
		return ToolResult{Content: "There is no review for the current conjecture."}, nil
	}
	return ToolResult{Content: l.Review}, nil
}

const solverFormatReminder = `Your final answer must contain exactly one conjecture in one of the two forms:

<conjecture>statement</conjecture><proof>proof</proof><dependency>[ids]</dependency>

or, when the statement fully resolves the problem:

<final_conjecture>statement</final_conjecture><proof>proof</proof><dependency>[ids]</dependency>

The dependency block is a JSON array of integer lemma ids, for example [] or [0, 2].`

const refinerFormatReminder = `Edits are applied only through tool calls:
- modify_statement(new_statement) replaces the statement.
- modify_proof(begin_marker, end_marker, proof_replacement) replaces the inclusive span between the markers.
Markers must be short literal excerpts of the current proof (at most 100 characters each). A response without a modify_statement or modify_proof call leaves the conjecture unchanged.`

// FormatReminderTool returns a fixed format description. It reads and
// writes no state.
type FormatReminderTool struct {
	name string
	text string
}

// NewSolverFormatReminderTool reminds the solver of the tagged output
// form.
func NewSolverFormatReminderTool() *FormatReminderTool {
	return &FormatReminderTool{name: config.ToolSolverFormatReminder, text: solverFormatReminder}
}

// NewRefinerFormatReminderTool reminds the refiner that edits go
// through the modify tools.
func NewRefinerFormatReminderTool() *FormatReminderTool {
	return &FormatReminderTool{name: config.ToolRefinerFormatReminder, text: refinerFormatReminder}
}

func (t *FormatReminderTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.name,
		Description: "Show the required output format again.",
	}
}

func (t *FormatReminderTool) GetName() string { return t.name }

func (t *FormatReminderTool) GetDescription() string { return "Show the required output format" }

func (t *FormatReminderTool) Execute(_ context.Context, _ map[string]interface{}) (ToolResult, error) {
	return ToolResult{Content: t.text}, nil
}
