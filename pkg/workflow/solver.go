package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/lemma"
	"github.com/alphasolve/alphasolve/pkg/llm"
	"github.com/alphasolve/alphasolve/pkg/observability"
	"github.com/alphasolve/alphasolve/pkg/prompts"
	"github.com/alphasolve/alphasolve/pkg/tools"
)

// Solver proposes one new conjecture per visit, building on the
// verified lemmas already in the pool.
type Solver struct {
	cfg      config.WorkflowConfig
	prompts  *prompts.Set
	client   Completer
	registry *tools.Registry
	recorder Recorder
}

// NewSolver builds the solver node. recorder may be nil.
func NewSolver(cfg config.WorkflowConfig, set *prompts.Set, client Completer, registry *tools.Registry, recorder Recorder) *Solver {
	return &Solver{cfg: cfg, prompts: set, client: client, registry: registry, recorder: recorder}
}

func (s *Solver) Name() string { return "solver" }

type solverPrep struct {
	status   prepStatus
	messages []llm.Message
}

type solverExec struct {
	built *lemma.Lemma
}

// Prep checks the lemma quota and builds the two-message baseline: the
// solver system prompt plus a user prompt carrying the problem, the
// verified-lemma context, and the optional hint.
func (s *Solver) Prep(ctx context.Context, state *State) (interface{}, error) {
	remaining := s.cfg.MaxLemmaNum - state.Lemmas.Len()
	flowLogger(ctx).Info("Solver quota", "remaining", remaining, "max", s.cfg.MaxLemmaNum)
	if remaining <= 0 {
		return &solverPrep{status: prepExhausted}, nil
	}

	system, err := s.prompts.Get(prompts.SolverSystem)
	if err != nil {
		return nil, err
	}
	prompt, err := s.prompts.Render(prompts.Solver, map[string]string{
		"problem_content":       state.Problem,
		"remaining_lemma_quota": strconv.Itoa(remaining),
	})
	if err != nil {
		return nil, err
	}

	if section := verifiedContext(state.Lemmas.Snapshot(-1)); section != "" {
		prompt += "\n\n" + section
	}
	if state.Hint != "" {
		prompt += "\n\n" + state.Hint
	}

	return &solverPrep{
		status: prepNormal,
		messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: prompt},
		},
	}, nil
}

// Exec runs the conversation and extracts the tagged conjecture,
// proof, and dependency regions into a pending lemma.
func (s *Solver) Exec(ctx context.Context, prepRes interface{}) (interface{}, error) {
	prep, ok := prepRes.(*solverPrep)
	if !ok {
		return nil, fmt.Errorf("solver exec: unexpected prep result %T", prepRes)
	}
	if prep.status != prepNormal {
		return &solverExec{}, nil
	}

	answer, _, updated, err := s.client.GetResult(ctx, prep.messages, s.registry.Definitions(), s.registry)
	if err != nil {
		return nil, err
	}

	built, err := buildLemma(answer, updated)
	if err != nil {
		return nil, err
	}
	return &solverExec{built: built}, nil
}

// Post runs the theorem check on the new conjecture, appends it to the
// pool, and advances the current lemma id.
func (s *Solver) Post(ctx context.Context, state *State, prepRes, execRes interface{}) (Action, error) {
	prep := prepRes.(*solverPrep)
	if prep.status == prepExhausted {
		flowLogger(ctx).Warn("Solver quota exhausted", "lemmas", state.Lemmas.Len())
		return ActionExitOnExhausted, nil
	}

	exec, ok := execRes.(*solverExec)
	if !ok || exec.built == nil {
		return "", fmt.Errorf("solver post: no lemma was built")
	}

	isTheorem, err := s.checkTheorem(ctx, state.Problem, exec.built.Statement)
	if err != nil {
		flowLogger(ctx).Warn("Theorem check failed, treating conjecture as a lemma", "error", err)
	}
	exec.built.IsTheorem = isTheorem

	if dropped := filterDependencies(exec.built, state.Lemmas.Len()); len(dropped) > 0 {
		flowLogger(ctx).Warn("Ignoring out-of-range dependencies", "dropped", dropped)
	}

	id, err := state.Lemmas.Append(exec.built)
	if err != nil {
		return "", fmt.Errorf("appending lemma: %w", err)
	}
	state.CurrentLemmaID = id

	if metrics := observability.GetGlobalMetrics(); metrics != nil {
		metrics.RecordLemma(ctx, observability.LemmaEventCreated)
	}
	record(s.recorder, s.Name(), "conjecture_generated", state)

	flowLogger(ctx).Info("Conjecture generated", "id", id, "is_theorem", isTheorem)
	return ActionConjectureGenerated, nil
}

// checkTheorem asks the model whether the statement alone fully
// addresses the problem. The final_conjecture tag the solver may emit
// is not trusted for this.
func (s *Solver) checkTheorem(ctx context.Context, problem, statement string) (bool, error) {
	prompt, err := s.prompts.Render(prompts.TheoremCheck, map[string]string{
		"problem_content":    problem,
		"conjecture_content": statement,
	})
	if err != nil {
		return false, err
	}

	answer, _, _, err := s.client.GetResult(ctx,
		[]llm.Message{{Role: llm.RoleUser, Content: prompt}},
		[]llm.ToolDef{}, nil)
	if err != nil {
		return false, err
	}

	first := strings.ToLower(strings.TrimSpace(answer))
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = strings.TrimSpace(first[:i])
	}
	return strings.HasPrefix(first, "yes"), nil
}

// verifiedContext renders the verified lemmas' statements as the
// context section appended to the solver prompt. Headers carry pool
// ids so they line up with read_lemma and dependency ids.
func verifiedContext(view []lemma.Lemma) string {
	var b strings.Builder
	for i := range view {
		if view[i].Status != lemma.StatusVerified {
			continue
		}
		fmt.Fprintf(&b, " ** Lemma-%d **\n %s\n", i, view[i].Statement)
	}
	if b.Len() == 0 {
		return ""
	}

	return "## Context and History Explorations\n\n" +
		"Here is a list of lemmas that we have collected for this problem or our history findings during exploration. " +
		"They serve as the background of the conjecture and proof and can be accepted without controversy as correct.\n" +
		"<memory>\n" + b.String() + "</memory>"
}

// filterDependencies drops dependency ids outside [0, next), where
// next is the id the lemma is about to receive. A model citing a
// lemma that does not exist is ignored, not a failure. Returns the
// dropped ids.
func filterDependencies(l *lemma.Lemma, next int) []int {
	kept := l.Dependencies[:0]
	var dropped []int
	for _, d := range l.Dependencies {
		if d >= 0 && d < next {
			kept = append(kept, d)
		} else {
			dropped = append(dropped, d)
		}
	}
	l.Dependencies = kept
	return dropped
}

// buildLemma extracts the tagged regions from the final answer into a
// pending lemma. Missing tags or malformed dependency JSON are format
// errors; the flow loops the solver for another attempt.
func buildLemma(answer string, transcript []llm.Message) (*lemma.Lemma, error) {
	statement := extractRegion(answer, "conjecture")
	if statement == "" {
		statement = extractRegion(answer, "final_conjecture")
	}
	proof := extractRegion(answer, "proof")
	if statement == "" || proof == "" {
		return nil, &llm.FormatError{Message: "response is missing the conjecture or proof region"}
	}

	var deps []int
	if depText := strings.TrimSpace(extractRegion(answer, "dependency")); depText != "" {
		if err := json.Unmarshal([]byte(depText), &deps); err != nil {
			return nil, &llm.FormatError{Message: fmt.Sprintf("dependency region is not a JSON integer array: %v", err)}
		}
	}

	return &lemma.Lemma{
		Statement:       statement,
		Proof:           proof,
		Dependencies:    deps,
		Status:          lemma.StatusPending,
		HistoryMessages: llm.CloneMessages(transcript),
	}, nil
}

// extractRegion returns the trimmed text between <tag> and </tag>, or
// empty when either tag is absent.
func extractRegion(s, tag string) string {
	opening, closing := "<"+tag+">", "</"+tag+">"
	i := strings.Index(s, opening)
	if i < 0 {
		return ""
	}
	rest := s[i+len(opening):]
	j := strings.Index(rest, closing)
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:j])
}

// record emits a fire-and-forget snapshot.
func record(r Recorder, node, status string, state *State) {
	if r == nil {
		return
	}
	r.Record(node, status, state.Lemmas.Snapshot(-1))
}
