package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/lemma"
	"github.com/alphasolve/alphasolve/pkg/llm"
	"github.com/alphasolve/alphasolve/pkg/observability"
	"github.com/alphasolve/alphasolve/pkg/prompts"
)

// validToken is the sole acceptance token in a verifier answer.
const validToken = "boxed{valid}"

// Verifier judges the current lemma. Several independent attempts are
// made; the first one that finds a fault wins.
type Verifier struct {
	cfg      config.WorkflowConfig
	prompts  *prompts.Set
	client   Completer
	recorder Recorder
}

// NewVerifier builds the verifier node. recorder may be nil.
func NewVerifier(cfg config.WorkflowConfig, set *prompts.Set, client Completer, recorder Recorder) *Verifier {
	return &Verifier{cfg: cfg, prompts: set, client: client, recorder: recorder}
}

func (v *Verifier) Name() string { return "verifier" }

type verifierPrep struct {
	id        int
	isTheorem bool
	prompt    string
}

type verifierExec struct {
	valid  bool
	answer string
}

// Prep renders the verification prompt: the current statement and
// proof plus the statements of its verified dependency closure.
func (v *Verifier) Prep(_ context.Context, state *State) (interface{}, error) {
	id := state.CurrentLemmaID
	current, ok := state.Lemmas.Get(id)
	if !ok {
		return nil, fmt.Errorf("verifier: current lemma id %d is out of range", id)
	}

	prompt, err := v.prompts.Render(prompts.Verifier, map[string]string{
		"conjecture_content": current.Statement,
		"proof_content":      current.Proof,
	})
	if err != nil {
		return nil, err
	}

	view := state.Lemmas.Snapshot(id + 1)
	if section := dependencyContext(view, lemma.BuildReasoningPath(view, id, true)); section != "" {
		prompt += "\n\n" + section
	}

	return &verifierPrep{id: id, isTheorem: current.IsTheorem, prompt: prompt}, nil
}

// Exec runs up to ScalingFactor independent attempts, each a fresh
// single-message conversation. The first invalid verdict wins and the
// remaining attempts are skipped; when every attempt accepts, the last
// answer is kept.
func (v *Verifier) Exec(ctx context.Context, prepRes interface{}) (interface{}, error) {
	prep, ok := prepRes.(*verifierPrep)
	if !ok {
		return nil, fmt.Errorf("verifier exec: unexpected prep result %T", prepRes)
	}

	result := &verifierExec{}
	for attempt := 0; attempt < v.cfg.ScalingFactor; attempt++ {
		answer, _, _, err := v.client.GetResult(ctx,
			[]llm.Message{{Role: llm.RoleUser, Content: prep.prompt}},
			[]llm.ToolDef{}, nil)
		if err != nil {
			return nil, err
		}

		result.valid = strings.Contains(answer, validToken)
		result.answer = answer
		flowLogger(ctx).Info("Verifier attempt", "lemma", prep.id, "attempt", attempt, "valid", result.valid)
		if !result.valid {
			break
		}
	}
	return result, nil
}

// Post applies the verdict to the current lemma.
func (v *Verifier) Post(ctx context.Context, state *State, prepRes, execRes interface{}) (Action, error) {
	prep := prepRes.(*verifierPrep)
	exec, ok := execRes.(*verifierExec)
	if !ok {
		return "", fmt.Errorf("verifier post: unexpected exec result %T", execRes)
	}

	if _, err := state.Lemmas.IncVerifyRound(prep.id); err != nil {
		return "", err
	}

	if !exec.valid {
		if err := state.Lemmas.SetReview(prep.id, exec.answer); err != nil {
			return "", err
		}
		record(v.recorder, v.Name(), "conjecture_unverified", state)
		return ActionConjectureUnverified, nil
	}

	if err := state.Lemmas.SetStatus(prep.id, lemma.StatusVerified); err != nil {
		return "", err
	}
	if err := state.Lemmas.SetReview(prep.id, ""); err != nil {
		return "", err
	}

	if metrics := observability.GetGlobalMetrics(); metrics != nil {
		metrics.RecordLemma(ctx, observability.LemmaEventVerified)
	}
	record(v.recorder, v.Name(), "conjecture_verified", state)

	if prep.isTheorem {
		flowLogger(ctx).Info("Theorem verified", "lemma", prep.id)
		return ActionDone, nil
	}
	return ActionConjectureVerified, nil
}

// dependencyContext renders the statements of the given pool ids as
// the verifier's trusted-context section.
func dependencyContext(view []lemma.Lemma, ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		if id < 0 || id >= len(view) {
			continue
		}
		fmt.Fprintf(&b, " ** Conjecture-%d **\n %s\n", id, view[id].Statement)
	}
	if b.Len() == 0 {
		return ""
	}

	return "## Context\n\n" +
		"The following statements have already been verified and may be used without further justification.\n" +
		"<memory>\n" + b.String() + "</memory>"
}
