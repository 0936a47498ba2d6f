package workflow

import (
	"context"
	"fmt"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/lemma"
	"github.com/alphasolve/alphasolve/pkg/llm"
	"github.com/alphasolve/alphasolve/pkg/observability"
	"github.com/alphasolve/alphasolve/pkg/prompts"
	"github.com/alphasolve/alphasolve/pkg/tools"
)

// Refiner edits the current lemma in response to a verifier review.
// The edits themselves happen through the modify_statement and
// modify_proof tools during the conversation; the node only manages
// the transcript and the quota.
type Refiner struct {
	cfg      config.WorkflowConfig
	prompts  *prompts.Set
	client   Completer
	registry *tools.Registry
	recorder Recorder
}

// NewRefiner builds the refiner node. recorder may be nil.
func NewRefiner(cfg config.WorkflowConfig, set *prompts.Set, client Completer, registry *tools.Registry, recorder Recorder) *Refiner {
	return &Refiner{cfg: cfg, prompts: set, client: client, registry: registry, recorder: recorder}
}

func (r *Refiner) Name() string { return "refiner" }

type refinerPrep struct {
	status prepStatus
	id     int
	lemma  lemma.Lemma
}

type refinerExec struct {
	history []llm.Message
	edited  bool
}

// Prep checks the verify-refine quota for the current lemma.
func (r *Refiner) Prep(ctx context.Context, state *State) (interface{}, error) {
	id := state.CurrentLemmaID
	current, ok := state.Lemmas.Get(id)
	if !ok {
		return nil, fmt.Errorf("refiner: current lemma id %d is out of range", id)
	}

	if current.VerifyRound >= r.cfg.MaxVerifyAndRefineRound {
		flowLogger(ctx).Warn("Verify-refine quota exhausted", "lemma", id, "rounds", current.VerifyRound)
		return &refinerPrep{status: prepExhausted, id: id}, nil
	}
	return &refinerPrep{status: prepNormal, id: id, lemma: current}, nil
}

// Exec appends the refine instruction to the lemma's conversation and
// runs it with the editing tools. A response without a modify tool
// call is treated as no useful edit and its transcript is discarded.
func (r *Refiner) Exec(ctx context.Context, prepRes interface{}) (interface{}, error) {
	prep, ok := prepRes.(*refinerPrep)
	if !ok {
		return nil, fmt.Errorf("refiner exec: unexpected prep result %T", prepRes)
	}
	if prep.status != prepNormal {
		return &refinerExec{}, nil
	}

	instruction, err := r.prompts.Render(prompts.RefinerInstruction, map[string]string{
		"review_content": prep.lemma.Review,
	})
	if err != nil {
		return nil, err
	}

	baseline := append(llm.CloneMessages(prep.lemma.HistoryMessages),
		llm.Message{Role: llm.RoleUser, Content: instruction})

	_, _, updated, err := r.client.GetResult(ctx, baseline, r.registry.Definitions(), r.registry)
	if err != nil {
		return nil, err
	}

	if !usedEditingTool(updated[len(baseline):]) {
		flowLogger(ctx).Warn("Refiner made no edit, discarding transcript", "lemma", prep.id)
		return &refinerExec{history: prep.lemma.HistoryMessages, edited: false}, nil
	}
	return &refinerExec{history: updated, edited: true}, nil
}

// Post persists the transcript and resets the lemma for another
// verification, or rejects it when the quota ran out.
func (r *Refiner) Post(ctx context.Context, state *State, prepRes, execRes interface{}) (Action, error) {
	prep := prepRes.(*refinerPrep)

	if prep.status == prepExhausted {
		if err := state.Lemmas.SetStatus(prep.id, lemma.StatusRejected); err != nil {
			return "", err
		}
		if metrics := observability.GetGlobalMetrics(); metrics != nil {
			metrics.RecordLemma(ctx, observability.LemmaEventRejected)
		}
		record(r.recorder, r.Name(), "lemma_rejected", state)
		return ActionExitOnExhausted, nil
	}

	exec, ok := execRes.(*refinerExec)
	if !ok {
		return "", fmt.Errorf("refiner post: unexpected exec result %T", execRes)
	}

	if err := state.Lemmas.SetStatus(prep.id, lemma.StatusPending); err != nil {
		return "", err
	}
	if err := state.Lemmas.SetHistory(prep.id, exec.history); err != nil {
		return "", err
	}

	record(r.recorder, r.Name(), "lemma_refined", state)
	flowLogger(ctx).Info("Refine round complete", "lemma", prep.id, "edited", exec.edited)
	return ActionRefineSuccess, nil
}

// usedEditingTool reports whether any assistant message in the new
// part of the transcript called modify_statement or modify_proof.
func usedEditingTool(msgs []llm.Message) bool {
	for i := range msgs {
		if msgs[i].Role != llm.RoleAssistant {
			continue
		}
		for _, call := range msgs[i].ToolCalls {
			switch call.Function.Name {
			case config.ToolModifyStatement, config.ToolModifyProof:
				return true
			}
		}
	}
	return false
}
