package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/alphasolve/alphasolve/pkg/lemma"
)

// Summarizer renders the final output: the theorem and its transitive
// dependency closure as ordered Markdown blocks.
type Summarizer struct {
	recorder Recorder
}

// NewSummarizer builds the summarizer node. recorder may be nil.
func NewSummarizer(recorder Recorder) *Summarizer {
	return &Summarizer{recorder: recorder}
}

func (s *Summarizer) Name() string { return "summarizer" }

type summarizerPrep struct {
	status prepStatus
	id     int
	view   []lemma.Lemma
}

type summarizerExec struct {
	summary string
	lemmas  int
}

// Prep requires a verified theorem as the current lemma and carries a
// pool snapshot up to it; anything else is the failure path.
func (s *Summarizer) Prep(ctx context.Context, state *State) (interface{}, error) {
	id := state.CurrentLemmaID
	current, ok := state.Lemmas.Get(id)
	if !ok || current.Status != lemma.StatusVerified || !current.IsTheorem {
		flowLogger(ctx).Warn("No verified theorem to summarize", "current", id)
		return &summarizerPrep{status: prepFailure}, nil
	}
	return &summarizerPrep{status: prepNormal, id: id, view: state.Lemmas.Snapshot(id + 1)}, nil
}

// Exec formats the theorem's full reasoning path, dependencies first.
func (s *Summarizer) Exec(_ context.Context, prepRes interface{}) (interface{}, error) {
	prep, ok := prepRes.(*summarizerPrep)
	if !ok {
		return nil, fmt.Errorf("summarizer exec: unexpected prep result %T", prepRes)
	}
	if prep.status != prepNormal {
		return &summarizerExec{}, nil
	}

	ids := append(lemma.BuildReasoningPath(prep.view, prep.id, false), prep.id)
	sort.Ints(ids)

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "### Lemma %d\n**Statement**\n%s\n**Proof**\n%s\n\n",
			id, prep.view[id].Statement, prep.view[id].Proof)
	}
	return &summarizerExec{
		summary: strings.TrimRight(b.String(), "\n") + "\n",
		lemmas:  len(ids),
	}, nil
}

// Post writes the summary into the state.
func (s *Summarizer) Post(ctx context.Context, state *State, prepRes, execRes interface{}) (Action, error) {
	prep := prepRes.(*summarizerPrep)
	if prep.status != prepNormal {
		return ActionExitOnFailure, nil
	}

	exec, ok := execRes.(*summarizerExec)
	if !ok {
		return "", fmt.Errorf("summarizer post: unexpected exec result %T", execRes)
	}
	state.ResultSummary = exec.summary

	record(s.recorder, s.Name(), "summary_written", state)
	flowLogger(ctx).Info("Summary written", "theorem", prep.id, "lemmas", exec.lemmas)
	return ActionDone, nil
}
