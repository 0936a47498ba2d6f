// Package workflow implements the agent workflow engine: the shared
// state the nodes operate on, the node and flow abstractions, and the
// four concrete nodes (solver, verifier, refiner, summarizer) whose
// transitions drive one worker from a problem statement to a final
// summary.
package workflow

import (
	"github.com/alphasolve/alphasolve/pkg/lemma"
)

// State is the shared context one worker's flow operates on. The lemma
// pool may be shared across workers; everything else is private to the
// worker. Fields other than the pool are mutated only from node post
// phases, which run single-threaded within a worker.
type State struct {
	// Problem is the problem statement being solved.
	Problem string

	// Hint is optional extra guidance appended to solver prompts.
	Hint string

	// Lemmas is the lemma pool. Shared across workers in shared mode.
	Lemmas *lemma.Pool

	// CurrentLemmaID is the id of the lemma the worker is advancing,
	// or -1 before the first conjecture.
	CurrentLemmaID int

	// ResultSummary holds the final output once the summarizer ran.
	ResultSummary string
}

// NewState builds a worker state over the given pool.
func NewState(problem, hint string, pool *lemma.Pool) *State {
	return &State{
		Problem:        problem,
		Hint:           hint,
		Lemmas:         pool,
		CurrentLemmaID: -1,
	}
}

// Action is a node transition label. The flow maps (node, action)
// pairs to successor nodes.
type Action string

const (
	ActionConjectureGenerated  Action = "CONJECTURE_GENERATED"
	ActionConjectureVerified   Action = "CONJECTURE_VERIFIED"
	ActionConjectureUnverified Action = "CONJECTURE_UNVERIFIED"
	ActionDone                 Action = "DONE"
	ActionRefineSuccess        Action = "REFINE_SUCCESS"
	ActionExitOnError          Action = "EXIT_ON_ERROR"
	ActionExitOnExhausted      Action = "EXIT_ON_EXAUSTED"
	ActionExitOnFailure        Action = "EXIT_ON_FAILURE"
)

// prepStatus is the outcome of a node's prep phase, carried inside the
// node's prep result to its own post phase.
type prepStatus int

const (
	prepNormal prepStatus = iota
	prepExhausted
	prepFailure
)

// Recorder receives a progress snapshot after each node transition.
// Implementations must be non-blocking or cheap; recording failures
// never affect the flow.
type Recorder interface {
	Record(node string, status string, lemmas []lemma.Lemma)
}
