package workflow

// Wire assembles the canonical flow: solver proposes, verifier gates,
// refiner repairs, summarizer terminates. Solver and refiner loop on
// their own errors; the summarizer has no outgoing edges.
func Wire(solver, verifier, refiner, summarizer Node, maxNodeErrors int) *Flow {
	f := NewFlow(solver, maxNodeErrors)

	f.Connect(solver, ActionConjectureGenerated, verifier)
	f.Connect(solver, ActionExitOnExhausted, summarizer)
	f.Connect(solver, ActionExitOnError, solver)

	f.Connect(verifier, ActionConjectureVerified, solver)
	f.Connect(verifier, ActionConjectureUnverified, refiner)
	f.Connect(verifier, ActionDone, summarizer)

	f.Connect(refiner, ActionRefineSuccess, verifier)
	f.Connect(refiner, ActionExitOnExhausted, solver)
	f.Connect(refiner, ActionExitOnError, refiner)

	return f
}
