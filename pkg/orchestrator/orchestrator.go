// Package orchestrator runs the outer multi-worker solve loop: rounds
// of concurrent workers race over a lemma pool until one of them
// produces a final summary.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/lemma"
	"github.com/alphasolve/alphasolve/pkg/llm"
	"github.com/alphasolve/alphasolve/pkg/logger"
	"github.com/alphasolve/alphasolve/pkg/observability"
	"github.com/alphasolve/alphasolve/pkg/prompts"
	"github.com/alphasolve/alphasolve/pkg/snapshot"
	"github.com/alphasolve/alphasolve/pkg/tools"
	"github.com/alphasolve/alphasolve/pkg/workflow"
)

// errFirstResult cancels sibling workers once a summary exists. It is
// consumed inside the round and never escapes Run.
var errFirstResult = errors.New("first result obtained")

// Result is a successful solve.
type Result struct {
	// Summary is the final reasoning-path summary.
	Summary string

	// RunID identifies the run for logs and snapshot sessions.
	RunID string

	// Round and Worker locate the worker that produced the summary.
	Round  int
	Worker int
}

// workerSpec carries everything one worker run needs.
type workerSpec struct {
	runID   string
	round   int
	index   int
	pool    *lemma.Pool
	problem string
	hint    string
}

// Orchestrator launches workers over a shared or per-worker lemma
// pool.
type Orchestrator struct {
	cfg     *config.Config
	prompts *prompts.Set
	store   snapshot.Store

	// runWorker is swapped out in tests.
	runWorker func(ctx context.Context, spec workerSpec) (string, error)
}

// New builds an orchestrator. store may be nil to disable snapshots.
func New(cfg *config.Config, set *prompts.Set, store snapshot.Store) *Orchestrator {
	o := &Orchestrator{cfg: cfg, prompts: set, store: store}
	o.runWorker = o.worker
	return o
}

// Run solves the problem. It returns nil (and no error) when every
// round exhausts its quotas without a verified theorem.
func (o *Orchestrator) Run(ctx context.Context, problem, hint string) (*Result, error) {
	if problem == "" {
		return nil, fmt.Errorf("problem is empty")
	}

	runID := uuid.NewString()[:8]
	pool := lemma.NewPool()
	slog.Info("Run starting", "run", runID,
		"workers", o.cfg.Orchestrator.Workers,
		"iterations", o.cfg.Orchestrator.IterationNum,
		"share_mode", o.cfg.Orchestrator.ShareMode)

	for round := 0; round < o.cfg.Orchestrator.IterationNum; round++ {
		result, err := o.runRound(ctx, runID, round, pool, problem, hint)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
		o.maintainPool(pool)
	}

	slog.Warn("Run exhausted all rounds without a solution", "run", runID)
	return nil, nil
}

// runRound races the configured number of workers. The first non-empty
// summary wins; its arrival cancels the remaining workers best-effort.
func (o *Orchestrator) runRound(ctx context.Context, runID string, round int, pool *lemma.Pool, problem, hint string) (*Result, error) {
	workers := o.cfg.Orchestrator.Workers
	results := make(chan *Result, workers)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		spec := workerSpec{
			runID:   runID,
			round:   round,
			index:   i,
			pool:    o.workerPool(pool),
			problem: problem,
			hint:    hint,
		}
		g.Go(func() error {
			summary, err := o.runWorker(gctx, spec)

			if metrics := observability.GetGlobalMetrics(); metrics != nil {
				metrics.RecordWorkerRun(gctx, workerOutcome(summary, err))
			}

			if err != nil {
				// A failing worker never takes the round down with it.
				if gctx.Err() != nil {
					return nil
				}
				slog.Error("Worker failed", "run", runID, "round", round, "worker", spec.index, "error", err)
				return nil
			}
			if summary == "" {
				return nil
			}

			results <- &Result{Summary: summary, RunID: runID, Round: round, Worker: spec.index}
			return errFirstResult
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errFirstResult) {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	select {
	case result := <-results:
		slog.Info("Solution found", "run", runID, "round", result.Round, "worker", result.Worker)
		return result, nil
	default:
		return nil, nil
	}
}

// workerOutcome maps a worker's return values to the metrics label.
func workerOutcome(summary string, err error) string {
	switch {
	case err != nil:
		return observability.WorkerOutcomeError
	case summary != "":
		return observability.WorkerOutcomeSolved
	default:
		return observability.WorkerOutcomeUnsolved
	}
}

// workerPool returns the pool a worker operates on: the shared pool
// itself, or a private copy seeded from its current contents.
func (o *Orchestrator) workerPool(shared *lemma.Pool) *lemma.Pool {
	if o.cfg.Orchestrator.ShareMode == config.ShareModePrivate {
		return lemma.NewPoolFrom(shared.Snapshot(-1))
	}
	return shared
}

// maintainPool runs between rounds. Dedup, merge, and prune of the
// shared pool are reserved for it; for now it only reports stats.
func (o *Orchestrator) maintainPool(pool *lemma.Pool) {
	slog.Info("Round complete", "lemmas", pool.Len(), "verified", len(pool.VerifiedIDs()))
}

// worker is the production worker body: its own log file, clients,
// tool runtime, nodes, and flow, run to termination.
func (o *Orchestrator) worker(ctx context.Context, spec workerSpec) (string, error) {
	level, err := logger.ParseLevel(o.cfg.Logger.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	wl, err := logger.NewWorkerLog(o.cfg.Logger.Dir, fmt.Sprintf("worker-%d", spec.index), level)
	if err != nil {
		return "", fmt.Errorf("opening worker log: %w", err)
	}
	defer wl.Close()

	log := wl.Logger()
	log.Info("Worker starting", "run", spec.runID, "round", spec.round, "worker", spec.index)

	// Node and flow logging follows the worker's log file, not the
	// process log.
	ctx = workflow.WithLogger(ctx, log)

	state := workflow.NewState(spec.problem, spec.hint, spec.pool)
	toolCtx := tools.NewContext(o.cfg.Tools, spec.pool, func() int { return state.CurrentLemmaID })
	defer toolCtx.Close()

	subagent := tools.NewSubagentTool(o.cfg.Tools, o.cfg.Model(config.RoleSubagent), o.prompts, wl.Stream())

	solverRegistry, err := tools.BuildRegistry(o.cfg.Model(config.RoleSolver).Tools, toolCtx, subagent)
	if err != nil {
		return "", err
	}
	refinerRegistry, err := tools.BuildRegistry(o.cfg.Model(config.RoleRefiner).Tools, toolCtx, subagent)
	if err != nil {
		return "", err
	}

	solverClient, err := o.client(config.RoleSolver, wl)
	if err != nil {
		return "", err
	}
	verifierClient, err := o.client(config.RoleVerifier, wl)
	if err != nil {
		return "", err
	}
	refinerClient, err := o.client(config.RoleRefiner, wl)
	if err != nil {
		return "", err
	}

	session := snapshot.NewSession(o.store,
		fmt.Sprintf("%s-r%d-w%d", spec.runID, spec.round, spec.index))
	recorder := workflow.Recorder(nil)
	if session != nil {
		recorder = session
	}

	solver := workflow.NewSolver(o.cfg.Workflow, o.prompts, solverClient, solverRegistry, recorder)
	verifier := workflow.NewVerifier(o.cfg.Workflow, o.prompts, verifierClient, recorder)
	refiner := workflow.NewRefiner(o.cfg.Workflow, o.prompts, refinerClient, refinerRegistry, recorder)
	summarizer := workflow.NewSummarizer(recorder)

	flow := workflow.Wire(solver, verifier, refiner, summarizer, o.cfg.Workflow.MaxNodeErrors)
	if err := flow.Run(ctx, state); err != nil {
		return "", err
	}

	log.Info("Worker finished", "run", spec.runID, "worker", spec.index,
		"solved", state.ResultSummary != "")
	return state.ResultSummary, nil
}

// client builds the role's LLM client with the worker's stream log.
func (o *Orchestrator) client(role string, wl *logger.WorkerLog) (*llm.Client, error) {
	client, err := llm.New(o.cfg.Model(role), llm.WithStreamWriter(wl.Stream()))
	if err != nil {
		return nil, fmt.Errorf("building %s client: %w", role, err)
	}
	return client, nil
}
