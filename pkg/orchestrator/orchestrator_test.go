package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/lemma"
	"github.com/alphasolve/alphasolve/pkg/observability"
	"github.com/alphasolve/alphasolve/pkg/prompts"
)

func newTestOrchestrator(t *testing.T, orch config.OrchestratorConfig) *Orchestrator {
	t.Helper()

	cfg := &config.Config{Orchestrator: orch}
	cfg.SetDefaults()

	set, err := prompts.New(config.PromptsConfig{})
	if err != nil {
		t.Fatalf("prompts.New: %v", err)
	}
	return New(cfg, set, nil)
}

func TestRunFirstResultWins(t *testing.T) {
	o := newTestOrchestrator(t, config.OrchestratorConfig{Workers: 3, IterationNum: 1})

	o.runWorker = func(ctx context.Context, spec workerSpec) (string, error) {
		if spec.index == 1 {
			return "### Lemma 0\nsolved", nil
		}
		// The losers block until the winner cancels them.
		<-ctx.Done()
		return "", nil
	}

	result, err := o.Run(context.Background(), "prove something", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result == nil {
		t.Fatal("result = nil, want the winner's summary")
	}
	if result.Worker != 1 || result.Round != 0 {
		t.Errorf("winner = round %d worker %d, want round 0 worker 1", result.Round, result.Worker)
	}
	if result.RunID == "" {
		t.Error("missing run id")
	}
}

func TestRunAllWorkersUnsolved(t *testing.T) {
	o := newTestOrchestrator(t, config.OrchestratorConfig{Workers: 2, IterationNum: 3})

	var runs atomic.Int32
	o.runWorker = func(context.Context, workerSpec) (string, error) {
		runs.Add(1)
		return "", nil
	}

	result, err := o.Run(context.Background(), "prove something", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != nil {
		t.Fatalf("result = %+v, want nil", result)
	}
	if got := runs.Load(); got != 6 {
		t.Errorf("worker runs = %d, want 2 workers x 3 rounds", got)
	}
}

func TestRunWorkerFailureDoesNotAbortRound(t *testing.T) {
	o := newTestOrchestrator(t, config.OrchestratorConfig{Workers: 2, IterationNum: 1})

	o.runWorker = func(_ context.Context, spec workerSpec) (string, error) {
		if spec.index == 0 {
			return "", errors.New("provider down")
		}
		return "summary", nil
	}

	result, err := o.Run(context.Background(), "prove something", "")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result == nil || result.Summary != "summary" {
		t.Fatalf("result = %+v, want the surviving worker's summary", result)
	}
}

func TestRunSharedPool(t *testing.T) {
	o := newTestOrchestrator(t, config.OrchestratorConfig{Workers: 3, IterationNum: 1, ShareMode: config.ShareModeShared})

	var mu sync.Mutex
	pools := make(map[*lemma.Pool]bool)
	o.runWorker = func(_ context.Context, spec workerSpec) (string, error) {
		mu.Lock()
		pools[spec.pool] = true
		mu.Unlock()
		return "", nil
	}

	if _, err := o.Run(context.Background(), "prove something", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pools) != 1 {
		t.Errorf("workers saw %d distinct pools, want 1 shared pool", len(pools))
	}
}

func TestRunPrivatePools(t *testing.T) {
	o := newTestOrchestrator(t, config.OrchestratorConfig{Workers: 3, IterationNum: 1, ShareMode: config.ShareModePrivate})

	var mu sync.Mutex
	pools := make(map[*lemma.Pool]bool)
	o.runWorker = func(_ context.Context, spec workerSpec) (string, error) {
		mu.Lock()
		pools[spec.pool] = true
		mu.Unlock()

		// Private pools must not leak appends to each other.
		if _, err := spec.pool.Append(&lemma.Lemma{Statement: "s", Status: lemma.StatusPending}); err != nil {
			return "", err
		}
		if spec.pool.Len() != 1 {
			t.Errorf("worker %d pool len = %d, want 1", spec.index, spec.pool.Len())
		}
		return "", nil
	}

	if _, err := o.Run(context.Background(), "prove something", ""); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(pools) != 3 {
		t.Errorf("workers saw %d distinct pools, want one each", len(pools))
	}
}

func TestRunEmptyProblem(t *testing.T) {
	o := newTestOrchestrator(t, config.OrchestratorConfig{})
	if _, err := o.Run(context.Background(), "", ""); err == nil {
		t.Fatal("expected an error for an empty problem")
	}
}

func TestRunCancellation(t *testing.T) {
	o := newTestOrchestrator(t, config.OrchestratorConfig{Workers: 2, IterationNum: 1})

	ctx, cancel := context.WithCancel(context.Background())
	o.runWorker = func(wctx context.Context, _ workerSpec) (string, error) {
		cancel()
		<-wctx.Done()
		return "", wctx.Err()
	}

	result, err := o.Run(ctx, "prove something", "")
	if err == nil {
		t.Fatal("expected a cancellation error")
	}
	if result != nil {
		t.Errorf("result = %+v, want nil", result)
	}
}

func TestWorkerOutcome(t *testing.T) {
	tests := []struct {
		summary string
		err     error
		want    string
	}{
		{"", errors.New("boom"), observability.WorkerOutcomeError},
		{"a summary", errors.New("boom"), observability.WorkerOutcomeError},
		{"a summary", nil, observability.WorkerOutcomeSolved},
		{"", nil, observability.WorkerOutcomeUnsolved},
	}
	for _, tt := range tests {
		if got := workerOutcome(tt.summary, tt.err); got != tt.want {
			t.Errorf("workerOutcome(%q, %v) = %s, want %s", tt.summary, tt.err, got, tt.want)
		}
	}
}
