package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/observability"
	"github.com/alphasolve/alphasolve/pkg/orchestrator"
	"github.com/alphasolve/alphasolve/pkg/prompts"
	"github.com/alphasolve/alphasolve/pkg/snapshot"
)

// SolveCmd runs the orchestrator on a single problem.
type SolveCmd struct {
	ProblemFile string `name:"problem-file" help:"Problem statement file (overrides config)." type:"path"`
	HintFile    string `name:"hint-file" help:"Optional hint file appended to the solver prompt (overrides config)." type:"path"`
	Out         string `help:"Write the solution summary to this file instead of stdout." type:"path"`
}

func (c *SolveCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	rt, err := newRuntime(ctx, cli)
	if err != nil {
		return err
	}
	defer rt.close()

	problem, hint, err := rt.readProblem(c.ProblemFile, c.HintFile)
	if err != nil {
		return err
	}

	result, err := rt.orch.Run(ctx, problem, hint)
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("no verified solution found")
	}

	if c.Out != "" {
		if err := os.WriteFile(c.Out, []byte(result.Summary), 0o644); err != nil {
			return fmt.Errorf("failed to write solution: %w", err)
		}
		slog.Info("Solution written", "path", c.Out, "run", result.RunID,
			"round", result.Round, "worker", result.Worker)
		return nil
	}

	fmt.Println(result.Summary)
	return nil
}

// runtime bundles the long-lived pieces every solving command needs.
type runtime struct {
	cfg      *config.Config
	prompts  *prompts.Set
	orch     *orchestrator.Orchestrator
	loader   *config.Loader
	obs      *observability.Manager
	store    snapshot.Store
	logClose func()
}

// newRuntime loads config, initializes logging and observability, and
// wires the orchestrator with its snapshot store.
func newRuntime(ctx context.Context, cli *CLI) (*runtime, error) {
	cfg, loader, err := cli.loadConfig()
	if err != nil {
		return nil, err
	}

	logClose, err := cli.initLogger(cfg)
	if err != nil {
		loader.Stop()
		return nil, err
	}
	if cli.Config != "" {
		slog.Info("Loaded configuration", "path", cli.Config)
	}

	rt := &runtime{cfg: cfg, loader: loader, logClose: logClose}

	set, err := prompts.New(cfg.Prompts)
	if err != nil {
		rt.close()
		return nil, err
	}
	rt.prompts = set
	if cfg.Prompts.Watch && cfg.Prompts.Dir != "" {
		go func() {
			if err := set.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("Prompt watch stopped", "error", err)
			}
		}()
	}

	obs := observability.NewManager(cfg.Observability)
	if err := obs.Initialize(ctx); err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	rt.obs = obs

	store, err := snapshot.NewStore(cfg.Snapshots)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	rt.store = store

	rt.orch = orchestrator.New(cfg, set, store)
	return rt, nil
}

// readProblem resolves the problem and hint contents, flag values
// winning over config paths. The hint is optional.
func (rt *runtime) readProblem(problemFlag, hintFlag string) (string, string, error) {
	problemPath := problemFlag
	if problemPath == "" {
		problemPath = rt.cfg.ProblemFile
	}
	if problemPath == "" {
		return "", "", fmt.Errorf("no problem file: pass --problem-file or set problem_file in the config")
	}
	data, err := os.ReadFile(problemPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read problem: %w", err)
	}
	problem := strings.TrimSpace(string(data))
	if problem == "" {
		return "", "", fmt.Errorf("problem file %s is empty", problemPath)
	}

	hintPath := hintFlag
	if hintPath == "" {
		hintPath = rt.cfg.HintFile
	}
	var hint string
	if hintPath != "" {
		data, err := os.ReadFile(hintPath)
		if err != nil {
			return "", "", fmt.Errorf("failed to read hint: %w", err)
		}
		hint = strings.TrimSpace(string(data))
	}

	return problem, hint, nil
}

func (rt *runtime) close() {
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			slog.Warn("Snapshot store close failed", "error", err)
		}
	}
	if rt.obs != nil {
		if err := rt.obs.Shutdown(context.Background()); err != nil {
			slog.Warn("Observability shutdown failed", "error", err)
		}
	}
	if rt.loader != nil {
		rt.loader.Stop()
	}
	if rt.logClose != nil {
		rt.logClose()
	}
}
