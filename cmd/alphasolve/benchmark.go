package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alphasolve/alphasolve/pkg/benchmark"
	"github.com/alphasolve/alphasolve/pkg/config"
)

// BenchmarkCmd runs repeated solve attempts and grades each summary
// against a reference answer with a judge model.
type BenchmarkCmd struct {
	ProblemFile   string `name:"problem-file" help:"Problem statement file (overrides config)." type:"path"`
	HintFile      string `name:"hint-file" help:"Optional hint file (overrides config)." type:"path"`
	Runs          int    `short:"n" help:"Number of solve attempts (overrides config)."`
	Sleep         int    `help:"Seconds to pause between runs (overrides config)."`
	Out           string `help:"Results JSON path (overrides config)." type:"path"`
	ReferenceFile string `name:"reference-file" help:"Reference answer file (overrides config)." type:"path"`
}

func (c *BenchmarkCmd) Run(cli *CLI) error {
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

	bcfg := rt.cfg.Benchmark
	if c.Runs > 0 {
		bcfg.Runs = c.Runs
	}
	if c.Sleep > 0 {
		bcfg.Sleep = c.Sleep
	}
	if c.Out != "" {
		bcfg.Out = c.Out
	}
	if c.ReferenceFile != "" {
		bcfg.ReferenceFile = c.ReferenceFile
	}
	if bcfg.ReferenceFile == "" {
		return fmt.Errorf("no reference answer: pass --reference-file or set benchmark.reference_file in the config")
	}

	problem, hint, err := rt.readProblem(c.ProblemFile, c.HintFile)
	if err != nil {
		return err
	}

	solve := func(ctx context.Context) (string, error) {
		result, err := rt.orch.Run(ctx, problem, hint)
		if err != nil {
			return "", err
		}
		if result == nil {
			return "", nil
		}
		return result.Summary, nil
	}

	runner, err := benchmark.NewRunner(bcfg, rt.cfg.Model(config.RoleJudge), rt.prompts, problem, solve)
	if err != nil {
		return err
	}

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("benchmark: %d/%d correct (accuracy %.2f), %d errored, %.1fs\n",
		report.Summary.Correct, report.Summary.Total,
		report.Summary.Accuracy, report.Summary.Errored,
		report.Summary.ElapsedS)
	fmt.Printf("results written to %s\n", bcfg.Out)
	return nil
}
