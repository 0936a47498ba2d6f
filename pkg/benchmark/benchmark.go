// Package benchmark runs repeated solve attempts against a reference
// answer and has a judge model grade each produced summary.
package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/llm"
	"github.com/alphasolve/alphasolve/pkg/prompts"
)

// Judge verdict tokens; the judge prompt demands exactly one of them
// on the last line.
const (
	verdictCorrectToken   = "[[VERDICT:CORRECT]]"
	verdictIncorrectToken = "[[VERDICT:INCORRECT]]"
)

// Verdict values as reported in the results JSON.
const (
	VerdictCorrect    = "correct"
	VerdictIncorrect  = "incorrect"
	VerdictNoSolution = "no_solution"
	VerdictErrored    = "errored"
)

// RunResult is the outcome of one solve attempt.
type RunResult struct {
	Run        int     `json:"run"`
	Verdict    string  `json:"verdict"`
	ElapsedS   float64 `json:"elapsed_s"`
	SummaryLen int     `json:"summary_len"`
	Error      string  `json:"error,omitempty"`
}

// Summary aggregates a benchmark.
type Summary struct {
	Total     int     `json:"total"`
	Correct   int     `json:"correct"`
	Incorrect int     `json:"incorrect"`
	Errored   int     `json:"errored"`
	Accuracy  float64 `json:"accuracy"`
	ElapsedS  float64 `json:"elapsed_s"`
}

// Report is the benchmark output document.
type Report struct {
	Summary Summary     `json:"summary"`
	Results []RunResult `json:"results"`
}

// Solver produces one solve attempt's summary. The orchestrator's Run
// is adapted into this; a nil-result run returns an empty string.
type Solver func(ctx context.Context) (string, error)

// Runner drives the benchmark loop.
type Runner struct {
	cfg     config.BenchmarkConfig
	prompts *prompts.Set
	problem string
	gold    string
	solve   Solver

	// judge grades one summary; swapped out in tests.
	judge func(ctx context.Context, candidate string) (string, error)
}

// NewRunner builds a benchmark runner. judgeModel grades summaries
// against the reference answer read from cfg.ReferenceFile.
func NewRunner(cfg config.BenchmarkConfig, judgeModel *config.ModelConfig, set *prompts.Set, problem string, solve Solver) (*Runner, error) {
	cfg.SetDefaults()

	gold, err := os.ReadFile(cfg.ReferenceFile)
	if err != nil {
		return nil, fmt.Errorf("reading reference answer: %w", err)
	}

	r := &Runner{
		cfg:     cfg,
		prompts: set,
		problem: problem,
		gold:    strings.TrimSpace(string(gold)),
		solve:   solve,
	}
	r.judge = func(ctx context.Context, candidate string) (string, error) {
		return r.judgeWithModel(ctx, judgeModel, candidate)
	}
	return r, nil
}

// Run performs the configured number of attempts and writes the report
// to cfg.Out.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{Results: make([]RunResult, 0, r.cfg.Runs)}
	started := time.Now()

	for i := 1; i <= r.cfg.Runs; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		slog.Info("Benchmark run", "run", i, "total", r.cfg.Runs)
		result := r.runOnce(ctx, i)
		report.Results = append(report.Results, result)

		switch result.Verdict {
		case VerdictCorrect:
			report.Summary.Correct++
		case VerdictIncorrect, VerdictNoSolution:
			report.Summary.Incorrect++
		default:
			report.Summary.Errored++
		}

		if r.cfg.Sleep > 0 && i < r.cfg.Runs {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(r.cfg.Sleep) * time.Second):
			}
		}
	}

	report.Summary.Total = r.cfg.Runs
	report.Summary.Accuracy = float64(report.Summary.Correct) / float64(r.cfg.Runs)
	report.Summary.ElapsedS = time.Since(started).Seconds()

	if err := r.write(report); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Runner) runOnce(ctx context.Context, run int) RunResult {
	started := time.Now()
	result := RunResult{Run: run}

	summary, err := r.solve(ctx)
	result.ElapsedS = time.Since(started).Seconds()
	result.SummaryLen = len(summary)

	if err != nil {
		result.Verdict = VerdictErrored
		result.Error = err.Error()
		return result
	}
	if summary == "" {
		result.Verdict = VerdictNoSolution
		return result
	}

	answer, err := r.judge(ctx, summary)
	if err != nil {
		result.Verdict = VerdictErrored
		result.Error = fmt.Sprintf("judge: %v", err)
		return result
	}
	result.Verdict = parseVerdict(answer)
	return result
}

// judgeWithModel asks the judge model for a verdict on one candidate.
func (r *Runner) judgeWithModel(ctx context.Context, model *config.ModelConfig, candidate string) (string, error) {
	prompt, err := r.prompts.Render(prompts.Judge, map[string]string{
		"problem_content":   r.problem,
		"gold_content":      r.gold,
		"candidate_content": candidate,
	})
	if err != nil {
		return "", err
	}

	client, err := llm.New(model)
	if err != nil {
		return "", err
	}
	answer, _, _, err := client.GetResult(ctx,
		[]llm.Message{{Role: llm.RoleUser, Content: prompt}},
		[]llm.ToolDef{}, nil)
	return answer, err
}

// parseVerdict maps a judge answer to a verdict. Correct requires the
// correct token present and the incorrect token absent.
func parseVerdict(answer string) string {
	correct := strings.Contains(answer, verdictCorrectToken)
	incorrect := strings.Contains(answer, verdictIncorrectToken)
	if correct && !incorrect {
		return VerdictCorrect
	}
	return VerdictIncorrect
}

func (r *Runner) write(report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(r.cfg.Out, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	slog.Info("Benchmark report written", "path", r.cfg.Out,
		"correct", report.Summary.Correct, "total", report.Summary.Total)
	return nil
}
