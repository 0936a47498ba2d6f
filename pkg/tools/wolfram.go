package tools

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/alphasolve/alphasolve/pkg/config"
)

// Sentinels bracketing the stringified result in the kernel's output
// stream, so evaluation output is separated from kernel chatter.
const (
	wolframResultBegin = "<<ALPHASOLVE_RESULT>>"
	wolframResultEnd   = "<<ALPHASOLVE_END>>"
)

// WolframSession is the persistent per-conversation Wolfram kernel.
// The kernel starts lazily on the first Eval; when launching the
// configured kernel fails, the WOLFRAM_KERNEL_PATH environment
// variable is tried once as a fallback. On timeout the kernel is
// terminated and the next Eval starts a fresh one.
type WolframSession struct {
	cfg config.WolframToolConfig

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	// kernelArgv overrides the kernel command line, for tests.
	kernelArgv []string
}

// NewWolframSession returns a session whose kernel starts lazily.
func NewWolframSession(cfg config.WolframToolConfig) *WolframSession {
	cfg.SetDefaults()
	return &WolframSession{cfg: cfg}
}

// newWolframSessionWithKernel builds a session running argv instead of
// the configured kernel. Test hook.
func newWolframSessionWithKernel(cfg config.WolframToolConfig, argv []string) *WolframSession {
	cfg.SetDefaults()
	return &WolframSession{cfg: cfg, kernelArgv: argv}
}

// Eval evaluates one expression and returns its stringified value.
// Kernel messages emitted before the result are folded into the
// content so the model sees warnings alongside the value.
func (s *WolframSession) Eval(ctx context.Context, code string) ToolResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.start(); err != nil {
		return ToolResult{Error: fmt.Sprintf("failed to start wolfram kernel: %v", err)}
	}

	// Two statements per request: evaluate the expression, then print
	// the InputForm of its value between sentinels on one line.
	payload := code + "\n" +
		`Print["` + wolframResultBegin + `" <> ToString[%, InputForm] <> "` + wolframResultEnd + `"]` + "\n"

	if _, err := io.WriteString(s.stdin, payload); err != nil {
		s.stop()
		return ToolResult{Error: fmt.Sprintf("wolfram kernel write failed: %v", err)}
	}

	type readResult struct {
		result   string
		messages []string
		err      error
	}
	ch := make(chan readResult, 1)
	go func() {
		result, messages, err := s.readResult()
		ch <- readResult{result: result, messages: messages, err: err}
	}()

	select {
	case <-ctx.Done():
		s.stop()
		return ToolResult{Error: fmt.Sprintf("canceled: %v", ctx.Err())}
	case <-time.After(time.Duration(s.cfg.Timeout) * time.Second):
		// Hard termination; the next Eval restarts a fresh kernel.
		s.stop()
		return ToolResult{Error: "timeout"}
	case r := <-ch:
		if r.err != nil {
			s.stop()
			return ToolResult{Error: fmt.Sprintf("wolfram kernel died: %v", r.err)}
		}

		content := r.result
		if len(r.messages) > 0 {
			content = strings.Join(r.messages, "\n") + "\n" + content
		}
		return ToolResult{Content: content}
	}
}

// readResult consumes kernel output until the sentinel-bracketed
// result line arrives. Non-empty lines before it are kernel messages.
func (s *WolframSession) readResult() (string, []string, error) {
	var messages []string
	for {
		line, err := s.stdout.ReadString('\n')
		if err != nil {
			return "", nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		begin := strings.Index(line, wolframResultBegin)
		if begin < 0 {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				messages = append(messages, trimmed)
			}
			continue
		}

		rest := line[begin+len(wolframResultBegin):]
		if end := strings.Index(rest, wolframResultEnd); end >= 0 {
			rest = rest[:end]
		}
		return rest, messages, nil
	}
}

// start launches the kernel if it is not running. Callers hold s.mu.
func (s *WolframSession) start() error {
	if s.cmd != nil {
		return nil
	}

	argv := s.kernelArgv
	if argv == nil {
		argv = []string{s.cfg.KernelPath, "-noprompt"}
	}

	err := s.launch(argv)
	if err == nil {
		return nil
	}

	// Single fallback from the environment, per contract.
	if fallback := os.Getenv("WOLFRAM_KERNEL_PATH"); s.kernelArgv == nil && fallback != "" && fallback != s.cfg.KernelPath {
		slog.Warn("Wolfram kernel launch failed, trying fallback",
			"kernel", s.cfg.KernelPath, "fallback", fallback, "error", err)
		if ferr := s.launch([]string{fallback, "-noprompt"}); ferr == nil {
			return nil
		}
	}
	return err
}

func (s *WolframSession) launch(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return err
	}

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	slog.Debug("Wolfram kernel started", "kernel", argv[0], "pid", cmd.Process.Pid)
	return nil
}

// stop terminates the kernel. Callers hold s.mu.
func (s *WolframSession) stop() {
	if s.cmd == nil {
		return
	}
	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil
}

// Close terminates the kernel subprocess.
func (s *WolframSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
}

// RunWolframTool exposes the conversation's Wolfram session as the
// run_wolfram tool.
type RunWolframTool struct {
	tc *Context
}

// NewRunWolframTool binds run_wolfram to a tool context.
func NewRunWolframTool(tc *Context) *RunWolframTool {
	return &RunWolframTool{tc: tc}
}

type runWolframArgs struct {
	Code string `mapstructure:"code"`
}

func (t *RunWolframTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name: config.ToolRunWolfram,
		Description: "Evaluate one Wolfram Language expression in a persistent kernel session " +
			"for this conversation. Returns the stringified result. Use for symbolic " +
			"computation, exact arithmetic, and algebraic simplification.",
		Parameters: []ToolParameter{
			{Name: "code", Type: "string", Description: "Wolfram Language expression to evaluate", Required: true},
		},
	}
}

func (t *RunWolframTool) GetName() string {
	return config.ToolRunWolfram
}

func (t *RunWolframTool) GetDescription() string {
	return "Evaluate a Wolfram Language expression in a persistent kernel"
}

func (t *RunWolframTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	var a runWolframArgs
	if err := mapstructure.Decode(args, &a); err != nil {
		return ToolResult{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if a.Code == "" {
		return ToolResult{Error: "code parameter is required"}, nil
	}

	result := t.tc.Wolfram().Eval(ctx, a.Code)
	result.ExecutionTime = time.Since(start)
	return result, nil
}
