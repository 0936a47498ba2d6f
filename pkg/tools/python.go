package tools

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/alphasolve/alphasolve/pkg/config"
)

//go:embed python_driver.py
var pythonDriverSource string

// bannedImportPattern rejects snippets that import matplotlib or pylab
// (or any submodule) before they reach the driver. The driver enforces
// the same ban at runtime for dynamic imports.
var bannedImportPattern = regexp.MustCompile(`(?m)^[^#\n]*\b(?:import|from)\s+[^#\n]*\b(?:matplotlib|pylab)\b`)

// pythonResponse is one reply line from the driver subprocess.
type pythonResponse struct {
	Stdout string `json:"stdout"`
	Error  string `json:"error,omitempty"`
}

type pythonRequest struct {
	Code    string `json:"code"`
	Timeout int    `json:"timeout"`
}

// PythonEnv is the persistent per-conversation Python environment. It
// drives a long-lived interpreter subprocess over a JSON line
// protocol; top-level names survive across calls. The per-call
// timeout is enforced inside the driver (with key-level environment
// rollback); the Go side adds a hard deadline slightly above it and
// kills the subprocess when the driver misses it, losing the
// environment but still reporting a timeout.
type PythonEnv struct {
	cfg config.PythonToolConfig

	mu         sync.Mutex
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	stdout     *bufio.Reader
	driverPath string

	// driverArgv overrides the subprocess command line, for tests.
	driverArgv []string
}

// NewPythonEnv returns an environment whose driver starts lazily on
// the first Run.
func NewPythonEnv(cfg config.PythonToolConfig) *PythonEnv {
	cfg.SetDefaults()
	return &PythonEnv{cfg: cfg}
}

// newPythonEnvWithDriver builds an environment running argv instead of
// the embedded driver. Test hook.
func newPythonEnvWithDriver(cfg config.PythonToolConfig, argv []string) *PythonEnv {
	cfg.SetDefaults()
	return &PythonEnv{cfg: cfg, driverArgv: argv}
}

// Run executes one snippet and returns the captured stdout. Banned
// imports are rejected before dispatch; driver-reported failures
// (exceptions, timeout) come back in ToolResult.Error.
func (e *PythonEnv) Run(ctx context.Context, code string) ToolResult {
	if bannedImportPattern.MatchString(code) {
		return ToolResult{Error: "importing matplotlib or pylab is not allowed"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.start(); err != nil {
		return ToolResult{Error: fmt.Sprintf("failed to start python driver: %v", err)}
	}

	request, err := json.Marshal(pythonRequest{Code: code, Timeout: e.cfg.Timeout})
	if err != nil {
		return ToolResult{Error: fmt.Sprintf("failed to encode request: %v", err)}
	}

	if _, err := e.stdin.Write(append(request, '\n')); err != nil {
		e.stop()
		return ToolResult{Error: fmt.Sprintf("python driver write failed: %v", err)}
	}

	// The driver interrupts the snippet itself at cfg.Timeout; the
	// grace period only covers a wedged driver.
	deadline := time.Duration(e.cfg.Timeout)*time.Second + 10*time.Second

	type readResult struct {
		line []byte
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		line, err := e.stdout.ReadBytes('\n')
		ch <- readResult{line: line, err: err}
	}()

	var line []byte
	select {
	case <-ctx.Done():
		e.stop()
		return ToolResult{Error: fmt.Sprintf("canceled: %v", ctx.Err())}
	case <-time.After(deadline):
		// The environment is lost with the process; the next call
		// starts a fresh driver.
		e.stop()
		return ToolResult{Error: "timeout"}
	case r := <-ch:
		if r.err != nil {
			e.stop()
			return ToolResult{Error: fmt.Sprintf("python driver died: %v", r.err)}
		}
		line = r.line
	}

	var response pythonResponse
	if err := json.Unmarshal(line, &response); err != nil {
		e.stop()
		return ToolResult{Error: fmt.Sprintf("malformed driver response: %v", err)}
	}

	if response.Error != "" {
		return ToolResult{Content: response.Stdout, Error: response.Error}
	}
	return ToolResult{Content: response.Stdout}
}

// start launches the driver subprocess if it is not running. Callers
// hold e.mu.
func (e *PythonEnv) start() error {
	if e.cmd != nil {
		return nil
	}

	argv := e.driverArgv
	if argv == nil {
		driver, err := os.CreateTemp("", "alphasolve-python-driver-*.py")
		if err != nil {
			return fmt.Errorf("failed to write driver script: %w", err)
		}
		if _, err := driver.WriteString(pythonDriverSource); err != nil {
			driver.Close()
			os.Remove(driver.Name())
			return fmt.Errorf("failed to write driver script: %w", err)
		}
		driver.Close()
		e.driverPath = driver.Name()
		argv = []string{e.cfg.Interpreter, e.driverPath}
	}

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

	e.cmd = cmd
	e.stdin = stdin
	e.stdout = bufio.NewReader(stdout)
	slog.Debug("Python driver started", "interpreter", argv[0], "pid", cmd.Process.Pid)
	return nil
}

// stop kills the subprocess; the next Run starts a fresh one. Callers
// hold e.mu.
func (e *PythonEnv) stop() {
	if e.cmd == nil {
		return
	}
	if e.stdin != nil {
		e.stdin.Close()
	}
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	_ = e.cmd.Wait()
	e.cmd = nil
	e.stdin = nil
	e.stdout = nil
	if e.driverPath != "" {
		os.Remove(e.driverPath)
		e.driverPath = ""
	}
}

// Close terminates the driver subprocess.
func (e *PythonEnv) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stop()
}

// RunPythonTool exposes the conversation's Python environment as the
// run_python tool.
type RunPythonTool struct {
	tc *Context
}

// NewRunPythonTool binds run_python to a tool context.
func NewRunPythonTool(tc *Context) *RunPythonTool {
	return &RunPythonTool{tc: tc}
}

type runPythonArgs struct {
	Code string `mapstructure:"code"`
}

func (t *RunPythonTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name: config.ToolRunPython,
		Description: "Execute a Python snippet in a persistent environment: variables and " +
			"imports survive across calls within this conversation. Print results to stdout; " +
			"a trailing expression is echoed like in a notebook. Recommended libraries for " +
			"math problems: sympy, numpy, scipy, math, itertools, functools. Importing " +
			"matplotlib or pylab is not allowed. On timeout, names assigned during the call " +
			"are rolled back; in-place mutation of pre-existing objects is not.",
		Parameters: []ToolParameter{
			{Name: "code", Type: "string", Description: "Python code to execute", Required: true},
		},
	}
}

func (t *RunPythonTool) GetName() string {
	return config.ToolRunPython
}

func (t *RunPythonTool) GetDescription() string {
	return "Execute Python code in a persistent per-conversation environment"
}

func (t *RunPythonTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	var a runPythonArgs
	if err := mapstructure.Decode(args, &a); err != nil {
		return ToolResult{Error: fmt.Sprintf("invalid arguments: %v", err)}, nil
	}
	if a.Code == "" {
		return ToolResult{Error: "code parameter is required"}, nil
	}

	result := t.tc.Python().Run(ctx, a.Code)
	result.ExecutionTime = time.Since(start)
	return result, nil
}
