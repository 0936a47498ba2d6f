package tools

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/alphasolve/alphasolve/pkg/config"
)

// fakeKernel echoes a sentinel-bracketed result for every Print line
// and stays silent for the expression line, like a real kernel in
// -noprompt mode.
const fakeKernel = `while read line; do
  case "$line" in
  *ALPHASOLVE_RESULT*) echo '<<ALPHASOLVE_RESULT>>4<<ALPHASOLVE_END>>' ;;
  esac
done`

func TestWolframSessionEval(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	s := newWolframSessionWithKernel(config.WolframToolConfig{Timeout: 5}, []string{"/bin/sh", "-c", fakeKernel})
	defer s.Close()

	result := s.Eval(context.Background(), "2 + 2")
	if result.Error != "" {
		t.Fatalf("Eval: %s", result.Error)
	}
	if result.Content != "4" {
		t.Errorf("content = %q, want %q", result.Content, "4")
	}
}

func TestWolframSessionKernelMessages(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	script := `while read line; do
  case "$line" in
  *ALPHASOLVE_RESULT*)
    echo 'Power::infy: Infinite expression encountered.'
    echo '<<ALPHASOLVE_RESULT>>ComplexInfinity<<ALPHASOLVE_END>>'
    ;;
  esac
done`
	s := newWolframSessionWithKernel(config.WolframToolConfig{Timeout: 5}, []string{"/bin/sh", "-c", script})
	defer s.Close()

	result := s.Eval(context.Background(), "1/0")
	if result.Error != "" {
		t.Fatalf("Eval: %s", result.Error)
	}
	if !strings.Contains(result.Content, "Power::infy") || !strings.Contains(result.Content, "ComplexInfinity") {
		t.Errorf("content = %q, want kernel message and value", result.Content)
	}
}

func TestWolframSessionTimeoutRestartsKernel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	s := newWolframSessionWithKernel(config.WolframToolConfig{Timeout: 1}, []string{"/bin/sh", "-c", "exec sleep 600"})
	defer s.Close()

	result := s.Eval(context.Background(), "Pause[100]")
	if result.Error != "timeout" {
		t.Fatalf("error = %q, want timeout", result.Error)
	}

	// The dead kernel must be gone so the next call starts fresh.
	s.mu.Lock()
	alive := s.cmd != nil
	s.mu.Unlock()
	if alive {
		t.Error("kernel still attached after timeout")
	}
}

func TestRunWolframToolArgumentValidation(t *testing.T) {
	tc := newTestContext(t, -1)
	tool := NewRunWolframTool(tc)

	result, err := tool.Execute(context.Background(), map[string]interface{}{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Error == "" {
		t.Error("expected a tool error for missing code")
	}
}
