package tools

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/alphasolve/alphasolve/pkg/config"
)

func TestBannedImportScan(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		banned bool
	}{
		{"plain import", "import matplotlib", true},
		{"submodule import", "import matplotlib.pyplot as plt", true},
		{"from import", "from matplotlib import pyplot", true},
		{"pylab", "from pylab import *", true},
		{"indented import", "if True:\n    import pylab", true},
		{"allowed import", "import sympy\nprint(sympy.prime(10))", false},
		{"mention in comment", "# matplotlib is banned\nprint(1)", false},
		{"mention in string before import", "x = 1  # no import\nprint('matplotlib')", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bannedImportPattern.MatchString(tt.code); got != tt.banned {
				t.Errorf("banned = %v, want %v for %q", got, tt.banned, tt.code)
			}
		})
	}
}

func TestPythonEnvBannedImportRejectedBeforeDispatch(t *testing.T) {
	// No driver argv that could succeed: the scan must reject first.
	e := newPythonEnvWithDriver(config.PythonToolConfig{}, []string{"/nonexistent"})
	result := e.Run(context.Background(), "import matplotlib.pyplot as plt")
	if !strings.Contains(result.Error, "not allowed") {
		t.Fatalf("error = %q, want the banned-import rejection", result.Error)
	}
}

func TestPythonEnvFakeDriver(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	script := `while read line; do printf '{"stdout":"ok\\n"}\n'; done`
	e := newPythonEnvWithDriver(config.PythonToolConfig{Timeout: 5}, []string{"/bin/sh", "-c", script})
	defer e.Close()

	for i := 0; i < 2; i++ {
		result := e.Run(context.Background(), "print('hi')")
		if result.Error != "" {
			t.Fatalf("call %d: %s", i, result.Error)
		}
		if result.Content != "ok\n" {
			t.Errorf("call %d: content = %q", i, result.Content)
		}
	}
}

func TestPythonEnvDriverReportedError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	script := `while read line; do printf '{"stdout":"","error":"timeout"}\n'; done`
	e := newPythonEnvWithDriver(config.PythonToolConfig{Timeout: 5}, []string{"/bin/sh", "-c", script})
	defer e.Close()

	result := e.Run(context.Background(), "while True: pass")
	if result.Error != "timeout" {
		t.Errorf("error = %q, want timeout", result.Error)
	}
}

func TestPythonEnvCancellation(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	// A driver that never answers.
	e := newPythonEnvWithDriver(config.PythonToolConfig{Timeout: 300}, []string{"/bin/sh", "-c", "exec sleep 600"})
	defer e.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result := e.Run(ctx, "print(1)")
	if result.Error == "" {
		t.Fatal("expected a cancellation error")
	}
}

func TestRunPythonToolArgumentValidation(t *testing.T) {
	tc := newTestContext(t, -1)
	tool := NewRunPythonTool(tc)

	result, err := tool.Execute(context.Background(), map[string]interface{}{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Error == "" {
		t.Error("expected a tool error for missing code")
	}

	result, err = tool.Execute(context.Background(), map[string]interface{}{"code": 42})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Error == "" {
		t.Error("expected a decode error for a non-string code argument")
	}
}

func TestPythonEnvTimeoutRollsBackNewNames(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires SIGALRM")
	}
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not installed")
	}

	e := NewPythonEnv(config.PythonToolConfig{Timeout: 1})
	defer e.Close()

	ctx := context.Background()
	if result := e.Run(ctx, "x = 1"); result.Error != "" {
		t.Fatalf("seeding x failed: %s", result.Error)
	}

	result := e.Run(ctx, "y = 2\nimport time\ntime.sleep(30)")
	if result.Error != "timeout" {
		t.Fatalf("error = %q, want timeout", result.Error)
	}

	// The timed-out call's new name is gone; earlier state survives in
	// the same driver process.
	result = e.Run(ctx, "print(x)")
	if result.Error != "" || strings.TrimSpace(result.Content) != "1" {
		t.Errorf("x after timeout = %+v, want stdout 1", result)
	}
	result = e.Run(ctx, "print(y)")
	if !strings.Contains(result.Error, "NameError") {
		t.Errorf("y after timeout = %+v, want a NameError", result)
	}
}
