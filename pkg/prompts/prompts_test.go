package prompts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alphasolve/alphasolve/pkg/config"
)

func writeOverride(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write override %s: %v", name, err)
	}
}

func TestEmbeddedDefaults(t *testing.T) {
	s, err := New(config.PromptsConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	wantPlaceholders := map[string][]string{
		Solver:             {"{problem_content}", "{remaining_lemma_quota}"},
		SolverSystem:       nil,
		Verifier:           {"{conjecture_content}", "{proof_content}"},
		RefinerInstruction: {"{review_content}"},
		SubagentSystem:     nil,
		TheoremCheck:       {"{problem_content}", "{conjecture_content}"},
		Judge:              {"{problem_content}", "{gold_content}", "{candidate_content}"},
	}

	for name, placeholders := range wantPlaceholders {
		text, err := s.Get(name)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", name, err)
		}
		if strings.TrimSpace(text) == "" {
			t.Errorf("Get(%q) returned empty template", name)
		}
		for _, p := range placeholders {
			if !strings.Contains(text, p) {
				t.Errorf("template %q missing placeholder %s", name, p)
			}
		}
	}

	if _, err := s.Get("nonexistent"); err == nil {
		t.Error("Get(nonexistent) should fail")
	}
}

func TestDefaultTemplateContracts(t *testing.T) {
	s, err := New(config.PromptsConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	verifier, _ := s.Get(Verifier)
	if !strings.Contains(verifier, `\boxed{valid}`) || !strings.Contains(verifier, `\boxed{invalid}`) {
		t.Error("verifier template must spell out both verdict forms")
	}

	solver, _ := s.Get(Solver)
	for _, tag := range []string{"<conjecture>", "</conjecture>", "<proof>", "</proof>", "<dependency>", "</dependency>", "<final_conjecture>"} {
		if !strings.Contains(solver, tag) {
			t.Errorf("solver template missing output tag %s", tag)
		}
	}

	refiner, _ := s.Get(RefinerInstruction)
	if !strings.Contains(refiner, "modify_statement") || !strings.Contains(refiner, "modify_proof") {
		t.Error("refiner instruction must name the editing tools")
	}
	if !strings.Contains(refiner, "<review>\n{review_content}\n</review>") {
		t.Error("refiner instruction must end with the review block")
	}

	judge, _ := s.Get(Judge)
	if !strings.Contains(judge, "[[VERDICT:CORRECT]]") || !strings.Contains(judge, "[[VERDICT:INCORRECT]]") {
		t.Error("judge template must spell out both verdict tokens")
	}
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	s, err := New(config.PromptsConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	text, err := s.Render(Solver, map[string]string{
		"problem_content":       "Compute the sum of the first n cubes.",
		"remaining_lemma_quota": "3",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if !strings.Contains(text, "Compute the sum of the first n cubes.") {
		t.Error("rendered template missing problem content")
	}
	if !strings.Contains(text, "at most 3 more conjectures") {
		t.Error("rendered template missing quota")
	}
	if strings.Contains(text, "{problem_content}") || strings.Contains(text, "{remaining_lemma_quota}") {
		t.Error("placeholders left unsubstituted")
	}
}

func TestRenderPreservesBackslashes(t *testing.T) {
	s, err := New(config.PromptsConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	conjecture := `For all $n$, $\sum_{k=1}^{n} k = \alpha(n)$ where $\alpha(n) = n(n+1)/2$.`
	proof := "Induction on $n$.\nThe base case is $\\delta$-trivial."

	text, err := s.Render(Verifier, map[string]string{
		"conjecture_content": conjecture,
		"proof_content":      proof,
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if !strings.Contains(text, conjecture) {
		t.Error("conjecture content altered by substitution")
	}
	if !strings.Contains(text, proof) {
		t.Error("proof content altered by substitution")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	s, err := New(config.PromptsConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := s.Render("missing", nil); err == nil {
		t.Error("Render(missing) should fail")
	}
}

func TestOverridesShadowDefaults(t *testing.T) {
	dir := t.TempDir()
	writeOverride(t, dir, "solver.md", "OVERRIDDEN {problem_content}")
	writeOverride(t, dir, "notes.txt", "not a template")

	s, err := New(config.PromptsConfig{Dir: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	solver, err := s.Get(Solver)
	if err != nil {
		t.Fatalf("Get(solver) error = %v", err)
	}
	if solver != "OVERRIDDEN {problem_content}" {
		t.Errorf("override not applied, got %q", solver)
	}

	// Templates without an override fall back to the embedded default.
	verifier, err := s.Get(Verifier)
	if err != nil {
		t.Fatalf("Get(verifier) error = %v", err)
	}
	if !strings.Contains(verifier, "referee") {
		t.Error("verifier should still resolve to the embedded default")
	}

	if _, err := s.Get("notes"); err == nil {
		t.Error("non-markdown files must not register as templates")
	}
}

func TestMissingOverrideDir(t *testing.T) {
	_, err := New(config.PromptsConfig{Dir: filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Fatal("New() with missing override dir should fail")
	}
}

func TestNames(t *testing.T) {
	s, err := New(config.PromptsConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	names := s.Names()
	want := []string{Judge, RefinerInstruction, Solver, SolverSystem, SubagentSystem, TheoremCheck, Verifier}
	for _, w := range want {
		found := false
		for _, n := range names {
			if n == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Names() missing %q (got %v)", w, names)
		}
	}
}

func TestWatchRequiresDir(t *testing.T) {
	s, err := New(config.PromptsConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := s.Watch(context.Background()); err == nil {
		t.Error("Watch() without an override dir should fail")
	}
}

func TestWatchReloadsOverrides(t *testing.T) {
	dir := t.TempDir()
	writeOverride(t, dir, "solver.md", "v1")

	s, err := New(config.PromptsConfig{Dir: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Watch(ctx); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	writeOverride(t, dir, "solver.md", "v2")

	// Reload is debounced, poll until it lands.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		text, err := s.Get(Solver)
		if err != nil {
			t.Fatalf("Get(solver) error = %v", err)
		}
		if text == "v2" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("override change was not reloaded within the deadline")
}
