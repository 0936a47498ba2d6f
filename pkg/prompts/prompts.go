// Package prompts resolves the prompt templates used by the solver,
// verifier, refiner and benchmark flows.
//
// Built-in templates are embedded into the binary. A config-supplied
// directory may shadow them file by file (same name, .md extension),
// optionally hot-reloaded while the process runs. Placeholder
// substitution is literal string replacement, so template bodies may
// contain LaTeX, backslashes and braces without escaping.
package prompts

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/alphasolve/alphasolve/pkg/config"
)

//go:embed templates/*.md
var templatesFS embed.FS

// Canonical template names. Override files are named "<name>.md".
const (
	Solver             = "solver"
	SolverSystem       = "solver_system"
	Verifier           = "verifier"
	RefinerInstruction = "refiner_instruction"
	SubagentSystem     = "subagent_system"
	TheoremCheck       = "theorem_check"
	Judge              = "judge"
)

// Set resolves prompt names to template text. Overrides from the
// configured directory win over the embedded defaults.
type Set struct {
	dir string

	mu        sync.RWMutex
	overrides map[string]string
	defaults  map[string]string
}

// New builds a Set from the embedded defaults plus any overrides found
// in cfg.Dir. An empty Dir means embedded templates only.
func New(cfg config.PromptsConfig) (*Set, error) {
	defaults, err := loadTemplateDir(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded prompt templates: %w", err)
	}

	s := &Set{
		dir:       cfg.Dir,
		defaults:  defaults,
		overrides: map[string]string{},
	}

	if s.dir != "" {
		if err := s.loadOverrides(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Get returns the template text for name, preferring overrides.
func (s *Set) Get(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if text, ok := s.overrides[name]; ok {
		return text, nil
	}
	if text, ok := s.defaults[name]; ok {
		return text, nil
	}
	return "", fmt.Errorf("unknown prompt template %q", name)
}

// Render substitutes vars into the named template. Each occurrence of
// "{key}" is replaced by its value with plain string replacement, keys
// in sorted order so the result is deterministic. There is no template
// engine behind this; bodies may contain LaTeX braces and backslashes.
func (s *Set) Render(name string, vars map[string]string) (string, error) {
	text, err := s.Get(name)
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		text = strings.ReplaceAll(text, "{"+k+"}", vars[k])
	}
	return text, nil
}

// Names returns the known template names in sorted order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.defaults)+len(s.overrides))
	for name := range s.defaults {
		seen[name] = struct{}{}
	}
	for name := range s.overrides {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// loadOverrides re-reads the override directory and swaps in the fresh
// map. Files that don't end in .md are ignored.
func (s *Set) loadOverrides() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to read prompt override dir %s: %w", s.dir, err)
	}

	overrides := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read prompt override %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		overrides[name] = string(data)
	}

	s.mu.Lock()
	s.overrides = overrides
	s.mu.Unlock()
	return nil
}

// Watch hot-reloads the override directory until ctx is canceled.
// Returns an error when no override directory is configured.
func (s *Set) Watch(ctx context.Context) error {
	if s.dir == "" {
		return fmt.Errorf("no prompt override directory configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create prompt watcher: %w", err)
	}

	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch prompt dir %s: %w", s.dir, err)
	}

	go s.watchLoop(ctx, watcher)

	slog.Info("Watching prompt overrides", "dir", s.dir)
	return nil
}

func (s *Set) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	// Debounce timer to coalesce rapid changes
	var debounceTimer *time.Timer
	const debounceDelay = 100 * time.Millisecond

	// Removals matter here: deleting an override falls back to the
	// embedded default.
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Ext(event.Name) != ".md" || event.Op&relevant == 0 {
				continue
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, s.reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Prompt watcher error", "error", err)
		}
	}
}

func (s *Set) reload() {
	if err := s.loadOverrides(); err != nil {
		slog.Error("Failed to reload prompt overrides", "dir", s.dir, "error", err)
		return
	}

	s.mu.RLock()
	count := len(s.overrides)
	s.mu.RUnlock()
	slog.Info("Reloaded prompt overrides", "dir", s.dir, "overrides", count)
}

// loadTemplateDir reads every .md file under dir in fsys, keyed by the
// file name without extension.
func loadTemplateDir(fsys fs.FS, dir string) (map[string]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	templates := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		data, err := fs.ReadFile(fsys, dir+"/"+entry.Name())
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		templates[name] = string(data)
	}
	return templates, nil
}
