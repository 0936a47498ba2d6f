package tools

import (
	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/lemma"
)

// Context is the per-conversation tool state: the lemma pool the
// editing and read tools operate on, a resolver for the current lemma
// id, and the subprocess sessions the computational tools own. Tool
// dispatch is serial within one conversation, so Context needs no
// locking of its own.
type Context struct {
	// Pool is the lemma pool the conversation's worker operates on.
	Pool *lemma.Pool

	// CurrentID resolves the worker's current lemma id at call time
	// (-1 when no lemma is selected).
	CurrentID func() int

	python  *PythonEnv
	wolfram *WolframSession
}

// NewContext builds a fresh tool context. The Python environment and
// Wolfram session are created lazily on first use by their tools.
func NewContext(cfg config.ToolsConfig, pool *lemma.Pool, currentID func() int) *Context {
	if currentID == nil {
		currentID = func() int { return -1 }
	}
	return &Context{
		Pool:      pool,
		CurrentID: currentID,
		python:    NewPythonEnv(cfg.Python),
		wolfram:   NewWolframSession(cfg.Wolfram),
	}
}

// Python returns the conversation's persistent Python environment.
func (c *Context) Python() *PythonEnv {
	return c.python
}

// Wolfram returns the conversation's persistent Wolfram session.
func (c *Context) Wolfram() *WolframSession {
	return c.wolfram
}

// Close terminates the subprocess sessions. Safe to call more than
// once and on a context whose sessions never started.
func (c *Context) Close() {
	if c.python != nil {
		c.python.Close()
	}
	if c.wolfram != nil {
		c.wolfram.Close()
	}
}
