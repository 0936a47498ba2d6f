package tools

import (
	"fmt"

	"github.com/alphasolve/alphasolve/pkg/config"
)

// BuildRegistry composes a registry from the configured tool-name list
// of one role. All stateful tools bind to tc; subagent supplies the
// math_research_subagent tool and may be nil when the role's list does
// not include it.
func BuildRegistry(names []string, tc *Context, subagent *SubagentTool) (*Registry, error) {
	r := NewRegistry()
	for _, name := range names {
		switch name {
		case config.ToolRunPython:
			r.Register(NewRunPythonTool(tc))
		case config.ToolRunWolfram:
			r.Register(NewRunWolframTool(tc))
		case config.ToolResearchSubagent:
			if subagent == nil {
				return nil, fmt.Errorf("tool %s requested but no sub-agent is configured", name)
			}
			r.Register(subagent)
		case config.ToolModifyStatement:
			r.Register(NewModifyStatementTool(tc))
		case config.ToolModifyProof:
			r.Register(NewModifyProofTool(tc))
		case config.ToolReadLemma:
			r.Register(NewReadLemmaTool(tc))
		case config.ToolReadConjectureAgain:
			r.Register(NewReadConjectureAgainTool(tc))
		case config.ToolReadReviewAgain:
			r.Register(NewReadReviewAgainTool(tc))
		case config.ToolSolverFormatReminder:
			r.Register(NewSolverFormatReminderTool())
		case config.ToolRefinerFormatReminder:
			r.Register(NewRefinerFormatReminderTool())
		default:
			return nil, fmt.Errorf("unknown tool name %q", name)
		}
	}
	return r, nil
}
