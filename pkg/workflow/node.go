package workflow

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/alphasolve/alphasolve/pkg/llm"
	"github.com/alphasolve/alphasolve/pkg/observability"
)

// Completer is the slice of the LLM client the nodes depend on. Tests
// substitute scripted completers.
type Completer interface {
	GetResult(ctx context.Context, messages []llm.Message, tools []llm.ToolDef, dispatcher llm.Dispatcher) (answer, reasoning string, updated []llm.Message, err error)
}

// Node is one stage of the workflow. Prep gathers inputs from the
// state, Exec performs the stage's work without touching the state,
// and Post applies the results and picks the transition. Prep and Post
// are the only phases that read or write the state.
type Node interface {
	Name() string
	Prep(ctx context.Context, state *State) (interface{}, error)
	Exec(ctx context.Context, prepRes interface{}) (interface{}, error)
	Post(ctx context.Context, state *State, prepRes, execRes interface{}) (Action, error)
}

// Flow drives nodes by their transition actions. A (node, action) pair
// without a successor terminates the run.
type Flow struct {
	start         Node
	edges         map[string]map[Action]Node
	maxNodeErrors int
}

// NewFlow builds a flow starting at start. maxNodeErrors caps
// consecutive EXIT_ON_ERROR traversals so a permanently failing node
// cannot spin forever; zero or negative means the default of 20.
func NewFlow(start Node, maxNodeErrors int) *Flow {
	if maxNodeErrors <= 0 {
		maxNodeErrors = 20
	}
	return &Flow{
		start:         start,
		edges:         make(map[string]map[Action]Node),
		maxNodeErrors: maxNodeErrors,
	}
}

// Connect routes action from one node to the next.
func (f *Flow) Connect(from Node, action Action, to Node) {
	name := from.Name()
	if f.edges[name] == nil {
		f.edges[name] = make(map[Action]Node)
	}
	f.edges[name][action] = to
}

// Successor returns the node the flow moves to for (from, action).
func (f *Flow) Successor(from string, action Action) (Node, bool) {
	next, ok := f.edges[from][action]
	return next, ok
}

// Run drives the flow to termination. Node failures stay inside the
// flow: a prep or exec error becomes an EXIT_ON_ERROR transition, and
// only a post error or context cancellation aborts the run.
func (f *Flow) Run(ctx context.Context, state *State) error {
	tracer := observability.GetTracer("alphasolve.workflow")

	current := f.start
	errorStreak := 0
	for current != nil {
		if err := ctx.Err(); err != nil {
			return err
		}

		action, err := f.runNode(ctx, tracer, current, state)
		if err != nil {
			return err
		}

		if action == ActionExitOnError {
			errorStreak++
			if errorStreak >= f.maxNodeErrors {
				flowLogger(ctx).Error("Node error cap reached, terminating flow",
					"node", current.Name(), "errors", errorStreak)
				return nil
			}
		} else {
			errorStreak = 0
		}

		next, ok := f.Successor(current.Name(), action)
		if !ok {
			flowLogger(ctx).Info("Flow terminated", "node", current.Name(), "action", string(action))
			return nil
		}
		current = next
	}
	return nil
}

// runNode runs one node's three phases and resolves its transition.
func (f *Flow) runNode(ctx context.Context, tracer trace.Tracer, node Node, state *State) (Action, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, observability.SpanNodeRun,
		trace.WithAttributes(attribute.String("node", node.Name())),
	)
	defer span.End()

	action, err := f.runPhases(ctx, node, state)

	if metrics := observability.GetGlobalMetrics(); metrics != nil {
		metrics.RecordNodeRun(ctx, node.Name(), time.Since(start), err)
	}
	span.SetAttributes(attribute.String("action", string(action)))
	return action, err
}

func (f *Flow) runPhases(ctx context.Context, node Node, state *State) (Action, error) {
	prepRes, err := node.Prep(ctx, state)
	if err != nil {
		flowLogger(ctx).Warn("Node prep failed", "node", node.Name(), "error", err)
		return ActionExitOnError, nil
	}

	execRes, err := node.Exec(ctx, prepRes)
	if err != nil {
		if ctx.Err() != nil {
			return ActionExitOnError, ctx.Err()
		}
		flowLogger(ctx).Warn("Node exec failed", "node", node.Name(), "error", err)
		return ActionExitOnError, nil
	}

	action, err := node.Post(ctx, state, prepRes, execRes)
	if err != nil {
		flowLogger(ctx).Error("Node post failed", "node", node.Name(), "error", err)
		return ActionExitOnError, err
	}
	return action, nil
}
