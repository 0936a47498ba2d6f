package config

import (
	"fmt"
)

// Role names for the per-role model configurations. The "default" entry
// is the inheritance base: role entries fill their unset fields from it.
const (
	RoleDefault  = "default"
	RoleSolver   = "solver"
	RoleVerifier = "verifier"
	RoleRefiner  = "refiner"
	RoleSubagent = "subagent"
	RoleJudge    = "judge"
)

// Canonical tool names. Registry composition per role is configured as a
// list of these names; anything else fails validation.
const (
	ToolRunPython             = "run_python"
	ToolRunWolfram            = "run_wolfram"
	ToolResearchSubagent      = "math_research_subagent"
	ToolModifyStatement       = "modify_statement"
	ToolModifyProof           = "modify_proof"
	ToolReadLemma             = "read_lemma"
	ToolReadConjectureAgain   = "read_current_conjecture_again"
	ToolReadReviewAgain       = "read_review_again"
	ToolSolverFormatReminder  = "solver_format_reminder"
	ToolRefinerFormatReminder = "refiner_format_reminder"
)

// ValidToolNames is the closed set of tool names recognized in role tool
// lists.
var ValidToolNames = map[string]bool{
	ToolRunPython:             true,
	ToolRunWolfram:            true,
	ToolResearchSubagent:      true,
	ToolModifyStatement:       true,
	ToolModifyProof:           true,
	ToolReadLemma:             true,
	ToolReadConjectureAgain:   true,
	ToolReadReviewAgain:       true,
	ToolSolverFormatReminder:  true,
	ToolRefinerFormatReminder: true,
}

// Config is the root configuration for a solve run.
type Config struct {
	// ProblemFile is the default problem statement path (CLI flag overrides).
	ProblemFile string `yaml:"problem_file,omitempty" json:"problem_file,omitempty" jsonschema:"title=Problem File,description=Path to the problem statement (Markdown or plain text)"`

	// HintFile is an optional hint attached to the solver prompt.
	HintFile string `yaml:"hint_file,omitempty" json:"hint_file,omitempty" jsonschema:"title=Hint File,description=Optional hint file appended to the solver prompt"`

	// Models maps role names (solver, verifier, refiner, subagent, judge)
	// to model configurations. The "default" entry supplies unset fields.
	Models map[string]*ModelConfig `yaml:"models,omitempty" json:"models,omitempty" jsonschema:"title=Models,description=Per-role model configurations"`

	// Workflow bounds the solve loop quotas.
	Workflow WorkflowConfig `yaml:"workflow,omitempty" json:"workflow,omitempty" jsonschema:"title=Workflow,description=Solve loop quotas"`

	// Orchestrator configures the multi-worker outer loop.
	Orchestrator OrchestratorConfig `yaml:"orchestrator,omitempty" json:"orchestrator,omitempty" jsonschema:"title=Orchestrator,description=Worker pool configuration"`

	// Tools configures the tool runtime (Python, Wolfram, sub-agent).
	Tools ToolsConfig `yaml:"tools,omitempty" json:"tools,omitempty" jsonschema:"title=Tools,description=Tool runtime configuration"`

	// Logger configures process and per-worker logging.
	Logger LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty" jsonschema:"title=Logger,description=Logging configuration"`

	// Snapshots configures progress snapshot persistence.
	Snapshots SnapshotConfig `yaml:"snapshots,omitempty" json:"snapshots,omitempty" jsonschema:"title=Snapshots,description=Progress snapshot persistence"`

	// Observability configures metrics and tracing.
	Observability ObservabilityConfig `yaml:"observability,omitempty" json:"observability,omitempty" jsonschema:"title=Observability,description=Metrics and tracing"`

	// Prompts configures prompt template overrides.
	Prompts PromptsConfig `yaml:"prompts,omitempty" json:"prompts,omitempty" jsonschema:"title=Prompts,description=Prompt template overrides"`

	// Benchmark configures the benchmark harness.
	Benchmark BenchmarkConfig `yaml:"benchmark,omitempty" json:"benchmark,omitempty" jsonschema:"title=Benchmark,description=Benchmark harness configuration"`
}

// ProcessConfigPipeline runs the standard defaults → validate sequence
// and returns the processed config.
func ProcessConfigPipeline(cfg *Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ProcessConfigPipeline: config cannot be nil")
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ProcessConfigPipeline: validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) initializeMaps() {
	if c.Models == nil {
		c.Models = make(map[string]*ModelConfig)
	}
}

// SetDefaults applies defaults to every section. Role model entries are
// created when missing and inherit unset fields from the "default" entry.
func (c *Config) SetDefaults() {
	c.initializeMaps()

	if c.Models[RoleDefault] == nil {
		c.Models[RoleDefault] = &ModelConfig{}
	}
	base := c.Models[RoleDefault]
	base.SetDefaults()

	for _, role := range []string{RoleSolver, RoleVerifier, RoleRefiner, RoleSubagent, RoleJudge} {
		if c.Models[role] == nil {
			c.Models[role] = &ModelConfig{}
		}
		m := c.Models[role]
		m.inherit(base)
		if m.Tools == nil {
			m.Tools = defaultToolsForRole(role)
		}
		m.SetDefaults()
	}

	c.Workflow.SetDefaults()
	c.Orchestrator.SetDefaults()
	c.Tools.SetDefaults()
	c.Logger.SetDefaults()
	c.Snapshots.SetDefaults()
	c.Observability.SetDefaults()
	c.Prompts.SetDefaults()
	c.Benchmark.SetDefaults()
}

// Validate checks every section. Call SetDefaults first.
func (c *Config) Validate() error {
	for role, m := range c.Models {
		if m == nil {
			continue
		}
		if err := m.Validate(); err != nil {
			return fmt.Errorf("models.%s: %w", role, err)
		}
	}

	if err := c.Workflow.Validate(); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if err := c.Orchestrator.Validate(); err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	if err := c.Tools.Validate(); err != nil {
		return fmt.Errorf("tools: %w", err)
	}
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	if err := c.Snapshots.Validate(); err != nil {
		return fmt.Errorf("snapshots: %w", err)
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	if err := c.Benchmark.Validate(); err != nil {
		return fmt.Errorf("benchmark: %w", err)
	}

	return nil
}

// Model returns the configuration for a role, falling back to the
// "default" entry for unknown roles. Never nil after SetDefaults.
func (c *Config) Model(role string) *ModelConfig {
	if m, ok := c.Models[role]; ok && m != nil {
		return m
	}
	return c.Models[RoleDefault]
}

// defaultToolsForRole returns the fixed registry composition per role.
// A nil entry in the config means "use these"; an explicit empty list
// means "no tools".
func defaultToolsForRole(role string) []string {
	switch role {
	case RoleSolver:
		return []string{ToolResearchSubagent, ToolReadLemma, ToolSolverFormatReminder}
	case RoleRefiner:
		return []string{
			ToolModifyStatement,
			ToolModifyProof,
			ToolRunPython,
			ToolRunWolfram,
			ToolResearchSubagent,
			ToolReadConjectureAgain,
			ToolReadReviewAgain,
			ToolRefinerFormatReminder,
		}
	case RoleSubagent:
		return []string{ToolRunPython, ToolRunWolfram}
	default:
		return []string{}
	}
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }
