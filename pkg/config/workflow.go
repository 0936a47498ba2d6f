package config

import "fmt"

// WorkflowConfig bounds one worker's solve loop.
type WorkflowConfig struct {
	// MaxLemmaNum caps the lemma pool size; the solver stops proposing
	// once the pool reaches it.
	MaxLemmaNum int `yaml:"max_lemma_num,omitempty" json:"max_lemma_num,omitempty" jsonschema:"title=Max Lemmas,description=Lemma pool size cap,minimum=1,default=10"`

	// ScalingFactor is the number of independent verifier attempts per
	// verification (first invalid wins).
	ScalingFactor int `yaml:"scaling_factor,omitempty" json:"scaling_factor,omitempty" jsonschema:"title=Scaling Factor,description=Verifier attempts per verification,minimum=1,default=3"`

	// MaxVerifyAndRefineRound caps verify→refine cycles per lemma before
	// it is rejected.
	MaxVerifyAndRefineRound int `yaml:"max_verify_and_refine_round,omitempty" json:"max_verify_and_refine_round,omitempty" jsonschema:"title=Max Verify-Refine Rounds,description=Verify-refine cycles per lemma,minimum=1,default=3"`

	// MaxNodeErrors caps consecutive error self-loops of a node before
	// the flow gives up.
	MaxNodeErrors int `yaml:"max_node_errors,omitempty" json:"max_node_errors,omitempty" jsonschema:"title=Max Node Errors,description=Consecutive node error retries before the flow terminates,minimum=1,default=20"`
}

// SetDefaults applies default values.
func (c *WorkflowConfig) SetDefaults() {
	if c.MaxLemmaNum == 0 {
		c.MaxLemmaNum = 10
	}
	if c.ScalingFactor == 0 {
		c.ScalingFactor = 3
	}
	if c.MaxVerifyAndRefineRound == 0 {
		c.MaxVerifyAndRefineRound = 3
	}
	if c.MaxNodeErrors == 0 {
		c.MaxNodeErrors = 20
	}
}

// Validate checks the workflow configuration.
func (c *WorkflowConfig) Validate() error {
	if c.MaxLemmaNum < 1 {
		return fmt.Errorf("max_lemma_num must be at least 1")
	}
	if c.ScalingFactor < 1 {
		return fmt.Errorf("scaling_factor must be at least 1")
	}
	if c.MaxVerifyAndRefineRound < 1 {
		return fmt.Errorf("max_verify_and_refine_round must be at least 1")
	}
	if c.MaxNodeErrors < 1 {
		return fmt.Errorf("max_node_errors must be at least 1")
	}
	return nil
}

// Lemma pool sharing modes across workers.
const (
	ShareModeShared  = "shared"
	ShareModePrivate = "private"
)

// OrchestratorConfig configures the multi-worker outer loop.
type OrchestratorConfig struct {
	// Workers is the number of concurrent workers per round.
	Workers int `yaml:"workers,omitempty" json:"workers,omitempty" jsonschema:"title=Workers,description=Concurrent workers per round,minimum=1,default=4"`

	// IterationNum is the number of rounds before giving up.
	IterationNum int `yaml:"iteration_num,omitempty" json:"iteration_num,omitempty" jsonschema:"title=Iterations,description=Rounds before giving up,minimum=1,default=1"`

	// ShareMode selects lemma pool sharing: "shared" (one pool appended
	// by all workers) or "private" (each worker copies the pool).
	ShareMode string `yaml:"share_mode,omitempty" json:"share_mode,omitempty" jsonschema:"title=Share Mode,description=Lemma pool sharing mode,enum=shared,enum=private,default=shared"`
}

// SetDefaults applies default values.
func (c *OrchestratorConfig) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.IterationNum == 0 {
		c.IterationNum = 1
	}
	if c.ShareMode == "" {
		c.ShareMode = ShareModeShared
	}
}

// Validate checks the orchestrator configuration.
func (c *OrchestratorConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.IterationNum < 1 {
		return fmt.Errorf("iteration_num must be at least 1")
	}
	if c.ShareMode != ShareModeShared && c.ShareMode != ShareModePrivate {
		return fmt.Errorf("invalid share_mode %q (valid: shared, private)", c.ShareMode)
	}
	return nil
}
