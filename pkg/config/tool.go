package config

import "fmt"

// ToolsConfig configures the tool runtime shared by all roles.
type ToolsConfig struct {
	// Python configures the run_python environment.
	Python PythonToolConfig `yaml:"python,omitempty" json:"python,omitempty" jsonschema:"title=Python,description=run_python environment"`

	// Wolfram configures the run_wolfram kernel.
	Wolfram WolframToolConfig `yaml:"wolfram,omitempty" json:"wolfram,omitempty" jsonschema:"title=Wolfram,description=run_wolfram kernel"`

	// Subagent configures math_research_subagent behavior.
	Subagent SubagentToolConfig `yaml:"subagent,omitempty" json:"subagent,omitempty" jsonschema:"title=Subagent,description=math_research_subagent behavior"`
}

// PythonToolConfig configures the persistent Python environment.
type PythonToolConfig struct {
	// Interpreter is the Python executable for the driver subprocess.
	Interpreter string `yaml:"interpreter,omitempty" json:"interpreter,omitempty" jsonschema:"title=Interpreter,description=Python executable,default=python3"`

	// Timeout is the per-call wall-clock limit in seconds.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Per-call wall-clock limit in seconds,minimum=1,default=300"`
}

// SetDefaults applies default values.
func (c *PythonToolConfig) SetDefaults() {
	if c.Interpreter == "" {
		c.Interpreter = "python3"
	}
	if c.Timeout == 0 {
		c.Timeout = 300
	}
}

// Validate checks the Python tool configuration.
func (c *PythonToolConfig) Validate() error {
	if c.Timeout < 1 {
		return fmt.Errorf("python.timeout must be at least 1s")
	}
	return nil
}

// WolframToolConfig configures the persistent Wolfram kernel session.
type WolframToolConfig struct {
	// KernelPath is the kernel executable. When launch fails, the
	// WOLFRAM_KERNEL_PATH environment variable is tried once as a
	// fallback.
	KernelPath string `yaml:"kernel_path,omitempty" json:"kernel_path,omitempty" jsonschema:"title=Kernel Path,description=Wolfram kernel executable,default=WolframKernel"`

	// Timeout is the per-evaluation limit in seconds; on timeout the
	// kernel is terminated and recreated for the next call.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Per-evaluation limit in seconds,minimum=1,default=300"`
}

// SetDefaults applies default values.
func (c *WolframToolConfig) SetDefaults() {
	if c.KernelPath == "" {
		c.KernelPath = "WolframKernel"
	}
	if c.Timeout == 0 {
		c.Timeout = 300
	}
}

// Validate checks the Wolfram tool configuration.
func (c *WolframToolConfig) Validate() error {
	if c.Timeout < 1 {
		return fmt.Errorf("wolfram.timeout must be at least 1s")
	}
	return nil
}

// SubagentToolConfig configures the research sub-agent tool.
type SubagentToolConfig struct {
	// TokenEnvelope is the soft cap on sub-agent answer size in tokens.
	// Exceeding it logs a warning; the answer is never truncated.
	TokenEnvelope int `yaml:"token_envelope,omitempty" json:"token_envelope,omitempty" jsonschema:"title=Token Envelope,description=Soft cap on sub-agent answer tokens,minimum=1,default=2000"`
}

// SetDefaults applies default values.
func (c *SubagentToolConfig) SetDefaults() {
	if c.TokenEnvelope == 0 {
		c.TokenEnvelope = 2000
	}
}

// SetDefaults applies default values to all tool sections.
func (c *ToolsConfig) SetDefaults() {
	c.Python.SetDefaults()
	c.Wolfram.SetDefaults()
	c.Subagent.SetDefaults()
}

// Validate checks all tool sections.
func (c *ToolsConfig) Validate() error {
	if err := c.Python.Validate(); err != nil {
		return err
	}
	if err := c.Wolfram.Validate(); err != nil {
		return err
	}
	return nil
}
