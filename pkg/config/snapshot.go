package config

import "fmt"

// Snapshot store backends.
const (
	SnapshotBackendFile = "file"
	SnapshotBackendSQL  = "sql"
)

// SnapshotConfig configures progress snapshot persistence. Snapshots are
// best-effort: write failures are logged and never fail the run.
type SnapshotConfig struct {
	// Enabled turns snapshot persistence on.
	Enabled bool `yaml:"enabled,omitempty" json:"enabled,omitempty" jsonschema:"title=Enabled,description=Persist progress snapshots,default=false"`

	// Backend selects the store: "file" (JSON per session) or "sql".
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty" jsonschema:"title=Backend,description=Snapshot store backend,enum=file,enum=sql,default=file"`

	// Dir is the directory for file-backend sessions.
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty" jsonschema:"title=Dir,description=Directory for file-backend snapshot sessions,default=snapshots"`

	// Database configures the sql backend.
	Database DatabaseConfig `yaml:"database,omitempty" json:"database,omitempty" jsonschema:"title=Database,description=SQL backend connection"`
}

// SetDefaults applies default values.
func (c *SnapshotConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = SnapshotBackendFile
	}
	if c.Dir == "" {
		c.Dir = "snapshots"
	}
	c.Database.SetDefaults()
}

// Validate checks the snapshot configuration.
func (c *SnapshotConfig) Validate() error {
	if c.Backend != SnapshotBackendFile && c.Backend != SnapshotBackendSQL {
		return fmt.Errorf("invalid backend %q (valid: file, sql)", c.Backend)
	}
	if c.Enabled && c.Backend == SnapshotBackendSQL {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	return nil
}

// PromptsConfig configures prompt template resolution.
type PromptsConfig struct {
	// Dir is an optional directory of override templates; files named
	// like the built-in templates shadow them.
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty" jsonschema:"title=Dir,description=Directory of prompt template overrides"`

	// Watch hot-reloads overrides when files in Dir change.
	Watch bool `yaml:"watch,omitempty" json:"watch,omitempty" jsonschema:"title=Watch,description=Hot-reload prompt overrides,default=false"`
}

// SetDefaults applies default values.
func (c *PromptsConfig) SetDefaults() {}

// BenchmarkConfig configures the benchmark harness.
type BenchmarkConfig struct {
	// Runs is the number of solve attempts.
	Runs int `yaml:"runs,omitempty" json:"runs,omitempty" jsonschema:"title=Runs,description=Number of solve attempts,minimum=1,default=5"`

	// Sleep is the pause between runs, in seconds.
	Sleep int `yaml:"sleep,omitempty" json:"sleep,omitempty" jsonschema:"title=Sleep,description=Pause between runs in seconds,minimum=0,default=0"`

	// ReferenceFile holds the reference answer the judge compares against.
	ReferenceFile string `yaml:"reference_file,omitempty" json:"reference_file,omitempty" jsonschema:"title=Reference File,description=Reference answer path"`

	// Out is the results JSON path.
	Out string `yaml:"out,omitempty" json:"out,omitempty" jsonschema:"title=Out,description=Results JSON path,default=benchmark_results.json"`
}

// SetDefaults applies default values.
func (c *BenchmarkConfig) SetDefaults() {
	if c.Runs == 0 {
		c.Runs = 5
	}
	if c.Out == "" {
		c.Out = "benchmark_results.json"
	}
}

// Validate checks the benchmark configuration.
func (c *BenchmarkConfig) Validate() error {
	if c.Runs < 1 {
		return fmt.Errorf("runs must be at least 1")
	}
	if c.Sleep < 0 {
		return fmt.Errorf("sleep must be non-negative")
	}
	return nil
}
