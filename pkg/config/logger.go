package config

import "fmt"

// LoggerConfig configures logging behavior.
//
// Priority order (highest to lowest):
//  1. CLI flags (--log-level, --log-file, --log-format)
//  2. Config file (logger section)
//  3. Defaults (info level, simple format, stderr)
//
// Worker runs additionally get one file each under Dir, carrying both
// structured records and raw streamed model output.
type LoggerConfig struct {
	// Level specifies the log level (debug, info, warn, error).
	// Default: info
	Level string `yaml:"level,omitempty" json:"level,omitempty" jsonschema:"title=Level,description=Log level,enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// File specifies the process log file path.
	// If empty, logs go to stderr.
	File string `yaml:"file,omitempty" json:"file,omitempty" jsonschema:"title=File,description=Process log file (stderr when empty)"`

	// Format specifies the process log format: "simple" (level +
	// message) or "verbose" (time + level + message).
	Format string `yaml:"format,omitempty" json:"format,omitempty" jsonschema:"title=Format,description=Log format,enum=simple,enum=verbose,default=simple"`

	// Dir is where per-worker log files are created.
	// Default: logs
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty" jsonschema:"title=Dir,description=Per-worker log directory,default=logs"`
}

// SetDefaults applies default values to LoggerConfig.
func (c *LoggerConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
	if c.Dir == "" {
		c.Dir = "logs"
	}
}

// Validate checks the logger configuration.
func (c *LoggerConfig) Validate() error {
	if c.Level != "" {
		validLevels := map[string]bool{
			"debug":   true,
			"info":    true,
			"warn":    true,
			"warning": true,
			"error":   true,
		}
		if !validLevels[c.Level] {
			return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", c.Level)
		}
	}
	return nil
}
