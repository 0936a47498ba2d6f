// Command alphasolve runs the multi-agent math proving workflow.
//
// Usage:
//
//	alphasolve solve --config config.yaml --problem-file problem.md
//	alphasolve benchmark --config config.yaml -n 10
//	alphasolve validate config.yaml
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alecthomas/kong"

	"github.com/alphasolve/alphasolve/pkg/config"
	"github.com/alphasolve/alphasolve/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Solve     SolveCmd     `cmd:"" help:"Solve a problem and print the resulting proof summary."`
	Benchmark BenchmarkCmd `cmd:"" help:"Run repeated solve attempts and grade them against a reference answer."`
	Validate  ValidateCmd  `cmd:"" help:"Validate a configuration file."`
	Schema    SchemaCmd    `cmd:"" help:"Generate JSON Schema for the configuration."`
	Version   VersionCmd   `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error). Overrides config."`
	LogFile   string `help:"Process log file path (empty = stderr). Overrides config."`
	LogFormat string `help:"Log format (simple or verbose). Overrides config."`
}

// loadConfig loads the config file named by --config, or defaults when
// the flag is unset.
func (c *CLI) loadConfig() (*config.Config, *config.Loader, error) {
	return config.LoadConfigWithLoader(config.LoaderOptions{Path: c.Config})
}

// initLogger sets up the process logger. CLI flags win over the config
// file. The returned cleanup closes the log file, if any.
func (c *CLI) initLogger(cfg *config.Config) (func(), error) {
	levelStr := c.LogLevel
	if levelStr == "" {
		levelStr = cfg.Logger.Level
	}
	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		return nil, err
	}

	path := c.LogFile
	if path == "" {
		path = cfg.Logger.File
	}
	format := c.LogFormat
	if format == "" {
		format = cfg.Logger.Format
	}

	output := os.Stderr
	var cleanup func()
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = f
		cleanup = func() { _ = f.Close() }
	}

	logger.Init(level, output, format)
	return cleanup, nil
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("alphasolve version %s\n", version)
	return nil
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("alphasolve"),
		kong.Description("alphasolve - multi-agent math proving workflow"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
