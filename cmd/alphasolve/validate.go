package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/alphasolve/alphasolve/pkg/config"
)

// ValidateCmd validates a configuration file and prints the normalized
// form with defaults applied and environment variables resolved.
type ValidateCmd struct {
	Path string `arg:"" optional:"" name:"path" help:"Configuration file path (defaults to --config)." type:"path"`

	Quiet bool `short:"q" help:"Only report validity, skip the normalized printout."`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	path := c.Path
	if path == "" {
		path = cli.Config
	}
	if path == "" {
		return fmt.Errorf("no config file: pass a path or --config")
	}

	cfg, loader, err := config.LoadConfigWithLoader(config.LoaderOptions{Path: path})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: invalid: %s\n", path, err.Error())
		return fmt.Errorf("config validation failed")
	}
	defer loader.Stop()

	fmt.Printf("%s: valid\n", path)
	if c.Quiet {
		return nil
	}

	fmt.Printf("\n# Normalized configuration from: %s\n", path)
	encoder := yaml.NewEncoder(os.Stdout)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config as YAML: %w", err)
	}
	return encoder.Close()
}
