package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix for environment overrides. Double underscore
// separates sections: ALPHASOLVE_WORKFLOW__MAX_LEMMA_NUM sets
// workflow.max_lemma_num.
const envPrefix = "ALPHASOLVE_"

// LoaderOptions controls config loading.
type LoaderOptions struct {
	// Path of the YAML config file. Empty means defaults only.
	Path string

	// Overrides are applied last (highest priority), keyed by dotted
	// config paths. Used for CLI flags.
	Overrides map[string]interface{}

	// Watch reloads the file on change and invokes OnChange.
	Watch bool

	OnChange func(*Config) error
}

// Loader loads, expands, and processes the configuration.
type Loader struct {
	koanf    *koanf.Koanf
	options  LoaderOptions
	parser   *yaml.YAML
	stopChan chan struct{}
}

// NewLoader creates a loader.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Watch && opts.Path == "" {
		return nil, fmt.Errorf("watch requires a config file path")
	}

	return &Loader{
		koanf:    koanf.New("."),
		options:  opts,
		parser:   yaml.Parser(),
		stopChan: make(chan struct{}),
	}, nil
}

// Load reads the file (when given), overlays ALPHASOLVE_* environment
// variables and programmatic overrides, expands ${VAR} references, and
// runs the config pipeline.
func (l *Loader) Load() (*Config, error) {
	var fileProvider *file.File

	if l.options.Path != "" {
		fileProvider = file.Provider(l.options.Path)
		if err := l.koanf.Load(fileProvider, l.parser); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", l.options.Path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := l.koanf.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if len(l.options.Overrides) > 0 {
		if err := l.koanf.Load(confmap.Provider(l.options.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	if err := l.expandEnvVarsInKoanf(); err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	cfg, err := l.unmarshalAndProcess()
	if err != nil {
		return nil, err
	}

	if l.options.Watch && fileProvider != nil {
		go l.watch(fileProvider)
	}

	return cfg, nil
}

func (l *Loader) watch(provider *file.File) {
	err := provider.Watch(func(event interface{}, err error) {
		select {
		case <-l.stopChan:
			return
		default:
		}

		if err != nil {
			slog.Warn("Config watch error", "error", err)
			return
		}

		l.koanf = koanf.New(".")
		if err := l.koanf.Load(provider, l.parser); err != nil {
			slog.Warn("Failed to reload config", "error", err)
			return
		}

		if err := l.expandEnvVarsInKoanf(); err != nil {
			slog.Warn("Failed to expand env vars in reloaded config", "error", err)
			return
		}

		newCfg, err := l.unmarshalAndProcess()
		if err != nil {
			slog.Warn("Reloaded config processing failed", "error", err)
			return
		}

		if l.options.OnChange != nil {
			if err := l.options.OnChange(newCfg); err != nil {
				slog.Warn("Config change callback failed", "error", err)
			} else {
				slog.Info("Configuration reloaded", "path", l.options.Path)
			}
		}
	})

	if err != nil {
		slog.Warn("Config watch stopped", "error", err)
	}
}

func (l *Loader) unmarshalAndProcess() (*Config, error) {
	cfg := &Config{}
	if err := l.koanf.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "yaml",
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	processedCfg, err := ProcessConfigPipeline(cfg)
	if err != nil {
		return nil, fmt.Errorf("config processing failed: %w", err)
	}

	return processedCfg, nil
}

func (l *Loader) expandEnvVarsInKoanf() error {
	rawMap := l.koanf.Raw()

	expandedMap := ExpandEnvVarsInData(rawMap)

	expandedMapData, ok := expandedMap.(map[string]interface{})
	if !ok {
		return fmt.Errorf("unexpected type after env var expansion")
	}

	newKoanf := koanf.New(".")
	if err := newKoanf.Load(confmap.Provider(expandedMapData, "."), nil); err != nil {
		return fmt.Errorf("failed to load expanded config: %w", err)
	}

	l.koanf = newKoanf

	return nil
}

// Stop cancels the watch goroutine.
func (l *Loader) Stop() {
	close(l.stopChan)
}

// LoadConfig loads and processes the configuration.
func LoadConfig(opts LoaderOptions) (*Config, error) {
	cfg, _, err := LoadConfigWithLoader(opts)
	return cfg, err
}

// LoadConfigWithLoader loads the configuration and returns the loader
// for callers that need Stop or watch control.
func LoadConfigWithLoader(opts LoaderOptions) (*Config, *Loader, error) {
	loader, err := NewLoader(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create loader: %w", err)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, loader, nil
}

// Default returns a fully processed default configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
