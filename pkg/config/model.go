package config

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ModelConfig configures one chat-completion endpoint for a role.
// All providers are assumed OpenAI-compatible (streaming + function
// calling); provider quirks go through ExtraBody.
type ModelConfig struct {
	// BaseURL of the chat-completions API (the client appends
	// /chat/completions).
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" jsonschema:"title=Base URL,description=OpenAI-compatible API base URL"`

	// APIKey is a literal key. Supports ${VAR} expansion at load time.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty" jsonschema:"title=API Key,description=Literal API key (use ${ENV_VAR})"`

	// APIKeyEnv names an environment variable read at client build time.
	APIKeyEnv string `yaml:"api_key_env,omitempty" json:"api_key_env,omitempty" jsonschema:"title=API Key Env,description=Environment variable holding the API key"`

	// APIKeyCommand is a shell command whose stdout is the key.
	APIKeyCommand string `yaml:"api_key_command,omitempty" json:"api_key_command,omitempty" jsonschema:"title=API Key Command,description=Command printing the API key to stdout"`

	// Model identifier sent in requests.
	Model string `yaml:"model,omitempty" json:"model,omitempty" jsonschema:"title=Model,description=Model identifier"`

	// Timeout for one streaming call, in seconds.
	Timeout int `yaml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"title=Timeout,description=Request timeout in seconds,minimum=1,default=3600"`

	// Temperature for generation.
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty" jsonschema:"title=Temperature,description=Sampling temperature,minimum=0,maximum=2,default=1"`

	// MaxRetries bounds whole-call retries from the baseline messages.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty" jsonschema:"title=Max Retries,description=Whole-call retry budget,minimum=0,default=8"`

	// ExtraBody is merged into the request JSON verbatim (for example
	// {"thinking": {"type": "enabled"}}).
	ExtraBody map[string]interface{} `yaml:"extra_body,omitempty" json:"extra_body,omitempty" jsonschema:"title=Extra Body,description=Provider-specific request body keys"`

	// ReasoningEffort for models that accept it (minimal/low/medium/high).
	ReasoningEffort string `yaml:"reasoning_effort,omitempty" json:"reasoning_effort,omitempty" jsonschema:"title=Reasoning Effort,description=Reasoning effort hint,enum=minimal,enum=low,enum=medium,enum=high"`

	// Tools lists the tool names available to this role. nil means the
	// role's built-in composition; an explicit empty list means no tools.
	Tools []string `yaml:"tools,omitempty" json:"tools,omitempty" jsonschema:"title=Tools,description=Tool names available to this role"`
}

// inherit copies unset fields from the base entry.
func (c *ModelConfig) inherit(base *ModelConfig) {
	if base == nil {
		return
	}
	if c.BaseURL == "" {
		c.BaseURL = base.BaseURL
	}
	if c.APIKey == "" && c.APIKeyEnv == "" && c.APIKeyCommand == "" {
		c.APIKey = base.APIKey
		c.APIKeyEnv = base.APIKeyEnv
		c.APIKeyCommand = base.APIKeyCommand
	}
	if c.Model == "" {
		c.Model = base.Model
	}
	if c.Timeout == 0 {
		c.Timeout = base.Timeout
	}
	if c.Temperature == nil {
		c.Temperature = base.Temperature
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = base.MaxRetries
	}
	if c.ExtraBody == nil {
		c.ExtraBody = base.ExtraBody
	}
	if c.ReasoningEffort == "" {
		c.ReasoningEffort = base.ReasoningEffort
	}
}

// SetDefaults applies default values.
func (c *ModelConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.deepseek.com/v1"
	}
	if c.Model == "" {
		c.Model = "deepseek-reasoner"
	}
	if c.Timeout == 0 {
		c.Timeout = 3600
	}
	if c.Temperature == nil {
		c.Temperature = FloatPtr(1.0)
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 8
	}
}

// Validate checks the model configuration.
func (c *ModelConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.ReasoningEffort != "" {
		valid := map[string]bool{"minimal": true, "low": true, "medium": true, "high": true}
		if !valid[c.ReasoningEffort] {
			return fmt.Errorf("invalid reasoning_effort %q (valid: minimal, low, medium, high)", c.ReasoningEffort)
		}
	}
	for _, name := range c.Tools {
		if !ValidToolNames[name] {
			return fmt.Errorf("unknown tool %q", name)
		}
	}
	return nil
}

// ResolveAPIKey resolves the key through the literal → env → command
// chain. An empty result is not an error; some endpoints need no key.
func (c *ModelConfig) ResolveAPIKey() (string, error) {
	if c.APIKey != "" {
		return c.APIKey, nil
	}
	if c.APIKeyEnv != "" {
		return os.Getenv(c.APIKeyEnv), nil
	}
	if c.APIKeyCommand != "" {
		out, err := exec.Command("sh", "-c", c.APIKeyCommand).Output()
		if err != nil {
			return "", fmt.Errorf("api_key_command failed: %w", err)
		}
		return strings.TrimSpace(string(out)), nil
	}
	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" {
		return key, nil
	}
	return os.Getenv("OPENAI_API_KEY"), nil
}
